package fees

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventKind is the kind of a financial event
type EventKind string

const (
	EventKindShipment   EventKind = "shipment"
	EventKindRefund     EventKind = "refund"
	EventKindAdjustment EventKind = "adjustment"
	EventKindServiceFee EventKind = "service_fee"
)

// IsValid returns true if the event kind is known
func (k EventKind) IsValid() bool {
	switch k {
	case EventKindShipment, EventKindRefund, EventKindAdjustment, EventKindServiceFee:
		return true
	}
	return false
}

// Amount types assigned to flattened event rows. They match the amount-type
// column of settlement documents so both sources classify identically.
const (
	AmountTypeItemPrice     = "ItemPrice"
	AmountTypeItemFees      = "ItemFees"
	AmountTypePromotion     = "Promotion"
	AmountTypeReimbursement = "FBA Inventory Reimbursement"
	AmountTypeServiceFees   = "Amazon Fees"
)

// Component is one charge, fee or promotion entry on an event item
type Component struct {
	Type   string          `json:"type"`
	Amount decimal.Decimal `json:"amount"`
	// PerUnit marks amounts expressed per unit; they are multiplied by the item quantity.
	PerUnit bool `json:"per_unit,omitempty"`
}

// total returns the line-level amount of the component for quantity units
func (c Component) total(quantity int) decimal.Decimal {
	if c.PerUnit && quantity > 1 {
		return c.Amount.Mul(decimal.NewFromInt(int64(quantity)))
	}
	return c.Amount
}

// EventItem is one order line inside a shipment, refund or adjustment event
type EventItem struct {
	OrderItemID string      `json:"order_item_id"`
	SKU         string      `json:"sku"`
	Quantity    int         `json:"quantity"`
	Charges     []Component `json:"charges,omitempty"`
	Fees        []Component `json:"fees,omitempty"`
	Promotions  []Component `json:"promotions,omitempty"`
}

// FinancialEvent is one structured record from the financial events API
type FinancialEvent struct {
	Kind            EventKind   `json:"kind"`
	OrderID         string      `json:"order_id,omitempty"`
	PostedDate      time.Time   `json:"posted_date"`
	MarketplaceName string      `json:"marketplace_name,omitempty"`
	Items           []EventItem `json:"items,omitempty"`

	// AdjustmentType names the adjustment (WAREHOUSE_DAMAGE, REVERSAL_REIMBURSEMENT, ...).
	AdjustmentType string `json:"adjustment_type,omitempty"`
	// Fees holds event-level fees of service fee events.
	Fees []Component `json:"fees,omitempty"`
	// Amount is the adjustment total when an adjustment carries no items.
	Amount decimal.Decimal `json:"amount"`
}

// transactionType maps the event kind to the settlement transaction type
func (e FinancialEvent) transactionType() string {
	switch e.Kind {
	case EventKindRefund:
		return TransactionTypeRefund
	case EventKindAdjustment:
		return "Adjustment"
	case EventKindServiceFee:
		return "ServiceFee"
	default:
		return TransactionTypeOrder
	}
}

// FlattenEvents adapts financial events into TransactionRows so they can be
// classified by the same rules as settlement documents. Per-unit components
// are multiplied by the item quantity; zero amounts are dropped.
func FlattenEvents(events []FinancialEvent) []TransactionRow {
	var rows []TransactionRow
	for _, e := range events {
		rows = append(rows, flattenEvent(e)...)
	}
	return rows
}

func flattenEvent(e FinancialEvent) []TransactionRow {
	base := TransactionRow{
		OrderID:         e.OrderID,
		TransactionType: e.transactionType(),
		PostedDate:      e.PostedDate,
		MarketplaceName: e.MarketplaceName,
	}

	var rows []TransactionRow
	emit := func(item *EventItem, amountType, description string, amount decimal.Decimal) {
		if amount.IsZero() {
			return
		}
		row := base
		row.AmountType = amountType
		row.AmountDescription = description
		row.Amount = amount
		if item != nil {
			row.OrderItemCode = item.OrderItemID
			row.SKU = item.SKU
			row.Quantity = item.Quantity
		}
		rows = append(rows, row)
	}

	switch e.Kind {
	case EventKindAdjustment:
		if len(e.Items) == 0 {
			emit(nil, AmountTypeReimbursement, e.AdjustmentType, e.Amount)
			return rows
		}
		for i := range e.Items {
			item := &e.Items[i]
			for _, c := range item.Charges {
				desc := c.Type
				if desc == "" {
					desc = e.AdjustmentType
				}
				emit(item, AmountTypeReimbursement, desc, c.total(item.Quantity))
			}
		}
	case EventKindServiceFee:
		for _, f := range e.Fees {
			emit(nil, AmountTypeServiceFees, f.Type, f.total(1))
		}
	default:
		for i := range e.Items {
			item := &e.Items[i]
			for _, c := range item.Charges {
				emit(item, AmountTypeItemPrice, c.Type, c.total(item.Quantity))
			}
			for _, f := range item.Fees {
				emit(item, AmountTypeItemFees, f.Type, f.total(item.Quantity))
			}
			for _, p := range item.Promotions {
				emit(item, AmountTypePromotion, p.Type, p.total(item.Quantity))
			}
		}
	}
	return rows
}
