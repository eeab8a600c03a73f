package fees

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionTypeTransfer marks ledger transfers that never carry fees.
const TransactionTypeTransfer = "Transfer"

// TransactionTypeRefund marks refund rows.
const TransactionTypeRefund = "Refund"

// TransactionTypeOrder marks rows of a shipped order.
const TransactionTypeOrder = "Order"

// TransactionRow is one flat monetary line. Rows parsed from one settlement
// document or flattened from one batch of financial events share this shape.
type TransactionRow struct {
	OrderID           string          `json:"order_id"`
	TransactionType   string          `json:"transaction_type"`
	PostedDate        time.Time       `json:"posted_date"`
	AmountType        string          `json:"amount_type"`
	AmountDescription string          `json:"amount_description"`
	Amount            decimal.Decimal `json:"amount"`

	OrderItemCode   string `json:"order_item_code,omitempty"`
	SKU             string `json:"sku,omitempty"`
	Quantity        int    `json:"quantity,omitempty"`
	MarketplaceName string `json:"marketplace_name,omitempty"`

	// Line is the 1-based data line in the source document; zero for event rows.
	Line int `json:"line,omitempty"`
}

// IsTransfer reports whether the row is a non-fee ledger transfer.
func (r TransactionRow) IsTransfer() bool {
	return strings.EqualFold(strings.TrimSpace(r.TransactionType), TransactionTypeTransfer)
}

// IsRefund reports whether the row belongs to a refund transaction.
func (r TransactionRow) IsRefund() bool {
	return strings.EqualFold(strings.TrimSpace(r.TransactionType), TransactionTypeRefund)
}

// IsOrder reports whether the row belongs to a shipped order.
func (r TransactionRow) IsOrder() bool {
	return strings.EqualFold(strings.TrimSpace(r.TransactionType), TransactionTypeOrder)
}

// HasOrder reports whether the row is attributed to an order.
func (r TransactionRow) HasOrder() bool {
	return strings.TrimSpace(r.OrderID) != ""
}

// Excluded reports whether the row is left out of classification entirely.
func (r TransactionRow) Excluded() bool {
	return r.IsTransfer() || !r.HasOrder()
}

// LineKey identifies the order line a row belongs to, or "" when the row
// cannot be attributed to a single line.
func (r TransactionRow) LineKey() string {
	return strings.TrimSpace(r.OrderItemCode)
}
