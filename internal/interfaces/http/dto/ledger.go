package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sellerledger/backend/internal/domain/fees"
	"github.com/sellerledger/backend/internal/domain/ledger"
)

// DailySummaryResponse represents one calendar date of an account
type DailySummaryResponse struct {
	Date                string                     `json:"date" example:"2024-03-05"`
	Sales               decimal.Decimal            `json:"sales"`
	Refunds             decimal.Decimal            `json:"refunds"`
	Fees                map[string]decimal.Decimal `json:"fees"`
	TotalFees           decimal.Decimal            `json:"total_fees"`
	UncategorizedAmount decimal.Decimal            `json:"uncategorized_amount"`
	Units               int                        `json:"units"`
	Orders              int                        `json:"orders"`
	GrossProfit         decimal.Decimal            `json:"gross_profit"`
	Margin              decimal.Decimal            `json:"margin"`
	ComputedAt          time.Time                  `json:"computed_at"`
}

// ToDailySummaryResponses converts stored summaries, keeping their order
func ToDailySummaryResponses(summaries []ledger.DailyFinancialSummary) []DailySummaryResponse {
	out := make([]DailySummaryResponse, len(summaries))
	for i, s := range summaries {
		out[i] = DailySummaryResponse{
			Date:                s.Date.Format(time.DateOnly),
			Sales:               s.Sales,
			Refunds:             s.Refunds,
			Fees:                categoryValues(s.Fees),
			TotalFees:           s.TotalFees,
			UncategorizedAmount: s.UncategorizedAmount,
			Units:               s.Units,
			Orders:              s.Orders,
			GrossProfit:         s.GrossProfit,
			Margin:              s.Margin,
			ComputedAt:          s.ComputedAt,
		}
	}
	return out
}

// OrderLineFeeResponse represents the stored fees of one order line
type OrderLineFeeResponse struct {
	OrderItemID     string                     `json:"order_item_id"`
	OrderID         string                     `json:"order_id"`
	SKU             string                     `json:"sku,omitempty"`
	ASIN            string                     `json:"asin,omitempty"`
	Quantity        int                        `json:"quantity"`
	ItemPrice       decimal.Decimal            `json:"item_price"`
	Currency        string                     `json:"currency,omitempty"`
	PurchaseDate    *time.Time                 `json:"purchase_date,omitempty"`
	Fees            map[string]decimal.Decimal `json:"fees"`
	FeeSource       string                     `json:"fee_source" example:"settlement_report"`
	TotalAmazonFees decimal.Decimal            `json:"total_amazon_fees"`
	UpdatedAt       time.Time                  `json:"updated_at"`
}

// OrderLineFeesResponse lists the lines of one order
type OrderLineFeesResponse struct {
	AccountID       string                 `json:"account_id"`
	OrderID         string                 `json:"order_id"`
	TotalAmazonFees decimal.Decimal        `json:"total_amazon_fees"`
	Lines           []OrderLineFeeResponse `json:"lines"`
}

// ToOrderLineFeesResponse converts the stored lines of one order
func ToOrderLineFeesResponse(accountID, orderID string, lines []ledger.OrderLineFeeRecord) OrderLineFeesResponse {
	resp := OrderLineFeesResponse{
		AccountID:       accountID,
		OrderID:         orderID,
		TotalAmazonFees: decimal.Zero,
		Lines:           make([]OrderLineFeeResponse, len(lines)),
	}
	for i, l := range lines {
		line := OrderLineFeeResponse{
			OrderItemID:     l.OrderItemID,
			OrderID:         l.OrderID,
			SKU:             l.SKU,
			ASIN:            l.ASIN,
			Quantity:        l.Quantity,
			ItemPrice:       l.ItemPrice,
			Currency:        l.Currency,
			Fees:            categoryValues(l.Fees),
			FeeSource:       l.FeeSource.String(),
			TotalAmazonFees: l.TotalAmazonFees,
			UpdatedAt:       l.UpdatedAt,
		}
		if !l.PurchaseDate.IsZero() {
			purchased := l.PurchaseDate
			line.PurchaseDate = &purchased
		}
		resp.Lines[i] = line
		resp.TotalAmazonFees = resp.TotalAmazonFees.Add(l.TotalAmazonFees)
	}
	return resp
}

// categoryValues lists every category, zero when absent
func categoryValues(values map[fees.Category]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(fees.Categories()))
	for _, c := range fees.Categories() {
		v, ok := values[c]
		if !ok {
			v = decimal.Zero
		}
		out[string(c)] = v
	}
	return out
}

// OrderPath identifies one order of an account
type OrderPath struct {
	OrderID string `uri:"order_id" binding:"required,max=64"`
}
