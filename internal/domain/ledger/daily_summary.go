package ledger

import (
	"context"
	"time"

	"github.com/sellerledger/backend/internal/domain/fees"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// DailyFinancialSummary aggregates one calendar date of one account.
// Identity: (AccountID, Date). Each write fully replaces the row.
type DailyFinancialSummary struct {
	AccountID string
	// Date is midnight of the calendar date, stored as a UTC date
	Date time.Time

	Sales               decimal.Decimal
	Refunds             decimal.Decimal
	Fees                map[fees.Category]decimal.Decimal
	TotalFees           decimal.Decimal
	UncategorizedAmount decimal.Decimal
	Units               int
	Orders              int
	GrossProfit         decimal.Decimal
	// Margin is GrossProfit as a percentage of Sales, two decimals
	Margin decimal.Decimal

	ComputedAt time.Time
}

// NewDailyFinancialSummary computes a summary from the totals of one day
func NewDailyFinancialSummary(accountID string, day fees.DayTotals, now time.Time) *DailyFinancialSummary {
	totalFees := day.Totals.TotalAmazonFees()
	gross := day.Sales.Sub(day.Refunds).Sub(totalFees)
	margin := decimal.Zero
	if day.Sales.IsPositive() {
		margin = gross.Div(day.Sales).Mul(hundred).Round(2)
	}

	return &DailyFinancialSummary{
		AccountID:           accountID,
		Date:                time.Date(day.Date.Year(), day.Date.Month(), day.Date.Day(), 0, 0, 0, 0, time.UTC),
		Sales:               day.Sales,
		Refunds:             day.Refunds,
		Fees:                day.Totals.Values(),
		TotalFees:           totalFees,
		UncategorizedAmount: day.Totals.Uncategorized.Total,
		Units:               day.Units,
		Orders:              day.Orders,
		GrossProfit:         gross,
		Margin:              margin,
		ComputedAt:          now,
	}
}

// Validate checks the natural key
func (s *DailyFinancialSummary) Validate() error {
	if s.AccountID == "" || s.Date.IsZero() {
		return ErrInvalidRecord
	}
	return nil
}

// DailySummaryRepository persists daily summaries
type DailySummaryRepository interface {
	// Upsert overwrites every field of the (account, date) row
	Upsert(ctx context.Context, summary *DailyFinancialSummary) error
	// FindByDateRange returns summaries with from <= date < to, oldest first
	FindByDateRange(ctx context.Context, accountID string, from, to time.Time) ([]DailyFinancialSummary, error)
}
