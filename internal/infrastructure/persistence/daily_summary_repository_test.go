package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerledger/backend/internal/domain/fees"
	"github.com/sellerledger/backend/internal/domain/ledger"
)

func summaryFor(date time.Time, sales string) *ledger.DailyFinancialSummary {
	totals := fees.TotalsFromValues(map[fees.Category]decimal.Decimal{
		fees.CategoryReferral: decimal.RequireFromString("3.00"),
	})
	return ledger.NewDailyFinancialSummary("acct-1", fees.DayTotals{
		Date:    date,
		Totals:  totals,
		Sales:   decimal.RequireFromString(sales),
		Refunds: decimal.Zero,
		Units:   1,
		Orders:  1,
	}, time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC))
}

func TestGormDailySummaryRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormDailySummaryRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, summaryFor(day(3), "20.00")))
	require.NoError(t, repo.Upsert(ctx, summaryFor(day(4), "10.00")))

	// A second write for the same date replaces the row
	require.NoError(t, repo.Upsert(ctx, summaryFor(day(3), "30.00")))

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	got, err := repo.FindByDateRange(ctx, "acct-1", from, to)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), got[0].Date)
	assert.True(t, decimal.RequireFromString("30.00").Equal(got[0].Sales))
	assert.True(t, decimal.RequireFromString("27.00").Equal(got[0].GrossProfit))
	assert.True(t, decimal.RequireFromString("90.00").Equal(got[0].Margin))
	assert.True(t, decimal.RequireFromString("3.00").Equal(got[0].Fees[fees.CategoryReferral]))
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), got[1].Date)

	assert.ErrorIs(t, repo.Upsert(ctx, &ledger.DailyFinancialSummary{}), ledger.ErrInvalidRecord)
}
