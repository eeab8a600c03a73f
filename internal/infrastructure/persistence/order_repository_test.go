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

func day(d int) time.Time {
	return time.Date(2026, 3, d, 12, 0, 0, 0, time.UTC)
}

func seedOrder(t *testing.T, repo *GormOrderRepository, id string, purchased time.Time) {
	t.Helper()
	require.NoError(t, repo.Upsert(context.Background(), &ledger.OrderRecord{
		AccountID:    "acct-1",
		OrderID:      id,
		PurchaseDate: purchased,
		LastUpdated:  purchased,
		Status:       "Shipped",
		Currency:     "USD",
		OrderTotal:   decimal.RequireFromString("39.98"),
	}))
}

func TestGormOrderRepository_UpsertAndFind(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	seedOrder(t, repo, "111-1", day(1))
	require.NoError(t, repo.MarkItemsSynced(ctx, "acct-1", "111-1", day(2)))

	// A second upsert updates the order but keeps the item sync stamp
	require.NoError(t, repo.Upsert(ctx, &ledger.OrderRecord{
		AccountID:    "acct-1",
		OrderID:      "111-1",
		PurchaseDate: day(1),
		LastUpdated:  day(3),
		Status:       "Cancelled",
		OrderTotal:   decimal.Zero,
	}))

	found, err := repo.FindByID(ctx, "acct-1", "111-1")
	require.NoError(t, err)
	assert.Equal(t, "Cancelled", found.Status)
	require.NotNil(t, found.ItemsSyncedAt)
	assert.True(t, found.ItemsSyncedAt.Equal(day(2)))

	_, err = repo.FindByID(ctx, "acct-1", "missing")
	assert.ErrorIs(t, err, ledger.ErrOrderNotFound)

	assert.ErrorIs(t, repo.MarkItemsSynced(ctx, "acct-1", "missing", day(2)), ledger.ErrOrderNotFound)
	assert.ErrorIs(t, repo.Upsert(ctx, &ledger.OrderRecord{AccountID: "acct-1"}), ledger.ErrInvalidRecord)
}

func TestGormOrderRepository_FindItemSyncCandidates(t *testing.T) {
	db := setupTestDB(t)
	orders := NewGormOrderRepository(db)
	lines := NewGormOrderLineFeeRepository(db)
	ctx := context.Background()

	seedOrder(t, orders, "old", day(1))          // outside the window
	seedOrder(t, orders, "fresh", day(10))       // never synced
	seedOrder(t, orders, "newest", day(12))      // never synced
	seedOrder(t, orders, "populated", day(11))   // has fees
	seedOrder(t, orders, "recent-sync", day(11)) // synced recently, no fees yet
	seedOrder(t, orders, "stale-sync", day(9))   // synced long ago, no fees yet

	require.NoError(t, orders.MarkItemsSynced(ctx, "acct-1", "recent-sync", day(14)))
	require.NoError(t, orders.MarkItemsSynced(ctx, "acct-1", "stale-sync", day(5)))

	totals := fees.NewTotals()
	rec := &ledger.OrderLineFeeRecord{AccountID: "acct-1", OrderItemID: "OI-P", OrderID: "populated", PurchaseDate: day(11)}
	rec.SetFees(totals, ledger.FeeSourceAPI)
	require.NoError(t, lines.UpsertFees(ctx, rec))

	// A line without fees does not make its order ineligible
	require.NoError(t, lines.UpsertLineItem(ctx, &ledger.OrderLineFeeRecord{AccountID: "acct-1", OrderItemID: "OI-F", OrderID: "fresh"}))

	ids := func(recs []ledger.OrderRecord) []string {
		out := make([]string, len(recs))
		for i, r := range recs {
			out[i] = r.OrderID
		}
		return out
	}

	t.Run("excludes populated and recently synced orders", func(t *testing.T) {
		got, err := orders.FindItemSyncCandidates(ctx, ledger.ItemSyncCandidateQuery{
			AccountID:      "acct-1",
			PurchasedAfter: day(8),
			RecheckBefore:  day(13),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"newest", "fresh", "stale-sync"}, ids(got))
	})

	t.Run("limit caps the batch", func(t *testing.T) {
		got, err := orders.FindItemSyncCandidates(ctx, ledger.ItemSyncCandidateQuery{
			AccountID:      "acct-1",
			PurchasedAfter: day(8),
			RecheckBefore:  day(13),
			Limit:          1,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"newest"}, ids(got))
	})

	t.Run("force selects every order in the window", func(t *testing.T) {
		got, err := orders.FindItemSyncCandidates(ctx, ledger.ItemSyncCandidateQuery{
			AccountID:      "acct-1",
			PurchasedAfter: day(8),
			Force:          true,
		})
		require.NoError(t, err)
		assert.Len(t, got, 5)
	})
}
