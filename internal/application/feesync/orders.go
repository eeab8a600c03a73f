package feesync

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sellerledger/backend/internal/domain/integration"
	"github.com/sellerledger/backend/internal/domain/ledger"
	"github.com/sellerledger/backend/internal/infrastructure/logger"
)

// RunOrdersSync pages through orders created since the orders cursor (minus
// the overlap buffer) and upserts them. A listing failure on the first page
// fails the run; a failure on a later page keeps what was written and holds
// the cursor back.
func (s *Service) RunOrdersSync(ctx context.Context, accountID string, trigger integration.RunTrigger) (*integration.SyncRunRecord, error) {
	account, err := s.account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, account, integration.SyncTypeOrders, trigger, func(ctx context.Context, run *integration.SyncRunRecord) (*cursorAdvance, error) {
		return s.syncOrders(ctx, account, run)
	})
}

func (s *Service) syncOrders(ctx context.Context, account *integration.SellerAccount, run *integration.SyncRunRecord) (*cursorAdvance, error) {
	log := logger.FromContext(ctx)
	now := s.now()

	from := now.AddDate(0, 0, -s.config.InitialLookbackDays)
	cursor, err := s.deps.Cursors.Get(ctx, account.ID, integration.SyncTypeOrders)
	if err != nil {
		return nil, err
	}
	if cursor != nil && !cursor.Watermark.IsZero() {
		from = cursor.Watermark.Add(-s.config.OrdersOverlap)
	}
	// the remote listing rejects windows ending in the last couple of minutes
	to := now.Add(-2 * time.Minute)
	if !from.Before(to) {
		return nil, nil
	}
	run.SetWindow(from, to)

	req := integration.OrderListRequest{
		Account:       *account,
		CreatedAfter:  from,
		CreatedBefore: to,
		PageSize:      s.config.OrdersPageSize,
	}
	pages := 0
	for {
		var page *integration.OrderListPage
		err := s.callRemote(ctx, "list_orders", func(ctx context.Context) error {
			var err error
			page, err = s.deps.API.ListOrders(ctx, req)
			return err
		})
		if err != nil {
			if pages == 0 {
				return nil, err
			}
			log.Warn("Order listing stopped early", zap.Int("pages", pages), zap.Error(err))
			run.Abort(err)
			break
		}
		pages++

		for i := range page.Orders {
			order := toOrderRecord(account.ID, &page.Orders[i], now)
			if err := s.deps.Orders.Upsert(ctx, order); err != nil {
				run.Abort(integration.StoreWriteError("order "+order.OrderID, err))
				return &cursorAdvance{Watermark: to, OnlyIfCompleted: true}, nil
			}
			run.RecordSuccess(1)
		}

		if !page.HasMore() || len(page.Orders) == 0 {
			break
		}
		req.NextToken = page.NextToken
	}

	log.Debug("Orders listed", zap.Int("pages", pages), zap.Int("orders", run.RecordsSynced))
	return &cursorAdvance{Watermark: to, OnlyIfCompleted: true}, nil
}

func toOrderRecord(accountID string, o *integration.RemoteOrder, now time.Time) *ledger.OrderRecord {
	return &ledger.OrderRecord{
		AccountID:     accountID,
		OrderID:       o.OrderID,
		PurchaseDate:  o.PurchaseDate.UTC(),
		LastUpdated:   o.LastUpdated.UTC(),
		Status:        o.Status,
		MarketplaceID: o.MarketplaceID,
		Currency:      o.Currency,
		OrderTotal:    o.OrderTotal,
		UpdatedAt:     now,
	}
}
