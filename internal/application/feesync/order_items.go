package feesync

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sellerledger/backend/internal/domain/integration"
	"github.com/sellerledger/backend/internal/domain/ledger"
	"github.com/sellerledger/backend/internal/infrastructure/logger"
)

// ItemsOptions tunes one order-items run
type ItemsOptions struct {
	Trigger integration.RunTrigger
	// Force selects every order in the lookback window, ignoring line state
	Force bool
	// Limit overrides the configured batch size when positive
	Limit int
}

// RunOrderItemsSync fetches line items for stored orders that do not carry
// fee-populated lines yet, then always follows with a financial-events pass
// over the trailing window. Both runs are returned in the report.
func (s *Service) RunOrderItemsSync(ctx context.Context, accountID string, opts ItemsOptions) (*SyncReport, error) {
	account, err := s.account(ctx, accountID)
	if err != nil {
		return nil, err
	}

	report := newSyncReport(account.ID, s.now())
	itemsRun, err := s.execute(ctx, account, integration.SyncTypeOrderItems, opts.Trigger, func(ctx context.Context, run *integration.SyncRunRecord) (*cursorAdvance, error) {
		return nil, s.syncOrderItems(ctx, account, run, opts)
	})
	if err != nil {
		return nil, err
	}
	report.add(itemsRun)

	s.followWithEvents(ctx, account, opts.Trigger, report)
	report.finish(s.now())
	return report, nil
}

func (s *Service) syncOrderItems(ctx context.Context, account *integration.SellerAccount, run *integration.SyncRunRecord, opts ItemsOptions) error {
	log := logger.FromContext(ctx)
	now := s.now()

	limit := s.config.OrderItemsBatchSize
	if opts.Limit > 0 {
		limit = opts.Limit
	}
	from := now.AddDate(0, 0, -s.config.LookbackDays)
	run.SetWindow(from, now)

	candidates, err := s.deps.Orders.FindItemSyncCandidates(ctx, ledger.ItemSyncCandidateQuery{
		AccountID:      account.ID,
		PurchasedAfter: from,
		RecheckBefore:  now.Add(-s.config.RecheckAfter),
		Force:          opts.Force,
		Limit:          limit,
	})
	if err != nil {
		return err
	}
	log.Info("Order items candidates selected", zap.Int("orders", len(candidates)), zap.Bool("force", opts.Force))

	for i := range candidates {
		order := &candidates[i]
		if err := ctx.Err(); err != nil {
			run.Abort(err)
			return nil
		}

		var items []integration.OrderLineItem
		err := s.callRemote(ctx, "get_order_items", func(ctx context.Context) error {
			var err error
			items, err = s.deps.API.GetOrderItems(ctx, *account, order.OrderID)
			return err
		})
		if err != nil {
			log.Warn("Failed to fetch order items", zap.String("order_id", order.OrderID), zap.Error(err))
			run.RecordFailure(order.OrderID, err)
			continue
		}

		written, err := s.storeOrderItems(ctx, account.ID, order, items, now)
		run.RecordSuccess(written)
		if err != nil {
			run.Abort(err)
			return nil
		}
		if err := s.deps.Orders.MarkItemsSynced(ctx, account.ID, order.OrderID, now); err != nil {
			run.Abort(integration.StoreWriteError("order "+order.OrderID, err))
			return nil
		}
	}
	return nil
}

// storeOrderItems upserts the item fields of each line, resolving zero
// prices from the catalog. It stops at the first store failure.
func (s *Service) storeOrderItems(ctx context.Context, accountID string, order *ledger.OrderRecord, items []integration.OrderLineItem, now time.Time) (int, error) {
	written := 0
	for _, item := range items {
		if item.OrderItemID == "" {
			continue
		}
		price := s.resolvePrice(ctx, accountID, item)

		rec := &ledger.OrderLineFeeRecord{
			AccountID:    accountID,
			OrderItemID:  item.OrderItemID,
			OrderID:      order.OrderID,
			SKU:          item.SKU,
			ASIN:         item.ASIN,
			Quantity:     item.Quantity,
			ItemPrice:    price,
			Currency:     firstNonEmpty(item.Currency, order.Currency),
			PurchaseDate: order.PurchaseDate,
			UpdatedAt:    now,
		}
		if err := s.deps.Lines.UpsertLineItem(ctx, rec); err != nil {
			return written, integration.StoreWriteError("order line "+item.OrderItemID, err)
		}
		written++
	}
	return written, nil
}

// resolvePrice applies the catalog fallback to a zero line price. Lookup
// failures keep the reported price.
func (s *Service) resolvePrice(ctx context.Context, accountID string, item integration.OrderLineItem) decimal.Decimal {
	if !item.ItemPrice.IsZero() {
		return item.ItemPrice
	}
	for _, productID := range []string{item.ASIN, item.SKU} {
		if productID == "" {
			continue
		}
		catalogPrice, ok, err := s.deps.Catalog.FindPrice(ctx, accountID, productID)
		if err != nil {
			logger.FromContext(ctx).Warn("Catalog price lookup failed",
				zap.String("product_id", productID),
				zap.Error(err),
			)
			return item.ItemPrice
		}
		if ok {
			price, _ := ledger.ResolveItemPrice(item.ItemPrice, item.Quantity, catalogPrice, true)
			return price
		}
	}
	return item.ItemPrice
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
