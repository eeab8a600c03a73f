package feesync

import (
	"context"

	"go.uber.org/zap"

	"github.com/sellerledger/backend/internal/domain/integration"
)

// SyncOptions tunes an incremental sync
type SyncOptions struct {
	Trigger integration.RunTrigger
	// Force refetches the line items of every order in the lookback window
	Force bool
}

// RunIncrementalSync runs every pass of one account in order: orders, order
// items with the trailing financial-events follow-up, then settlements.
// Passes already running elsewhere are listed in the report as skipped; when
// every pass was skipped the call fails with ErrSyncInProgress.
func (s *Service) RunIncrementalSync(ctx context.Context, accountID string, opts SyncOptions) (*SyncReport, error) {
	account, err := s.account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if opts.Trigger == "" {
		opts.Trigger = integration.RunTriggerUser
	}

	log := s.logger.With(zap.String("account_id", account.ID))
	report := newSyncReport(account.ID, s.now())

	ordersRun, err := s.execute(ctx, account, integration.SyncTypeOrders, opts.Trigger, func(ctx context.Context, run *integration.SyncRunRecord) (*cursorAdvance, error) {
		return s.syncOrders(ctx, account, run)
	})
	if err := report.record(integration.SyncTypeOrders, ordersRun, err); err != nil {
		return nil, err
	}

	itemsOpts := ItemsOptions{Trigger: opts.Trigger, Force: opts.Force}
	itemsRun, err := s.execute(ctx, account, integration.SyncTypeOrderItems, opts.Trigger, func(ctx context.Context, run *integration.SyncRunRecord) (*cursorAdvance, error) {
		return nil, s.syncOrderItems(ctx, account, run, itemsOpts)
	})
	if err := report.record(integration.SyncTypeOrderItems, itemsRun, err); err != nil {
		return nil, err
	}
	s.followWithEvents(ctx, account, opts.Trigger, report)

	if s.deps.Settlements != nil {
		settlementRun, err := s.execute(ctx, account, integration.SyncTypeSettlements, opts.Trigger, func(ctx context.Context, run *integration.SyncRunRecord) (*cursorAdvance, error) {
			return s.syncSettlements(ctx, account, run)
		})
		if err := report.record(integration.SyncTypeSettlements, settlementRun, err); err != nil {
			return nil, err
		}
	}

	report.finish(s.now())
	if len(report.Runs) == 0 && len(report.Skipped) > 0 {
		return nil, integration.ErrSyncInProgress
	}
	log.Info("Incremental sync finished",
		zap.String("status", report.Status().String()),
		zap.Int("runs", len(report.Runs)),
		zap.Int("skipped", len(report.Skipped)),
	)
	return report, nil
}

// SyncAccount runs an incremental sync and returns its overall status. It
// lets the account fan-out drive the service.
func (s *Service) SyncAccount(ctx context.Context, accountID string, trigger integration.RunTrigger) (integration.RunStatus, error) {
	report, err := s.RunIncrementalSync(ctx, accountID, SyncOptions{Trigger: trigger})
	if err != nil {
		return "", err
	}
	return report.Status(), nil
}
