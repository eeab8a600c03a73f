package feesync

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sellerledger/backend/internal/domain/integration"
	"github.com/sellerledger/backend/internal/infrastructure/logger"
	"github.com/sellerledger/backend/internal/infrastructure/telemetry"
)

// cursorAdvance is the cursor a pass wants saved once its run has finished
type cursorAdvance struct {
	Position  string
	Watermark time.Time
	// OnlyIfCompleted holds the cursor back on partially completed runs
	OnlyIfCompleted bool
}

// passFunc performs the work of one pass. A returned error is a run-level
// failure; per-item failures and aborts are recorded on run instead.
type passFunc func(ctx context.Context, run *integration.SyncRunRecord) (*cursorAdvance, error)

// execute runs one pass under the run guard and persists its audit record.
// It returns ErrSyncInProgress without creating a record when another run of
// the same (account, sync type) holds the lock.
func (s *Service) execute(
	ctx context.Context,
	account *integration.SellerAccount,
	syncType integration.SyncType,
	trigger integration.RunTrigger,
	pass passFunc,
) (*integration.SyncRunRecord, error) {
	lease, err := s.deps.Guard.Acquire(ctx, account.ID, syncType)
	if err != nil {
		if errors.Is(err, integration.ErrSyncInProgress) {
			s.metrics.RecordRejected(ctx, syncType.String())
		}
		return nil, err
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("Failed to release sync lock",
				zap.String("account_id", account.ID),
				zap.String("sync_type", syncType.String()),
				zap.Error(err),
			)
		}
	}()

	run := integration.NewSyncRun(account.ID, syncType, trigger, s.now())
	if err := s.deps.Runs.Create(ctx, run); err != nil {
		return nil, integration.StoreWriteError("sync run", err)
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "feesync", syncType.String(),
		telemetry.WithAttribute(telemetry.SpanAttrAccountID, account.ID),
		telemetry.WithAttribute(telemetry.SpanAttrRunID, run.ID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrTrigger, string(trigger)),
	)
	defer span.End()

	ctx, log := logger.WithRunID(ctx, s.logger.With(
		zap.String("account_id", account.ID),
		zap.String("sync_type", syncType.String()),
	), run.ID.String())
	log.Info("Sync run started", zap.String("trigger", string(trigger)))

	advance, err := pass(ctx, run)
	if err != nil {
		telemetry.RecordError(span, err)
		run.Fail(s.now(), err)
	} else {
		run.Complete(s.now())
	}
	if advance != nil && run.Succeeded() &&
		(!advance.OnlyIfCompleted || run.Status == integration.RunStatusCompleted) {
		s.advanceCursor(ctx, run, advance)
	}

	// the record must be finalized even when the caller has gone away
	if err := s.deps.Runs.Finalize(context.WithoutCancel(ctx), run); err != nil {
		log.Error("Failed to finalize sync run", zap.Error(err))
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrRecords, run.RecordsSynced, "run_status", run.Status.String())
	s.metrics.RecordRun(ctx, account.ID, syncType.String(), run.Status.String(), run.RecordsSynced, run.RecordsFailed, run.Duration())

	fields := []zap.Field{
		zap.String("status", run.Status.String()),
		zap.Int("records_synced", run.RecordsSynced),
		zap.Int("records_failed", run.RecordsFailed),
		zap.Duration("duration", run.Duration()),
	}
	switch run.Status {
	case integration.RunStatusCompleted:
		log.Info("Sync run completed", fields...)
	case integration.RunStatusPartiallyCompleted:
		log.Warn("Sync run partially completed", append(fields, zap.String("error_summary", run.ErrorSummary))...)
	default:
		log.Error("Sync run failed", append(fields, zap.String("error_summary", run.ErrorSummary))...)
	}
	return run, nil
}

// advanceCursor saves the cursor of a succeeded run. Failures are logged;
// the next run simply re-covers the same range.
func (s *Service) advanceCursor(ctx context.Context, run *integration.SyncRunRecord, advance *cursorAdvance) {
	cursor := &integration.SyncCursor{
		AccountID: run.AccountID,
		SyncType:  run.SyncType,
		Position:  advance.Position,
		Watermark: advance.Watermark,
		RunID:     run.ID,
		UpdatedAt: s.now(),
	}
	if err := s.deps.Cursors.Save(context.WithoutCancel(ctx), cursor); err != nil {
		logger.FromContext(ctx).Warn("Failed to save sync cursor",
			zap.String("sync_type", run.SyncType.String()),
			zap.Error(err),
		)
	}
}
