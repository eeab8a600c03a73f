package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sellerledger/backend/internal/domain/integration"
)

// SyncTickerConfig holds configuration for the in-process trigger
type SyncTickerConfig struct {
	// Interval is how often all accounts are synced
	Interval time.Duration
	// RunOnStart syncs once immediately instead of waiting one interval
	RunOnStart bool
}

// DefaultSyncTickerConfig returns default ticker configuration
func DefaultSyncTickerConfig() SyncTickerConfig {
	return SyncTickerConfig{
		Interval: time.Hour,
	}
}

// SyncTicker periodically runs the account fan-out. It is the in-process
// alternative to the authenticated trigger endpoint; both end up in RunAll,
// which rejects overlapping fan-outs.
type SyncTicker struct {
	config    SyncTickerConfig
	scheduler *AccountSyncScheduler
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewSyncTicker creates a new ticker
func NewSyncTicker(config SyncTickerConfig, scheduler *AccountSyncScheduler, logger *zap.Logger) (*SyncTicker, error) {
	if config.Interval <= 0 || scheduler == nil {
		return nil, ErrInvalidConfig
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncTicker{
		config:    config,
		scheduler: scheduler,
		logger:    logger,
	}, nil
}

// Start starts the ticker
func (t *SyncTicker) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Sync ticker started",
		zap.Duration("interval", t.config.Interval),
		zap.Bool("run_on_start", t.config.RunOnStart),
	)
	return nil
}

// Stop stops the ticker and waits for an in-flight fan-out to return
func (t *SyncTicker) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Sync ticker stopped")
		return nil
	case <-ctx.Done():
		t.logger.Warn("Sync ticker stop timed out")
		return ctx.Err()
	}
}

func (t *SyncTicker) runLoop(ctx context.Context) {
	defer t.wg.Done()

	if t.config.RunOnStart {
		t.trigger(ctx)
	}

	ticker := time.NewTicker(t.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.trigger(ctx)
		}
	}
}

func (t *SyncTicker) trigger(ctx context.Context) {
	_, err := t.scheduler.RunAll(ctx, integration.RunTriggerSchedule)
	switch {
	case errors.Is(err, ErrFanOutInProgress):
		t.logger.Info("Scheduled sync skipped, previous fan-out still running")
	case err != nil:
		t.logger.Error("Scheduled sync failed", zap.Error(err))
	}
}
