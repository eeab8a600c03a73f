// Package feesync orchestrates incremental retrieval of orders, order line
// items, financial events and settlement documents for a seller account,
// classifies the fee rows and writes idempotent ledger records.
package feesync

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sellerledger/backend/internal/domain/fees"
	"github.com/sellerledger/backend/internal/domain/integration"
	"github.com/sellerledger/backend/internal/domain/ledger"
	"github.com/sellerledger/backend/internal/infrastructure/marketplace"
	"github.com/sellerledger/backend/internal/infrastructure/settlement"
	"github.com/sellerledger/backend/internal/infrastructure/telemetry"
)

// Dependencies are the ports the orchestrator drives. All are required
// except Settlements, which disables the settlement pass when nil.
type Dependencies struct {
	Accounts    integration.SellerAccountRepository
	Runs        integration.SyncRunRepository
	Cursors     integration.SyncCursorRepository
	Guard       integration.RunGuard
	API         integration.SellerDataAPI
	Settlements *settlement.Loader

	Orders    ledger.OrderRepository
	Lines     ledger.OrderLineFeeRepository
	Summaries ledger.DailySummaryRepository
	Catalog   ledger.CatalogPriceLookup
}

func (d Dependencies) validate() error {
	if d.Accounts == nil || d.Runs == nil || d.Cursors == nil || d.Guard == nil || d.API == nil ||
		d.Orders == nil || d.Lines == nil || d.Summaries == nil || d.Catalog == nil {
		return errors.New("feesync: missing dependency")
	}
	return nil
}

// Service runs sync passes. Passes of one account run sequentially; distinct
// accounts may be synced concurrently.
type Service struct {
	deps       Dependencies
	config     Config
	classifier *fees.Classifier
	throttle   *marketplace.Throttle
	metrics    *telemetry.SyncMetrics
	logger     *zap.Logger
	now        func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records run and remote call metrics
func WithMetrics(m *telemetry.SyncMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithThrottle shares a remote call throttle with other API callers. It
// replaces the one built from InterCallDelay and CallTimeout.
func WithThrottle(t *marketplace.Throttle) Option {
	return func(s *Service) {
		if t != nil {
			s.throttle = t
		}
	}
}

// WithClassifier replaces the default classifier
func WithClassifier(c *fees.Classifier) Option {
	return func(s *Service) {
		if c != nil {
			s.classifier = c
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates the orchestrator
func NewService(deps Dependencies, config Config, opts ...Option) (*Service, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		deps:       deps,
		config:     config,
		classifier: fees.NewClassifier(),
		throttle:   marketplace.NewThrottle(config.InterCallDelay, config.CallTimeout),
		logger:     zap.NewNop(),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// callRemote runs one throttled remote call under the per-call timeout
func (s *Service) callRemote(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	s.throttle.Wait(ctx)

	start := time.Now()
	err := s.throttle.Run(ctx, fn)
	s.metrics.RecordRemoteCall(ctx, operation, time.Since(start), err)
	return err
}

// account loads an account and checks it may be synced
func (s *Service) account(ctx context.Context, accountID string) (*integration.SellerAccount, error) {
	account, err := s.deps.Accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !account.Enabled {
		return nil, integration.ErrAccountDisabled
	}
	return account, nil
}

// History returns the most recent runs of an account, newest first
func (s *Service) History(ctx context.Context, accountID string, limit int) ([]integration.SyncRunRecord, error) {
	if _, err := s.deps.Accounts.FindByID(ctx, accountID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	return s.deps.Runs.FindRecent(ctx, accountID, limit)
}
