// Package ledgerview serves read-only views of the stored ledger: the daily
// summaries of an account and the fee lines of one order.
package ledgerview

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sellerledger/backend/internal/domain/integration"
	"github.com/sellerledger/backend/internal/domain/ledger"
	"github.com/sellerledger/backend/internal/infrastructure/telemetry"
)

// maxRange bounds one daily summary listing
const maxRange = 366 * 24 * time.Hour

var (
	// ErrInvalidRange is returned for an empty or inverted date range
	ErrInvalidRange = errors.New("ledgerview: range start must be before range end")
	// ErrRangeTooLong is returned for ranges longer than maxRange
	ErrRangeTooLong = errors.New("ledgerview: range is too long")
	// ErrOrderNotFound is returned when no line of the order is stored
	ErrOrderNotFound = errors.New("ledgerview: order not found")
)

// Dependencies are the stores the views read
type Dependencies struct {
	Accounts  integration.SellerAccountRepository
	Summaries ledger.DailySummaryRepository
	Lines     ledger.OrderLineFeeRepository
}

// Service reads the ledger. It never writes.
type Service struct {
	deps   Dependencies
	logger *zap.Logger
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

// NewService creates a ledger view service
func NewService(deps Dependencies, opts ...Option) (*Service, error) {
	if deps.Accounts == nil || deps.Summaries == nil || deps.Lines == nil {
		return nil, errors.New("ledgerview: missing dependency")
	}
	s := &Service{deps: deps, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DailySummaries returns the summaries of the dates in [from, to), oldest
// first. Dates without sales, refunds or fees have no summary.
func (s *Service) DailySummaries(ctx context.Context, accountID string, from, to time.Time) ([]ledger.DailyFinancialSummary, error) {
	if !from.Before(to) {
		return nil, ErrInvalidRange
	}
	if to.Sub(from) > maxRange {
		return nil, ErrRangeTooLong
	}
	account, err := s.deps.Accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "ledgerview", "daily_summaries",
		telemetry.WithAttribute(telemetry.SpanAttrAccountID, account.ID),
	)
	defer span.End()

	summaries, err := s.deps.Summaries.FindByDateRange(ctx, account.ID, from, to)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrRecords, len(summaries))
	return summaries, nil
}

// OrderLines returns the stored fee lines of one order
func (s *Service) OrderLines(ctx context.Context, accountID, orderID string) ([]ledger.OrderLineFeeRecord, error) {
	account, err := s.deps.Accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "ledgerview", "order_lines",
		telemetry.WithAttribute(telemetry.SpanAttrAccountID, account.ID),
		telemetry.WithAttribute(telemetry.SpanAttrOrderID, orderID),
	)
	defer span.End()

	lines, err := s.deps.Lines.FindByOrder(ctx, account.ID, orderID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if len(lines) == 0 {
		s.logger.Debug("No stored lines for order",
			zap.String("account_id", account.ID),
			zap.String("order_id", orderID),
		)
		return nil, ErrOrderNotFound
	}
	return lines, nil
}
