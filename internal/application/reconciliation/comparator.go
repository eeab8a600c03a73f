// Package reconciliation compares fee totals derived independently from
// settlement documents, stored order line records and financial events. It
// never writes.
package reconciliation

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sellerledger/backend/internal/domain/fees"
	"github.com/sellerledger/backend/internal/domain/integration"
	"github.com/sellerledger/backend/internal/domain/ledger"
	"github.com/sellerledger/backend/internal/infrastructure/marketplace"
	"github.com/sellerledger/backend/internal/infrastructure/settlement"
	"github.com/sellerledger/backend/internal/infrastructure/telemetry"
)

const (
	// maxPeriod bounds one comparison window
	maxPeriod = 93 * 24 * time.Hour
	// defaultCallTimeout bounds each remote call when no throttle is shared
	defaultCallTimeout = 30 * time.Second
)

var (
	// ErrInvalidPeriod is returned for an empty or inverted window
	ErrInvalidPeriod = errors.New("reconciliation: period start must be before period end")
	// ErrPeriodTooLong is returned for windows longer than maxPeriod
	ErrPeriodTooLong = errors.New("reconciliation: period is too long")
	// ErrSourceUnavailable is returned when a required source is not configured
	ErrSourceUnavailable = errors.New("reconciliation: source not configured")
	// ErrInvalidConfig is returned for an invalid comparator configuration
	ErrInvalidConfig = errors.New("reconciliation: invalid configuration")
)

// Config holds comparator settings
type Config struct {
	// Epsilon is the absolute per-category tolerance
	Epsilon decimal.Decimal
	// MaxFlaggedRows caps FlaggedRows
	MaxFlaggedRows int
	// IncludeEvents adds the events-derived column
	IncludeEvents bool
	// SettlementGrace extends the document listing past the period end, since
	// a settlement is created after the period it covers
	SettlementGrace time.Duration
}

// DefaultConfig returns the default comparator configuration
func DefaultConfig() Config {
	return Config{
		Epsilon:         decimal.NewFromInt(1),
		MaxFlaggedRows:  25,
		SettlementGrace: 21 * 24 * time.Hour,
	}
}

// Validate validates the configuration
func (c Config) Validate() error {
	if c.Epsilon.IsNegative() || c.MaxFlaggedRows < 0 || c.SettlementGrace < 0 {
		return ErrInvalidConfig
	}
	return nil
}

// Dependencies are the read ports the comparator uses. API is only needed
// for the events column and event traces. Throttle should be the one the
// sync service uses so both stay within the API quota.
type Dependencies struct {
	Accounts    integration.SellerAccountRepository
	Lines       ledger.OrderLineFeeRepository
	Settlements *settlement.Loader
	API         integration.SellerDataAPI
	Throttle    *marketplace.Throttle
}

// Comparator runs read-only comparisons. It is safe for concurrent use and
// may run while a sync is in progress.
type Comparator struct {
	deps       Dependencies
	config     Config
	classifier *fees.Classifier
	logger     *zap.Logger
	now        func() time.Time
}

// Option configures a Comparator
type Option func(*Comparator)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(cmp *Comparator) {
		if logger != nil {
			cmp.logger = logger
		}
	}
}

// WithClassifier replaces the default classifier
func WithClassifier(c *fees.Classifier) Option {
	return func(cmp *Comparator) {
		if c != nil {
			cmp.classifier = c
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(cmp *Comparator) {
		if now != nil {
			cmp.now = now
		}
	}
}

// NewComparator creates a comparator
func NewComparator(deps Dependencies, config Config, opts ...Option) (*Comparator, error) {
	if deps.Accounts == nil || deps.Lines == nil {
		return nil, errors.New("reconciliation: missing dependency")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if deps.Settlements != nil {
		deps.Settlements = deps.Settlements.ReadOnly()
	}
	if deps.Throttle == nil {
		deps.Throttle = marketplace.NewThrottle(0, defaultCallTimeout)
	}
	c := &Comparator{
		deps:       deps,
		config:     config,
		classifier: fees.NewClassifier(),
		logger:     zap.NewNop(),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Compare recomputes category totals from the settlement documents covering
// period and from the stored lines of orders purchased in period, and reports
// the per-category differences.
func (c *Comparator) Compare(ctx context.Context, accountID string, period Period) (*Report, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	if c.deps.Settlements == nil {
		return nil, ErrSourceUnavailable
	}
	account, err := c.deps.Accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "compare",
		telemetry.WithAttribute(telemetry.SpanAttrAccountID, account.ID),
	)
	defer span.End()
	log := c.logger.With(zap.String("account_id", account.ID))

	report := &Report{
		AccountID:   account.ID,
		Period:      period,
		Epsilon:     c.config.Epsilon,
		GeneratedAt: c.now(),
	}

	settled, assignments, err := c.settlementTotals(ctx, account, period, report)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	stored, err := c.deps.Lines.SumFeesByPurchaseDate(ctx, account.ID, period.From, period.To)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	report.StoredLines = stored.Lines

	var events *fees.Totals
	if c.config.IncludeEvents && c.deps.API != nil {
		events, _, err = c.eventTotals(ctx, account, period)
		if err != nil {
			// the events column is advisory; the comparison stands without it
			log.Warn("Events column unavailable", zap.Error(err))
			events = nil
		}
	}

	c.fillCategories(report, settled, stored.Totals, events)
	report.FlaggedRows = c.flag(report, assignments)

	telemetry.SetAttributes(span, "matched", report.Matched, "flagged_rows", len(report.FlaggedRows))
	log.Info("Reconciliation compared",
		zap.Time("from", period.From),
		zap.Time("to", period.To),
		zap.Bool("matched", report.Matched),
		zap.Int("documents", len(report.Documents)),
	)
	return report, nil
}

// documentAssignment ties a row assignment to its document
type documentAssignment struct {
	documentID string
	fees.Assignment
}

// settlementTotals classifies the rows posted in period from the most recent
// document of every settlement covering it
func (c *Comparator) settlementTotals(
	ctx context.Context,
	account *integration.SellerAccount,
	period Period,
	report *Report,
) (*fees.Totals, []documentAssignment, error) {
	before := period.To.Add(c.config.SettlementGrace)
	if now := c.now(); before.After(now) {
		before = now
	}
	var refs []integration.SettlementDocumentRef
	err := c.deps.Throttle.Call(ctx, func(ctx context.Context) error {
		var err error
		refs, err = c.deps.Settlements.List(ctx, integration.SettlementListRequest{
			Account:       *account,
			CreatedAfter:  period.From,
			CreatedBefore: before,
			MarketplaceID: account.MarketplaceID,
		})
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	// newest first so a reissued settlement supersedes the earlier copy
	sort.SliceStable(refs, func(i, j int) bool { return refs[i].CreatedAt.After(refs[j].CreatedAt) })

	totals := fees.NewTotals()
	var assignments []documentAssignment
	seen := make(map[string]bool)
	for _, ref := range refs {
		if !ref.Covers(period.From, period.To) {
			continue
		}
		status := DocumentStatus{DocumentID: ref.DocumentID, CreatedAt: ref.CreatedAt}

		doc, err := c.loadDocument(ctx, account, ref)
		if err != nil {
			if !errors.Is(err, integration.ErrMalformedDocument) && !integration.IsRemoteError(err) {
				return nil, nil, err
			}
			status.Skipped, status.Error = true, err.Error()
			report.Documents = append(report.Documents, status)
			continue
		}
		status.SettlementID = doc.SettlementID
		if doc.SettlementID != "" && seen[doc.SettlementID] {
			status.Skipped = true
			report.Documents = append(report.Documents, status)
			continue
		}
		seen[doc.SettlementID] = true

		for row, err := range doc.Rows() {
			if err != nil {
				status.Error = err.Error()
				break
			}
			if row.PostedDate.Before(period.From) || !row.PostedDate.Before(period.To) {
				continue
			}
			a := c.classifier.Assign(row)
			totals.Apply(a)
			assignments = append(assignments, documentAssignment{documentID: ref.DocumentID, Assignment: a})
			status.Rows++
		}
		report.Documents = append(report.Documents, status)
	}

	report.Settlement = sourceTotals(totals)
	return totals, assignments, nil
}

// eventTotals classifies the events posted in period
func (c *Comparator) eventTotals(ctx context.Context, account *integration.SellerAccount, period Period) (*fees.Totals, []fees.Assignment, error) {
	to := period.To
	if latest := c.now().Add(-2 * time.Minute); to.After(latest) {
		to = latest
	}
	if !period.From.Before(to) {
		return fees.NewTotals(), nil, nil
	}

	req := integration.FinancialEventsRequest{Account: *account, PostedAfter: period.From, PostedBefore: to}
	var events []fees.FinancialEvent
	for {
		var page *integration.FinancialEventsPage
		err := c.deps.Throttle.Call(ctx, func(ctx context.Context) error {
			var err error
			page, err = c.deps.API.ListFinancialEvents(ctx, req)
			return err
		})
		if err != nil {
			return nil, nil, err
		}
		events = append(events, page.Events...)
		if !page.HasMore() || len(page.Events) == 0 {
			break
		}
		req.NextToken = page.NextToken
	}
	totals, assignments := c.classifier.ClassifyWithTrace(fees.FlattenEvents(events))
	return totals, assignments, nil
}

// loadDocument reads a document from the archive or downloads it under the
// shared throttle
func (c *Comparator) loadDocument(ctx context.Context, account *integration.SellerAccount, ref integration.SettlementDocumentRef) (*settlement.Document, error) {
	var doc *settlement.Document
	err := c.deps.Throttle.Call(ctx, func(ctx context.Context) error {
		var err error
		doc, err = c.deps.Settlements.Load(ctx, *account, ref)
		return err
	})
	return doc, err
}

func (c *Comparator) fillCategories(report *Report, settled, stored, events *fees.Totals) {
	report.Stored = sourceTotals(stored)
	if events != nil {
		t := sourceTotals(events)
		report.Events = &t
	}

	report.Matched = true
	for _, cat := range fees.Categories() {
		d := CategoryDiff{
			Category:        cat,
			SettlementValue: settled.Value(cat),
			StoredValue:     stored.Value(cat),
			SettlementRows:  settled.Get(cat).Count,
		}
		d.Diff = d.SettlementValue.Sub(d.StoredValue)
		d.Matched = d.Diff.Abs().LessThan(c.config.Epsilon)
		if events != nil {
			v := events.Value(cat)
			d.EventsValue = &v
		}
		if !d.Matched {
			report.Matched = false
		}
		report.Categories = append(report.Categories, d)
	}
}

// flag lists uncategorized rows and rows of unmatched categories, largest
// absolute amount first
func (c *Comparator) flag(report *Report, assignments []documentAssignment) []FlaggedRow {
	unmatched := make(map[fees.Category]bool)
	for _, d := range report.Categories {
		if !d.Matched {
			unmatched[d.Category] = true
		}
	}

	flagged := make([]FlaggedRow, 0)
	for _, a := range assignments {
		switch {
		case a.Outcome == fees.OutcomeUncategorized:
			flagged = append(flagged, FlaggedRow{DocumentID: a.documentID, Reason: FlagUncategorized, Row: a.Row})
		case a.Outcome == fees.OutcomeClassified && unmatched[a.Category]:
			flagged = append(flagged, FlaggedRow{DocumentID: a.documentID, Reason: FlagUnmatchedCategory, Category: a.Category, Row: a.Row})
		}
	}
	sort.SliceStable(flagged, func(i, j int) bool {
		return flagged[i].Row.Amount.Abs().GreaterThan(flagged[j].Row.Amount.Abs())
	})
	if c.config.MaxFlaggedRows > 0 && len(flagged) > c.config.MaxFlaggedRows {
		flagged = flagged[:c.config.MaxFlaggedRows]
	}
	return flagged
}

func sourceTotals(t *fees.Totals) SourceTotals {
	return SourceTotals{
		TotalAmazonFees:     t.TotalAmazonFees(),
		UncategorizedAmount: t.Uncategorized.Total,
		UncategorizedRows:   t.Uncategorized.Count,
	}
}

// Trace returns the per-row classification of one settlement document, or of
// the financial events of a period when no document is given
func (c *Comparator) Trace(ctx context.Context, accountID string, req TraceRequest) (*Trace, error) {
	account, err := c.deps.Accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "trace",
		telemetry.WithAttribute(telemetry.SpanAttrAccountID, account.ID),
	)
	defer span.End()

	if req.DocumentID != "" {
		if c.deps.Settlements == nil {
			return nil, ErrSourceUnavailable
		}
		telemetry.SetAttributes(span, telemetry.SpanAttrDocumentID, req.DocumentID)
		doc, err := c.loadDocument(ctx, account, integration.SettlementDocumentRef{DocumentID: req.DocumentID})
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		totals, assignments, err := c.classifier.ClassifySeq(doc.Rows())
		if err != nil {
			return nil, err
		}
		return newTrace(account.ID, TraceSourceSettlement, totals, assignments, func(t *Trace) {
			t.DocumentID = req.DocumentID
		}), nil
	}

	if err := req.Period.Validate(); err != nil {
		return nil, err
	}
	if c.deps.API == nil {
		return nil, ErrSourceUnavailable
	}
	totals, assignments, err := c.eventTotals(ctx, account, req.Period)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return newTrace(account.ID, TraceSourceEvents, totals, assignments, func(t *Trace) {
		p := req.Period
		t.Period = &p
	}), nil
}

func newTrace(accountID string, source TraceSource, totals *fees.Totals, assignments []fees.Assignment, set func(*Trace)) *Trace {
	if assignments == nil {
		assignments = []fees.Assignment{}
	}
	t := &Trace{
		AccountID:   accountID,
		Source:      source,
		Totals:      totals,
		Assignments: assignments,
		Gaps:        totals.Uncategorized.Count,
	}
	set(t)
	return t
}
