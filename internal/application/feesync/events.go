package feesync

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sellerledger/backend/internal/domain/fees"
	"github.com/sellerledger/backend/internal/domain/integration"
	"github.com/sellerledger/backend/internal/domain/ledger"
	"github.com/sellerledger/backend/internal/infrastructure/logger"
)

// EventsOptions tunes one financial-events run. A zero window selects the
// trailing EventsWindowDays, starting at midnight in the account timezone.
type EventsOptions struct {
	Trigger integration.RunTrigger
	From    time.Time
	To      time.Time
}

// RunFinancialEventsSync fetches the financial events of a window, classifies
// them and overwrites one daily summary per calendar date. Shipment fees are
// also written to their order lines unless a settlement already covers them.
func (s *Service) RunFinancialEventsSync(ctx context.Context, accountID string, opts EventsOptions) (*integration.SyncRunRecord, error) {
	account, err := s.account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.runEvents(ctx, account, opts)
}

func (s *Service) runEvents(ctx context.Context, account *integration.SellerAccount, opts EventsOptions) (*integration.SyncRunRecord, error) {
	from, to, err := s.eventsWindow(account, opts.From, opts.To)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, account, integration.SyncTypeFinancialEvents, opts.Trigger, func(ctx context.Context, run *integration.SyncRunRecord) (*cursorAdvance, error) {
		return s.syncEvents(ctx, account, run, from, to)
	})
}

// followWithEvents runs the trailing-window events pass after another pass
// and adds its outcome to report
func (s *Service) followWithEvents(ctx context.Context, account *integration.SellerAccount, trigger integration.RunTrigger, report *SyncReport) {
	run, err := s.runEvents(ctx, account, EventsOptions{Trigger: trigger})
	if err := report.record(integration.SyncTypeFinancialEvents, run, err); err != nil {
		s.logger.Warn("Financial events pass not run",
			zap.String("account_id", account.ID),
			zap.Error(err),
		)
	}
}

// eventsWindow resolves the window of an events run. The start is aligned to
// midnight in the account timezone so the first summarized day is complete.
func (s *Service) eventsWindow(account *integration.SellerAccount, from, to time.Time) (time.Time, time.Time, error) {
	loc := account.Location()
	now := s.now()
	latest := now.Add(-2 * time.Minute)

	if from.IsZero() {
		local := now.In(loc)
		from = time.Date(local.Year(), local.Month(), local.Day()-s.config.EventsWindowDays, 0, 0, 0, 0, loc)
	} else {
		local := from.In(loc)
		from = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	}
	if to.IsZero() || to.After(latest) {
		to = latest
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, integration.ErrInvalidWindow
	}
	return from.UTC(), to.UTC(), nil
}

func (s *Service) syncEvents(ctx context.Context, account *integration.SellerAccount, run *integration.SyncRunRecord, from, to time.Time) (*cursorAdvance, error) {
	log := logger.FromContext(ctx)
	now := s.now()
	run.SetWindow(from, to)

	events, err := s.fetchEvents(ctx, account, from, to)
	if err != nil {
		return nil, err
	}

	rows := fees.FlattenEvents(events)
	_, assignments := s.classifier.ClassifyWithTrace(rows)
	s.recordGaps(ctx, assignments)
	log.Info("Financial events classified", zap.Int("events", len(events)), zap.Int("rows", len(rows)))

	for _, day := range fees.GroupByDate(assignments, account.Location()) {
		summary := ledger.NewDailyFinancialSummary(account.ID, day, now)
		if err := s.deps.Summaries.Upsert(ctx, summary); err != nil {
			run.Abort(integration.StoreWriteError("daily summary "+summary.Date.Format(time.DateOnly), err))
			return nil, nil
		}
		run.RecordSuccess(1)
	}

	if err := s.storeLineFees(ctx, account.ID, run, orderAssignments(assignments), ledger.FeeSourceAPI, now); err != nil {
		run.Abort(err)
		return nil, nil
	}
	return &cursorAdvance{Watermark: to}, nil
}

// fetchEvents pages through the events of a window. Any page failure fails
// the whole pass; partial days would overwrite complete summaries.
func (s *Service) fetchEvents(ctx context.Context, account *integration.SellerAccount, from, to time.Time) ([]fees.FinancialEvent, error) {
	req := integration.FinancialEventsRequest{
		Account:      *account,
		PostedAfter:  from,
		PostedBefore: to,
	}
	var events []fees.FinancialEvent
	for {
		var page *integration.FinancialEventsPage
		err := s.callRemote(ctx, "list_financial_events", func(ctx context.Context) error {
			var err error
			page, err = s.deps.API.ListFinancialEvents(ctx, req)
			return err
		})
		if err != nil {
			return nil, err
		}
		events = append(events, page.Events...)
		if !page.HasMore() || len(page.Events) == 0 {
			return events, nil
		}
		req.NextToken = page.NextToken
	}
}

// recordGaps counts uncategorized rows per transaction type
func (s *Service) recordGaps(ctx context.Context, assignments []fees.Assignment) {
	gaps := make(map[string]int)
	for _, a := range assignments {
		if a.Outcome == fees.OutcomeUncategorized {
			gaps[a.Row.TransactionType]++
		}
	}
	for txType, n := range gaps {
		s.metrics.RecordUnclassified(ctx, txType, n)
	}
}

// orderAssignments keeps the rows of shipped orders. Refunds and adjustments
// posted later must not overwrite the fees of the original line.
func orderAssignments(assignments []fees.Assignment) []fees.Assignment {
	out := make([]fees.Assignment, 0, len(assignments))
	for _, a := range assignments {
		if a.Row.IsOrder() {
			out = append(out, a)
		}
	}
	return out
}

// storeLineFees writes the per-line fee totals of assignments with the given
// source. Lines already carrying fees from a more trusted source are left
// unchanged by the store. The first write failure is returned.
func (s *Service) storeLineFees(
	ctx context.Context,
	accountID string,
	run *integration.SyncRunRecord,
	assignments []fees.Assignment,
	source ledger.FeeSource,
	now time.Time,
) error {
	purchaseDates := make(map[string]time.Time)
	for _, line := range fees.GroupByLine(assignments) {
		rec := &ledger.OrderLineFeeRecord{
			AccountID:   accountID,
			OrderItemID: line.OrderItemCode,
			OrderID:     line.OrderID,
			SKU:         line.SKU,
			UpdatedAt:   now,
		}
		rec.PurchaseDate = s.purchaseDate(ctx, accountID, line.OrderID, purchaseDates)
		rec.SetFees(line.Totals, source)

		if err := s.deps.Lines.UpsertFees(ctx, rec); err != nil {
			return integration.StoreWriteError("order line "+line.OrderItemCode, err)
		}
		run.RecordSuccess(1)
	}
	return nil
}

// purchaseDate looks up the purchase date of an order, zero when unknown.
// The store only uses it when the line does not exist yet.
func (s *Service) purchaseDate(ctx context.Context, accountID, orderID string, seen map[string]time.Time) time.Time {
	if d, ok := seen[orderID]; ok {
		return d
	}
	var d time.Time
	order, err := s.deps.Orders.FindByID(ctx, accountID, orderID)
	switch {
	case err == nil:
		d = order.PurchaseDate
	case !errors.Is(err, ledger.ErrOrderNotFound):
		logger.FromContext(ctx).Warn("Failed to look up order", zap.String("order_id", orderID), zap.Error(err))
	}
	seen[orderID] = d
	return d
}
