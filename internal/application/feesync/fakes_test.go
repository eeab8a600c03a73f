package feesync

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sellerledger/backend/internal/domain/fees"
	"github.com/sellerledger/backend/internal/domain/integration"
	"github.com/sellerledger/backend/internal/domain/ledger"
	"github.com/sellerledger/backend/internal/infrastructure/cache"
	"github.com/sellerledger/backend/internal/infrastructure/settlement"
)

// ===========================================================================
// Remote mocks
// ===========================================================================

// MockSellerDataAPI is a mock implementation of integration.SellerDataAPI
type MockSellerDataAPI struct {
	mock.Mock
}

var _ integration.SellerDataAPI = (*MockSellerDataAPI)(nil)

func (m *MockSellerDataAPI) ListOrders(ctx context.Context, req integration.OrderListRequest) (*integration.OrderListPage, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.OrderListPage), args.Error(1)
}

func (m *MockSellerDataAPI) GetOrderItems(ctx context.Context, account integration.SellerAccount, orderID string) ([]integration.OrderLineItem, error) {
	args := m.Called(ctx, account, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.OrderLineItem), args.Error(1)
}

func (m *MockSellerDataAPI) ListFinancialEvents(ctx context.Context, req integration.FinancialEventsRequest) (*integration.FinancialEventsPage, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.FinancialEventsPage), args.Error(1)
}

// MockSettlementSource is a mock implementation of integration.SettlementDocumentSource
type MockSettlementSource struct {
	mock.Mock
}

var _ integration.SettlementDocumentSource = (*MockSettlementSource)(nil)

func (m *MockSettlementSource) ListSettlementDocuments(ctx context.Context, req integration.SettlementListRequest) ([]integration.SettlementDocumentRef, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.SettlementDocumentRef), args.Error(1)
}

func (m *MockSettlementSource) DownloadSettlementDocument(ctx context.Context, account integration.SellerAccount, documentID string) ([]byte, error) {
	args := m.Called(ctx, account, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// ===========================================================================
// In-memory stores
// ===========================================================================

type memAccounts struct {
	accounts map[string]integration.SellerAccount
}

func (r *memAccounts) FindByID(_ context.Context, id string) (*integration.SellerAccount, error) {
	a, ok := r.accounts[id]
	if !ok {
		return nil, integration.ErrAccountNotFound
	}
	return &a, nil
}

func (r *memAccounts) FindEnabled(context.Context) ([]integration.SellerAccount, error) {
	var out []integration.SellerAccount
	for _, a := range r.accounts {
		if a.Enabled {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memAccounts) Save(_ context.Context, a *integration.SellerAccount) error {
	r.accounts[a.ID] = *a
	return nil
}

type memRuns struct {
	mu   sync.Mutex
	runs []integration.SyncRunRecord
	// createErr fails Create when set
	createErr error
}

func (r *memRuns) Create(_ context.Context, run *integration.SyncRunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.runs = append(r.runs, *run)
	return nil
}

func (r *memRuns) Finalize(_ context.Context, run *integration.SyncRunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.runs {
		if r.runs[i].ID == run.ID {
			if r.runs[i].Status.IsTerminal() {
				return integration.ErrRunNotRunning
			}
			r.runs[i] = *run
			return nil
		}
	}
	return integration.ErrRunNotRunning
}

func (r *memRuns) FindByID(_ context.Context, id uuid.UUID) (*integration.SyncRunRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.runs {
		if r.runs[i].ID == id {
			run := r.runs[i]
			return &run, nil
		}
	}
	return nil, integration.ErrRunNotRunning
}

func (r *memRuns) FindRecent(_ context.Context, accountID string, limit int) ([]integration.SyncRunRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []integration.SyncRunRecord
	for i := len(r.runs) - 1; i >= 0 && len(out) < limit; i-- {
		if r.runs[i].AccountID == accountID {
			out = append(out, r.runs[i])
		}
	}
	return out, nil
}

func (r *memRuns) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}

type memCursors struct {
	cursors map[integration.SyncType]integration.SyncCursor
}

func (r *memCursors) Get(_ context.Context, _ string, syncType integration.SyncType) (*integration.SyncCursor, error) {
	c, ok := r.cursors[syncType]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *memCursors) Save(_ context.Context, c *integration.SyncCursor) error {
	r.cursors[c.SyncType] = *c
	return nil
}

type memOrders struct {
	orders map[string]ledger.OrderRecord
	lines  *memLines
}

func (r *memOrders) Upsert(_ context.Context, o *ledger.OrderRecord) error {
	if existing, ok := r.orders[o.OrderID]; ok {
		o.ItemsSyncedAt = existing.ItemsSyncedAt
	}
	r.orders[o.OrderID] = *o
	return nil
}

func (r *memOrders) FindByID(_ context.Context, _ string, orderID string) (*ledger.OrderRecord, error) {
	o, ok := r.orders[orderID]
	if !ok {
		return nil, ledger.ErrOrderNotFound
	}
	return &o, nil
}

func (r *memOrders) FindItemSyncCandidates(_ context.Context, q ledger.ItemSyncCandidateQuery) ([]ledger.OrderRecord, error) {
	var out []ledger.OrderRecord
	for _, o := range r.orders {
		if o.PurchaseDate.Before(q.PurchasedAfter) {
			continue
		}
		if !q.Force {
			if r.lines.hasFees(o.OrderID) {
				continue
			}
			if o.ItemsSyncedAt != nil && o.ItemsSyncedAt.After(q.RecheckBefore) {
				continue
			}
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PurchaseDate.After(out[j].PurchaseDate) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *memOrders) MarkItemsSynced(_ context.Context, _ string, orderID string, at time.Time) error {
	o, ok := r.orders[orderID]
	if !ok {
		return ledger.ErrOrderNotFound
	}
	o.ItemsSyncedAt = &at
	r.orders[orderID] = o
	return nil
}

type memLines struct {
	lines map[string]ledger.OrderLineFeeRecord
	// writes counts successful writes of either kind
	writes int
	// failAfter fails every write once writes reaches it; negative disables
	failAfter int
	failErr   error
}

func newMemLines() *memLines {
	return &memLines{lines: make(map[string]ledger.OrderLineFeeRecord), failAfter: -1}
}

func (r *memLines) fail() error {
	if r.failAfter >= 0 && r.writes >= r.failAfter {
		return r.failErr
	}
	return nil
}

func (r *memLines) UpsertLineItem(_ context.Context, rec *ledger.OrderLineFeeRecord) error {
	if err := r.fail(); err != nil {
		return err
	}
	stored, ok := r.lines[rec.OrderItemID]
	if !ok {
		stored = ledger.OrderLineFeeRecord{FeeSource: ledger.FeeSourceNone}
	}
	storedFees, source, total := stored.Fees, stored.FeeSource, stored.TotalAmazonFees
	stored = *rec
	stored.Fees, stored.FeeSource, stored.TotalAmazonFees = storedFees, source, total
	r.lines[rec.OrderItemID] = stored
	r.writes++
	return nil
}

func (r *memLines) UpsertFees(_ context.Context, rec *ledger.OrderLineFeeRecord) error {
	if err := r.fail(); err != nil {
		return err
	}
	r.writes++
	stored, ok := r.lines[rec.OrderItemID]
	if !ok {
		r.lines[rec.OrderItemID] = *rec
		return nil
	}
	if !rec.FeeSource.CanReplace(stored.FeeSource) {
		return nil
	}
	stored.Fees, stored.FeeSource, stored.TotalAmazonFees = rec.Fees, rec.FeeSource, rec.TotalAmazonFees
	stored.UpdatedAt = rec.UpdatedAt
	r.lines[rec.OrderItemID] = stored
	return nil
}

func (r *memLines) FindByOrder(_ context.Context, _ string, orderID string) ([]ledger.OrderLineFeeRecord, error) {
	var out []ledger.OrderLineFeeRecord
	for _, l := range r.lines {
		if l.OrderID == orderID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *memLines) SumFeesByPurchaseDate(_ context.Context, _ string, from, to time.Time) (*ledger.FeeAggregate, error) {
	agg := &ledger.FeeAggregate{Totals: fees.NewTotals()}
	for _, l := range r.lines {
		if l.FeeSource == ledger.FeeSourceNone || l.PurchaseDate.Before(from) || !l.PurchaseDate.Before(to) {
			continue
		}
		agg.Totals.Merge(fees.TotalsFromValues(l.Fees))
		agg.Lines++
	}
	return agg, nil
}

func (r *memLines) hasFees(orderID string) bool {
	for _, l := range r.lines {
		if l.OrderID == orderID && l.FeeSource != "" && l.FeeSource != ledger.FeeSourceNone {
			return true
		}
	}
	return false
}

type memSummaries struct {
	summaries map[time.Time]ledger.DailyFinancialSummary
	failErr   error
}

func (r *memSummaries) Upsert(_ context.Context, s *ledger.DailyFinancialSummary) error {
	if r.failErr != nil {
		return r.failErr
	}
	r.summaries[s.Date] = *s
	return nil
}

func (r *memSummaries) FindByDateRange(_ context.Context, _ string, from, to time.Time) ([]ledger.DailyFinancialSummary, error) {
	var out []ledger.DailyFinancialSummary
	for d, s := range r.summaries {
		if !d.Before(from) && d.Before(to) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

type memCatalog struct {
	prices map[string]decimal.Decimal
}

func (c *memCatalog) FindPrice(_ context.Context, _ string, productID string) (decimal.Decimal, bool, error) {
	p, ok := c.prices[productID]
	return p, ok, nil
}

// ===========================================================================
// Fixture
// ===========================================================================

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

const testAccountID = "acct-1"

type fixture struct {
	api       *MockSellerDataAPI
	source    *MockSettlementSource
	guard     *cache.InMemoryRunGuard
	runs      *memRuns
	cursors   *memCursors
	orders    *memOrders
	lines     *memLines
	summaries *memSummaries
	catalog   *memCatalog
	svc       *Service
}

func newFixture(t *testing.T, withSettlements bool) *fixture {
	t.Helper()
	lines := newMemLines()
	f := &fixture{
		api:       new(MockSellerDataAPI),
		source:    new(MockSettlementSource),
		guard:     cache.NewInMemoryRunGuard(),
		runs:      &memRuns{},
		cursors:   &memCursors{cursors: make(map[integration.SyncType]integration.SyncCursor)},
		orders:    &memOrders{orders: make(map[string]ledger.OrderRecord), lines: lines},
		lines:     lines,
		summaries: &memSummaries{summaries: make(map[time.Time]ledger.DailyFinancialSummary)},
		catalog:   &memCatalog{prices: make(map[string]decimal.Decimal)},
	}
	accounts := &memAccounts{accounts: map[string]integration.SellerAccount{
		testAccountID: {ID: testAccountID, SellerID: "SELLER", MarketplaceID: "ATVPDKIKX0DER", Enabled: true},
		"disabled":    {ID: "disabled", Enabled: false},
	}}

	deps := Dependencies{
		Accounts:  accounts,
		Runs:      f.runs,
		Cursors:   f.cursors,
		Guard:     f.guard,
		API:       f.api,
		Orders:    f.orders,
		Lines:     f.lines,
		Summaries: f.summaries,
		Catalog:   f.catalog,
	}
	if withSettlements {
		deps.Settlements = settlement.NewLoader(f.source)
	}

	cfg := DefaultConfig()
	cfg.InterCallDelay = 0
	cfg.CallTimeout = time.Second

	svc, err := NewService(deps, cfg, WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) seedOrders(n int) []string {
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		id := orderID(i + 1)
		ids[i] = id
		f.orders.orders[id] = ledger.OrderRecord{
			AccountID:    testAccountID,
			OrderID:      id,
			PurchaseDate: testNow.Add(-time.Duration(i+1) * time.Hour),
			Currency:     "USD",
		}
	}
	return ids
}

func orderID(n int) string {
	return "111-0000000-" + string(rune('A'+n-1))
}

func (f *fixture) expectNoEvents() {
	f.api.On("ListFinancialEvents", mock.Anything, mock.Anything).
		Return(&integration.FinancialEventsPage{}, nil)
}
