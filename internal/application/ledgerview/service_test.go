package ledgerview

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sellerledger/backend/internal/domain/fees"
	"github.com/sellerledger/backend/internal/domain/integration"
	"github.com/sellerledger/backend/internal/domain/ledger"
)

// ===========================================================================
// Mocks
// ===========================================================================

type MockAccountRepository struct {
	mock.Mock
}

var _ integration.SellerAccountRepository = (*MockAccountRepository)(nil)

func (m *MockAccountRepository) FindByID(ctx context.Context, id string) (*integration.SellerAccount, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.SellerAccount), args.Error(1)
}

func (m *MockAccountRepository) FindEnabled(ctx context.Context) ([]integration.SellerAccount, error) {
	args := m.Called(ctx)
	return args.Get(0).([]integration.SellerAccount), args.Error(1)
}

func (m *MockAccountRepository) Save(ctx context.Context, account *integration.SellerAccount) error {
	return m.Called(ctx, account).Error(0)
}

type MockDailySummaryRepository struct {
	mock.Mock
}

var _ ledger.DailySummaryRepository = (*MockDailySummaryRepository)(nil)

func (m *MockDailySummaryRepository) Upsert(ctx context.Context, summary *ledger.DailyFinancialSummary) error {
	return m.Called(ctx, summary).Error(0)
}

func (m *MockDailySummaryRepository) FindByDateRange(ctx context.Context, accountID string, from, to time.Time) ([]ledger.DailyFinancialSummary, error) {
	args := m.Called(ctx, accountID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.DailyFinancialSummary), args.Error(1)
}

type MockLineRepository struct {
	mock.Mock
}

var _ ledger.OrderLineFeeRepository = (*MockLineRepository)(nil)

func (m *MockLineRepository) UpsertLineItem(ctx context.Context, rec *ledger.OrderLineFeeRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *MockLineRepository) UpsertFees(ctx context.Context, rec *ledger.OrderLineFeeRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *MockLineRepository) FindByOrder(ctx context.Context, accountID, orderID string) ([]ledger.OrderLineFeeRecord, error) {
	args := m.Called(ctx, accountID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.OrderLineFeeRecord), args.Error(1)
}

func (m *MockLineRepository) SumFeesByPurchaseDate(ctx context.Context, accountID string, from, to time.Time) (*ledger.FeeAggregate, error) {
	args := m.Called(ctx, accountID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.FeeAggregate), args.Error(1)
}

// ===========================================================================
// Fixture
// ===========================================================================

const accountID = "acct-1"

var (
	marchFirst = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	aprilFirst = time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
)

type fixture struct {
	accounts  *MockAccountRepository
	summaries *MockDailySummaryRepository
	lines     *MockLineRepository
	svc       *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		accounts:  new(MockAccountRepository),
		summaries: new(MockDailySummaryRepository),
		lines:     new(MockLineRepository),
	}
	f.accounts.On("FindByID", mock.Anything, accountID).
		Return(&integration.SellerAccount{ID: accountID, Enabled: true}, nil)
	f.accounts.On("FindByID", mock.Anything, "missing").
		Return(nil, integration.ErrAccountNotFound)

	svc, err := NewService(Dependencies{Accounts: f.accounts, Summaries: f.summaries, Lines: f.lines})
	require.NoError(t, err)
	f.svc = svc
	return f
}

// ===========================================================================
// DailySummaries
// ===========================================================================

func TestDailySummaries(t *testing.T) {
	f := newFixture(t)
	stored := []ledger.DailyFinancialSummary{
		{AccountID: accountID, Date: marchFirst, Sales: decimal.RequireFromString("120.00")},
		{AccountID: accountID, Date: marchFirst.AddDate(0, 0, 1), Sales: decimal.RequireFromString("80.00")},
	}
	f.summaries.On("FindByDateRange", mock.Anything, accountID, marchFirst, aprilFirst).Return(stored, nil)

	got, err := f.svc.DailySummaries(context.Background(), accountID, marchFirst, aprilFirst)
	require.NoError(t, err)
	assert.Equal(t, stored, got)
	f.summaries.AssertExpectations(t)
}

func TestDailySummaries_Rejections(t *testing.T) {
	tests := []struct {
		name      string
		accountID string
		from, to  time.Time
		wantErr   error
	}{
		{"inverted range", accountID, aprilFirst, marchFirst, ErrInvalidRange},
		{"empty range", accountID, marchFirst, marchFirst, ErrInvalidRange},
		{"range too long", accountID, marchFirst, marchFirst.AddDate(1, 0, 2), ErrRangeTooLong},
		{"unknown account", "missing", marchFirst, aprilFirst, integration.ErrAccountNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.DailySummaries(context.Background(), tt.accountID, tt.from, tt.to)
			assert.ErrorIs(t, err, tt.wantErr)
			f.summaries.AssertNotCalled(t, "FindByDateRange", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestDailySummaries_StoreFailure(t *testing.T) {
	f := newFixture(t)
	storeErr := errors.New("connection reset")
	f.summaries.On("FindByDateRange", mock.Anything, accountID, marchFirst, aprilFirst).Return(nil, storeErr)

	_, err := f.svc.DailySummaries(context.Background(), accountID, marchFirst, aprilFirst)
	assert.ErrorIs(t, err, storeErr)
}

// ===========================================================================
// OrderLines
// ===========================================================================

func TestOrderLines(t *testing.T) {
	f := newFixture(t)
	stored := []ledger.OrderLineFeeRecord{{
		AccountID:       accountID,
		OrderItemID:     "111-1-1",
		OrderID:         "111-1",
		Fees:            map[fees.Category]decimal.Decimal{fees.CategoryReferral: decimal.RequireFromString("4.50")},
		FeeSource:       ledger.FeeSourceSettlementReport,
		TotalAmazonFees: decimal.RequireFromString("4.50"),
	}}
	f.lines.On("FindByOrder", mock.Anything, accountID, "111-1").Return(stored, nil)
	f.lines.On("FindByOrder", mock.Anything, accountID, "222-2").Return([]ledger.OrderLineFeeRecord{}, nil)

	got, err := f.svc.OrderLines(context.Background(), accountID, "111-1")
	require.NoError(t, err)
	assert.Equal(t, stored, got)

	_, err = f.svc.OrderLines(context.Background(), accountID, "222-2")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = f.svc.OrderLines(context.Background(), "missing", "111-1")
	assert.ErrorIs(t, err, integration.ErrAccountNotFound)
}

func TestNewService_Validation(t *testing.T) {
	_, err := NewService(Dependencies{})
	assert.Error(t, err)

	f := newFixture(t)
	_, err = NewService(Dependencies{Accounts: f.accounts, Lines: f.lines})
	assert.Error(t, err)
}
