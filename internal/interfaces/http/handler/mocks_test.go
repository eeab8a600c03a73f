package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sellerledger/backend/internal/application/feesync"
	"github.com/sellerledger/backend/internal/application/reconciliation"
	"github.com/sellerledger/backend/internal/domain/integration"
	"github.com/sellerledger/backend/internal/domain/ledger"
	"github.com/sellerledger/backend/internal/infrastructure/scheduler"
	"github.com/sellerledger/backend/internal/interfaces/http/dto"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockSyncService is a mock implementation of SyncService
type MockSyncService struct {
	mock.Mock
}

func (m *MockSyncService) RunIncrementalSync(ctx context.Context, accountID string, opts feesync.SyncOptions) (*feesync.SyncReport, error) {
	args := m.Called(ctx, accountID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*feesync.SyncReport), args.Error(1)
}

func (m *MockSyncService) RunOrdersSync(ctx context.Context, accountID string, trigger integration.RunTrigger) (*integration.SyncRunRecord, error) {
	args := m.Called(ctx, accountID, trigger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.SyncRunRecord), args.Error(1)
}

func (m *MockSyncService) RunOrderItemsSync(ctx context.Context, accountID string, opts feesync.ItemsOptions) (*feesync.SyncReport, error) {
	args := m.Called(ctx, accountID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*feesync.SyncReport), args.Error(1)
}

func (m *MockSyncService) RunFinancialEventsSync(ctx context.Context, accountID string, opts feesync.EventsOptions) (*integration.SyncRunRecord, error) {
	args := m.Called(ctx, accountID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.SyncRunRecord), args.Error(1)
}

func (m *MockSyncService) RunSettlementSync(ctx context.Context, accountID string, trigger integration.RunTrigger) (*integration.SyncRunRecord, error) {
	args := m.Called(ctx, accountID, trigger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.SyncRunRecord), args.Error(1)
}

func (m *MockSyncService) History(ctx context.Context, accountID string, limit int) ([]integration.SyncRunRecord, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.SyncRunRecord), args.Error(1)
}

// MockFanOut is a mock implementation of FanOut
type MockFanOut struct {
	mock.Mock
}

func (m *MockFanOut) RunAll(ctx context.Context, trigger integration.RunTrigger) (*scheduler.FanOutResult, error) {
	args := m.Called(ctx, trigger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*scheduler.FanOutResult), args.Error(1)
}

// MockReconciler is a mock implementation of Reconciler
type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) Compare(ctx context.Context, accountID string, period reconciliation.Period) (*reconciliation.Report, error) {
	args := m.Called(ctx, accountID, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconciliation.Report), args.Error(1)
}

func (m *MockReconciler) Trace(ctx context.Context, accountID string, req reconciliation.TraceRequest) (*reconciliation.Trace, error) {
	args := m.Called(ctx, accountID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconciliation.Trace), args.Error(1)
}

// MockLedgerReader is a mock implementation of LedgerReader
type MockLedgerReader struct {
	mock.Mock
}

func (m *MockLedgerReader) DailySummaries(ctx context.Context, accountID string, from, to time.Time) ([]ledger.DailyFinancialSummary, error) {
	args := m.Called(ctx, accountID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.DailyFinancialSummary), args.Error(1)
}

func (m *MockLedgerReader) OrderLines(ctx context.Context, accountID, orderID string) ([]ledger.OrderLineFeeRecord, error) {
	args := m.Called(ctx, accountID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.OrderLineFeeRecord), args.Error(1)
}

// serve runs one request against a router holding a single route
func serve(t *testing.T, method, pattern, target string, body io.Reader, h gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	router := gin.New()
	router.Handle(method, pattern, h)

	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// decode unmarshals the response envelope, keeping Data as raw JSON
func decode(t *testing.T, w *httptest.ResponseRecorder) (dto.Response, json.RawMessage) {
	t.Helper()
	var envelope struct {
		dto.Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope.Response, envelope.Data
}

func assertStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equal(t, want, w.Code, "body: %s", w.Body.String())
}
