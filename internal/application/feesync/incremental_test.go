package feesync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sellerledger/backend/internal/domain/integration"
	"github.com/sellerledger/backend/internal/infrastructure/marketplace"
)

func TestRunIncrementalSync_RunsEveryPass(t *testing.T) {
	f := newFixture(t, true)
	f.api.On("ListOrders", mock.Anything, mock.Anything).
		Return(&integration.OrderListPage{Orders: remoteOrders("o-1")}, nil)
	f.api.On("GetOrderItems", mock.Anything, mock.Anything, "o-1").Return(lineFor("o-1", "9.99"), nil)
	f.expectNoEvents()
	f.source.On("ListSettlementDocuments", mock.Anything, mock.Anything).
		Return([]integration.SettlementDocumentRef{}, nil)

	report, err := f.svc.RunIncrementalSync(context.Background(), testAccountID, SyncOptions{})
	require.NoError(t, err)

	var types []integration.SyncType
	for _, run := range report.Runs {
		types = append(types, run.SyncType)
		assert.Equal(t, integration.RunTriggerUser, run.Trigger)
	}
	assert.Equal(t, []integration.SyncType{
		integration.SyncTypeOrders,
		integration.SyncTypeOrderItems,
		integration.SyncTypeFinancialEvents,
		integration.SyncTypeSettlements,
	}, types)
	assert.Empty(t, report.Skipped)
	assert.Equal(t, integration.RunStatusCompleted, report.Status())
	assert.Len(t, f.lines.lines, 1, "orders listed in this sync get their items fetched")
	assert.False(t, report.CompletedAt.Before(report.StartedAt))
}

func TestRunIncrementalSync_SkipsRunningPasses(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.expectNoEvents()

	lease, err := f.guard.Acquire(ctx, testAccountID, integration.SyncTypeOrders)
	require.NoError(t, err)
	defer lease.Release(ctx)

	report, err := f.svc.RunIncrementalSync(ctx, testAccountID, SyncOptions{Trigger: integration.RunTriggerSchedule})
	require.NoError(t, err)
	assert.Equal(t, []integration.SyncType{integration.SyncTypeOrders}, report.Skipped)
	assert.Nil(t, report.Run(integration.SyncTypeOrders))
	assert.NotNil(t, report.Run(integration.SyncTypeOrderItems))
	assert.NotNil(t, report.Run(integration.SyncTypeFinancialEvents))
	f.api.AssertNotCalled(t, "ListOrders", mock.Anything, mock.Anything)
}

func TestRunIncrementalSync_AllPassesRunning(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	for _, st := range []integration.SyncType{
		integration.SyncTypeOrders,
		integration.SyncTypeOrderItems,
		integration.SyncTypeFinancialEvents,
	} {
		lease, err := f.guard.Acquire(ctx, testAccountID, st)
		require.NoError(t, err)
		defer lease.Release(ctx)
	}

	_, err := f.svc.RunIncrementalSync(ctx, testAccountID, SyncOptions{})
	assert.ErrorIs(t, err, integration.ErrSyncInProgress)
	assert.Equal(t, 0, f.runs.count())
}

func TestSyncReport_Status(t *testing.T) {
	run := func(s integration.RunStatus) *integration.SyncRunRecord {
		return &integration.SyncRunRecord{Status: s}
	}
	tests := []struct {
		name string
		runs []*integration.SyncRunRecord
		want integration.RunStatus
	}{
		{"no runs", nil, integration.RunStatusCompleted},
		{"all completed", []*integration.SyncRunRecord{run(integration.RunStatusCompleted), run(integration.RunStatusCompleted)}, integration.RunStatusCompleted},
		{"one partial", []*integration.SyncRunRecord{run(integration.RunStatusCompleted), run(integration.RunStatusPartiallyCompleted)}, integration.RunStatusPartiallyCompleted},
		{"one failed", []*integration.SyncRunRecord{run(integration.RunStatusFailed), run(integration.RunStatusCompleted)}, integration.RunStatusPartiallyCompleted},
		{"all failed", []*integration.SyncRunRecord{run(integration.RunStatusFailed)}, integration.RunStatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &SyncReport{Runs: tt.runs}
			assert.Equal(t, tt.want, r.Status())
		})
	}
}

func TestNewService_Validation(t *testing.T) {
	_, err := NewService(Dependencies{}, DefaultConfig())
	assert.Error(t, err)

	f := newFixture(t, false)
	cfg := DefaultConfig()
	cfg.CallTimeout = 0
	_, err = NewService(f.svc.deps, cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestService_History(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.api.On("ListOrders", mock.Anything, mock.Anything).Return(&integration.OrderListPage{}, nil)
	for i := 0; i < 3; i++ {
		_, err := f.svc.RunOrdersSync(ctx, testAccountID, integration.RunTriggerUser)
		require.NoError(t, err)
	}

	runs, err := f.svc.History(ctx, testAccountID, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	runs, err = f.svc.History(ctx, testAccountID, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 3)

	_, err = f.svc.History(ctx, "missing", 10)
	assert.ErrorIs(t, err, integration.ErrAccountNotFound)
}

func TestWithThrottle_SharesLimiter(t *testing.T) {
	f := newFixture(t, false)
	shared := marketplace.NewThrottle(2*time.Second, time.Second)

	svc, err := NewService(f.svc.deps, f.svc.config, WithThrottle(shared))
	require.NoError(t, err)
	assert.Same(t, shared, svc.throttle)
}
