package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// SyncMetrics holds the instruments recorded by the sync orchestrator.
// A nil *SyncMetrics records nothing.
type SyncMetrics struct {
	runsTotal        *Counter
	runsRejected     *Counter
	recordsSynced    *Counter
	recordsFailed    *Counter
	runDuration      *Histogram
	remoteCalls      *Counter
	remoteErrors     *Counter
	remoteDuration   *Histogram
	unclassifiedRows *Counter
}

// NewSyncMetrics creates the sync instruments on meter.
func NewSyncMetrics(meter metric.Meter) (*SyncMetrics, error) {
	m := &SyncMetrics{}
	var err error

	counters := []struct {
		dst        **Counter
		name, desc string
		unit       string
	}{
		{&m.runsTotal, "sync_runs_total", "Finished sync runs by type and status", "{run}"},
		{&m.runsRejected, "sync_runs_rejected_total", "Sync runs rejected because one was already running", "{run}"},
		{&m.recordsSynced, "sync_records_synced_total", "Records written by sync runs", "{record}"},
		{&m.recordsFailed, "sync_records_failed_total", "Items that failed during sync runs", "{record}"},
		{&m.remoteCalls, "sync_remote_calls_total", "Calls made to the marketplace API", "{call}"},
		{&m.remoteErrors, "sync_remote_errors_total", "Failed calls to the marketplace API", "{call}"},
		{&m.unclassifiedRows, "fee_unclassified_rows_total", "Settlement rows that matched no fee rule", "{row}"},
	}
	for _, c := range counters {
		if *c.dst, err = NewCounter(meter, c.name, c.desc, c.unit); err != nil {
			return nil, err
		}
	}

	if m.runDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "sync_run_duration_seconds",
		Description: "Sync run duration in seconds",
		Unit:        "s",
		Boundaries:  SyncDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.remoteDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "sync_remote_call_duration_seconds",
		Description: "Marketplace API call latency in seconds",
		Unit:        "s",
		Boundaries:  RemoteCallBuckets,
	}); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordRun records a finished run.
func (m *SyncMetrics) RecordRun(ctx context.Context, accountID, syncType, status string, synced, failed int, d time.Duration) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{AttrSyncType.String(syncType), AttrAccountID.String(accountID)}
	m.runsTotal.Inc(ctx, append(attrs, AttrRunStatus.String(status))...)
	m.recordsSynced.Add(ctx, int64(synced), attrs...)
	m.recordsFailed.Add(ctx, int64(failed), attrs...)
	m.runDuration.RecordDuration(ctx, d, AttrSyncType.String(syncType), AttrRunStatus.String(status))
}

// RecordRejected records a run refused because another run held the lock.
func (m *SyncMetrics) RecordRejected(ctx context.Context, syncType string) {
	if m == nil {
		return
	}
	m.runsRejected.Inc(ctx, AttrSyncType.String(syncType))
}

// RecordRemoteCall records one marketplace API call.
func (m *SyncMetrics) RecordRemoteCall(ctx context.Context, operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	attr := AttrOperation.String(operation)
	m.remoteCalls.Inc(ctx, attr)
	m.remoteDuration.RecordDuration(ctx, d, attr)
	if err != nil {
		m.remoteErrors.Inc(ctx, attr)
	}
}

// RecordUnclassified records settlement rows that fell through every rule.
func (m *SyncMetrics) RecordUnclassified(ctx context.Context, transactionType string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.unclassifiedRows.Add(ctx, int64(n), AttrTransactionType.String(transactionType))
}
