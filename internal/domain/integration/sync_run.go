package integration

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// SyncType identifies an independently tracked sync pipeline
// ---------------------------------------------------------------------------

// SyncType identifies an independently tracked sync pipeline
type SyncType string

const (
	SyncTypeOrders          SyncType = "orders"
	SyncTypeOrderItems      SyncType = "order_items"
	SyncTypeFinancialEvents SyncType = "financial_events"
	SyncTypeSettlements     SyncType = "settlements"
)

// IsValid returns true if the sync type is valid
func (t SyncType) IsValid() bool {
	switch t {
	case SyncTypeOrders, SyncTypeOrderItems, SyncTypeFinancialEvents, SyncTypeSettlements:
		return true
	default:
		return false
	}
}

// String returns the string representation of SyncType
func (t SyncType) String() string {
	return string(t)
}

// ---------------------------------------------------------------------------
// RunStatus is the state of a sync run
// ---------------------------------------------------------------------------

// RunStatus is the state of a sync run: running, then one terminal state
type RunStatus string

const (
	RunStatusRunning            RunStatus = "running"
	RunStatusCompleted          RunStatus = "completed"
	RunStatusPartiallyCompleted RunStatus = "partially_completed"
	RunStatusFailed             RunStatus = "failed"
)

// IsValid returns true if the status is valid
func (s RunStatus) IsValid() bool {
	switch s {
	case RunStatusRunning, RunStatusCompleted, RunStatusPartiallyCompleted, RunStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true once the run has finished
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusPartiallyCompleted || s == RunStatusFailed
}

// String returns the string representation of RunStatus
func (s RunStatus) String() string {
	return string(s)
}

// RunTrigger records what started a run
type RunTrigger string

const (
	RunTriggerSchedule RunTrigger = "schedule"
	RunTriggerUser     RunTrigger = "user"
)

// ---------------------------------------------------------------------------
// SyncRunRecord
// ---------------------------------------------------------------------------

// maxRecordedFailures bounds the per-item failures kept on a run
const maxRecordedFailures = 50

// SyncFailure records one failed item of a run
type SyncFailure struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// SyncRunRecord is the audit record of one sync run. It is created when the
// run starts and never mutated after it reaches a terminal status.
type SyncRunRecord struct {
	ID            uuid.UUID
	AccountID     string
	SyncType      SyncType
	Trigger       RunTrigger
	Status        RunStatus
	RecordsSynced int
	RecordsFailed int
	StartedAt     time.Time
	CompletedAt   *time.Time
	// WindowStart and WindowEnd bound the data the run covered, when date based
	WindowStart *time.Time
	WindowEnd   *time.Time
	Failures    []SyncFailure
	// ErrorSummary is a short human readable digest of Failures and run-level errors
	ErrorSummary string

	runErr  error
	aborted bool
}

// NewSyncRun creates a running record
func NewSyncRun(accountID string, syncType SyncType, trigger RunTrigger, now time.Time) *SyncRunRecord {
	return &SyncRunRecord{
		ID:        uuid.New(),
		AccountID: accountID,
		SyncType:  syncType,
		Trigger:   trigger,
		Status:    RunStatusRunning,
		StartedAt: now,
	}
}

// SetWindow records the date window the run covers
func (r *SyncRunRecord) SetWindow(start, end time.Time) {
	r.WindowStart = &start
	r.WindowEnd = &end
}

// RecordSuccess counts successfully written records
func (r *SyncRunRecord) RecordSuccess(n int) {
	r.RecordsSynced += n
}

// RecordFailure counts one failed item and keeps its reason
func (r *SyncRunRecord) RecordFailure(key string, err error) {
	r.RecordsFailed++
	if len(r.Failures) < maxRecordedFailures {
		r.Failures = append(r.Failures, SyncFailure{Key: key, Reason: err.Error()})
	}
}

// Abort records a store write failure that stops the remaining batch
func (r *SyncRunRecord) Abort(err error) {
	r.aborted = true
	r.runErr = err
}

// Aborted reports whether the batch was cut short
func (r *SyncRunRecord) Aborted() bool {
	return r.aborted
}

// Complete finalizes the run from its counts.
// Nothing failed: completed. Some items failed or the batch was aborted after
// writing records: partially completed. Nothing was written and something
// failed: failed.
func (r *SyncRunRecord) Complete(now time.Time) {
	if r.Status.IsTerminal() {
		return
	}
	switch {
	case r.RecordsFailed == 0 && !r.aborted:
		r.Status = RunStatusCompleted
	case r.RecordsSynced > 0:
		r.Status = RunStatusPartiallyCompleted
	default:
		r.Status = RunStatusFailed
	}
	r.finish(now)
}

// Fail finalizes the run as failed with a run-level error
func (r *SyncRunRecord) Fail(now time.Time, err error) {
	if r.Status.IsTerminal() {
		return
	}
	r.runErr = err
	r.Status = RunStatusFailed
	r.finish(now)
}

func (r *SyncRunRecord) finish(now time.Time) {
	r.CompletedAt = &now
	r.ErrorSummary = r.summarize()
}

// summarize builds ErrorSummary from the run-level error and item failures
func (r *SyncRunRecord) summarize() string {
	var parts []string
	if r.runErr != nil {
		parts = append(parts, r.runErr.Error())
	}
	if r.RecordsFailed > 0 {
		shown := r.Failures
		if len(shown) > 5 {
			shown = shown[:5]
		}
		keys := make([]string, 0, len(shown))
		for _, f := range shown {
			keys = append(keys, fmt.Sprintf("%s (%s)", f.Key, f.Reason))
		}
		msg := fmt.Sprintf("%d item(s) failed: %s", r.RecordsFailed, strings.Join(keys, "; "))
		if r.RecordsFailed > len(shown) {
			msg += fmt.Sprintf("; and %d more", r.RecordsFailed-len(shown))
		}
		parts = append(parts, msg)
	}
	return strings.Join(parts, " | ")
}

// Succeeded reports whether the run may advance its cursor
func (r *SyncRunRecord) Succeeded() bool {
	return r.Status == RunStatusCompleted || r.Status == RunStatusPartiallyCompleted
}

// Duration returns the run duration, zero while running
func (r *SyncRunRecord) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// SyncRunRepository persists sync run records
type SyncRunRepository interface {
	// Create inserts a running record
	Create(ctx context.Context, run *SyncRunRecord) error
	// Finalize writes the terminal state; ErrRunNotRunning if already finalized
	Finalize(ctx context.Context, run *SyncRunRecord) error
	// FindByID returns a run by id
	FindByID(ctx context.Context, id uuid.UUID) (*SyncRunRecord, error)
	// FindRecent returns the most recent runs of an account, newest first
	FindRecent(ctx context.Context, accountID string, limit int) ([]SyncRunRecord, error)
}

// ---------------------------------------------------------------------------
// SyncCursor
// ---------------------------------------------------------------------------

// SyncCursor is the progress marker of one (account, sync type)
type SyncCursor struct {
	AccountID string
	SyncType  SyncType
	// Position is the last processed identifier, when identifier based
	Position string
	// Watermark is the last processed date, when date based
	Watermark time.Time
	// RunID is the run that last advanced the cursor
	RunID     uuid.UUID
	UpdatedAt time.Time
}

// SyncCursorRepository persists cursors
type SyncCursorRepository interface {
	// Get returns nil, nil when no cursor exists yet
	Get(ctx context.Context, accountID string, syncType SyncType) (*SyncCursor, error)
	// Save upserts the cursor keyed by (account, sync type)
	Save(ctx context.Context, cursor *SyncCursor) error
}

// ---------------------------------------------------------------------------
// RunGuard
// ---------------------------------------------------------------------------

// Lease is a held run lock
type Lease interface {
	Release(ctx context.Context) error
}

// RunGuard allows at most one running sync per (account, sync type).
// Acquire returns ErrSyncInProgress when the lock is held elsewhere.
type RunGuard interface {
	Acquire(ctx context.Context, accountID string, syncType SyncType) (Lease, error)
}
