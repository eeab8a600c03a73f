package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/sellerledger/backend/internal/domain/integration"
)

// SyncTypeIncremental runs every pass of an account in order
const SyncTypeIncremental = "incremental"

// TriggerSyncRequest starts a sync of one account. An empty SyncType runs the
// incremental sync.
type TriggerSyncRequest struct {
	SyncType string `json:"sync_type" binding:"omitempty,oneof=incremental orders order_items financial_events settlements"`
	// Force refetches line items of every order in the lookback window
	Force bool `json:"force"`
	// From and To bound a financial_events run; both default to the account's window
	From *time.Time `json:"from"`
	To   *time.Time `json:"to"`
	// Limit overrides the order_items batch size
	Limit int `json:"limit" binding:"omitempty,min=1,max=1000"`
}

// SyncRunsQuery lists recent runs of one account
type SyncRunsQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=200"`
}

// SyncFailureResponse is one failed item of a run
type SyncFailureResponse struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// SyncRunResponse represents a sync run in API responses
type SyncRunResponse struct {
	ID            uuid.UUID             `json:"id"`
	AccountID     string                `json:"account_id"`
	SyncType      string                `json:"sync_type"`
	Trigger       string                `json:"trigger"`
	Status        string                `json:"status"`
	RecordsSynced int                   `json:"records_synced"`
	RecordsFailed int                   `json:"records_failed"`
	StartedAt     time.Time             `json:"started_at"`
	CompletedAt   *time.Time            `json:"completed_at,omitempty"`
	WindowStart   *time.Time            `json:"window_start,omitempty"`
	WindowEnd     *time.Time            `json:"window_end,omitempty"`
	Failures      []SyncFailureResponse `json:"failures,omitempty"`
	ErrorSummary  string                `json:"error_summary,omitempty"`
}

// ToSyncRunResponse converts a run record to its response form
func ToSyncRunResponse(run *integration.SyncRunRecord) SyncRunResponse {
	resp := SyncRunResponse{
		ID:            run.ID,
		AccountID:     run.AccountID,
		SyncType:      run.SyncType.String(),
		Trigger:       string(run.Trigger),
		Status:        run.Status.String(),
		RecordsSynced: run.RecordsSynced,
		RecordsFailed: run.RecordsFailed,
		StartedAt:     run.StartedAt,
		CompletedAt:   run.CompletedAt,
		WindowStart:   run.WindowStart,
		WindowEnd:     run.WindowEnd,
		ErrorSummary:  run.ErrorSummary,
	}
	for _, f := range run.Failures {
		resp.Failures = append(resp.Failures, SyncFailureResponse{Key: f.Key, Reason: f.Reason})
	}
	return resp
}

// ToSyncRunResponses converts a list of run records
func ToSyncRunResponses(runs []integration.SyncRunRecord) []SyncRunResponse {
	out := make([]SyncRunResponse, len(runs))
	for i := range runs {
		out[i] = ToSyncRunResponse(&runs[i])
	}
	return out
}

// SyncResultResponse is the outcome of a triggered sync
type SyncResultResponse struct {
	AccountID string            `json:"account_id"`
	Status    string            `json:"status"`
	Runs      []SyncRunResponse `json:"runs"`
	// Skipped lists passes rejected because another run of the same type was running
	Skipped []string `json:"skipped,omitempty"`
}
