package feesync

import (
	"errors"
	"time"

	"github.com/sellerledger/backend/internal/domain/integration"
)

// SyncReport carries the record of every pass run for one account. Skipped
// lists passes rejected because another run of the same type was running.
type SyncReport struct {
	AccountID   string                       `json:"account_id"`
	Runs        []*integration.SyncRunRecord `json:"runs"`
	Skipped     []integration.SyncType       `json:"skipped,omitempty"`
	StartedAt   time.Time                    `json:"started_at"`
	CompletedAt time.Time                    `json:"completed_at"`
}

func newSyncReport(accountID string, now time.Time) *SyncReport {
	return &SyncReport{AccountID: accountID, StartedAt: now}
}

func (r *SyncReport) add(run *integration.SyncRunRecord) {
	if run != nil {
		r.Runs = append(r.Runs, run)
	}
}

func (r *SyncReport) skip(syncType integration.SyncType) {
	r.Skipped = append(r.Skipped, syncType)
}

// record adds the outcome of one pass. A rejected pass is listed as skipped;
// any other error is returned to the caller.
func (r *SyncReport) record(syncType integration.SyncType, run *integration.SyncRunRecord, err error) error {
	if errors.Is(err, integration.ErrSyncInProgress) {
		r.skip(syncType)
		return nil
	}
	if err != nil {
		return err
	}
	r.add(run)
	return nil
}

func (r *SyncReport) finish(now time.Time) {
	r.CompletedAt = now
}

// Run returns the run of a sync type, nil when that pass did not run
func (r *SyncReport) Run(syncType integration.SyncType) *integration.SyncRunRecord {
	for _, run := range r.Runs {
		if run.SyncType == syncType {
			return run
		}
	}
	return nil
}

// Status folds the run statuses: failed if every run failed, partially
// completed if any run did not complete, completed otherwise
func (r *SyncReport) Status() integration.RunStatus {
	if len(r.Runs) == 0 {
		return integration.RunStatusCompleted
	}
	failed := 0
	partial := false
	for _, run := range r.Runs {
		switch run.Status {
		case integration.RunStatusFailed:
			failed++
		case integration.RunStatusPartiallyCompleted:
			partial = true
		}
	}
	switch {
	case failed == len(r.Runs):
		return integration.RunStatusFailed
	case failed > 0 || partial:
		return integration.RunStatusPartiallyCompleted
	default:
		return integration.RunStatusCompleted
	}
}
