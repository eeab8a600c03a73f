package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sellerledger/backend/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Account Sync Job Types
// ---------------------------------------------------------------------------

// AccountSyncJobStatus represents the status of one account's scheduled sync
type AccountSyncJobStatus string

const (
	AccountSyncJobStatusPending AccountSyncJobStatus = "PENDING"
	AccountSyncJobStatusRunning AccountSyncJobStatus = "RUNNING"
	AccountSyncJobStatusSuccess AccountSyncJobStatus = "SUCCESS"
	AccountSyncJobStatusPartial AccountSyncJobStatus = "PARTIAL"
	AccountSyncJobStatusFailed  AccountSyncJobStatus = "FAILED"
	AccountSyncJobStatusSkipped AccountSyncJobStatus = "SKIPPED"
)

// AccountSyncJob is one account's share of a scheduled fan-out
type AccountSyncJob struct {
	ID          uuid.UUID              `json:"id"`
	AccountID   string                 `json:"account_id"`
	Trigger     integration.RunTrigger `json:"trigger"`
	Status      AccountSyncJobStatus   `json:"status"`
	Error       string                 `json:"error,omitempty"`
	StartedAt   *time.Time             `json:"started_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
}

// NewAccountSyncJob creates a pending job
func NewAccountSyncJob(accountID string, trigger integration.RunTrigger) *AccountSyncJob {
	return &AccountSyncJob{
		ID:        uuid.New(),
		AccountID: accountID,
		Trigger:   trigger,
		Status:    AccountSyncJobStatusPending,
	}
}

// Start marks the job as running
func (j *AccountSyncJob) Start() {
	now := time.Now()
	j.Status = AccountSyncJobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete maps the account's overall run status onto the job
func (j *AccountSyncJob) Complete(status integration.RunStatus) {
	now := time.Now()
	j.CompletedAt = &now
	switch status {
	case integration.RunStatusCompleted:
		j.Status = AccountSyncJobStatusSuccess
	case integration.RunStatusFailed:
		j.Status = AccountSyncJobStatusFailed
	default:
		j.Status = AccountSyncJobStatusPartial
	}
}

// Skip marks the job as skipped because the account is already syncing
func (j *AccountSyncJob) Skip() {
	now := time.Now()
	j.Status = AccountSyncJobStatusSkipped
	j.CompletedAt = &now
}

// Fail marks the job as failed
func (j *AccountSyncJob) Fail(err string) {
	now := time.Now()
	j.Status = AccountSyncJobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// ---------------------------------------------------------------------------
// Ports
// ---------------------------------------------------------------------------

// AccountSource lists the accounts included in scheduled sync
type AccountSource interface {
	FindEnabled(ctx context.Context) ([]integration.SellerAccount, error)
}

// AccountSyncer runs the incremental sync of one account
type AccountSyncer interface {
	SyncAccount(ctx context.Context, accountID string, trigger integration.RunTrigger) (integration.RunStatus, error)
}

// ---------------------------------------------------------------------------
// AccountSyncConfig
// ---------------------------------------------------------------------------

// AccountSyncConfig holds configuration for the account fan-out
type AccountSyncConfig struct {
	// MaxConcurrentAccounts is the maximum number of accounts synced at once
	MaxConcurrentAccounts int
	// AccountTimeout is the maximum time one account's sync can run
	AccountTimeout time.Duration
	// HistorySize is the number of finished jobs kept for monitoring
	HistorySize int
}

// DefaultAccountSyncConfig returns default configuration
func DefaultAccountSyncConfig() AccountSyncConfig {
	return AccountSyncConfig{
		MaxConcurrentAccounts: 4,
		AccountTimeout:        20 * time.Minute,
		HistorySize:           100,
	}
}

// Validate validates the configuration
func (c *AccountSyncConfig) Validate() error {
	if c.MaxConcurrentAccounts <= 0 {
		return ErrInvalidConfig
	}
	if c.AccountTimeout <= 0 {
		return ErrInvalidConfig
	}
	if c.HistorySize < 0 {
		return ErrInvalidConfig
	}
	return nil
}

// ---------------------------------------------------------------------------
// AccountSyncScheduler
// ---------------------------------------------------------------------------

// FanOutResult summarizes one sync of all enabled accounts
type FanOutResult struct {
	Jobs        []*AccountSyncJob `json:"jobs"`
	Succeeded   int               `json:"succeeded"`
	Partial     int               `json:"partial"`
	Failed      int               `json:"failed"`
	Skipped     int               `json:"skipped"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt time.Time         `json:"completed_at"`
}

func (r *FanOutResult) count(job *AccountSyncJob) {
	switch job.Status {
	case AccountSyncJobStatusSuccess:
		r.Succeeded++
	case AccountSyncJobStatusPartial:
		r.Partial++
	case AccountSyncJobStatusSkipped:
		r.Skipped++
	default:
		r.Failed++
	}
}

// AccountSyncScheduler syncs every enabled account with bounded concurrency.
// One account failing or timing out never affects the others.
type AccountSyncScheduler struct {
	config   AccountSyncConfig
	accounts AccountSource
	syncer   AccountSyncer
	logger   *zap.Logger

	running atomic.Bool

	// Job history for monitoring (in-memory, limited size)
	historyMu sync.RWMutex
	history   []*AccountSyncJob
}

// NewAccountSyncScheduler creates a new account sync scheduler
func NewAccountSyncScheduler(config AccountSyncConfig, accounts AccountSource, syncer AccountSyncer, logger *zap.Logger) (*AccountSyncScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AccountSyncScheduler{
		config:   config,
		accounts: accounts,
		syncer:   syncer,
		logger:   logger,
		history:  make([]*AccountSyncJob, 0, config.HistorySize),
	}, nil
}

// RunAll syncs every enabled account and waits for all of them. Overlapping
// calls are rejected with ErrFanOutInProgress.
func (s *AccountSyncScheduler) RunAll(ctx context.Context, trigger integration.RunTrigger) (*FanOutResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrFanOutInProgress
	}
	defer s.running.Store(false)

	accounts, err := s.accounts.FindEnabled(ctx)
	if err != nil {
		return nil, err
	}

	result := &FanOutResult{
		Jobs:      make([]*AccountSyncJob, len(accounts)),
		StartedAt: time.Now(),
	}
	s.logger.Info("Account sync fan-out started",
		zap.Int("accounts", len(accounts)),
		zap.Int("max_concurrent", s.config.MaxConcurrentAccounts),
		zap.String("trigger", string(trigger)),
	)

	sem := make(chan struct{}, s.config.MaxConcurrentAccounts)
	var wg sync.WaitGroup
	for i := range accounts {
		job := NewAccountSyncJob(accounts[i].ID, trigger)
		result.Jobs[i] = job

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			job.Fail(ctx.Err().Error())
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			s.processJob(ctx, job)
		}()
	}
	wg.Wait()

	for _, job := range result.Jobs {
		result.count(job)
		s.addToHistory(job)
	}
	result.CompletedAt = time.Now()

	s.logger.Info("Account sync fan-out finished",
		zap.Int("succeeded", result.Succeeded),
		zap.Int("partial", result.Partial),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
		zap.Duration("duration", result.CompletedAt.Sub(result.StartedAt)),
	)
	return result, nil
}

// processJob syncs one account under the per-account timeout
func (s *AccountSyncScheduler) processJob(ctx context.Context, job *AccountSyncJob) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Account sync panicked",
				zap.String("account_id", job.AccountID),
				zap.Any("panic", r),
			)
			job.Fail("panic during sync")
		}
	}()

	job.Start()
	jobCtx, cancel := context.WithTimeout(ctx, s.config.AccountTimeout)
	defer cancel()

	status, err := s.syncer.SyncAccount(jobCtx, job.AccountID, job.Trigger)
	switch {
	case errors.Is(err, integration.ErrSyncInProgress):
		job.Skip()
		s.logger.Info("Account sync skipped, already running", zap.String("account_id", job.AccountID))
	case err != nil:
		job.Fail(err.Error())
		s.logger.Error("Account sync failed",
			zap.String("job_id", job.ID.String()),
			zap.String("account_id", job.AccountID),
			zap.Error(err),
		)
	default:
		job.Complete(status)
		s.logger.Info("Account sync completed",
			zap.String("job_id", job.ID.String()),
			zap.String("account_id", job.AccountID),
			zap.String("status", string(job.Status)),
		)
	}
}

// addToHistory adds a finished job to history
func (s *AccountSyncScheduler) addToHistory(job *AccountSyncJob) {
	if s.config.HistorySize == 0 {
		return
	}
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	s.history = append([]*AccountSyncJob{job}, s.history...)
	if len(s.history) > s.config.HistorySize {
		s.history = s.history[:s.config.HistorySize]
	}
}

// GetJobHistory returns recent job history, newest first
func (s *AccountSyncScheduler) GetJobHistory(limit int) []*AccountSyncJob {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}

	result := make([]*AccountSyncJob, limit)
	copy(result, s.history[:limit])
	return result
}

// GetJobHistoryByAccount returns job history for one account
func (s *AccountSyncScheduler) GetJobHistoryByAccount(accountID string, limit int) []*AccountSyncJob {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	result := make([]*AccountSyncJob, 0, limit)
	for _, job := range s.history {
		if job.AccountID == accountID {
			result = append(result, job)
			if len(result) >= limit {
				break
			}
		}
	}
	return result
}
