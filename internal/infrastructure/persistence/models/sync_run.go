package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sellerledger/backend/internal/domain/integration"
)

// SyncRunModel is the persistence model for a sync run audit record
type SyncRunModel struct {
	ID            uuid.UUID               `gorm:"type:uuid;primaryKey"`
	AccountID     string                  `gorm:"type:varchar(64);not null;index:idx_sync_runs_account_started,priority:1"`
	SyncType      integration.SyncType    `gorm:"type:varchar(32);not null"`
	Trigger       integration.RunTrigger  `gorm:"column:trigger_source;type:varchar(16);not null"`
	Status        integration.RunStatus   `gorm:"type:varchar(32);not null;index"`
	RecordsSynced int                     `gorm:"not null"`
	RecordsFailed int                     `gorm:"not null"`
	StartedAt     time.Time               `gorm:"not null;index:idx_sync_runs_account_started,priority:2"`
	CompletedAt   *time.Time
	WindowStart   *time.Time
	WindowEnd     *time.Time
	Failures      []integration.SyncFailure `gorm:"type:jsonb;serializer:json"`
	ErrorSummary  string                    `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (SyncRunModel) TableName() string {
	return "sync_runs"
}

// ToDomain converts the model to a domain run record
func (m *SyncRunModel) ToDomain() *integration.SyncRunRecord {
	return &integration.SyncRunRecord{
		ID:            m.ID,
		AccountID:     m.AccountID,
		SyncType:      m.SyncType,
		Trigger:       m.Trigger,
		Status:        m.Status,
		RecordsSynced: m.RecordsSynced,
		RecordsFailed: m.RecordsFailed,
		StartedAt:     m.StartedAt,
		CompletedAt:   m.CompletedAt,
		WindowStart:   m.WindowStart,
		WindowEnd:     m.WindowEnd,
		Failures:      m.Failures,
		ErrorSummary:  m.ErrorSummary,
	}
}

// SyncRunModelFromDomain creates a model from a domain run record
func SyncRunModelFromDomain(r *integration.SyncRunRecord) *SyncRunModel {
	return &SyncRunModel{
		ID:            r.ID,
		AccountID:     r.AccountID,
		SyncType:      r.SyncType,
		Trigger:       r.Trigger,
		Status:        r.Status,
		RecordsSynced: r.RecordsSynced,
		RecordsFailed: r.RecordsFailed,
		StartedAt:     r.StartedAt.UTC(),
		CompletedAt:   r.CompletedAt,
		WindowStart:   r.WindowStart,
		WindowEnd:     r.WindowEnd,
		Failures:      r.Failures,
		ErrorSummary:  r.ErrorSummary,
	}
}

// SyncCursorModel is the persistence model for a sync cursor
type SyncCursorModel struct {
	AccountID string               `gorm:"type:varchar(64);primaryKey"`
	SyncType  integration.SyncType `gorm:"type:varchar(32);primaryKey"`
	Position  string               `gorm:"type:varchar(255)"`
	Watermark *time.Time
	RunID     uuid.UUID `gorm:"type:uuid"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncCursorModel) TableName() string {
	return "sync_cursors"
}

// ToDomain converts the model to a domain cursor
func (m *SyncCursorModel) ToDomain() *integration.SyncCursor {
	c := &integration.SyncCursor{
		AccountID: m.AccountID,
		SyncType:  m.SyncType,
		Position:  m.Position,
		RunID:     m.RunID,
		UpdatedAt: m.UpdatedAt,
	}
	if m.Watermark != nil {
		c.Watermark = m.Watermark.UTC()
	}
	return c
}

// SyncCursorModelFromDomain creates a model from a domain cursor
func SyncCursorModelFromDomain(c *integration.SyncCursor) *SyncCursorModel {
	m := &SyncCursorModel{
		AccountID: c.AccountID,
		SyncType:  c.SyncType,
		Position:  c.Position,
		RunID:     c.RunID,
		UpdatedAt: c.UpdatedAt.UTC(),
	}
	if !c.Watermark.IsZero() {
		w := c.Watermark.UTC()
		m.Watermark = &w
	}
	return m
}
