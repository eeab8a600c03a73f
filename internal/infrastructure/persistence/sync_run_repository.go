package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sellerledger/backend/internal/domain/integration"
	"github.com/sellerledger/backend/internal/infrastructure/persistence/models"
)

// ErrSyncRunNotFound is returned when a run id is unknown
var ErrSyncRunNotFound = errors.New("persistence: sync run not found")

// GormSyncRunRepository implements integration.SyncRunRepository
type GormSyncRunRepository struct {
	db *gorm.DB
}

var _ integration.SyncRunRepository = (*GormSyncRunRepository)(nil)

// NewGormSyncRunRepository creates a new sync run repository
func NewGormSyncRunRepository(db *gorm.DB) *GormSyncRunRepository {
	return &GormSyncRunRepository{db: db}
}

// Create inserts a running record
func (r *GormSyncRunRepository) Create(ctx context.Context, run *integration.SyncRunRecord) error {
	if run.Status != integration.RunStatusRunning {
		return integration.ErrRunNotRunning
	}
	return r.db.WithContext(ctx).Create(models.SyncRunModelFromDomain(run)).Error
}

// Finalize writes the terminal state of a running record. A record that is
// no longer running is never touched again.
func (r *GormSyncRunRepository) Finalize(ctx context.Context, run *integration.SyncRunRecord) error {
	if !run.Status.IsTerminal() {
		return integration.ErrRunNotRunning
	}
	model := models.SyncRunModelFromDomain(run)
	result := r.db.WithContext(ctx).
		Model(&models.SyncRunModel{}).
		Where("id = ? AND status = ?", run.ID, integration.RunStatusRunning).
		Select("status", "records_synced", "records_failed", "completed_at", "window_start", "window_end", "failures", "error_summary").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return integration.ErrRunNotRunning
	}
	return nil
}

// FindByID returns a run by id
func (r *GormSyncRunRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.SyncRunRecord, error) {
	var model models.SyncRunModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSyncRunNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindRecent returns the most recent runs of an account, newest first
func (r *GormSyncRunRepository) FindRecent(ctx context.Context, accountID string, limit int) ([]integration.SyncRunRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	var rows []models.SyncRunModel
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("started_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]integration.SyncRunRecord, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// GormSyncCursorRepository implements integration.SyncCursorRepository
type GormSyncCursorRepository struct {
	db *gorm.DB
}

var _ integration.SyncCursorRepository = (*GormSyncCursorRepository)(nil)

// NewGormSyncCursorRepository creates a new sync cursor repository
func NewGormSyncCursorRepository(db *gorm.DB) *GormSyncCursorRepository {
	return &GormSyncCursorRepository{db: db}
}

// Get returns nil, nil when no cursor exists yet
func (r *GormSyncCursorRepository) Get(ctx context.Context, accountID string, syncType integration.SyncType) (*integration.SyncCursor, error) {
	var model models.SyncCursorModel
	err := r.db.WithContext(ctx).
		First(&model, "account_id = ? AND sync_type = ?", accountID, syncType).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save upserts the cursor keyed by (account, sync type)
func (r *GormSyncCursorRepository) Save(ctx context.Context, cursor *integration.SyncCursor) error {
	model := models.SyncCursorModelFromDomain(cursor)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "sync_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"position", "watermark", "run_id", "updated_at"}),
	}).Create(model).Error
}
