package persistence

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sellerledger/backend/internal/domain/ledger"
	"github.com/sellerledger/backend/internal/infrastructure/persistence/models"
)

// GormDailySummaryRepository implements ledger.DailySummaryRepository
type GormDailySummaryRepository struct {
	db *gorm.DB
}

var _ ledger.DailySummaryRepository = (*GormDailySummaryRepository)(nil)

// NewGormDailySummaryRepository creates a new daily summary repository
func NewGormDailySummaryRepository(db *gorm.DB) *GormDailySummaryRepository {
	return &GormDailySummaryRepository{db: db}
}

// Upsert overwrites every field of the (account, date) row
func (r *GormDailySummaryRepository) Upsert(ctx context.Context, summary *ledger.DailyFinancialSummary) error {
	if err := summary.Validate(); err != nil {
		return err
	}
	model := models.DailySummaryModelFromDomain(summary)

	updates := append(models.FeeColumnNames(),
		"sales",
		"refunds",
		"total_fees",
		"uncategorized_amount",
		"units",
		"orders",
		"gross_profit",
		"margin",
		"computed_at",
	)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "summary_date"}},
		DoUpdates: clause.AssignmentColumns(updates),
	}).Create(model).Error
}

// FindByDateRange returns summaries with from <= date < to, oldest first
func (r *GormDailySummaryRepository) FindByDateRange(ctx context.Context, accountID string, from, to time.Time) ([]ledger.DailyFinancialSummary, error) {
	var rows []models.DailySummaryModel
	if err := r.db.WithContext(ctx).
		Where("account_id = ? AND summary_date >= ? AND summary_date < ?", accountID, from.UTC(), to.UTC()).
		Order("summary_date ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ledger.DailyFinancialSummary, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}
