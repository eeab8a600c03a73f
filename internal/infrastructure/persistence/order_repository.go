package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sellerledger/backend/internal/domain/ledger"
	"github.com/sellerledger/backend/internal/infrastructure/persistence/models"
)

// GormOrderRepository implements ledger.OrderRepository
type GormOrderRepository struct {
	db *gorm.DB
}

var _ ledger.OrderRepository = (*GormOrderRepository)(nil)

// NewGormOrderRepository creates a new order repository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Upsert creates or updates an order keyed by (account, order id). The item
// sync stamp is preserved on update.
func (r *GormOrderRepository) Upsert(ctx context.Context, order *ledger.OrderRecord) error {
	if err := order.Validate(); err != nil {
		return err
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = time.Now().UTC()
	}
	model := models.OrderModelFromDomain(order)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}, {Name: "order_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"purchase_date",
			"last_updated",
			"status",
			"marketplace_id",
			"currency",
			"order_total",
			"updated_at",
		}),
	}).Create(model).Error
}

// FindByID returns ledger.ErrOrderNotFound when missing
func (r *GormOrderRepository) FindByID(ctx context.Context, accountID, orderID string) (*ledger.OrderRecord, error) {
	var model models.OrderModel
	err := r.db.WithContext(ctx).
		First(&model, "account_id = ? AND order_id = ?", accountID, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrOrderNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindItemSyncCandidates returns orders purchased in the lookback window that
// have no fee-populated line yet. Orders never item-synced come first, then
// newest purchases.
func (r *GormOrderRepository) FindItemSyncCandidates(ctx context.Context, q ledger.ItemSyncCandidateQuery) ([]ledger.OrderRecord, error) {
	query := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("account_id = ? AND purchase_date >= ?", q.AccountID, q.PurchasedAfter.UTC())

	if !q.Force {
		populated := r.db.
			Table("order_line_fees AS l").
			Select("1").
			Where("l.account_id = orders.account_id AND l.order_id = orders.order_id AND l.fee_source <> ?", ledger.FeeSourceNone)
		query = query.Where("NOT EXISTS (?)", populated)
		if !q.RecheckBefore.IsZero() {
			query = query.Where("(items_synced_at IS NULL OR items_synced_at < ?)", q.RecheckBefore.UTC())
		}
	}

	query = query.Order("CASE WHEN items_synced_at IS NULL THEN 0 ELSE 1 END").
		Order("purchase_date DESC")
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var rows []models.OrderModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ledger.OrderRecord, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// MarkItemsSynced stamps the item sync time of an order
func (r *GormOrderRepository) MarkItemsSynced(ctx context.Context, accountID, orderID string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("account_id = ? AND order_id = ?", accountID, orderID).
		Update("items_synced_at", at.UTC())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ledger.ErrOrderNotFound
	}
	return nil
}
