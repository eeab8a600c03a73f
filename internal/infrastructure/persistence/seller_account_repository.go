package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sellerledger/backend/internal/domain/integration"
	"github.com/sellerledger/backend/internal/infrastructure/persistence/models"
)

// GormSellerAccountRepository implements integration.SellerAccountRepository
type GormSellerAccountRepository struct {
	db *gorm.DB
}

var _ integration.SellerAccountRepository = (*GormSellerAccountRepository)(nil)

// NewGormSellerAccountRepository creates a new seller account repository
func NewGormSellerAccountRepository(db *gorm.DB) *GormSellerAccountRepository {
	return &GormSellerAccountRepository{db: db}
}

// FindByID returns integration.ErrAccountNotFound when the account does not exist
func (r *GormSellerAccountRepository) FindByID(ctx context.Context, id string) (*integration.SellerAccount, error) {
	var model models.SellerAccountModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrAccountNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindEnabled returns every account included in scheduled sync
func (r *GormSellerAccountRepository) FindEnabled(ctx context.Context) ([]integration.SellerAccount, error) {
	var rows []models.SellerAccountModel
	if err := r.db.WithContext(ctx).
		Where("enabled = ?", true).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	accounts := make([]integration.SellerAccount, len(rows))
	for i := range rows {
		accounts[i] = *rows[i].ToDomain()
	}
	return accounts, nil
}

// Save creates or updates an account
func (r *GormSellerAccountRepository) Save(ctx context.Context, account *integration.SellerAccount) error {
	now := time.Now().UTC()
	if account.ConnectedAt.IsZero() {
		account.ConnectedAt = now
	}
	account.UpdatedAt = now

	model := models.SellerAccountModelFromDomain(account)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"seller_id",
			"marketplace_id",
			"region",
			"access_token",
			"timezone",
			"enabled",
			"updated_at",
		}),
	}).Create(model).Error
}
