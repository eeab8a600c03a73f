package models

import (
	"time"

	"github.com/sellerledger/backend/internal/domain/integration"
)

// SellerAccountModel is the persistence model for a connected seller account
type SellerAccountModel struct {
	ID            string    `gorm:"type:varchar(64);primaryKey"`
	SellerID      string    `gorm:"type:varchar(64);not null"`
	MarketplaceID string    `gorm:"type:varchar(32);not null"`
	Region        string    `gorm:"type:varchar(8);not null"`
	AccessToken   string    `gorm:"type:text"`
	Timezone      string    `gorm:"type:varchar(64)"`
	Enabled       bool      `gorm:"not null;index"`
	ConnectedAt   time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SellerAccountModel) TableName() string {
	return "seller_accounts"
}

// ToDomain converts the model to a domain account
func (m *SellerAccountModel) ToDomain() *integration.SellerAccount {
	return &integration.SellerAccount{
		ID:            m.ID,
		SellerID:      m.SellerID,
		MarketplaceID: m.MarketplaceID,
		Region:        m.Region,
		AccessToken:   m.AccessToken,
		Timezone:      m.Timezone,
		Enabled:       m.Enabled,
		ConnectedAt:   m.ConnectedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// SellerAccountModelFromDomain creates a model from a domain account
func SellerAccountModelFromDomain(a *integration.SellerAccount) *SellerAccountModel {
	return &SellerAccountModel{
		ID:            a.ID,
		SellerID:      a.SellerID,
		MarketplaceID: a.MarketplaceID,
		Region:        a.Region,
		AccessToken:   a.AccessToken,
		Timezone:      a.Timezone,
		Enabled:       a.Enabled,
		ConnectedAt:   a.ConnectedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}
