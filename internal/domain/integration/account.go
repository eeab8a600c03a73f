package integration

import (
	"context"
	"strings"
	"time"
)

// SellerAccount is a connected seller on one marketplace region
type SellerAccount struct {
	// ID is the local account identifier every record is scoped to
	ID string
	// SellerID is the seller identifier on the marketplace
	SellerID string
	// MarketplaceID is the primary marketplace the account sells on
	MarketplaceID string
	// Region selects the remote API endpoint (na, eu, fe)
	Region string
	// AccessToken authorizes remote API calls for this account
	AccessToken string
	// Timezone is the IANA zone used to bucket daily summaries
	Timezone string
	// Enabled accounts are included in scheduled sync
	Enabled bool
	// ConnectedAt is when the account was connected
	ConnectedAt time.Time
	// UpdatedAt is when the account was last updated
	UpdatedAt time.Time
}

// Validate checks required fields
func (a *SellerAccount) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return ErrAccountNotFound
	}
	return nil
}

// Location returns the account timezone, UTC when unset or unknown
func (a *SellerAccount) Location() *time.Location {
	if a.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SellerAccountRepository persists seller accounts
type SellerAccountRepository interface {
	// FindByID returns ErrAccountNotFound when the account does not exist
	FindByID(ctx context.Context, id string) (*SellerAccount, error)
	// FindEnabled returns all accounts included in scheduled sync
	FindEnabled(ctx context.Context) ([]SellerAccount, error)
	// Save creates or updates an account
	Save(ctx context.Context, account *SellerAccount) error
}
