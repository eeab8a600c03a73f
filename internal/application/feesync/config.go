package feesync

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidConfig is returned when the orchestrator configuration is invalid
var ErrInvalidConfig = errors.New("feesync: invalid configuration")

// Config holds orchestrator settings
type Config struct {
	// OrderItemsBatchSize caps the orders fetched per order-items run
	OrderItemsBatchSize int `validate:"gte=1,lte=1000"`
	// LookbackDays bounds the order-items candidate window
	LookbackDays int `validate:"gte=1,lte=365"`
	// RecheckAfter lets orders without fee-populated lines be fetched again
	RecheckAfter time.Duration `validate:"gte=0"`
	// InterCallDelay is the minimum spacing between remote calls; zero disables it
	InterCallDelay time.Duration `validate:"gte=0"`
	// CallTimeout bounds one remote call
	CallTimeout time.Duration `validate:"gt=0"`
	// EventsWindowDays is the trailing window of the financial-events pass
	EventsWindowDays int `validate:"gte=1,lte=180"`
	// OrdersOverlap is subtracted from the orders cursor on every run
	OrdersOverlap time.Duration `validate:"gte=0"`
	// InitialLookbackDays is the orders window when no cursor exists
	InitialLookbackDays int `validate:"gte=1,lte=730"`
	// SettlementLookbackDays is the settlements window when no cursor exists
	SettlementLookbackDays int `validate:"gte=1,lte=730"`
	// OrdersPageSize is the page size requested from the order listing
	OrdersPageSize int `validate:"gte=1,lte=100"`
}

// DefaultConfig returns the default orchestrator configuration
func DefaultConfig() Config {
	return Config{
		OrderItemsBatchSize:    50,
		LookbackDays:           30,
		RecheckAfter:           24 * time.Hour,
		InterCallDelay:         2 * time.Second,
		CallTimeout:            30 * time.Second,
		EventsWindowDays:       7,
		OrdersOverlap:          2 * time.Hour,
		InitialLookbackDays:    30,
		SettlementLookbackDays: 90,
		OrdersPageSize:         50,
	}
}

var configValidator = validator.New()

// Validate validates the configuration
func (c Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
