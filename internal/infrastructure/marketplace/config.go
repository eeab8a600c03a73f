package marketplace

import (
	"errors"
	"strings"
	"time"
)

// Config holds configuration for the seller-data API client
type Config struct {
	// BaseURL is the default API endpoint
	BaseURL string
	// RegionEndpoints overrides BaseURL per account region (na, eu, fe)
	RegionEndpoints map[string]string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// MaxResponseSize caps JSON response bodies, in bytes
	MaxResponseSize int64
	// MaxDocumentSize caps settlement document downloads, in bytes
	MaxDocumentSize int64
	// UserAgent is sent on every request
	UserAgent string
}

const (
	// ProductionNAURL is the North America endpoint
	ProductionNAURL = "https://sellingpartnerapi-na.amazon.com"
	// ProductionEUURL is the Europe endpoint
	ProductionEUURL = "https://sellingpartnerapi-eu.amazon.com"
	// ProductionFEURL is the Far East endpoint
	ProductionFEURL = "https://sellingpartnerapi-fe.amazon.com"

	defaultMaxResponseSize = 10 * 1024 * 1024
	defaultMaxDocumentSize = 256 * 1024 * 1024
)

// Errors for client configuration
var (
	ErrConfigMissingBaseURL = errors.New("marketplace: base url is required")
	ErrConfigInvalidTimeout = errors.New("marketplace: timeout must not be negative")
)

// DefaultConfig returns a configuration pointing at the production endpoints
func DefaultConfig() *Config {
	return &Config{
		BaseURL: ProductionNAURL,
		RegionEndpoints: map[string]string{
			"na": ProductionNAURL,
			"eu": ProductionEUURL,
			"fe": ProductionFEURL,
		},
		TimeoutSeconds:  30,
		MaxResponseSize: defaultMaxResponseSize,
		MaxDocumentSize: defaultMaxDocumentSize,
		UserAgent:       "sellerledger/1.0 (Language=Go)",
	}
}

// Validate validates the configuration and fills defaults
func (c *Config) Validate() error {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		return ErrConfigMissingBaseURL
	}
	if c.TimeoutSeconds < 0 {
		return ErrConfigInvalidTimeout
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 30
	}
	if c.MaxResponseSize <= 0 {
		c.MaxResponseSize = defaultMaxResponseSize
	}
	if c.MaxDocumentSize <= 0 {
		c.MaxDocumentSize = defaultMaxDocumentSize
	}
	return nil
}

// Timeout returns the request timeout as a duration
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// endpoint returns the base URL for a region
func (c *Config) endpoint(region string) string {
	if u, ok := c.RegionEndpoints[strings.ToLower(region)]; ok && u != "" {
		return strings.TrimRight(u, "/")
	}
	return c.BaseURL
}
