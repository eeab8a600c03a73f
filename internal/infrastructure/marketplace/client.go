// Package marketplace implements the seller-data API ports over HTTP: order
// listing, order line items, financial events and settlement documents.
package marketplace

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sellerledger/backend/internal/domain/integration"
)

// Client is the HTTP adapter for the remote seller-data API
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     *zap.Logger
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the client logger
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new seller-data API client
func NewClient(config *Config, opts ...ClientOption) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	c := &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout()},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Ensure Client implements both ports
var (
	_ integration.SellerDataAPI            = (*Client)(nil)
	_ integration.SettlementDocumentSource = (*Client)(nil)
)

// doGet issues an authorized GET and returns the response body.
// Transport failures, 5xx and 429 map to ErrRemoteAPI; other 4xx are
// reported as ErrRemoteAPI with the remote error message.
func (c *Client) doGet(ctx context.Context, account integration.SellerAccount, path string, query url.Values, limit int64) ([]byte, error) {
	target := c.config.endpoint(account.Region) + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return c.fetch(ctx, target, account.AccessToken, limit)
}

func (c *Client) fetch(ctx context.Context, target, token string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("marketplace: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if token != "" {
		req.Header.Set("x-amz-access-token", token)
	}
	req.Header.Set("x-amz-date", time.Now().UTC().Format("20060102T150405Z"))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrRemoteAPI, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", integration.ErrRemoteAPI, err)
	}

	c.logger.Debug("Seller API request",
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: HTTP %d", integration.ErrRemoteRateLimited, resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: HTTP %d", integration.ErrRemoteAPI, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: HTTP %d: %s", integration.ErrRemoteAPI, resp.StatusCode, remoteErrorMessage(body))
	}
	return body, nil
}

// remoteErrorMessage extracts {"errors":[{"code","message"}]} when present
func remoteErrorMessage(body []byte) string {
	r, err := decodeRecord(body)
	if err != nil {
		return strings.TrimSpace(string(body))
	}
	errs := r.List("errors")
	if len(errs) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, strings.TrimSpace(e.String("code")+" "+e.String("message")))
	}
	return strings.Join(msgs, "; ")
}

// decodePayload decodes a response and returns its payload object. Responses
// without a payload wrapper are returned as is.
func decodePayload(body []byte) (record, error) {
	r, err := decodeRecord(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrRemoteInvalidResponse, err)
	}
	if p := r.Object("payload"); p != nil {
		return p, nil
	}
	if _, ok := r.raw("payload"); ok {
		return nil, fmt.Errorf("%w: payload is not an object", integration.ErrRemoteInvalidResponse)
	}
	return r, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
