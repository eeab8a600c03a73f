package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerledger/backend/internal/interfaces/http/dto"
)

func newBodyLimitRouter(limit int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(BodyLimit(limit))
	r.POST("/accounts/:account_id/sync", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.String(http.StatusBadRequest, "read limit %d", tooLarge.Limit)
			return
		}
		c.String(http.StatusOK, "%d", len(body))
	})
	r.GET("/accounts/:account_id/sync-runs", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestBodyLimit(t *testing.T) {
	trigger := `{"sync_type":"order_items","force":true}`

	tests := []struct {
		name          string
		method        string
		path          string
		body          string
		contentLength int64
		limit         int64
		want          int
	}{
		{"trigger within limit", http.MethodPost, "/accounts/acc-1/sync", trigger, int64(len(trigger)), 1024, http.StatusOK},
		{"declared length over limit", http.MethodPost, "/accounts/acc-1/sync", strings.Repeat("x", 200), 200, 100, http.StatusRequestEntityTooLarge},
		{"streamed body over limit", http.MethodPost, "/accounts/acc-1/sync", strings.Repeat("x", 100), -1, 50, http.StatusBadRequest},
		{"read without body", http.MethodGet, "/accounts/acc-1/sync-runs", "", 0, 10, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.ContentLength = tt.contentLength
			w := httptest.NewRecorder()
			newBodyLimitRouter(tt.limit).ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code, "body: %s", w.Body.String())
		})
	}
}

func TestBodyLimit_Envelope(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/accounts/acc-1/sync", strings.NewReader(strings.Repeat("x", 64)))
	req.Header.Set("X-Request-ID", "req-413")
	w := httptest.NewRecorder()
	newBodyLimitRouter(16).ServeHTTP(w, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeRequestTooLarge, resp.Error.Code)
	assert.Equal(t, "req-413", resp.Error.RequestID)
}
