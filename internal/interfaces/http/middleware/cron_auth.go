package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sellerledger/backend/internal/interfaces/http/dto"
)

// DefaultCronHeader carries the trigger secret when no header is configured
const DefaultCronHeader = "X-Cron-Secret"

// CronAuthConfig holds configuration for the trigger endpoint guard
type CronAuthConfig struct {
	// Secret is the shared secret. An empty secret rejects every request.
	Secret string
	// HeaderName is the request header carrying the secret
	HeaderName string
	Logger     *zap.Logger
}

// CronAuth guards the scheduled-trigger endpoint with a shared secret
func CronAuth(cfg CronAuthConfig) gin.HandlerFunc {
	header := cfg.HeaderName
	if header == "" {
		header = DefaultCronHeader
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	secret := []byte(cfg.Secret)

	return func(c *gin.Context) {
		provided := []byte(c.GetHeader(header))
		if len(secret) == 0 || subtle.ConstantTimeCompare(provided, secret) != 1 {
			logger.Warn("Rejected trigger request",
				zap.String("client_ip", c.ClientIP()),
				zap.Bool("secret_configured", len(secret) > 0),
				zap.Bool("secret_provided", len(provided) > 0),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeUnauthorized,
				"Invalid or missing trigger secret",
				getRequestID(c),
			))
			return
		}
		c.Next()
	}
}
