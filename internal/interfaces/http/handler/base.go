package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sellerledger/backend/internal/application/feesync"
	"github.com/sellerledger/backend/internal/application/ledgerview"
	"github.com/sellerledger/backend/internal/application/reconciliation"
	"github.com/sellerledger/backend/internal/domain/integration"
	"github.com/sellerledger/backend/internal/infrastructure/scheduler"
	"github.com/sellerledger/backend/internal/interfaces/http/dto"
	"github.com/sellerledger/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct {
	logger *zap.Logger
}

func newBaseHandler(logger *zap.Logger) BaseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return BaseHandler{logger: logger}
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.RequestID(c)))
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	h.Error(c, dto.GetHTTPStatus(code), code, message)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// ValidationError sends a 400 validation error response with field details
func (h *BaseHandler) ValidationError(c *gin.Context, err error) {
	middleware.HandleValidationError(c, err)
}

// errorMapping maps sentinel errors to API error codes. Order matters: the
// first match wins.
var errorMapping = []struct {
	err     error
	code    string
	message string
}{
	{integration.ErrAccountNotFound, dto.ErrCodeNotFound, "Seller account not found"},
	{integration.ErrAccountDisabled, dto.ErrCodeAccountDisabled, "Seller account is disabled"},
	{integration.ErrSyncInProgress, dto.ErrCodeSyncInProgress, "A sync of this type is already running"},
	{scheduler.ErrFanOutInProgress, dto.ErrCodeSyncInProgress, "A scheduled sync is already running"},
	{integration.ErrInvalidWindow, dto.ErrCodeInvalidPeriod, "Window start must be before window end"},
	{reconciliation.ErrInvalidPeriod, dto.ErrCodeInvalidPeriod, "Period start must be before period end"},
	{reconciliation.ErrPeriodTooLong, dto.ErrCodeInvalidPeriod, "Period is too long"},
	{ledgerview.ErrInvalidRange, dto.ErrCodeInvalidPeriod, "Range start must be before range end"},
	{ledgerview.ErrRangeTooLong, dto.ErrCodeInvalidPeriod, "Range is too long"},
	{ledgerview.ErrOrderNotFound, dto.ErrCodeNotFound, "Order not found"},
	{reconciliation.ErrSourceUnavailable, dto.ErrCodeSourceUnavailable, "Data source is not configured"},
	{feesync.ErrSettlementsDisabled, dto.ErrCodeSourceUnavailable, "Settlement sync is not configured"},
	{integration.ErrMalformedDocument, dto.ErrCodeMalformedDocument, "Settlement document could not be parsed"},
	{integration.ErrRemoteAPI, dto.ErrCodeRemoteAPI, "Seller data API request failed"},
	{integration.ErrStoreWrite, dto.ErrCodeStoreWrite, "Failed to store sync results"},
	{context.DeadlineExceeded, dto.ErrCodeTimeout, "Request timed out"},
}

// HandleError maps known errors to their API error codes. Unknown errors are
// logged and reported as internal errors without their message.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			if dto.GetHTTPStatus(m.code) >= http.StatusInternalServerError {
				h.logger.Error("Request failed",
					zap.String("request_id", middleware.RequestID(c)),
					zap.String("path", c.FullPath()),
					zap.Error(err),
				)
			}
			h.ErrorWithCode(c, m.code, m.message)
			return
		}
	}

	h.logger.Error("Unexpected error",
		zap.String("request_id", middleware.RequestID(c)),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	h.ErrorWithCode(c, dto.ErrCodeInternal, "An unexpected error occurred")
}
