package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeTimeout is used when a request ran out of time
	ErrCodeTimeout = "ERR_TIMEOUT"
)

// Input error codes
const (
	// ErrCodeValidation is used when request fields fail validation
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidPeriod is used for an inverted, empty or too long date window
	ErrCodeInvalidPeriod = "ERR_INVALID_PERIOD"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// Authentication error codes
const (
	// ErrCodeUnauthorized is used when the trigger secret is missing or wrong
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeSyncInProgress is used when a run of the same type is already running
	ErrCodeSyncInProgress = "ERR_SYNC_IN_PROGRESS"
	// ErrCodeAccountDisabled is used for operations on a disabled account
	ErrCodeAccountDisabled = "ERR_ACCOUNT_DISABLED"
	// ErrCodeSourceUnavailable is used when a data source is not configured
	ErrCodeSourceUnavailable = "ERR_SOURCE_UNAVAILABLE"
	// ErrCodeMalformedDocument is used when a settlement document cannot be parsed
	ErrCodeMalformedDocument = "ERR_MALFORMED_DOCUMENT"
)

// Upstream error codes
const (
	// ErrCodeRemoteAPI is used when the seller-data API failed
	ErrCodeRemoteAPI = "ERR_REMOTE_API"
	// ErrCodeStoreWrite is used when a store write failed
	ErrCodeStoreWrite = "ERR_STORE_WRITE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal: http.StatusInternalServerError,
	ErrCodeTimeout:  http.StatusGatewayTimeout,

	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidPeriod:   http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeUnauthorized: http.StatusUnauthorized,

	ErrCodeNotFound:          http.StatusNotFound,
	ErrCodeSyncInProgress:    http.StatusConflict,
	ErrCodeAccountDisabled:   http.StatusUnprocessableEntity,
	ErrCodeSourceUnavailable: http.StatusUnprocessableEntity,
	ErrCodeMalformedDocument: http.StatusUnprocessableEntity,

	ErrCodeRemoteAPI:  http.StatusBadGateway,
	ErrCodeStoreWrite: http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
