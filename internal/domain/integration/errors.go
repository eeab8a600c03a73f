package integration

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Sync Errors
// ---------------------------------------------------------------------------

var (
	// ErrMalformedDocument marks settlement content that cannot be parsed at all.
	// Fatal for that document only; other documents continue.
	ErrMalformedDocument = errors.New("integration: malformed settlement document")

	// ErrRemoteAPI marks a transient remote failure (timeout, 5xx, rate limit).
	// Logged and skipped per item; the next scheduled run retries naturally.
	ErrRemoteAPI = errors.New("integration: remote api error")

	// ErrRemoteRateLimited is a rate-limit rejection from the remote API.
	ErrRemoteRateLimited = fmt.Errorf("%w: rate limited", ErrRemoteAPI)

	// ErrRemoteInvalidResponse marks a response body that could not be decoded.
	ErrRemoteInvalidResponse = fmt.Errorf("%w: invalid response", ErrRemoteAPI)

	// ErrSyncInProgress rejects a run while another run of the same
	// (account, sync type) is running. A no-op signal, not an error state.
	ErrSyncInProgress = errors.New("integration: sync already in progress")

	// ErrStoreWrite aborts the remaining batch items of a run.
	ErrStoreWrite = errors.New("integration: store write failed")

	// ErrAccountNotFound is returned for an unknown seller account.
	ErrAccountNotFound = errors.New("integration: seller account not found")

	// ErrAccountDisabled is returned when syncing a disabled seller account.
	ErrAccountDisabled = errors.New("integration: seller account disabled")

	// ErrInvalidSyncType is returned for an unknown sync type.
	ErrInvalidSyncType = errors.New("integration: invalid sync type")

	// ErrRunNotRunning is returned when finalizing a run that already finished.
	ErrRunNotRunning = errors.New("integration: sync run is not running")

	// ErrInvalidWindow is returned for a date window whose start is after its end.
	ErrInvalidWindow = errors.New("integration: window start must be before window end")
)

// IsRemoteError reports whether err is a remote API failure
func IsRemoteError(err error) bool {
	return errors.Is(err, ErrRemoteAPI)
}

// StoreWriteError wraps a failed store write with the record it was writing
func StoreWriteError(record string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreWrite, record, err)
}
