package marketplace

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/sellerledger/backend/internal/domain/integration"
)

// Throttle spaces calls to the seller-data API and bounds each one with a
// timeout. Every caller sharing the API credentials must share one Throttle.
type Throttle struct {
	limiter *rate.Limiter
	timeout time.Duration
}

// NewThrottle allows one call per interval; interval <= 0 disables spacing
// and timeout <= 0 disables the per-call timeout
func NewThrottle(interval, timeout time.Duration) *Throttle {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Throttle{
		limiter: rate.NewLimiter(limit, 1),
		timeout: timeout,
	}
}

// Limit returns the call rate per second
func (t *Throttle) Limit() rate.Limit {
	return t.limiter.Limit()
}

// Wait blocks until the next call slot. The wait ignores cancellation so an
// aborted caller never bursts the API on retry.
func (t *Throttle) Wait(ctx context.Context) {
	_ = t.limiter.Wait(context.WithoutCancel(ctx))
}

// Run calls fn under the per-call timeout without waiting for a slot. A call
// that times out while ctx is still live is reported as a remote API error.
func (t *Throttle) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if t.timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, t.timeout)
	}
	defer cancel()

	err := fn(callCtx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		err = errors.Join(integration.ErrRemoteAPI, err)
	}
	return err
}

// Call waits for a slot and then runs fn
func (t *Throttle) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	t.Wait(ctx)
	return t.Run(ctx, fn)
}
