package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sellerledger/backend/internal/domain/integration"
)

type lock struct {
	token     string
	expiresAt time.Time
}

// InMemoryRunGuard implements integration.RunGuard within one process.
// It is suitable for single-instance deployments and testing.
type InMemoryRunGuard struct {
	mu    sync.Mutex
	locks map[string]lock
	ttl   time.Duration
	now   func() time.Time
}

var _ integration.RunGuard = (*InMemoryRunGuard)(nil)

// NewInMemoryRunGuard creates an in-process guard
func NewInMemoryRunGuard(opts ...RunGuardOption) *InMemoryRunGuard {
	o := applyGuardOptions(opts)
	return &InMemoryRunGuard{
		locks: make(map[string]lock),
		ttl:   o.ttl,
		now:   time.Now,
	}
}

// Acquire takes the lock or returns integration.ErrSyncInProgress
func (g *InMemoryRunGuard) Acquire(_ context.Context, accountID string, syncType integration.SyncType) (integration.Lease, error) {
	key := accountID + ":" + string(syncType)

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if held, ok := g.locks[key]; ok && now.Before(held.expiresAt) {
		return nil, fmt.Errorf("%w: account %s %s", integration.ErrSyncInProgress, accountID, syncType)
	}
	token := uuid.NewString()
	g.locks[key] = lock{token: token, expiresAt: now.Add(g.ttl)}
	return &memoryLease{guard: g, key: key, token: token}, nil
}

// Held returns the number of live locks
func (g *InMemoryRunGuard) Held() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	n := 0
	for _, l := range g.locks {
		if now.Before(l.expiresAt) {
			n++
		}
	}
	return n
}

func (g *InMemoryRunGuard) release(key, token string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if held, ok := g.locks[key]; ok && held.token == token {
		delete(g.locks, key)
	}
}

type memoryLease struct {
	guard *InMemoryRunGuard
	key   string
	token string
	once  sync.Once
}

// Release frees the lock if it is still ours
func (l *memoryLease) Release(context.Context) error {
	l.once.Do(func() { l.guard.release(l.key, l.token) })
	return nil
}
