//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sellerledger/backend/internal/domain/integration"
	"github.com/sellerledger/backend/internal/infrastructure/config"
)

func TestRedisRunGuard_WithContainer(t *testing.T) {
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client, err := NewRedisClient(config.RedisConfig{Host: host, Port: port.Int()})
	require.NoError(t, err)
	guard := NewRedisRunGuard(client, WithLockTTL(time.Second))
	defer guard.Close()

	lease, err := guard.Acquire(ctx, "acct-1", integration.SyncTypeOrders)
	require.NoError(t, err)

	_, err = guard.Acquire(ctx, "acct-1", integration.SyncTypeOrders)
	assert.ErrorIs(t, err, integration.ErrSyncInProgress)

	require.NoError(t, lease.Release(ctx))
	again, err := guard.Acquire(ctx, "acct-1", integration.SyncTypeOrders)
	require.NoError(t, err)

	// An expired lock can be taken over; the old lease must not free it
	time.Sleep(1500 * time.Millisecond)
	taken, err := guard.Acquire(ctx, "acct-1", integration.SyncTypeOrders)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
	_, err = guard.Acquire(ctx, "acct-1", integration.SyncTypeOrders)
	assert.ErrorIs(t, err, integration.ErrSyncInProgress)
	require.NoError(t, taken.Release(ctx))
}
