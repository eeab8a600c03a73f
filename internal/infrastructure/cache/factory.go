package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sellerledger/backend/internal/domain/integration"
	"github.com/sellerledger/backend/internal/infrastructure/config"
)

// RunGuardFactory creates the sync run guard based on configuration
type RunGuardFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
	guardOpts             []RunGuardOption
}

// RunGuardFactoryOption is a functional option for configuring the factory
type RunGuardFactoryOption func(*RunGuardFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) RunGuardFactoryOption {
	return func(f *RunGuardFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to an in-process guard
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) RunGuardFactoryOption {
	return func(f *RunGuardFactory) {
		f.allowInMemoryFallback = allow
	}
}

// WithGuardOptions passes options to the created guard
func WithGuardOptions(opts ...RunGuardOption) RunGuardFactoryOption {
	return func(f *RunGuardFactory) {
		f.guardOpts = append(f.guardOpts, opts...)
	}
}

// NewRunGuardFactory creates a new factory
func NewRunGuardFactory(cfg config.RedisConfig, opts ...RunGuardFactoryOption) *RunGuardFactory {
	f := &RunGuardFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateGuard returns a Redis guard, or an in-process guard when Redis is
// unavailable and fallback is allowed
func (f *RunGuardFactory) CreateGuard() (integration.RunGuard, error) {
	client, err := NewRedisClient(f.redisConfig)
	if err == nil {
		f.logger.Info("Using Redis sync run guard", zap.String("addr", f.redisConfig.Addr()))
		return NewRedisRunGuard(client, f.guardOpts...), nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for sync locking but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory sync run guard. "+
		"Concurrent runs across instances are not prevented.",
		zap.Error(err),
	)
	return NewInMemoryRunGuard(f.guardOpts...), nil
}
