package cache

import (
	"fmt"

	"github.com/printcore/backend/internal/domain/shared"
	"github.com/printcore/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// GuardFactory creates submission guards based on configuration
type GuardFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// GuardFactoryOption is a functional option for configuring the factory
type GuardFactoryOption func(*GuardFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) GuardFactoryOption {
	return func(f *GuardFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory guard
// when Redis is unavailable. Default is true (allow fallback); multi-instance
// deployments should disable it, since a local guard cannot uphold the
// at-most-one-submission invariant across replicas.
func WithInMemoryFallback(allow bool) GuardFactoryOption {
	return func(f *GuardFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewGuardFactory creates a new factory
func NewGuardFactory(cfg config.RedisConfig, opts ...GuardFactoryOption) *GuardFactory {
	f := &GuardFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Create builds the guard: Redis when reachable, optionally falling back to
// the in-memory guard
func (f *GuardFactory) Create() (shared.SubmissionGuard, error) {
	guard, err := NewRedisSubmissionGuard(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err == nil {
		f.logger.Info("Using Redis submission guard",
			zap.String("host", f.redisConfig.Host),
			zap.Int("port", f.redisConfig.Port))
		return guard, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis submission guard unavailable and fallback disabled: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory submission guard",
		zap.Error(err))
	return NewInMemorySubmissionGuard(), nil
}
