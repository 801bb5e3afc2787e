package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/printcore/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

// RedisSubmissionGuard implements SubmissionGuard using Redis.
// This is the guard for distributed deployments: SETNX makes Acquire atomic
// across instances, which is what upholds the at-most-one-submission
// invariant when two replicas receive the same submit call.
type RedisSubmissionGuard struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisSubmissionGuard creates a new Redis-based guard
func NewRedisSubmissionGuard(cfg RedisConfig) (*RedisSubmissionGuard, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisSubmissionGuard{
		client:    client,
		keyPrefix: "fulfillment:guard:",
	}, nil
}

// NewRedisSubmissionGuardWithClient creates a guard with an existing Redis client.
// This is useful for testing or when sharing a client across components.
func NewRedisSubmissionGuardWithClient(client *redis.Client, keyPrefix string) *RedisSubmissionGuard {
	if keyPrefix == "" {
		keyPrefix = "fulfillment:guard:"
	}
	return &RedisSubmissionGuard{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Acquire takes the hold for a key with a TTL.
// Returns true if the hold was newly taken, false if it was already held.
// Uses SETNX so the check and the set are one atomic operation.
func (g *RedisSubmissionGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	result, err := g.client.SetNX(ctx, g.keyPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire submission hold: %w", err)
	}

	return result, nil
}

// Release drops the hold for a key so a retry can proceed
func (g *RedisSubmissionGuard) Release(ctx context.Context, key string) error {
	if err := g.client.Del(ctx, g.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release submission hold: %w", err)
	}
	return nil
}

// IsHeld checks whether a key is currently held
func (g *RedisSubmissionGuard) IsHeld(ctx context.Context, key string) (bool, error) {
	exists, err := g.client.Exists(ctx, g.keyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check submission hold: %w", err)
	}

	return exists > 0, nil
}

// Close closes the Redis client
func (g *RedisSubmissionGuard) Close() error {
	return g.client.Close()
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (g *RedisSubmissionGuard) GetClient() *redis.Client {
	return g.client
}

// Ensure RedisSubmissionGuard implements SubmissionGuard
var _ shared.SubmissionGuard = (*RedisSubmissionGuard)(nil)
