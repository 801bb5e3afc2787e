package shared

import (
	"context"
	"time"
)

// SubmissionGuard enforces at-most-one in-flight submission per key.
// Acquire must be atomic: of N concurrent callers with the same key,
// exactly one observes acquired=true until the key is released or expires.
type SubmissionGuard interface {
	// Acquire attempts to claim the key for the given TTL.
	// Returns true if the key was newly claimed, false if it is already held.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release frees the key so a later caller may claim it again.
	Release(ctx context.Context, key string) error

	// IsHeld checks whether the key is currently claimed.
	IsHeld(ctx context.Context, key string) (bool, error)

	// Close closes the guard and releases resources
	Close() error
}

// SubmissionGuardConfig holds configuration for submission guarding
type SubmissionGuardConfig struct {
	// TTL is how long a claim is held before it expires on its own.
	// Claims are normally released explicitly; the TTL is a safety net
	// against a crashed process holding a key forever.
	// Default: 10 minutes
	TTL time.Duration
}

// DefaultSubmissionGuardConfig returns the default submission guard configuration
func DefaultSubmissionGuardConfig() SubmissionGuardConfig {
	return SubmissionGuardConfig{
		TTL: 10 * time.Minute,
	}
}
