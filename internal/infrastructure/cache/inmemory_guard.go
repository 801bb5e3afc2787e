package cache

import (
	"context"
	"sync"
	"time"

	"github.com/printcore/backend/internal/domain/shared"
)

// entry represents a held key with expiration
type entry struct {
	expiresAt time.Time
}

// InMemorySubmissionGuard implements SubmissionGuard using an in-memory map.
// This is suitable for single-instance deployments and testing; distributed
// deployments need the Redis guard so concurrent submissions on different
// instances still collapse into one vendor call.
type InMemorySubmissionGuard struct {
	mu        sync.RWMutex
	entries   map[string]entry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemorySubmissionGuard creates a new in-memory guard.
// It starts a background goroutine to clean up expired holds.
func NewInMemorySubmissionGuard() *InMemorySubmissionGuard {
	g := &InMemorySubmissionGuard{
		entries:  make(map[string]entry),
		stopChan: make(chan struct{}),
	}

	g.wg.Add(1)
	go g.cleanupLoop()

	return g
}

// Acquire takes the hold for a key with a TTL.
// Returns true if the hold was newly taken, false if it was already held.
func (g *InMemorySubmissionGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if e, exists := g.entries[key]; exists {
		if time.Now().Before(e.expiresAt) {
			return false, nil // already held
		}
		// hold expired, will be overwritten
	}

	g.entries[key] = entry{
		expiresAt: time.Now().Add(ttl),
	}

	return true, nil
}

// Release drops the hold for a key so a retry can proceed
func (g *InMemorySubmissionGuard) Release(ctx context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.entries, key)
	return nil
}

// IsHeld checks whether a key is currently held
func (g *InMemorySubmissionGuard) IsHeld(ctx context.Context, key string) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	e, exists := g.entries[key]
	if !exists {
		return false, nil
	}
	if time.Now().After(e.expiresAt) {
		return false, nil // expired, treat as free
	}

	return true, nil
}

// Close stops the cleanup goroutine and releases resources.
// Safe to call multiple times.
func (g *InMemorySubmissionGuard) Close() error {
	g.closeOnce.Do(func() {
		close(g.stopChan)
		g.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes expired holds
func (g *InMemorySubmissionGuard) cleanupLoop() {
	defer g.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-g.stopChan:
			return
		case <-ticker.C:
			g.cleanup()
		}
	}
}

// cleanup removes expired holds from the map
func (g *InMemorySubmissionGuard) cleanup() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	for key, e := range g.entries {
		if now.After(e.expiresAt) {
			delete(g.entries, key)
		}
	}
}

// Size returns the number of held keys (for testing/monitoring)
func (g *InMemorySubmissionGuard) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.entries)
}

// Ensure InMemorySubmissionGuard implements SubmissionGuard
var _ shared.SubmissionGuard = (*InMemorySubmissionGuard)(nil)
