package pod

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OrderRepository persists print orders and their status history
type OrderRepository interface {
	// Save persists a new order
	Save(ctx context.Context, order *PrintOrder) error

	// Update persists changes to an existing order, enforcing optimistic
	// locking via the aggregate version
	Update(ctx context.Context, order *PrintOrder) error

	// FindByID loads an order with its status history and shipments
	FindByID(ctx context.Context, id uuid.UUID) (*PrintOrder, error)

	// FindByExternalID loads an order by the vendor's identifier
	FindByExternalID(ctx context.Context, provider ProviderCode, externalID string) (*PrintOrder, error)

	// FindByStatus lists orders in the given status, oldest first
	FindByStatus(ctx context.Context, status OrderStatus, limit int) ([]*PrintOrder, error)

	// FindNeedingPoll lists non-terminal submitted orders whose vendor
	// status has not been confirmed since olderThan, excluding orders
	// older than maxAge which are left to manual review
	FindNeedingPoll(ctx context.Context, olderThan time.Time, maxAge time.Duration, limit int) ([]*PrintOrder, error)

	// FindFallbacks lists orders created as fallbacks of the given order
	FindFallbacks(ctx context.Context, originalID uuid.UUID) ([]*PrintOrder, error)
}

// SpecRepository persists immutable print specs
type SpecRepository interface {
	// Save persists a spec; saving an existing ID with different content is a conflict
	Save(ctx context.Context, spec *PrintSpec) error

	// FindByID loads a spec
	FindByID(ctx context.Context, id string) (*PrintSpec, error)
}
