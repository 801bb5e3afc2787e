package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/printcore/backend/internal/domain/pod"
	"github.com/printcore/backend/internal/domain/shared"
)

// GormOrderRepository implements pod.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GORM-based order repository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

var _ pod.OrderRepository = (*GormOrderRepository)(nil)

// Save persists a new order together with any history and shipment rows
// already attached to it
func (r *GormOrderRepository) Save(ctx context.Context, order *pod.PrintOrder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to save order: %w", err)
		}
		return r.saveChildren(tx, order)
	})
}

// Update persists changes to an order. Transitions bump the aggregate
// version, so the write is guarded by "stored version must not be ahead of
// ours"; losing that race returns shared.ErrConcurrencyConflict.
func (r *GormOrderRepository) Update(ctx context.Context, order *pod.PrintOrder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&pod.PrintOrder{}).
			Where("id = ? AND version <= ?", order.ID, order.Version).
			Select("*").
			Omit("id", "created_at").
			Updates(order)
		if result.Error != nil {
			return fmt.Errorf("failed to update order: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&pod.PrintOrder{}).Where("id = ?", order.ID).Count(&count).Error; err != nil {
				return fmt.Errorf("failed to check order existence: %w", err)
			}
			if count == 0 {
				return shared.ErrNotFound
			}
			return shared.ErrConcurrencyConflict
		}
		return r.saveChildren(tx, order)
	})
}

// saveChildren inserts in-memory history and shipment rows. Rows already in
// the store are skipped by primary key, so partially loaded aggregates can be
// updated safely.
func (r *GormOrderRepository) saveChildren(tx *gorm.DB, order *pod.PrintOrder) error {
	for _, u := range order.StatusHistory {
		record := newOrderStatusUpdateRecord(u)
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
			return fmt.Errorf("failed to save status update: %w", err)
		}
	}
	for _, s := range order.Shipments {
		record := newShipmentRecord(s)
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
			return fmt.Errorf("failed to save shipment: %w", err)
		}
	}
	return nil
}

// FindByID loads an order with its spec, status history and shipments
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*pod.PrintOrder, error) {
	var order pod.PrintOrder
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	if err := r.loadAggregate(ctx, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByExternalID loads an order by the vendor's identifier
func (r *GormOrderRepository) FindByExternalID(ctx context.Context, provider pod.ProviderCode, externalID string) (*pod.PrintOrder, error) {
	var order pod.PrintOrder
	err := r.db.WithContext(ctx).
		Where("provider = ? AND external_id = ?", provider, externalID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find order by external ID: %w", err)
	}
	if err := r.loadAggregate(ctx, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByStatus lists orders in the given status, oldest first. List results
// carry their spec but not history or shipments.
func (r *GormOrderRepository) FindByStatus(ctx context.Context, status pod.OrderStatus, limit int) ([]*pod.PrintOrder, error) {
	var orders []*pod.PrintOrder
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders by status: %w", err)
	}
	return orders, r.loadSpecs(ctx, orders)
}

// FindNeedingPoll lists submitted non-terminal orders whose vendor status has
// not been confirmed since olderThan. Orders older than maxAge are excluded;
// a vendor silent for that long is a support case, not a polling target.
// Never-checked orders sort first.
func (r *GormOrderRepository) FindNeedingPoll(ctx context.Context, olderThan time.Time, maxAge time.Duration, limit int) ([]*pod.PrintOrder, error) {
	terminal := []pod.OrderStatus{pod.StatusDelivered, pod.StatusCancelled, pod.StatusFailed}

	var orders []*pod.PrintOrder
	err := r.db.WithContext(ctx).
		Where("external_id <> ''").
		Where("status NOT IN ?", terminal).
		Where("last_checked_at IS NULL OR last_checked_at < ?", olderThan).
		Where("created_at > ?", time.Now().Add(-maxAge)).
		Order("last_checked_at ASC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders needing poll: %w", err)
	}
	return orders, r.loadSpecs(ctx, orders)
}

// FindFallbacks lists orders created as fallbacks of the given order
func (r *GormOrderRepository) FindFallbacks(ctx context.Context, originalID uuid.UUID) ([]*pod.PrintOrder, error) {
	var orders []*pod.PrintOrder
	err := r.db.WithContext(ctx).
		Where("fallback_of = ?", originalID).
		Order("created_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list fallback orders: %w", err)
	}
	return orders, r.loadSpecs(ctx, orders)
}

// loadAggregate hydrates the spec, status history and shipments of one order
func (r *GormOrderRepository) loadAggregate(ctx context.Context, order *pod.PrintOrder) error {
	if err := r.loadSpecs(ctx, []*pod.PrintOrder{order}); err != nil {
		return err
	}

	var updates []orderStatusUpdateRecord
	err := r.db.WithContext(ctx).
		Where("order_id = ?", order.ID).
		Order("occurred_at ASC").
		Find(&updates).Error
	if err != nil {
		return fmt.Errorf("failed to load status history: %w", err)
	}
	order.StatusHistory = make([]pod.OrderStatusUpdate, 0, len(updates))
	for _, u := range updates {
		order.StatusHistory = append(order.StatusHistory, u.toDomain())
	}

	var shipments []shipmentRecord
	err = r.db.WithContext(ctx).
		Where("order_id = ?", order.ID).
		Order("shipped_at ASC").
		Find(&shipments).Error
	if err != nil {
		return fmt.Errorf("failed to load shipments: %w", err)
	}
	order.Shipments = make([]pod.Shipment, 0, len(shipments))
	for _, s := range shipments {
		order.Shipments = append(order.Shipments, s.toDomain())
	}

	return nil
}

// loadSpecs hydrates the embedded spec of each order from the print_specs
// table. A missing spec row is data corruption and surfaces as an error.
func (r *GormOrderRepository) loadSpecs(ctx context.Context, orders []*pod.PrintOrder) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.SpecID)
	}

	var records []printSpecRecord
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&records).Error; err != nil {
		return fmt.Errorf("failed to load specs: %w", err)
	}

	byID := make(map[string]printSpecRecord, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
	}

	for _, o := range orders {
		rec, ok := byID[o.SpecID]
		if !ok {
			return fmt.Errorf("order %s references missing spec %s", o.ID, o.SpecID)
		}
		if err := json.Unmarshal(rec.Payload, &o.Spec); err != nil {
			return fmt.Errorf("failed to decode spec %s: %w", o.SpecID, err)
		}
	}
	return nil
}
