package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/printcore/backend/internal/domain/pod"
	"github.com/printcore/backend/internal/domain/shared"
)

// GormSpecRepository implements pod.SpecRepository using GORM
type GormSpecRepository struct {
	db *gorm.DB
}

// NewGormSpecRepository creates a new GORM-based spec repository
func NewGormSpecRepository(db *gorm.DB) *GormSpecRepository {
	return &GormSpecRepository{db: db}
}

var _ pod.SpecRepository = (*GormSpecRepository)(nil)

// Save persists a spec. Re-saving an identical spec is a no-op; re-saving the
// same ID with different content returns shared.ErrAlreadyExists because specs
// are immutable once stored.
func (r *GormSpecRepository) Save(ctx context.Context, spec *pod.PrintSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("failed to encode spec: %w", err)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing printSpecRecord
		err := tx.Where("id = ?", spec.ID).First(&existing).Error
		if err == nil {
			if bytes.Equal(existing.Payload, payload) {
				return nil
			}
			return shared.ErrAlreadyExists
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check spec existence: %w", err)
		}

		record := printSpecRecord{ID: spec.ID, Payload: payload}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("failed to save spec: %w", err)
		}
		return nil
	})
}

// FindByID loads a spec
func (r *GormSpecRepository) FindByID(ctx context.Context, id string) (*pod.PrintSpec, error) {
	var record printSpecRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find spec: %w", err)
	}

	var spec pod.PrintSpec
	if err := json.Unmarshal(record.Payload, &spec); err != nil {
		return nil, fmt.Errorf("failed to decode spec %s: %w", id, err)
	}
	return &spec, nil
}
