package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/printcore/backend/internal/domain/rendition"
	"github.com/printcore/backend/internal/domain/shared"
)

// GormRenditionRepository implements rendition.Repository using GORM
type GormRenditionRepository struct {
	db *gorm.DB
}

// NewGormRenditionRepository creates a new GORM-based rendition repository
func NewGormRenditionRepository(db *gorm.DB) *GormRenditionRepository {
	return &GormRenditionRepository{db: db}
}

var _ rendition.Repository = (*GormRenditionRepository)(nil)

// Save persists a new rendition with its jobs
func (r *GormRenditionRepository) Save(ctx context.Context, rend *rendition.Rendition) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rend).Error; err != nil {
			return fmt.Errorf("failed to save rendition: %w", err)
		}
		return saveJobs(tx, rend.Jobs)
	})
}

// Update persists changes to a rendition and its jobs. The version guard
// mirrors the order repository: a stored version ahead of ours means a
// concurrent writer won and the caller must reload.
func (r *GormRenditionRepository) Update(ctx context.Context, rend *rendition.Rendition) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&rendition.Rendition{}).
			Where("id = ? AND version <= ?", rend.ID, rend.Version).
			Select("*").
			Omit("id", "created_at").
			Updates(rend)
		if result.Error != nil {
			return fmt.Errorf("failed to update rendition: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&rendition.Rendition{}).Where("id = ?", rend.ID).Count(&count).Error; err != nil {
				return fmt.Errorf("failed to check rendition existence: %w", err)
			}
			if count == 0 {
				return shared.ErrNotFound
			}
			return shared.ErrConcurrencyConflict
		}
		return saveJobs(tx, rend.Jobs)
	})
}

// saveJobs upserts job rows by primary key. Jobs mutate through their whole
// lifecycle (attempts, backoff, status), so conflicts overwrite.
func saveJobs(tx *gorm.DB, jobs []*rendition.Job) error {
	for _, job := range jobs {
		err := tx.Table(renditionJobsTable).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				UpdateAll: true,
			}).
			Create(job).Error
		if err != nil {
			return fmt.Errorf("failed to save job: %w", err)
		}
	}
	return nil
}

// FindByID loads a rendition with its jobs
func (r *GormRenditionRepository) FindByID(ctx context.Context, id uuid.UUID) (*rendition.Rendition, error) {
	var rend rendition.Rendition
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rend).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find rendition: %w", err)
	}
	if err := r.loadJobs(ctx, &rend); err != nil {
		return nil, err
	}
	return &rend, nil
}

// FindLatestByBook loads the newest rendition for a book. Content versions
// are monotonic per book, so the highest one wins.
func (r *GormRenditionRepository) FindLatestByBook(ctx context.Context, bookID uuid.UUID) (*rendition.Rendition, error) {
	var rend rendition.Rendition
	err := r.db.WithContext(ctx).
		Where("book_id = ?", bookID).
		Order("content_version DESC").
		First(&rend).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find latest rendition: %w", err)
	}
	if err := r.loadJobs(ctx, &rend); err != nil {
		return nil, err
	}
	return &rend, nil
}

// FindRunnableJobs lists waiting jobs whose NextRunAt has passed, oldest
// first. The scheduler sweeps this after a restart to resume interrupted work.
func (r *GormRenditionRepository) FindRunnableJobs(ctx context.Context, limit int) ([]*rendition.Job, error) {
	var jobs []*rendition.Job
	err := r.db.WithContext(ctx).
		Table(renditionJobsTable).
		Where("status = ?", rendition.JobStatusWaiting).
		Where("next_run_at <= ?", time.Now()).
		Order("next_run_at ASC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list runnable jobs: %w", err)
	}
	return jobs, nil
}

// loadJobs hydrates a rendition's jobs in creation order
func (r *GormRenditionRepository) loadJobs(ctx context.Context, rend *rendition.Rendition) error {
	var jobs []*rendition.Job
	err := r.db.WithContext(ctx).
		Table(renditionJobsTable).
		Where("rendition_id = ?", rend.ID).
		Order("created_at ASC").
		Find(&jobs).Error
	if err != nil {
		return fmt.Errorf("failed to load jobs: %w", err)
	}
	rend.Jobs = jobs
	return nil
}
