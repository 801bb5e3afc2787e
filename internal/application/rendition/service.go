// Package rendition drives the asynchronous production pipeline that turns a
// book revision into print-ready PDFs: interior and cover rendering, preflight
// validation, and the lifecycle operations around them.
package rendition

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/printcore/backend/internal/domain/rendition"
	"github.com/printcore/backend/internal/domain/shared"
	"github.com/printcore/backend/internal/infrastructure/config"
)

// Service manages rendition lifecycles. Job execution itself lives in the
// Executor; the service creates, serves and cancels renditions.
type Service struct {
	repo   rendition.Repository
	queue  JobSubmitter
	cfg    config.PipelineConfig
	logger *zap.Logger

	eventPublisher shared.EventPublisher
}

// NewService creates a new rendition Service
func NewService(repo rendition.Repository, queue JobSubmitter, cfg config.PipelineConfig, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		queue:  queue,
		cfg:    cfg,
		logger: logger,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// RequestRendition opens a rendition with its three jobs and offers them to
// the scheduler. A submission failure is tolerable: persisted jobs are swept
// from storage on the next scheduler pass.
func (s *Service) RequestRendition(ctx context.Context, req RequestRenditionRequest) (*RenditionResponse, error) {
	r, err := rendition.NewRendition(req.BookID, req.ContentVersion, s.cfg.MaxAttempts)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, r); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, r)

	if s.queue != nil {
		for _, job := range r.Jobs {
			if err := s.queue.Submit(job); err != nil {
				s.logger.Warn("Job submission deferred to storage sweep",
					zap.String("rendition_id", r.ID.String()),
					zap.String("job_type", job.Type.String()),
					zap.Error(err))
			}
		}
	}

	s.logger.Info("Rendition requested",
		zap.String("rendition_id", r.ID.String()),
		zap.String("book_id", req.BookID.String()),
		zap.Int("content_version", req.ContentVersion))

	resp := ToRenditionResponse(r)
	return &resp, nil
}

// GetRendition loads a rendition with its jobs
func (s *Service) GetRendition(ctx context.Context, id uuid.UUID) (*RenditionResponse, error) {
	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToRenditionResponse(r)
	return &resp, nil
}

// GetLatestForBook loads the newest rendition of a book
func (s *Service) GetLatestForBook(ctx context.Context, bookID uuid.UUID) (*RenditionResponse, error) {
	r, err := s.repo.FindLatestByBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	resp := ToRenditionResponse(r)
	return &resp, nil
}

// CancelRendition discards queued jobs and marks the rendition cancelled.
// Jobs already running finish on their own; their outcomes are dropped.
func (s *Service) CancelRendition(ctx context.Context, id uuid.UUID) (*RenditionResponse, error) {
	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.Cancel(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, r); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, r)

	s.logger.Info("Rendition cancelled", zap.String("rendition_id", r.ID.String()))

	resp := ToRenditionResponse(r)
	return &resp, nil
}

// publishEvents drains the aggregate's pending events onto the bus
func (s *Service) publishEvents(ctx context.Context, r *rendition.Rendition) {
	if s.eventPublisher == nil {
		return
	}
	events := r.PullDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish domain events",
			zap.String("rendition_id", r.ID.String()),
			zap.Error(err))
	}
}
