package rendition

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/google/uuid"
	"github.com/printcore/backend/internal/domain/pod"
	"github.com/printcore/backend/internal/domain/preflight"
	"github.com/printcore/backend/internal/domain/rendition"
	"github.com/printcore/backend/internal/infrastructure/telemetry"
)

// Executor runs one rendition job end to end: load the aggregate, do the
// work, record the outcome. It owns all job state transitions; the scheduler
// only decides when a job runs.
type Executor struct {
	repo      rendition.Repository
	renderer  rendition.ContentRenderer
	storage   rendition.ObjectStorage
	inspector FileInspector
	logger    *zap.Logger

	metrics *telemetry.FulfillmentMetrics
}

// NewExecutor creates a new job Executor
func NewExecutor(
	repo rendition.Repository,
	renderer rendition.ContentRenderer,
	storage rendition.ObjectStorage,
	inspector FileInspector,
	logger *zap.Logger,
) *Executor {
	return &Executor{
		repo:      repo,
		renderer:  renderer,
		storage:   storage,
		inspector: inspector,
		logger:    logger,
	}
}

// SetMetrics wires fulfillment metrics recording
func (e *Executor) SetMetrics(metrics *telemetry.FulfillmentMetrics) {
	e.metrics = metrics
}

// Execute runs a single job. The swept job row is only a pointer; the
// authoritative state is reloaded with the owning rendition so concurrent
// cancellation is observed.
func (e *Executor) Execute(ctx context.Context, swept *rendition.Job) error {
	r, err := e.repo.FindByID(ctx, swept.RenditionID)
	if err != nil {
		return err
	}

	job := jobByID(r, swept.ID)
	if job == nil {
		return fmt.Errorf("job %s not found on rendition %s", swept.ID, r.ID)
	}
	if job.Status != rendition.JobStatusWaiting {
		// Another worker or a cancellation got here first
		return nil
	}

	if err := job.Start(); err != nil {
		return err
	}
	if err := e.repo.Update(ctx, r); err != nil {
		return err
	}

	resultURL, pf, workErr := e.run(ctx, r, job)
	if workErr != nil {
		if err := r.FailJob(job, workErr.Error()); err != nil {
			return err
		}
		if err := e.repo.Update(ctx, r); err != nil {
			return err
		}
		outcome := telemetry.JobOutcomeRetried
		if job.Status == rendition.JobStatusFailed {
			outcome = telemetry.JobOutcomeExhausted
		}
		e.recordJob(ctx, job.Type, outcome)
		e.logger.Warn("Rendition job failed",
			zap.String("rendition_id", r.ID.String()),
			zap.String("job_type", job.Type.String()),
			zap.Int("attempts", job.Attempts),
			zap.Error(workErr))
		return workErr
	}

	if err := r.CompleteJob(job, resultURL, pf); err != nil {
		return err
	}
	if err := e.repo.Update(ctx, r); err != nil {
		return err
	}
	e.recordJob(ctx, job.Type, telemetry.JobOutcomeCompleted)

	return nil
}

// run dispatches to the type-specific work. Render jobs return the durable
// URL of the produced PDF; preflight jobs return the verdict.
func (e *Executor) run(ctx context.Context, r *rendition.Rendition, job *rendition.Job) (string, *preflight.Result, error) {
	switch job.Type {
	case rendition.JobTypeInterior:
		url, err := e.renderInterior(ctx, r)
		return url, nil, err
	case rendition.JobTypeCover:
		url, err := e.renderCover(ctx, r)
		return url, nil, err
	case rendition.JobTypePreflight:
		pf, err := e.runPreflight(ctx, r)
		return "", pf, err
	default:
		return "", nil, fmt.Errorf("unknown job type %q", job.Type)
	}
}

func (e *Executor) renderInterior(ctx context.Context, r *rendition.Rendition) (string, error) {
	doc, err := e.renderer.RenderInterior(ctx, r.BookID, r.ContentVersion)
	if err != nil {
		return "", err
	}
	return e.storage.Put(ctx, artifactKey(r, "interior.pdf"), "application/pdf", doc.PDF)
}

// renderCover estimates the spine from the already-rendered interior when it
// exists. The estimate assumes standard 60lb white stock; the exact spine is
// recomputed per spec when an order is placed.
func (e *Executor) renderCover(ctx context.Context, r *rendition.Rendition) (string, error) {
	spineWidthIn := 0.0
	if r.InteriorURL != "" {
		report, err := e.inspector.Inspect(ctx, r.InteriorURL, "")
		if err != nil {
			return "", err
		}
		spineWidthIn = float64(report.PageCount) / pod.Paper60lbWhite.PagesPerInch()
	}

	doc, err := e.renderer.RenderCover(ctx, r.BookID, r.ContentVersion, spineWidthIn)
	if err != nil {
		return "", err
	}
	return e.storage.Put(ctx, artifactKey(r, "cover.pdf"), "application/pdf", doc.PDF)
}

// runPreflight measures whatever files exist and judges them. Running before
// the render jobs finish is legitimate; missing files come back as errors,
// which is a correct verdict for that moment.
func (e *Executor) runPreflight(ctx context.Context, r *rendition.Rendition) (*preflight.Result, error) {
	var report InspectionReport
	if r.InteriorURL != "" || r.CoverURL != "" {
		var err error
		report, err = e.inspector.Inspect(ctx, r.InteriorURL, r.CoverURL)
		if err != nil {
			return nil, err
		}
	}

	in := preflight.Input{
		PageCount:    report.PageCount,
		TrimWidthIn:  report.TrimWidthIn,
		TrimHeightIn: report.TrimHeightIn,
		InteriorURL:  r.InteriorURL,
		CoverURL:     r.CoverURL,
		Margins:      report.Margins,
		Images:       report.Images,
		Files:        report.Files,
	}

	return preflight.Run(in), nil
}

func (e *Executor) recordJob(ctx context.Context, jobType rendition.JobType, outcome telemetry.JobOutcome) {
	if e.metrics != nil {
		e.metrics.RecordRenditionJob(ctx, jobType.String(), outcome)
	}
}

func jobByID(r *rendition.Rendition, id uuid.UUID) *rendition.Job {
	for _, job := range r.Jobs {
		if job.ID == id {
			return job
		}
	}
	return nil
}

func artifactKey(r *rendition.Rendition, name string) string {
	return fmt.Sprintf("renditions/%s/v%d/%s", r.BookID, r.ContentVersion, name)
}
