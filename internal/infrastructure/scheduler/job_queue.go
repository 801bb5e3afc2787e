// Package scheduler runs the background machinery: the rendition job queue
// with its worker pool and the status poll loop that keeps vendor orders
// reconciled.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/printcore/backend/internal/domain/rendition"
)

// JobExecutor executes one rendition job. The executor owns the job's state
// transitions and persistence; the queue only decides when and where a job
// runs.
type JobExecutor interface {
	Execute(ctx context.Context, job *rendition.Job) error
}

// JobQueueConfig holds configuration for the rendition job queue
type JobQueueConfig struct {
	// Workers is the size of the worker pool
	Workers int
	// JobsPerSecond caps job starts across the whole pool
	JobsPerSecond float64
	// JobTimeout is the maximum time one job execution can run
	JobTimeout time.Duration
	// QueuePollInterval is how often waiting jobs are swept from storage.
	// The sweep is what makes the queue crash-safe: jobs persisted before a
	// restart are picked up again without re-submission.
	QueuePollInterval time.Duration
	// QueueSize bounds the in-memory channel
	QueueSize int
}

// DefaultJobQueueConfig returns default configuration
func DefaultJobQueueConfig() JobQueueConfig {
	return JobQueueConfig{
		Workers:           4,
		JobsPerSecond:     5,
		JobTimeout:        2 * time.Minute,
		QueuePollInterval: 5 * time.Second,
		QueueSize:         100,
	}
}

// Validate validates the configuration
func (c *JobQueueConfig) Validate() error {
	if c.Workers <= 0 {
		return ErrInvalidConfig
	}
	if c.JobsPerSecond <= 0 {
		return ErrInvalidConfig
	}
	if c.JobTimeout <= 0 {
		return ErrInvalidConfig
	}
	if c.QueuePollInterval <= 0 {
		return ErrInvalidConfig
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 100
	}
	return nil
}

// JobQueue feeds rendition jobs to a bounded worker pool. Jobs arrive two
// ways: direct submission from the pipeline service, and a periodic sweep of
// persisted waiting jobs that survives restarts. A shared token-bucket
// limiter caps job starts so a bulk re-render cannot saturate the renderer.
type JobQueue struct {
	config   JobQueueConfig
	executor JobExecutor
	repo     rendition.Repository
	logger   *zap.Logger

	jobs      chan *rendition.Job
	limiter   *rate.Limiter
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	// inFlight prevents the sweep from enqueuing a job a worker already holds
	inFlightMu sync.Mutex
	inFlight   map[uuid.UUID]struct{}
}

// NewJobQueue creates a new job queue
func NewJobQueue(config JobQueueConfig, executor JobExecutor, repo rendition.Repository, logger *zap.Logger) (*JobQueue, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &JobQueue{
		config:   config,
		executor: executor,
		repo:     repo,
		logger:   logger,
		jobs:     make(chan *rendition.Job, config.QueueSize),
		// Burst of 1 spaces job starts evenly instead of letting a quiet
		// period bank up a thundering herd
		limiter:  rate.NewLimiter(rate.Limit(config.JobsPerSecond), 1),
		inFlight: make(map[uuid.UUID]struct{}),
	}, nil
}

// Start starts the worker pool and the storage sweep
func (q *JobQueue) Start(ctx context.Context) error {
	q.mu.Lock()
	if q.isRunning {
		q.mu.Unlock()
		return nil
	}
	q.isRunning = true
	q.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	q.cancel = cancel

	for i := 0; i < q.config.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}

	q.wg.Add(1)
	go q.sweepLoop(ctx)

	q.logger.Info("Rendition job queue started",
		zap.Int("workers", q.config.Workers),
		zap.Float64("jobs_per_second", q.config.JobsPerSecond),
		zap.Duration("job_timeout", q.config.JobTimeout),
	)

	return nil
}

// Stop gracefully stops the queue, waiting for in-flight jobs up to the
// context deadline
func (q *JobQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.isRunning {
		q.mu.Unlock()
		return nil
	}
	q.isRunning = false
	q.mu.Unlock()

	if q.cancel != nil {
		q.cancel()
	}

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("Rendition job queue stopped gracefully")
		return nil
	case <-ctx.Done():
		q.logger.Warn("Rendition job queue stop timed out")
		return ctx.Err()
	}
}

// Submit enqueues a job for execution. A full queue is not fatal; the sweep
// will pick the persisted job up on a later pass.
func (q *JobQueue) Submit(job *rendition.Job) error {
	q.mu.Lock()
	if !q.isRunning {
		q.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	q.mu.Unlock()

	if !q.markInFlight(job.ID) {
		return nil // already queued or running
	}

	select {
	case q.jobs <- job:
		return nil
	default:
		q.clearInFlight(job.ID)
		return ErrJobQueueFull
	}
}

// worker processes jobs from the queue
func (q *JobQueue) worker(ctx context.Context, workerID int) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-q.jobs:
			if !ok {
				return
			}
			q.processJob(ctx, job, workerID)
		}
	}
}

// processJob executes a single job under the shared rate limit
func (q *JobQueue) processJob(ctx context.Context, job *rendition.Job, workerID int) {
	defer q.clearInFlight(job.ID)

	// Backoff gating: a retried job sits in storage until NextRunAt passes;
	// the sweep re-picks it then
	if !job.IsRunnable(time.Now()) {
		return
	}

	if err := q.limiter.Wait(ctx); err != nil {
		return // shutting down
	}

	q.logger.Info("Processing rendition job",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("rendition_id", job.RenditionID.String()),
		zap.String("job_type", string(job.Type)),
		zap.Int("attempts", job.Attempts),
	)

	jobCtx, cancel := context.WithTimeout(ctx, q.config.JobTimeout)
	defer cancel()

	if err := q.executor.Execute(jobCtx, job); err != nil {
		q.logger.Error("Rendition job execution failed",
			zap.Int("worker_id", workerID),
			zap.String("job_id", job.ID.String()),
			zap.String("job_type", string(job.Type)),
			zap.Error(err),
		)
		return
	}

	q.logger.Info("Rendition job finished",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("job_type", string(job.Type)),
	)
}

// sweepLoop periodically loads runnable jobs from storage and enqueues them
func (q *JobQueue) sweepLoop(ctx context.Context) {
	defer q.wg.Done()

	ticker := time.NewTicker(q.config.QueuePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.sweep(ctx)
		}
	}
}

// sweep loads one batch of runnable jobs. Jobs already in flight are skipped.
func (q *JobQueue) sweep(ctx context.Context) {
	jobs, err := q.repo.FindRunnableJobs(ctx, q.config.QueueSize)
	if err != nil {
		q.logger.Warn("Failed to sweep runnable jobs", zap.Error(err))
		return
	}

	for _, job := range jobs {
		if !q.markInFlight(job.ID) {
			continue
		}
		select {
		case q.jobs <- job:
		default:
			q.clearInFlight(job.ID)
			return // queue full, next sweep continues
		}
	}
}

func (q *JobQueue) markInFlight(id uuid.UUID) bool {
	q.inFlightMu.Lock()
	defer q.inFlightMu.Unlock()
	if _, held := q.inFlight[id]; held {
		return false
	}
	q.inFlight[id] = struct{}{}
	return true
}

func (q *JobQueue) clearInFlight(id uuid.UUID) {
	q.inFlightMu.Lock()
	defer q.inFlightMu.Unlock()
	delete(q.inFlight, id)
}
