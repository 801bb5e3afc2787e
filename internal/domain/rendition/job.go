package rendition

import (
	"time"

	"github.com/google/uuid"
	"github.com/printcore/backend/internal/domain/shared"
)

// Retry tuning for rendition jobs
const (
	// DefaultMaxAttempts is the attempt ceiling before a job is terminal
	DefaultMaxAttempts = 5
	// BaseRetryDelay is the first backoff interval
	BaseRetryDelay = 30 * time.Second
	// MaxRetryDelay caps the exponential backoff
	MaxRetryDelay = 15 * time.Minute
	// PreflightDelay postpones the preflight job so render jobs get a head
	// start; it is a soft ordering hint, not a dependency edge
	PreflightDelay = 10 * time.Second
)

// Job is one unit of asynchronous rendition work. Its state machine is
// explicit: Status, Attempts and NextRunAt fully describe where the job is,
// so a restarted scheduler can resume from persisted rows alone.
type Job struct {
	shared.BaseEntity
	RenditionID uuid.UUID `gorm:"type:uuid;not null;index"`
	Type        JobType   `gorm:"size:16;not null"`
	Status      JobStatus `gorm:"size:16;not null;index"`

	// Attempts counts executions started, including the one in flight
	Attempts    int `gorm:"not null;default:0"`
	MaxAttempts int `gorm:"not null"`

	// NextRunAt gates execution; a waiting job must not start before it
	NextRunAt time.Time `gorm:"not null;index"`

	// LastError holds the most recent failure message
	LastError string `gorm:"size:512"`

	// ResultURL is set by render jobs on success
	ResultURL string `gorm:"size:512"`

	StartedAt   *time.Time
	CompletedAt *time.Time
}

// NewJob creates a waiting job. Preflight jobs are scheduled with a short
// delay so interior and cover usually finish first.
func NewJob(renditionID uuid.UUID, jobType JobType, maxAttempts int) (*Job, error) {
	if renditionID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_RENDITION", "Rendition ID cannot be empty")
	}
	if !jobType.IsValid() {
		return nil, shared.NewDomainError("INVALID_JOB_TYPE", "Unknown job type: "+string(jobType))
	}
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}

	nextRun := time.Now()
	if jobType == JobTypePreflight {
		nextRun = nextRun.Add(PreflightDelay)
	}

	return &Job{
		BaseEntity:  shared.NewBaseEntity(),
		RenditionID: renditionID,
		Type:        jobType,
		Status:      JobStatusWaiting,
		MaxAttempts: maxAttempts,
		NextRunAt:   nextRun,
	}, nil
}

// IsRunnable reports whether a worker may pick the job up now
func (j *Job) IsRunnable(now time.Time) bool {
	return j.Status == JobStatusWaiting && !now.Before(j.NextRunAt)
}

// Start transitions the job to active and counts the attempt
func (j *Job) Start() error {
	if !j.Status.CanTransitionTo(JobStatusActive) {
		return shared.NewDomainError("INVALID_STATE",
			"Cannot start a job in status "+j.Status.String())
	}

	now := time.Now()
	j.Status = JobStatusActive
	j.Attempts++
	j.StartedAt = &now
	j.UpdatedAt = now

	return nil
}

// Complete records a successful execution. Render jobs pass the durable URL
// of the produced PDF; preflight jobs pass an empty string.
func (j *Job) Complete(resultURL string) error {
	if !j.Status.CanTransitionTo(JobStatusCompleted) {
		return shared.NewDomainError("INVALID_STATE",
			"Cannot complete a job in status "+j.Status.String())
	}

	now := time.Now()
	j.Status = JobStatusCompleted
	j.ResultURL = resultURL
	j.CompletedAt = &now
	j.UpdatedAt = now

	return nil
}

// RetryDelay computes the exponential backoff for the given attempt count,
// capped at MaxRetryDelay
func RetryDelay(attempts int) time.Duration {
	if attempts < 1 {
		return BaseRetryDelay
	}
	delay := BaseRetryDelay
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= MaxRetryDelay {
			return MaxRetryDelay
		}
	}
	return delay
}

// Fail records a failed execution. Below the attempt ceiling the job goes
// back to waiting with backoff; at the ceiling it becomes terminally failed
// and the second return value is true.
func (j *Job) Fail(errMessage string) (exhausted bool, err error) {
	if j.Status != JobStatusActive {
		return false, shared.NewDomainError("INVALID_STATE",
			"Cannot fail a job in status "+j.Status.String())
	}

	now := time.Now()
	j.LastError = errMessage
	j.UpdatedAt = now

	if j.Attempts >= j.MaxAttempts {
		j.Status = JobStatusFailed
		j.CompletedAt = &now
		return true, nil
	}

	j.Status = JobStatusWaiting
	j.NextRunAt = now.Add(RetryDelay(j.Attempts))
	return false, nil
}

// Discard drops the job because its rendition was cancelled. In-flight jobs
// are not interrupted; their eventual outcome is simply ignored.
func (j *Job) Discard() error {
	if !j.Status.CanTransitionTo(JobStatusDiscarded) {
		return shared.NewDomainError("INVALID_STATE",
			"Cannot discard a job in status "+j.Status.String())
	}

	now := time.Now()
	j.Status = JobStatusDiscarded
	j.CompletedAt = &now
	j.UpdatedAt = now

	return nil
}
