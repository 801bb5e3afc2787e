package rendition

import (
	"github.com/google/uuid"
	"github.com/printcore/backend/internal/domain/preflight"
	"github.com/printcore/backend/internal/domain/shared"
)

// Rendition is a versioned pair of production PDFs for one book, plus the
// preflight verdict over them. It owns its jobs: at most one non-terminal
// job per type exists at a time.
type Rendition struct {
	shared.BaseAggregateRoot
	BookID uuid.UUID `gorm:"type:uuid;not null;index"`

	// ContentVersion identifies which revision of the book's content this
	// rendition was produced from
	ContentVersion int `gorm:"not null"`

	Status RenditionStatus `gorm:"size:16;not null;index"`

	InteriorURL string `gorm:"size:512"`
	CoverURL    string `gorm:"size:512"`

	// Preflight is the latest preflight verdict; nil until the preflight
	// job has run at least once
	Preflight *preflight.Result `gorm:"serializer:json"`

	// FailureReason is set when the rendition enters FAILED
	FailureReason string `gorm:"size:512"`

	Jobs []*Job `gorm:"-"`
}

// NewRendition creates a pending rendition with its three jobs queued
func NewRendition(bookID uuid.UUID, version int, maxAttempts int) (*Rendition, error) {
	if bookID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_BOOK", "Book ID cannot be empty")
	}
	if version < 1 {
		return nil, shared.NewDomainError("INVALID_VERSION", "Content version must be at least 1")
	}

	r := &Rendition{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		BookID:            bookID,
		ContentVersion:    version,
		Status:            RenditionPending,
	}

	for _, t := range []JobType{JobTypeInterior, JobTypeCover, JobTypePreflight} {
		job, err := NewJob(r.ID, t, maxAttempts)
		if err != nil {
			return nil, err
		}
		r.Jobs = append(r.Jobs, job)
	}

	r.AddDomainEvent(NewRenditionCreatedEvent(r))

	return r, nil
}

// JobOfType returns the current job for a type, or nil if none is pending.
// Discarded and superseded jobs are skipped.
func (r *Rendition) JobOfType(t JobType) *Job {
	for i := len(r.Jobs) - 1; i >= 0; i-- {
		if r.Jobs[i].Type == t && r.Jobs[i].Status != JobStatusDiscarded {
			return r.Jobs[i]
		}
	}
	return nil
}

// CompleteJob records a job success on the aggregate: render jobs write their
// PDF URL, and the rendition becomes ready once all three jobs are done.
// Outcomes arriving after cancellation are discarded.
func (r *Rendition) CompleteJob(job *Job, resultURL string, pf *preflight.Result) error {
	if r.Status == RenditionCancelled {
		return job.Discard()
	}
	if err := job.Complete(resultURL); err != nil {
		return err
	}

	switch job.Type {
	case JobTypeInterior:
		r.InteriorURL = resultURL
	case JobTypeCover:
		r.CoverURL = resultURL
	case JobTypePreflight:
		r.Preflight = pf
	}
	r.Touch()
	r.refreshReady()

	return nil
}

// FailJob records a job failure. If the job exhausted its attempts the whole
// rendition fails and further quoting against it is blocked.
func (r *Rendition) FailJob(job *Job, errMessage string) error {
	if r.Status == RenditionCancelled {
		return job.Discard()
	}

	exhausted, err := job.Fail(errMessage)
	if err != nil {
		return err
	}
	if !exhausted {
		return nil
	}

	r.Status = RenditionFailed
	r.FailureReason = job.Type.String() + " job exhausted retries: " + errMessage
	r.Touch()
	r.IncrementVersion()
	r.AddDomainEvent(NewRenditionFailedEvent(r, job.Type, errMessage))

	return nil
}

// Cancel discards queued jobs and marks the rendition cancelled. Jobs already
// in flight are left to finish; their outcomes are discarded on arrival.
func (r *Rendition) Cancel() error {
	if r.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE",
			"Cannot cancel a rendition in status "+r.Status.String())
	}

	for _, job := range r.Jobs {
		if job.Status == JobStatusWaiting {
			if err := job.Discard(); err != nil {
				return err
			}
		}
	}

	r.Status = RenditionCancelled
	r.Touch()
	r.IncrementVersion()
	r.AddDomainEvent(NewRenditionCancelledEvent(r))

	return nil
}

// CanQuote reports whether orders may be quoted against this rendition
func (r *Rendition) CanQuote() bool {
	return r.Status == RenditionReady
}

// IsPrintSafe reports whether preflight passed. A ready rendition can still
// be print-unsafe; submission against it needs an explicit override.
func (r *Rendition) IsPrintSafe() bool {
	return r.Preflight != nil && r.Preflight.Passed
}

// refreshReady promotes the rendition to ready once every job has completed
func (r *Rendition) refreshReady() {
	if r.Status != RenditionPending {
		return
	}
	for _, t := range []JobType{JobTypeInterior, JobTypeCover, JobTypePreflight} {
		job := r.JobOfType(t)
		if job == nil || job.Status != JobStatusCompleted {
			return
		}
	}
	r.Status = RenditionReady
	r.IncrementVersion()
	r.AddDomainEvent(NewRenditionReadyEvent(r))
}
