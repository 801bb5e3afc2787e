package rendition

// JobType identifies the kind of work a rendition job performs
type JobType string

const (
	// JobTypeInterior renders the interior PDF
	JobTypeInterior JobType = "INTERIOR"
	// JobTypeCover renders the cover PDF
	JobTypeCover JobType = "COVER"
	// JobTypePreflight runs the preflight checks over the produced files
	JobTypePreflight JobType = "PREFLIGHT"
)

// IsValid checks if the JobType is a valid value
func (t JobType) IsValid() bool {
	switch t {
	case JobTypeInterior, JobTypeCover, JobTypePreflight:
		return true
	}
	return false
}

// String returns the string representation of JobType
func (t JobType) String() string {
	return string(t)
}

// IsRender reports whether the job produces a PDF
func (t JobType) IsRender() bool {
	return t == JobTypeInterior || t == JobTypeCover
}

// JobStatus is the lifecycle of one rendition job
type JobStatus string

const (
	// JobStatusWaiting means the job is queued or waiting out a backoff delay
	JobStatusWaiting JobStatus = "WAITING"
	// JobStatusActive means a worker is executing the job
	JobStatusActive JobStatus = "ACTIVE"
	// JobStatusCompleted means the job finished successfully
	JobStatusCompleted JobStatus = "COMPLETED"
	// JobStatusFailed means the job exhausted its attempts
	JobStatusFailed JobStatus = "FAILED"
	// JobStatusDiscarded means the rendition was cancelled before the job ran
	// or while it was in flight
	JobStatusDiscarded JobStatus = "DISCARDED"
)

// IsValid checks if the JobStatus is a valid value
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusWaiting, JobStatusActive, JobStatusCompleted, JobStatusFailed, JobStatusDiscarded:
		return true
	}
	return false
}

// String returns the string representation of JobStatus
func (s JobStatus) String() string {
	return string(s)
}

// IsTerminal returns true for states a job can never leave
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusDiscarded:
		return true
	}
	return false
}

// CanTransitionTo reports whether a job may move to the target state
func (s JobStatus) CanTransitionTo(target JobStatus) bool {
	switch s {
	case JobStatusWaiting:
		return target == JobStatusActive || target == JobStatusDiscarded
	case JobStatusActive:
		return target == JobStatusWaiting || target == JobStatusCompleted ||
			target == JobStatusFailed || target == JobStatusDiscarded
	}
	return false
}

// RenditionStatus is the lifecycle of a rendition as a whole
type RenditionStatus string

const (
	// RenditionPending means jobs are queued or running
	RenditionPending RenditionStatus = "PENDING"
	// RenditionReady means both PDFs exist and preflight has run
	RenditionReady RenditionStatus = "READY"
	// RenditionFailed means a job exhausted its attempts; quoting is blocked
	RenditionFailed RenditionStatus = "FAILED"
	// RenditionCancelled means the rendition was cancelled
	RenditionCancelled RenditionStatus = "CANCELLED"
)

// IsValid checks if the RenditionStatus is a valid value
func (s RenditionStatus) IsValid() bool {
	switch s {
	case RenditionPending, RenditionReady, RenditionFailed, RenditionCancelled:
		return true
	}
	return false
}

// String returns the string representation of RenditionStatus
func (s RenditionStatus) String() string {
	return string(s)
}

// IsTerminal returns true for states a rendition can never leave
func (s RenditionStatus) IsTerminal() bool {
	return s == RenditionFailed || s == RenditionCancelled
}
