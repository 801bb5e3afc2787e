package rendition

import (
	"github.com/google/uuid"
	"github.com/printcore/backend/internal/domain/shared"
)

// Aggregate type constants
const (
	AggregateTypeRendition = "Rendition"
)

// Event type constants for Rendition
const (
	EventTypeRenditionCreated   = "RenditionCreated"
	EventTypeRenditionReady     = "RenditionReady"
	EventTypeRenditionFailed    = "RenditionFailed"
	EventTypeRenditionCancelled = "RenditionCancelled"
)

// RenditionCreatedEvent is published when a new rendition is queued
type RenditionCreatedEvent struct {
	shared.BaseDomainEvent
	RenditionID    uuid.UUID `json:"rendition_id"`
	BookID         uuid.UUID `json:"book_id"`
	ContentVersion int       `json:"content_version"`
}

// NewRenditionCreatedEvent creates a new RenditionCreatedEvent
func NewRenditionCreatedEvent(r *Rendition) *RenditionCreatedEvent {
	return &RenditionCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRenditionCreated, AggregateTypeRendition, r.ID),
		RenditionID:     r.ID,
		BookID:          r.BookID,
		ContentVersion:  r.ContentVersion,
	}
}

// RenditionReadyEvent is published when both PDFs exist and preflight has run
type RenditionReadyEvent struct {
	shared.BaseDomainEvent
	RenditionID uuid.UUID `json:"rendition_id"`
	BookID      uuid.UUID `json:"book_id"`
	PrintSafe   bool      `json:"print_safe"`
}

// NewRenditionReadyEvent creates a new RenditionReadyEvent
func NewRenditionReadyEvent(r *Rendition) *RenditionReadyEvent {
	return &RenditionReadyEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRenditionReady, AggregateTypeRendition, r.ID),
		RenditionID:     r.ID,
		BookID:          r.BookID,
		PrintSafe:       r.IsPrintSafe(),
	}
}

// RenditionFailedEvent is published when a job exhausts its attempt ceiling.
// The notification collaborator subscribes to this to alert the user.
type RenditionFailedEvent struct {
	shared.BaseDomainEvent
	RenditionID uuid.UUID `json:"rendition_id"`
	BookID      uuid.UUID `json:"book_id"`
	JobType     JobType   `json:"job_type"`
	Reason      string    `json:"reason"`
}

// NewRenditionFailedEvent creates a new RenditionFailedEvent
func NewRenditionFailedEvent(r *Rendition, jobType JobType, reason string) *RenditionFailedEvent {
	return &RenditionFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRenditionFailed, AggregateTypeRendition, r.ID),
		RenditionID:     r.ID,
		BookID:          r.BookID,
		JobType:         jobType,
		Reason:          reason,
	}
}

// RenditionCancelledEvent is published when a rendition is cancelled
type RenditionCancelledEvent struct {
	shared.BaseDomainEvent
	RenditionID uuid.UUID `json:"rendition_id"`
	BookID      uuid.UUID `json:"book_id"`
}

// NewRenditionCancelledEvent creates a new RenditionCancelledEvent
func NewRenditionCancelledEvent(r *Rendition) *RenditionCancelledEvent {
	return &RenditionCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRenditionCancelled, AggregateTypeRendition, r.ID),
		RenditionID:     r.ID,
		BookID:          r.BookID,
	}
}
