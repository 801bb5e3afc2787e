package rendition

import (
	"time"

	"github.com/google/uuid"
	"github.com/printcore/backend/internal/domain/preflight"
	"github.com/printcore/backend/internal/domain/rendition"
)

// RequestRenditionRequest asks for a fresh rendition of a book revision
type RequestRenditionRequest struct {
	BookID         uuid.UUID `json:"book_id"`
	ContentVersion int       `json:"content_version"`
}

// JobResponse is the outward-facing view of one rendition job
type JobResponse struct {
	ID          uuid.UUID  `json:"id"`
	Type        string     `json:"type"`
	Status      string     `json:"status"`
	Attempts    int        `json:"attempts"`
	MaxAttempts int        `json:"max_attempts"`
	NextRunAt   time.Time  `json:"next_run_at"`
	LastError   string     `json:"last_error,omitempty"`
	ResultURL   string     `json:"result_url,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// RenditionResponse is the outward-facing view of a rendition
type RenditionResponse struct {
	ID             uuid.UUID         `json:"id"`
	BookID         uuid.UUID         `json:"book_id"`
	ContentVersion int               `json:"content_version"`
	Status         string            `json:"status"`
	InteriorURL    string            `json:"interior_url,omitempty"`
	CoverURL       string            `json:"cover_url,omitempty"`
	Preflight      *preflight.Result `json:"preflight,omitempty"`
	FailureReason  string            `json:"failure_reason,omitempty"`
	Jobs           []JobResponse     `json:"jobs,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	Version        int               `json:"version"`
}

// ToRenditionResponse converts a domain rendition to its response form
func ToRenditionResponse(r *rendition.Rendition) RenditionResponse {
	resp := RenditionResponse{
		ID:             r.ID,
		BookID:         r.BookID,
		ContentVersion: r.ContentVersion,
		Status:         r.Status.String(),
		InteriorURL:    r.InteriorURL,
		CoverURL:       r.CoverURL,
		Preflight:      r.Preflight,
		FailureReason:  r.FailureReason,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		Version:        r.Version,
	}

	for _, job := range r.Jobs {
		resp.Jobs = append(resp.Jobs, JobResponse{
			ID:          job.ID,
			Type:        job.Type.String(),
			Status:      job.Status.String(),
			Attempts:    job.Attempts,
			MaxAttempts: job.MaxAttempts,
			NextRunAt:   job.NextRunAt,
			LastError:   job.LastError,
			ResultURL:   job.ResultURL,
			StartedAt:   job.StartedAt,
			CompletedAt: job.CompletedAt,
		})
	}

	return resp
}
