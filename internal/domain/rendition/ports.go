package rendition

import (
	"context"

	"github.com/google/uuid"
)

// RenderedDocument is the renderer's output for one document
type RenderedDocument struct {
	// PDF is the raw document bytes
	PDF []byte
	// PageCount is the number of pages rendered
	PageCount int
}

// ContentRenderer turns book content into PDF bytes. It is an external
// collaborator; a render failure is a job failure, never a pipeline crash.
type ContentRenderer interface {
	// RenderInterior produces the interior PDF for a book revision
	RenderInterior(ctx context.Context, bookID uuid.UUID, contentVersion int) (RenderedDocument, error)
	// RenderCover produces the cover PDF. The spine width depends on the
	// final page count, so cover rendering takes it as an input.
	RenderCover(ctx context.Context, bookID uuid.UUID, contentVersion int, spineWidthIn float64) (RenderedDocument, error)
}

// ObjectStorage persists rendered artifacts and returns durable URLs
type ObjectStorage interface {
	// Put stores a buffer under the given key and returns its durable URL
	Put(ctx context.Context, key string, contentType string, body []byte) (string, error)
	// Delete removes a stored object
	Delete(ctx context.Context, key string) error
}

// Repository persists renditions and their jobs
type Repository interface {
	// Save persists a new rendition with its jobs
	Save(ctx context.Context, r *Rendition) error

	// Update persists changes to a rendition and its jobs
	Update(ctx context.Context, r *Rendition) error

	// FindByID loads a rendition with its jobs
	FindByID(ctx context.Context, id uuid.UUID) (*Rendition, error)

	// FindLatestByBook loads the newest rendition for a book
	FindLatestByBook(ctx context.Context, bookID uuid.UUID) (*Rendition, error)

	// FindRunnableJobs lists waiting jobs whose NextRunAt has passed,
	// oldest first, for scheduler pickup after a restart
	FindRunnableJobs(ctx context.Context, limit int) ([]*Job, error)
}
