package rendition

import (
	"context"

	"github.com/printcore/backend/internal/domain/preflight"
	"github.com/printcore/backend/internal/domain/rendition"
)

// InspectionReport is the measured metadata of rendered production files.
// The inspector only measures; judging the numbers is the preflight engine's
// job.
type InspectionReport struct {
	// PageCount is the interior page count
	PageCount int
	// TrimWidthIn and TrimHeightIn are the measured trim dimensions
	TrimWidthIn  float64
	TrimHeightIn float64
	// Margins is the measured page geometry
	Margins preflight.MarginInput
	// Images are placed images with their effective resolutions
	Images []preflight.ImageInfo
	// Files are the production files with size and color space
	Files []preflight.FileInfo
}

// FileInspector extracts metadata from rendered PDFs. It is an external
// collaborator; the pipeline never opens files itself. URLs may be empty
// when the corresponding render job has not finished; the inspector skips
// them.
type FileInspector interface {
	Inspect(ctx context.Context, interiorURL, coverURL string) (InspectionReport, error)
}

// JobSubmitter hands freshly created jobs to the scheduler for prompt
// pickup. Submission is best effort; the scheduler's storage sweep picks up
// anything that was dropped.
type JobSubmitter interface {
	Submit(job *rendition.Job) error
}
