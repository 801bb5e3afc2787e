package rendition

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/printcore/backend/internal/domain/pod"
	"github.com/printcore/backend/internal/domain/preflight"
	"github.com/printcore/backend/internal/domain/rendition"
)

// MockRenderer is a mock implementation of rendition.ContentRenderer
type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) RenderInterior(ctx context.Context, bookID uuid.UUID, contentVersion int) (rendition.RenderedDocument, error) {
	args := m.Called(ctx, bookID, contentVersion)
	return args.Get(0).(rendition.RenderedDocument), args.Error(1)
}

func (m *MockRenderer) RenderCover(ctx context.Context, bookID uuid.UUID, contentVersion int, spineWidthIn float64) (rendition.RenderedDocument, error) {
	args := m.Called(ctx, bookID, contentVersion, spineWidthIn)
	return args.Get(0).(rendition.RenderedDocument), args.Error(1)
}

// MockStorage is a mock implementation of rendition.ObjectStorage
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Put(ctx context.Context, key string, contentType string, body []byte) (string, error) {
	args := m.Called(ctx, key, contentType, body)
	return args.String(0), args.Error(1)
}

func (m *MockStorage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockInspector is a mock implementation of FileInspector
type MockInspector struct {
	mock.Mock
}

func (m *MockInspector) Inspect(ctx context.Context, interiorURL, coverURL string) (InspectionReport, error) {
	args := m.Called(ctx, interiorURL, coverURL)
	return args.Get(0).(InspectionReport), args.Error(1)
}

type executorMocks struct {
	repo      *MockRepository
	renderer  *MockRenderer
	storage   *MockStorage
	inspector *MockInspector
}

func newTestExecutor() (*Executor, *executorMocks) {
	m := &executorMocks{
		repo:      new(MockRepository),
		renderer:  new(MockRenderer),
		storage:   new(MockStorage),
		inspector: new(MockInspector),
	}
	return NewExecutor(m.repo, m.renderer, m.storage, m.inspector, zap.NewNop()), m
}

func newRendition(t *testing.T, maxAttempts int) *rendition.Rendition {
	t.Helper()
	r, err := rendition.NewRendition(uuid.New(), 1, maxAttempts)
	require.NoError(t, err)
	r.ClearDomainEvents()
	return r
}

func cleanReport() InspectionReport {
	return InspectionReport{
		PageCount:    200,
		TrimWidthIn:  6,
		TrimHeightIn: 9,
		Margins: preflight.MarginInput{
			TrimWidthIn:         6,
			MarginIn:            0.6,
			BindingEdgeMarginIn: 0.6,
			BleedIn:             0.125,
		},
		Images: []preflight.ImageInfo{
			{PixelWidth: 3000, PixelHeight: 3000, PrintWidthIn: 10, PrintHeightIn: 10, Location: "page 3"},
		},
		Files: []preflight.FileInfo{
			{Label: "interior", SizeBytes: 50 * 1024 * 1024, ColorSpace: "CMYK"},
		},
	}
}

func TestExecute_InteriorJob(t *testing.T) {
	exec, m := newTestExecutor()

	r := newRendition(t, 3)
	job := r.JobOfType(rendition.JobTypeInterior)

	m.repo.On("FindByID", mock.Anything, r.ID).Return(r, nil)
	m.repo.On("Update", mock.Anything, r).Return(nil)
	m.renderer.On("RenderInterior", mock.Anything, r.BookID, 1).Return(rendition.RenderedDocument{PDF: []byte("%PDF"), PageCount: 200}, nil)
	m.storage.On("Put", mock.Anything, mock.Anything, "application/pdf", []byte("%PDF")).Return("https://cdn.example.com/interior.pdf", nil)

	require.NoError(t, exec.Execute(context.Background(), job))

	assert.Equal(t, rendition.JobStatusCompleted, job.Status)
	assert.Equal(t, "https://cdn.example.com/interior.pdf", job.ResultURL)
	assert.Equal(t, "https://cdn.example.com/interior.pdf", r.InteriorURL)
	assert.Equal(t, 1, job.Attempts)
	m.repo.AssertNumberOfCalls(t, "Update", 2)
}

func TestExecute_CoverUsesInteriorSpine(t *testing.T) {
	exec, m := newTestExecutor()

	r := newRendition(t, 3)
	r.InteriorURL = "https://cdn.example.com/interior.pdf"
	job := r.JobOfType(rendition.JobTypeCover)

	m.repo.On("FindByID", mock.Anything, r.ID).Return(r, nil)
	m.repo.On("Update", mock.Anything, r).Return(nil)

	report := cleanReport()
	report.PageCount = 472 // exactly one inch of 60lb white stock
	m.inspector.On("Inspect", mock.Anything, r.InteriorURL, "").Return(report, nil)

	m.renderer.On("RenderCover", mock.Anything, r.BookID, 1, 1.0).Return(rendition.RenderedDocument{PDF: []byte("%PDF"), PageCount: 1}, nil)
	m.storage.On("Put", mock.Anything, mock.Anything, "application/pdf", mock.Anything).Return("https://cdn.example.com/cover.pdf", nil)

	require.NoError(t, exec.Execute(context.Background(), job))

	assert.Equal(t, "https://cdn.example.com/cover.pdf", r.CoverURL)
	m.renderer.AssertExpectations(t)
}

func TestExecute_CoverWithoutInteriorRendersFlatSpine(t *testing.T) {
	exec, m := newTestExecutor()

	r := newRendition(t, 3)
	job := r.JobOfType(rendition.JobTypeCover)

	m.repo.On("FindByID", mock.Anything, r.ID).Return(r, nil)
	m.repo.On("Update", mock.Anything, r).Return(nil)
	m.renderer.On("RenderCover", mock.Anything, r.BookID, 1, 0.0).Return(rendition.RenderedDocument{PDF: []byte("%PDF"), PageCount: 1}, nil)
	m.storage.On("Put", mock.Anything, mock.Anything, "application/pdf", mock.Anything).Return("https://cdn.example.com/cover.pdf", nil)

	require.NoError(t, exec.Execute(context.Background(), job))

	m.inspector.AssertNotCalled(t, "Inspect", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecute_PreflightWithMissingFilesFails(t *testing.T) {
	exec, m := newTestExecutor()

	r := newRendition(t, 3)
	job := r.JobOfType(rendition.JobTypePreflight)

	m.repo.On("FindByID", mock.Anything, r.ID).Return(r, nil)
	m.repo.On("Update", mock.Anything, r).Return(nil)

	require.NoError(t, exec.Execute(context.Background(), job))

	// The job completed; the verdict it recorded is negative
	assert.Equal(t, rendition.JobStatusCompleted, job.Status)
	require.NotNil(t, r.Preflight)
	assert.False(t, r.Preflight.Passed)

	codes := make([]string, 0, len(r.Preflight.Errors))
	for _, issue := range r.Preflight.Errors {
		codes = append(codes, issue.Code)
	}
	assert.Contains(t, codes, preflight.CodeFileMissing)
	m.inspector.AssertNotCalled(t, "Inspect", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecute_PreflightPasses(t *testing.T) {
	exec, m := newTestExecutor()

	r := newRendition(t, 3)
	r.InteriorURL = "https://cdn.example.com/interior.pdf"
	r.CoverURL = "https://cdn.example.com/cover.pdf"
	job := r.JobOfType(rendition.JobTypePreflight)

	m.repo.On("FindByID", mock.Anything, r.ID).Return(r, nil)
	m.repo.On("Update", mock.Anything, r).Return(nil)
	m.inspector.On("Inspect", mock.Anything, r.InteriorURL, r.CoverURL).Return(cleanReport(), nil)

	require.NoError(t, exec.Execute(context.Background(), job))

	require.NotNil(t, r.Preflight)
	assert.True(t, r.Preflight.Passed)
}

func TestExecute_PreflightCompletesRendition(t *testing.T) {
	exec, m := newTestExecutor()

	r := newRendition(t, 3)
	r.InteriorURL = "https://cdn.example.com/interior.pdf"
	r.CoverURL = "https://cdn.example.com/cover.pdf"

	interior := r.JobOfType(rendition.JobTypeInterior)
	require.NoError(t, interior.Start())
	require.NoError(t, r.CompleteJob(interior, r.InteriorURL, nil))
	cover := r.JobOfType(rendition.JobTypeCover)
	require.NoError(t, cover.Start())
	require.NoError(t, r.CompleteJob(cover, r.CoverURL, nil))

	job := r.JobOfType(rendition.JobTypePreflight)
	m.repo.On("FindByID", mock.Anything, r.ID).Return(r, nil)
	m.repo.On("Update", mock.Anything, r).Return(nil)
	m.inspector.On("Inspect", mock.Anything, r.InteriorURL, r.CoverURL).Return(cleanReport(), nil)

	require.NoError(t, exec.Execute(context.Background(), job))

	assert.Equal(t, rendition.RenditionReady, r.Status)
	assert.True(t, r.CanQuote())
	assert.True(t, r.IsPrintSafe())
}

func TestExecute_FailureSchedulesRetry(t *testing.T) {
	exec, m := newTestExecutor()

	r := newRendition(t, 3)
	job := r.JobOfType(rendition.JobTypeInterior)

	m.repo.On("FindByID", mock.Anything, r.ID).Return(r, nil)
	m.repo.On("Update", mock.Anything, r).Return(nil)
	m.renderer.On("RenderInterior", mock.Anything, r.BookID, 1).Return(rendition.RenderedDocument{}, assert.AnError)

	err := exec.Execute(context.Background(), job)
	require.ErrorIs(t, err, assert.AnError)

	assert.Equal(t, rendition.JobStatusWaiting, job.Status)
	assert.Equal(t, 1, job.Attempts)
	assert.NotEmpty(t, job.LastError)
	assert.Equal(t, rendition.RenditionPending, r.Status)
}

func TestExecute_ExhaustionFailsRendition(t *testing.T) {
	exec, m := newTestExecutor()

	r := newRendition(t, 1)
	job := r.JobOfType(rendition.JobTypeInterior)

	m.repo.On("FindByID", mock.Anything, r.ID).Return(r, nil)
	m.repo.On("Update", mock.Anything, r).Return(nil)
	m.renderer.On("RenderInterior", mock.Anything, r.BookID, 1).Return(rendition.RenderedDocument{}, assert.AnError)

	err := exec.Execute(context.Background(), job)
	require.ErrorIs(t, err, assert.AnError)

	assert.Equal(t, rendition.JobStatusFailed, job.Status)
	assert.Equal(t, rendition.RenditionFailed, r.Status)
	assert.False(t, r.CanQuote())
	assert.NotEmpty(t, r.FailureReason)
}

func TestExecute_SkipsNonWaitingJob(t *testing.T) {
	exec, m := newTestExecutor()

	r := newRendition(t, 3)
	job := r.JobOfType(rendition.JobTypeInterior) // discarded by the cancel
	require.NoError(t, r.Cancel())
	r.ClearDomainEvents()

	m.repo.On("FindByID", mock.Anything, r.ID).Return(r, nil)

	require.NoError(t, exec.Execute(context.Background(), job))

	m.renderer.AssertNotCalled(t, "RenderInterior", mock.Anything, mock.Anything, mock.Anything)
	m.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestExecute_SpineWidthMatchesSpecMath(t *testing.T) {
	// The estimate the cover job uses must agree with the per-order figure
	spec := pod.PrintSpec{PageCount: 472, Binding: pod.BindingPerfect, Paper: pod.Paper60lbWhite}
	assert.InDelta(t, 1.0, spec.SpineWidthIn(), 0.0001)
}
