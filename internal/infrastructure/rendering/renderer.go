// Package rendering holds the clients for the external rendering
// collaborators: the content renderer that turns book revisions into PDFs
// and the file inspector that measures what was produced. Both are plain
// HTTP services; stub implementations cover development and tests.
package rendering

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/printcore/backend/internal/domain/rendition"
	"github.com/printcore/backend/internal/infrastructure/config"
)

// maxPDFResponseSize caps a rendered document; anything larger fails
// vendor upload limits anyway
const maxPDFResponseSize = 512 * 1024 * 1024

// pageCountHeader carries the rendered page count alongside the PDF body
const pageCountHeader = "X-Page-Count"

// ErrRendererURL means the renderer client was built without a base URL
var ErrRendererURL = errors.New("rendering: renderer URL is required")

// HTTPContentRenderer implements rendition.ContentRenderer against the
// rendering service
type HTTPContentRenderer struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

// NewHTTPContentRenderer creates a renderer client from configuration
func NewHTTPContentRenderer(cfg config.RenderingConfig) (*HTTPContentRenderer, error) {
	if cfg.RendererURL == "" {
		return nil, ErrRendererURL
	}
	return &HTTPContentRenderer{
		baseURL:   cfg.RendererURL,
		authToken: cfg.AuthToken,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// RenderInterior produces the interior PDF for a book revision
func (r *HTTPContentRenderer) RenderInterior(ctx context.Context, bookID uuid.UUID, contentVersion int) (rendition.RenderedDocument, error) {
	path := fmt.Sprintf("/books/%s/versions/%d/interior", bookID, contentVersion)
	return r.render(ctx, path)
}

// RenderCover produces the cover PDF. The spine width travels as a query
// parameter since it depends on the interior page count.
func (r *HTTPContentRenderer) RenderCover(ctx context.Context, bookID uuid.UUID, contentVersion int, spineWidthIn float64) (rendition.RenderedDocument, error) {
	path := fmt.Sprintf("/books/%s/versions/%d/cover?spine_width_in=%.4f", bookID, contentVersion, spineWidthIn)
	return r.render(ctx, path)
}

func (r *HTTPContentRenderer) render(ctx context.Context, path string) (rendition.RenderedDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, nil)
	if err != nil {
		return rendition.RenderedDocument{}, err
	}
	if r.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+r.authToken)
	}
	req.Header.Set("Accept", "application/pdf")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return rendition.RenderedDocument{}, fmt.Errorf("rendering: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return rendition.RenderedDocument{}, fmt.Errorf("rendering: service returned %d: %s", resp.StatusCode, string(body))
	}

	pdf, err := io.ReadAll(io.LimitReader(resp.Body, maxPDFResponseSize))
	if err != nil {
		return rendition.RenderedDocument{}, fmt.Errorf("rendering: reading body: %w", err)
	}

	pageCount, err := strconv.Atoi(resp.Header.Get(pageCountHeader))
	if err != nil {
		return rendition.RenderedDocument{}, fmt.Errorf("rendering: missing or invalid %s header", pageCountHeader)
	}

	return rendition.RenderedDocument{PDF: pdf, PageCount: pageCount}, nil
}

// StubContentRenderer produces placeholder PDFs for development and tests
// when no rendering service is configured
type StubContentRenderer struct {
	// PageCount is reported for interior renders
	PageCount int
}

// NewStubContentRenderer creates a stub renderer
func NewStubContentRenderer() *StubContentRenderer {
	return &StubContentRenderer{PageCount: 2}
}

// RenderInterior returns a minimal placeholder PDF
func (r *StubContentRenderer) RenderInterior(ctx context.Context, bookID uuid.UUID, contentVersion int) (rendition.RenderedDocument, error) {
	return rendition.RenderedDocument{
		PDF:       placeholderPDF(fmt.Sprintf("interior %s v%d", bookID, contentVersion)),
		PageCount: r.PageCount,
	}, nil
}

// RenderCover returns a minimal placeholder PDF
func (r *StubContentRenderer) RenderCover(ctx context.Context, bookID uuid.UUID, contentVersion int, spineWidthIn float64) (rendition.RenderedDocument, error) {
	return rendition.RenderedDocument{
		PDF:       placeholderPDF(fmt.Sprintf("cover %s v%d spine %.4f", bookID, contentVersion, spineWidthIn)),
		PageCount: 1,
	}, nil
}

func placeholderPDF(label string) []byte {
	return []byte("%PDF-1.4\n% " + label + "\n%%EOF\n")
}
