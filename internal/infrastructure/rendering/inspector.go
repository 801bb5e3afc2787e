package rendering

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	apprendition "github.com/printcore/backend/internal/application/rendition"
	"github.com/printcore/backend/internal/domain/preflight"
	"github.com/printcore/backend/internal/infrastructure/config"
)

// maxInspectionResponseSize caps an inspection report payload
const maxInspectionResponseSize = 4 * 1024 * 1024

// ErrInspectorURL means the inspector client was built without a base URL
var ErrInspectorURL = errors.New("rendering: inspector URL is required")

// HTTPFileInspector measures PDF artifacts through the inspection service.
// It reports dimensions and image placements; the preflight engine judges them.
type HTTPFileInspector struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

// NewHTTPFileInspector creates an inspector client from configuration
func NewHTTPFileInspector(cfg config.RenderingConfig) (*HTTPFileInspector, error) {
	if cfg.InspectorURL == "" {
		return nil, ErrInspectorURL
	}
	return &HTTPFileInspector{
		baseURL:   cfg.InspectorURL,
		authToken: cfg.AuthToken,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}, nil
}

type inspectionResponse struct {
	PageCount    int                   `json:"page_count"`
	TrimWidthIn  float64               `json:"trim_width_in"`
	TrimHeightIn float64               `json:"trim_height_in"`
	Margins      preflight.MarginInput `json:"margins"`
	Images       []preflight.ImageInfo `json:"images"`
	Files        []preflight.FileInfo  `json:"files"`
}

// Inspect asks the inspection service to measure the given artifacts
func (i *HTTPFileInspector) Inspect(ctx context.Context, interiorURL, coverURL string) (apprendition.InspectionReport, error) {
	q := url.Values{}
	if interiorURL != "" {
		q.Set("interior_url", interiorURL)
	}
	if coverURL != "" {
		q.Set("cover_url", coverURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, i.baseURL+"/inspect?"+q.Encode(), nil)
	if err != nil {
		return apprendition.InspectionReport{}, err
	}
	if i.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+i.authToken)
	}

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return apprendition.InspectionReport{}, fmt.Errorf("rendering: inspection request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return apprendition.InspectionReport{}, fmt.Errorf("rendering: inspector returned %d: %s", resp.StatusCode, string(body))
	}

	var payload inspectionResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxInspectionResponseSize)).Decode(&payload); err != nil {
		return apprendition.InspectionReport{}, fmt.Errorf("rendering: decoding inspection report: %w", err)
	}

	return apprendition.InspectionReport{
		PageCount:    payload.PageCount,
		TrimWidthIn:  payload.TrimWidthIn,
		TrimHeightIn: payload.TrimHeightIn,
		Margins:      payload.Margins,
		Images:       payload.Images,
		Files:        payload.Files,
	}, nil
}

// StubFileInspector returns a fixed report that passes every preflight check.
// It serves development and tests when no inspection service is configured.
type StubFileInspector struct {
	// Report is returned verbatim from Inspect
	Report apprendition.InspectionReport
}

// NewStubFileInspector creates a stub inspector with a clean default report
func NewStubFileInspector() *StubFileInspector {
	return &StubFileInspector{
		Report: apprendition.InspectionReport{
			PageCount:    2,
			TrimWidthIn:  6,
			TrimHeightIn: 9,
			Margins: preflight.MarginInput{
				TrimWidthIn:         6,
				MarginIn:            0.5,
				BindingEdgeMarginIn: 0.625,
				BleedIn:             0.125,
			},
			Files: []preflight.FileInfo{
				{Label: "interior", SizeBytes: 1024, ColorSpace: "CMYK"},
			},
		},
	}
}

// Inspect returns the configured report
func (i *StubFileInspector) Inspect(ctx context.Context, interiorURL, coverURL string) (apprendition.InspectionReport, error) {
	return i.Report, nil
}
