package rendering

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printcore/backend/internal/domain/preflight"
)

func TestHTTPFileInspector_Inspect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/inspect", r.URL.Path)
		assert.Equal(t, "https://cdn.example.com/interior.pdf", r.URL.Query().Get("interior_url"))
		assert.Equal(t, "https://cdn.example.com/cover.pdf", r.URL.Query().Get("cover_url"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(inspectionResponse{
			PageCount:    180,
			TrimWidthIn:  6,
			TrimHeightIn: 9,
			Margins: preflight.MarginInput{
				TrimWidthIn:         6,
				MarginIn:            0.5,
				BindingEdgeMarginIn: 0.625,
				BleedIn:             0.125,
			},
			Images: []preflight.ImageInfo{
				{PixelWidth: 3000, PixelHeight: 3000, PrintWidthIn: 10, PrintHeightIn: 10, Location: "page 4"},
			},
			Files: []preflight.FileInfo{
				{Label: "interior", SizeBytes: 2048, ColorSpace: "CMYK"},
			},
		})
	}))
	defer server.Close()

	inspector, err := NewHTTPFileInspector(renderingConfig("", server.URL))
	require.NoError(t, err)

	report, err := inspector.Inspect(context.Background(), "https://cdn.example.com/interior.pdf", "https://cdn.example.com/cover.pdf")
	require.NoError(t, err)

	assert.Equal(t, 180, report.PageCount)
	assert.Equal(t, 6.0, report.TrimWidthIn)
	require.Len(t, report.Images, 1)
	assert.Equal(t, "page 4", report.Images[0].Location)
	require.Len(t, report.Files, 1)
	assert.Equal(t, "CMYK", report.Files[0].ColorSpace)
}

func TestHTTPFileInspector_OmitsEmptyURLs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, r.URL.Query().Has("interior_url"))
		assert.False(t, r.URL.Query().Has("cover_url"))
		json.NewEncoder(w).Encode(inspectionResponse{PageCount: 10})
	}))
	defer server.Close()

	inspector, err := NewHTTPFileInspector(renderingConfig("", server.URL))
	require.NoError(t, err)

	report, err := inspector.Inspect(context.Background(), "https://cdn.example.com/interior.pdf", "")
	require.NoError(t, err)
	assert.Equal(t, 10, report.PageCount)
}

func TestHTTPFileInspector_ServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "cannot fetch artifact", http.StatusBadGateway)
	}))
	defer server.Close()

	inspector, err := NewHTTPFileInspector(renderingConfig("", server.URL))
	require.NoError(t, err)

	_, err = inspector.Inspect(context.Background(), "https://cdn.example.com/interior.pdf", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestNewHTTPFileInspector_RequiresURL(t *testing.T) {
	_, err := NewHTTPFileInspector(renderingConfig("", ""))
	assert.ErrorIs(t, err, ErrInspectorURL)
}

func TestStubFileInspector_PassesPreflight(t *testing.T) {
	stub := NewStubFileInspector()

	report, err := stub.Inspect(context.Background(), "a", "b")
	require.NoError(t, err)

	result := preflight.Run(preflight.Input{
		PageCount:    report.PageCount,
		TrimWidthIn:  report.TrimWidthIn,
		TrimHeightIn: report.TrimHeightIn,
		InteriorURL:  "https://cdn.example.com/interior.pdf",
		CoverURL:     "https://cdn.example.com/cover.pdf",
		Margins:      report.Margins,
		Images:       report.Images,
		Files:        report.Files,
	})
	assert.True(t, result.Passed)
}
