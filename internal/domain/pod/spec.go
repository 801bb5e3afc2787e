package pod

import (
	"fmt"

	"github.com/printcore/backend/internal/domain/preflight"
	"github.com/printcore/backend/internal/domain/shared"
)

// TrimSize is the finished page size in inches
type TrimSize struct {
	WidthIn  float64 `json:"width_in"`
	HeightIn float64 `json:"height_in"`
}

// Validate checks the trim size is within producible bounds
func (t TrimSize) Validate() error {
	if t.WidthIn < 3 || t.WidthIn > 13 {
		return shared.NewDomainError("INVALID_TRIM_SIZE",
			fmt.Sprintf("Trim width %.2fin is outside the producible 3-13in range", t.WidthIn))
	}
	if t.HeightIn < 3 || t.HeightIn > 13 {
		return shared.NewDomainError("INVALID_TRIM_SIZE",
			fmt.Sprintf("Trim height %.2fin is outside the producible 3-13in range", t.HeightIn))
	}
	return nil
}

// IsLargeFormat reports whether the trim width triggers the wider spiral
// safety margin recommendation
func (t TrimSize) IsLargeFormat() bool {
	return preflight.RecommendedSpiralMargin(t.WidthIn) > preflight.SpiralRecommendedMarginIn
}

// SpiralGeometry carries the binding hardware parameters for spiral-family bindings
type SpiralGeometry struct {
	WirePitch preflight.WirePitch `json:"wire_pitch"`
}

// PrintSpec is the immutable physical description of the product to produce.
// Once an order references a spec it must never change; reprints with
// different parameters get a new spec.
type PrintSpec struct {
	ID          string      `json:"id"`
	ProductType ProductType `json:"product_type"`
	Trim        TrimSize    `json:"trim"`
	PageCount   int         `json:"page_count"`
	Binding     Binding     `json:"binding"`
	Paper       PaperType   `json:"paper"`
	ColorSpace  ColorSpace  `json:"color_space"`
	CoverFinish CoverFinish `json:"cover_finish"`

	// Spiral is set only when Binding is in the spiral family
	Spiral *SpiralGeometry `json:"spiral,omitempty"`

	// InteriorPDFURL and CoverPDFURL point at the production files. Empty
	// until the rendition pipeline has produced them.
	InteriorPDFURL string `json:"interior_pdf_url"`
	CoverPDFURL    string `json:"cover_pdf_url"`
}

// Validate checks internal consistency of the spec
func (s *PrintSpec) Validate() error {
	if s.ID == "" {
		return shared.NewDomainError("INVALID_SPEC", "Spec ID cannot be empty")
	}
	if !s.ProductType.IsValid() {
		return shared.NewDomainError("INVALID_SPEC", "Unknown product type: "+string(s.ProductType))
	}
	if err := s.Trim.Validate(); err != nil {
		return err
	}
	if s.PageCount < 2 {
		return shared.NewDomainError("INVALID_SPEC", "Page count must be at least 2")
	}
	if s.PageCount%2 != 0 {
		return shared.NewDomainError("INVALID_SPEC", "Page count must be even")
	}
	if !s.Binding.IsValid() {
		return shared.NewDomainError("INVALID_SPEC", "Unknown binding: "+string(s.Binding))
	}
	if !s.Paper.IsValid() {
		return shared.NewDomainError("INVALID_SPEC", "Unknown paper type: "+string(s.Paper))
	}
	if !s.ColorSpace.IsValid() {
		return shared.NewDomainError("INVALID_SPEC", "Unknown color space: "+string(s.ColorSpace))
	}
	if !s.CoverFinish.IsValid() {
		return shared.NewDomainError("INVALID_SPEC", "Unknown cover finish: "+string(s.CoverFinish))
	}
	if s.Binding.IsSpiralFamily() {
		if s.Spiral == nil {
			return shared.NewDomainError("INVALID_SPEC", "Spiral-family bindings require spiral geometry")
		}
		if !s.Spiral.WirePitch.IsValid() {
			return shared.NewDomainError("INVALID_SPEC", "Unknown wire pitch: "+string(s.Spiral.WirePitch))
		}
	} else if s.Spiral != nil {
		return shared.NewDomainError("INVALID_SPEC", "Spiral geometry is only valid for spiral-family bindings")
	}
	return nil
}

// SpineWidthIn computes the spine thickness from page count and paper bulk.
// Spiral-family bindings have no printed spine, so this returns 0 for them.
func (s *PrintSpec) SpineWidthIn() float64 {
	if s.Binding.IsSpiralFamily() || s.Binding == BindingSaddle {
		return 0
	}
	return float64(s.PageCount) / s.Paper.PagesPerInch()
}

// PreflightInput maps the spec into the geometry the preflight engine checks
func (s *PrintSpec) PreflightInput(margins preflight.MarginInput, images []preflight.ImageInfo, files []preflight.FileInfo) preflight.Input {
	in := preflight.Input{
		PageCount:     s.PageCount,
		TrimWidthIn:   s.Trim.WidthIn,
		TrimHeightIn:  s.Trim.HeightIn,
		SpiralBinding: s.Binding.IsSpiralFamily(),
		InteriorURL:   s.InteriorPDFURL,
		CoverURL:      s.CoverPDFURL,
		Margins:       margins,
		Images:        images,
		Files:         files,
	}
	if s.Spiral != nil {
		in.WirePitch = s.Spiral.WirePitch
	}
	return in
}

// ShippingAddress is the destination for a print order
type ShippingAddress struct {
	Name        string `json:"name"`
	Street1     string `json:"street1"`
	Street2     string `json:"street2,omitempty"`
	City        string `json:"city"`
	State       string `json:"state,omitempty"`
	PostalCode  string `json:"postal_code"`
	CountryCode string `json:"country_code"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Validate checks the required address fields
func (a ShippingAddress) Validate() error {
	if a.Name == "" {
		return shared.NewDomainError("INVALID_ADDRESS", "Recipient name cannot be empty")
	}
	if a.Street1 == "" {
		return shared.NewDomainError("INVALID_ADDRESS", "Street address cannot be empty")
	}
	if a.City == "" {
		return shared.NewDomainError("INVALID_ADDRESS", "City cannot be empty")
	}
	if a.PostalCode == "" {
		return shared.NewDomainError("INVALID_ADDRESS", "Postal code cannot be empty")
	}
	if len(a.CountryCode) != 2 {
		return shared.NewDomainError("INVALID_ADDRESS", "Country code must be ISO 3166-1 alpha-2")
	}
	return nil
}
