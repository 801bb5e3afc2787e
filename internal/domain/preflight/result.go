// Package preflight validates print files against physical production
// constraints before an order is quoted or submitted. All checks are pure
// functions over already-computed metadata (DPI, file sizes, margins);
// opening and parsing PDFs is the job of an external file inspection
// collaborator.
package preflight

// Severity indicates how serious an issue is
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// IsValid checks if the Severity is a valid value
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// String returns the string representation of Severity
func (s Severity) String() string {
	return string(s)
}

// Issue codes produced by the engine. Adapters may add vendor-specific codes
// on top of these (e.g. PDF/X compliance) but must not reuse them with a
// different meaning.
const (
	CodeFileMissing     = "FILE_MISSING"
	CodeFileTooLarge    = "FILE_TOO_LARGE"
	CodeFileLarge       = "FILE_LARGE"
	CodeLowDPI          = "LOW_DPI"
	CodeSuboptimalDPI   = "SUBOPTIMAL_DPI"
	CodeMarginTooSmall  = "MARGIN_TOO_SMALL"
	CodeMarginBelowRec  = "MARGIN_BELOW_RECOMMENDED"
	CodeBleedMissing    = "BLEED_MISSING"
	CodeBleedTooSmall   = "BLEED_TOO_SMALL"
	CodeWireOverCap     = "WIRE_OVER_CAPACITY"
	CodeWireUnderMin    = "WIRE_UNDER_MINIMUM"
	CodeRGBColorSpace   = "RGB_COLOR_SPACE"
	CodePDFXCompliance  = "PDFX_COMPLIANCE"
	CodeVendorRejection = "VENDOR_PREFLIGHT_REJECTION"
)

// Issue is one finding from a preflight check
type Issue struct {
	// Code is a machine-readable issue identifier
	Code string `json:"code"`
	// Message is a human-readable description
	Message string `json:"message"`
	// Location is the physical location of the issue, if known (e.g. "left margin", "page 12")
	Location string `json:"location,omitempty"`
	// Severity indicates how serious the issue is
	Severity Severity `json:"severity"`
}

// Result is the outcome of running preflight checks against a print job.
// Passed is true iff no check produced an error; warnings never block
// submission.
type Result struct {
	Passed   bool    `json:"passed"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// NewResult builds a Result from collected issues, deriving Passed
func NewResult(errors, warnings []Issue) *Result {
	if errors == nil {
		errors = []Issue{}
	}
	if warnings == nil {
		warnings = []Issue{}
	}
	return &Result{
		Passed:   len(errors) == 0,
		Errors:   errors,
		Warnings: warnings,
	}
}

// Merge combines another result into this one, recomputing Passed.
// Used by provider adapters to layer vendor-specific checks on top of the
// engine's baseline result.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
	r.Passed = len(r.Errors) == 0
}

// AddError appends an error issue and clears the Passed flag
func (r *Result) AddError(issue Issue) {
	r.Errors = append(r.Errors, issue)
	r.Passed = false
}

// AddWarning appends a warning issue; Passed is unaffected
func (r *Result) AddWarning(issue Issue) {
	r.Warnings = append(r.Warnings, issue)
}
