package preflight

// Input is everything the engine needs to validate one print job. All fields
// are metadata computed upstream; the engine never opens files itself.
type Input struct {
	// PageCount is the interior page count
	PageCount int
	// TrimWidthIn and TrimHeightIn are the trim dimensions in inches
	TrimWidthIn  float64
	TrimHeightIn float64
	// SpiralBinding is true for spiral/coil/wire-o bindings
	SpiralBinding bool
	// WirePitch is set only for spiral-family bindings
	WirePitch WirePitch
	// InteriorURL and CoverURL point at the production PDFs; empty means the
	// file has not been produced yet
	InteriorURL string
	CoverURL    string
	// Margins carries the measured page geometry
	Margins MarginInput
	// Images are placed images to DPI-check
	Images []ImageInfo
	// Files are the production files to size/color check
	Files []FileInfo
}

// Run executes every applicable check and aggregates the findings.
// Passed is true iff no check produced an error; warnings never block.
//
// Running before render jobs have finished is legitimate: missing files are
// reported as errors, which is a correct terminal answer for that moment,
// not a fault in the pipeline.
func Run(in Input) *Result {
	var errs, warns []Issue

	collect := func(issues []Issue) {
		for _, issue := range issues {
			if issue.Severity == SeverityHigh {
				errs = append(errs, issue)
			} else {
				warns = append(warns, issue)
			}
		}
	}

	if in.InteriorURL == "" {
		errs = append(errs, Issue{
			Code:     CodeFileMissing,
			Message:  "interior PDF has not been produced",
			Location: "interior",
			Severity: SeverityHigh,
		})
	}
	if in.CoverURL == "" {
		errs = append(errs, Issue{
			Code:     CodeFileMissing,
			Message:  "cover PDF has not been produced",
			Location: "cover",
			Severity: SeverityHigh,
		})
	}

	for _, img := range in.Images {
		collect(CheckImageDPI(img))
	}

	collect(CheckMargins(in.Margins))
	collect(CheckBleed(in.Margins))

	if in.SpiralBinding && in.WirePitch != "" {
		collect(CheckWireSizeCompatibility(in.WirePitch, in.PageCount))
	}

	for _, f := range in.Files {
		collect(CheckFileSize(f))
		collect(CheckColorSpace(f))
	}

	return NewResult(errs, warns)
}
