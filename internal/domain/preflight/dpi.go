package preflight

import "fmt"

// DPI thresholds. These are fixed and deliberately not configurable per call
// so quality guarantees stay comparable across providers.
const (
	// MinSafeDPI is the floor below which print quality is unacceptable
	MinSafeDPI = 150
	// OptimalDPI is the resolution at which output is indistinguishable from offset print
	OptimalDPI = 300
)

// DPIResult holds the computed effective resolution of an image at print size
type DPIResult struct {
	// DPI is the effective dots per inch at the printed dimensions
	DPI float64 `json:"dpi"`
	// IsPrintSafe is true when DPI >= 150
	IsPrintSafe bool `json:"isPrintSafe"`
	// IsPrintOptimal is true when DPI >= 300
	IsPrintOptimal bool `json:"isPrintOptimal"`
}

// CalculateDPI computes the effective DPI of an image printed at the given
// physical size. The limiting axis wins: a 3000x1000px image printed at
// 10x10in is 100 DPI, not 300.
func CalculateDPI(pixelWidth, pixelHeight int, printWidthIn, printHeightIn float64) DPIResult {
	if printWidthIn <= 0 || printHeightIn <= 0 {
		return DPIResult{}
	}

	horizontal := float64(pixelWidth) / printWidthIn
	vertical := float64(pixelHeight) / printHeightIn

	dpi := horizontal
	if vertical < dpi {
		dpi = vertical
	}

	return DPIResult{
		DPI:            dpi,
		IsPrintSafe:    dpi >= MinSafeDPI,
		IsPrintOptimal: dpi >= OptimalDPI,
	}
}

// ImageInfo describes one placed image, as reported by the file inspection collaborator
type ImageInfo struct {
	PixelWidth    int
	PixelHeight   int
	PrintWidthIn  float64
	PrintHeightIn float64
	// Location identifies where the image appears (e.g. "page 3", "cover front")
	Location string
}

// CheckImageDPI evaluates one image against the fixed DPI thresholds
func CheckImageDPI(img ImageInfo) []Issue {
	res := CalculateDPI(img.PixelWidth, img.PixelHeight, img.PrintWidthIn, img.PrintHeightIn)

	if !res.IsPrintSafe {
		return []Issue{{
			Code:     CodeLowDPI,
			Message:  fmt.Sprintf("image resolution is %.0f DPI; minimum for print is %d DPI", res.DPI, MinSafeDPI),
			Location: img.Location,
			Severity: SeverityHigh,
		}}
	}

	if !res.IsPrintOptimal {
		return []Issue{{
			Code:     CodeSuboptimalDPI,
			Message:  fmt.Sprintf("image resolution is %.0f DPI; %d DPI is recommended for best quality", res.DPI, OptimalDPI),
			Location: img.Location,
			Severity: SeverityMedium,
		}}
	}

	return nil
}
