package preflight

import "fmt"

// WirePitch is the holes-per-inch density of spiral/coil binding hardware.
// The pitch constrains how many pages the hardware can physically hold.
type WirePitch string

const (
	// WirePitch3to1 is 3 holes per inch, for thinner books
	WirePitch3to1 WirePitch = "3:1"
	// WirePitch2to1 is 2 holes per inch, larger loops for thicker books
	WirePitch2to1 WirePitch = "2:1"
)

// IsValid checks if the WirePitch is a valid value
func (w WirePitch) IsValid() bool {
	switch w {
	case WirePitch3to1, WirePitch2to1:
		return true
	}
	return false
}

// String returns the string representation of WirePitch
func (w WirePitch) String() string {
	return string(w)
}

// PageRange returns the supported page-count range for the pitch
func (w WirePitch) PageRange() (min, max int) {
	switch w {
	case WirePitch3to1:
		return 20, 120
	case WirePitch2to1:
		return 120, 275
	default:
		return 0, 0
	}
}

// CheckWireSizeCompatibility validates a page count against the capacity of
// the chosen wire pitch. Exceeding the maximum is an error (the hardware
// cannot close); sitting well under the minimum is only a warning (oversized
// loops on a thin book look bad but still bind).
func CheckWireSizeCompatibility(wireSize WirePitch, pageCount int) []Issue {
	min, max := wireSize.PageRange()
	if min == 0 && max == 0 {
		return []Issue{{
			Code:     CodeWireOverCap,
			Message:  fmt.Sprintf("unknown wire pitch %q", wireSize),
			Location: "binding edge",
			Severity: SeverityHigh,
		}}
	}

	if pageCount > max {
		return []Issue{{
			Code:     CodeWireOverCap,
			Message:  fmt.Sprintf("%d pages exceeds the %d-page maximum for %s wire; use a larger pitch", pageCount, max, wireSize),
			Location: "binding edge",
			Severity: SeverityHigh,
		}}
	}

	if pageCount < min {
		return []Issue{{
			Code:     CodeWireUnderMin,
			Message:  fmt.Sprintf("%d pages is under the %d-page minimum for %s wire; hardware will be oversized", pageCount, min, wireSize),
			Location: "binding edge",
			Severity: SeverityLow,
		}}
	}

	return nil
}
