package preflight

import "fmt"

// Margin and bleed constants, in inches
const (
	// GenericMinMarginIn is the minimum content margin for non-spiral bindings
	GenericMinMarginIn = 0.5
	// SpiralMinEdgeMarginIn is the hard minimum on the binding edge for
	// spiral/coil/wire-o bindings; punched holes truncate anything closer
	SpiralMinEdgeMarginIn = 0.5
	// SpiralRecommendedMarginIn is the recommended binding-edge margin for
	// spiral bindings at standard trim sizes
	SpiralRecommendedMarginIn = 0.75
	// SpiralLargeTrimMarginIn is the recommended binding-edge margin for
	// trims 9 inches or wider, where hole drift is more pronounced
	SpiralLargeTrimMarginIn = 1.0
	// largeTrimThresholdIn is the trim width at which the larger
	// recommendation kicks in
	largeTrimThresholdIn = 9.0
	// MinBleedIn is the standard full bleed past the trim line
	MinBleedIn = 0.125
)

// MarginInput carries the measured geometry for margin/bleed checks
type MarginInput struct {
	// TrimWidthIn is the trim width in inches
	TrimWidthIn float64
	// MarginIn is the smallest measured content margin in inches
	MarginIn float64
	// BindingEdgeMarginIn is the measured margin on the binding edge
	BindingEdgeMarginIn float64
	// BleedIn is the measured bleed extent; zero means no bleed present
	BleedIn float64
	// SpiralBinding is true for spiral/coil/wire-o bindings
	SpiralBinding bool
}

// RecommendedSpiralMargin returns the recommended binding-edge margin for the
// given trim width
func RecommendedSpiralMargin(trimWidthIn float64) float64 {
	if trimWidthIn >= largeTrimThresholdIn {
		return SpiralLargeTrimMarginIn
	}
	return SpiralRecommendedMarginIn
}

// CheckMargins validates content margins against binding-dependent minimums
func CheckMargins(in MarginInput) []Issue {
	var issues []Issue

	if !in.SpiralBinding {
		if in.MarginIn < GenericMinMarginIn {
			issues = append(issues, Issue{
				Code:     CodeMarginTooSmall,
				Message:  fmt.Sprintf("content margin %.3fin is below the %.2fin minimum", in.MarginIn, GenericMinMarginIn),
				Location: "page margin",
				Severity: SeverityHigh,
			})
		}
		return issues
	}

	if in.BindingEdgeMarginIn < SpiralMinEdgeMarginIn {
		issues = append(issues, Issue{
			Code:     CodeMarginTooSmall,
			Message:  fmt.Sprintf("binding edge margin %.3fin is below the %.2fin minimum; punch holes will truncate content", in.BindingEdgeMarginIn, SpiralMinEdgeMarginIn),
			Location: "binding edge",
			Severity: SeverityHigh,
		})
	} else if rec := RecommendedSpiralMargin(in.TrimWidthIn); in.BindingEdgeMarginIn < rec {
		issues = append(issues, Issue{
			Code:     CodeMarginBelowRec,
			Message:  fmt.Sprintf("binding edge margin %.3fin is below the recommended %.2fin for this trim size", in.BindingEdgeMarginIn, rec),
			Location: "binding edge",
			Severity: SeverityMedium,
		})
	}

	return issues
}

// CheckBleed validates bleed presence and extent. Missing or undersized bleed
// on the binding edge is an error for spiral-type bindings (holes would
// truncate content) and a warning otherwise.
func CheckBleed(in MarginInput) []Issue {
	if in.BleedIn >= MinBleedIn {
		return nil
	}

	severity := SeverityMedium
	code := CodeBleedTooSmall
	msg := fmt.Sprintf("bleed %.3fin is below the %.3fin minimum", in.BleedIn, MinBleedIn)
	if in.BleedIn == 0 {
		code = CodeBleedMissing
		msg = fmt.Sprintf("no bleed present; %.3fin is required", MinBleedIn)
	}
	if in.SpiralBinding {
		severity = SeverityHigh
	}

	issue := Issue{
		Code:     code,
		Message:  msg,
		Location: "trim edge",
		Severity: severity,
	}
	return []Issue{issue}
}
