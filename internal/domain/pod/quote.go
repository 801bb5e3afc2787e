package pod

import (
	"time"

	"github.com/google/uuid"

	"github.com/printcore/backend/internal/domain/shared"
	"github.com/printcore/backend/internal/domain/shared/valueobject"
)

// OptimizeFor selects the quote ranking strategy
type OptimizeFor string

const (
	// OptimizeCost ranks quotes by landed cost, cheapest first
	OptimizeCost OptimizeFor = "COST"
	// OptimizeSpeed ranks quotes by total lead time, fastest first
	OptimizeSpeed OptimizeFor = "SPEED"
)

// IsValid checks if the OptimizeFor is a valid value
func (o OptimizeFor) IsValid() bool {
	return o == OptimizeCost || o == OptimizeSpeed
}

// String returns the string representation of OptimizeFor
func (o OptimizeFor) String() string {
	return string(o)
}

// QuotePreference tunes quote selection. A preferred provider wins ties and
// near-ties; optimization picks the ranking axis.
type QuotePreference struct {
	Optimize          OptimizeFor  `json:"optimize"`
	PreferredProvider ProviderCode `json:"preferred_provider,omitempty"`
}

// QuoteRequest asks providers what producing and shipping an item would cost.
// RenditionID optionally names the rendition the quote is for; a failed or
// cancelled rendition refuses further quoting.
type QuoteRequest struct {
	Spec          PrintSpec       `json:"spec"`
	Quantity      int             `json:"quantity"`
	Destination   ShippingAddress `json:"destination"`
	ShippingLevel ShippingLevel   `json:"shipping_level"`
	RenditionID   *uuid.UUID      `json:"rendition_id,omitempty"`
}

// Validate checks the request before it is fanned out to providers
func (r *QuoteRequest) Validate() error {
	if err := r.Spec.Validate(); err != nil {
		return err
	}
	if r.Quantity < 1 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be at least 1")
	}
	if err := r.Destination.Validate(); err != nil {
		return err
	}
	if !r.ShippingLevel.IsValid() {
		return shared.NewDomainError("INVALID_SHIPPING_LEVEL", "Unknown shipping level: "+string(r.ShippingLevel))
	}
	return nil
}

// CostBreakdown itemizes a provider quote. Total covers goods, handling and
// tax; shipping is kept separate so callers can re-rank across shipping
// levels without re-quoting.
type CostBreakdown struct {
	UnitCost valueobject.Money `json:"unit_cost"`
	Shipping valueobject.Money `json:"shipping"`
	Handling valueobject.Money `json:"handling"`
	Tax      valueobject.Money `json:"tax"`
	Total    valueobject.Money `json:"total"`
}

// Landed returns the all-in cost including shipping, the comparison key for
// cost-ranked quote selection
func (c CostBreakdown) Landed() valueobject.Money {
	return c.Total.MustAdd(c.Shipping)
}

// Quote is one provider's answer to a QuoteRequest. A provider that cannot
// produce the spec answers with Available=false rather than an error; only
// transport and contract failures are errors.
type Quote struct {
	Provider          ProviderCode  `json:"provider"`
	Available         bool          `json:"available"`
	UnavailableReason string        `json:"unavailable_reason,omitempty"`
	Cost              CostBreakdown `json:"cost"`
	ProductionDays    int           `json:"production_days"`
	ShippingDays      int           `json:"shipping_days"`
	ExpiresAt         time.Time     `json:"expires_at"`
}

// NewUnavailableQuote builds the negative answer for a provider that cannot
// produce the requested spec
func NewUnavailableQuote(provider ProviderCode, reason string) Quote {
	return Quote{
		Provider:          provider,
		Available:         false,
		UnavailableReason: reason,
	}
}

// TotalLeadDays returns production plus shipping time, the comparison key
// for speed-ranked quote selection
func (q Quote) TotalLeadDays() int {
	return q.ProductionDays + q.ShippingDays
}

// IsExpired reports whether the quote can no longer back a submission
func (q Quote) IsExpired(now time.Time) bool {
	return !q.ExpiresAt.IsZero() && now.After(q.ExpiresAt)
}
