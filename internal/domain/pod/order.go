package pod

import (
	"time"

	"github.com/google/uuid"
	"github.com/printcore/backend/internal/domain/shared"
)

// StatusSource records which channel reported a status change
type StatusSource string

const (
	// SourceInternal is a transition made by our own orchestration
	SourceInternal StatusSource = "INTERNAL"
	// SourceWebhook is a vendor push notification
	SourceWebhook StatusSource = "WEBHOOK"
	// SourcePoll is a vendor status poll
	SourcePoll StatusSource = "POLL"
)

// OrderStatusUpdate is one entry in an order's status history
type OrderStatusUpdate struct {
	ID         uuid.UUID    `json:"id"`
	OrderID    uuid.UUID    `json:"order_id"`
	From       OrderStatus  `json:"from"`
	To         OrderStatus  `json:"to"`
	Source     StatusSource `json:"source"`
	Message    string       `json:"message,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// TrackingInfo is carrier tracking data attached to a vendor status update
type TrackingInfo struct {
	Carrier string `json:"carrier"`
	Number  string `json:"number"`
	URL     string `json:"url,omitempty"`
}

// Shipment is one physical parcel of an order
type Shipment struct {
	ID             uuid.UUID `json:"id"`
	OrderID        uuid.UUID `json:"order_id"`
	Carrier        string    `json:"carrier"`
	TrackingNumber string    `json:"tracking_number"`
	TrackingURL    string    `json:"tracking_url,omitempty"`
	ShippedAt      time.Time `json:"shipped_at"`
}

// PrintOrder is the fulfillment aggregate: one print job placed with one
// provider. A fallback resubmission is a new PrintOrder linked to the failed
// original via FallbackOf, never a mutation of it.
type PrintOrder struct {
	shared.BaseAggregateRoot
	Spec          PrintSpec       `gorm:"-"`
	SpecID        string          `gorm:"size:64;not null;index"`
	Quantity      int             `gorm:"not null"`
	Destination   ShippingAddress `gorm:"serializer:json"`
	ShippingLevel ShippingLevel   `gorm:"size:16;not null"`
	Provider      ProviderCode    `gorm:"size:16;not null;index"`

	// ExternalID is the vendor's order identifier, set after submission
	ExternalID string      `gorm:"size:128;index"`
	Status     OrderStatus `gorm:"size:24;not null;index"`

	// FallbackOf links a resubmission to the failed order it replaces
	FallbackOf *uuid.UUID `gorm:"type:uuid;index"`

	// FailureReason is set when the order enters FAILED
	FailureReason string `gorm:"size:512"`

	StatusHistory []OrderStatusUpdate `gorm:"-"`
	Shipments     []Shipment          `gorm:"-"`

	SubmittedAt *time.Time
	ShippedAt   *time.Time
	DeliveredAt *time.Time

	// LastCheckedAt is when reconciliation last confirmed the vendor status
	LastCheckedAt *time.Time `gorm:"index"`
}

// NewPrintOrder creates a pending order for the given provider. The quote
// that justified the provider choice must still be valid at submission time;
// the order itself only records the outcome of that choice.
func NewPrintOrder(spec PrintSpec, quantity int, dest ShippingAddress, level ShippingLevel, provider ProviderCode) (*PrintOrder, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be at least 1")
	}
	if err := dest.Validate(); err != nil {
		return nil, err
	}
	if !level.IsValid() {
		return nil, shared.NewDomainError("INVALID_SHIPPING_LEVEL", "Unknown shipping level: "+string(level))
	}
	if !provider.IsValid() {
		return nil, shared.NewDomainError("INVALID_PROVIDER", "Unknown provider: "+string(provider))
	}

	order := &PrintOrder{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Spec:              spec,
		SpecID:            spec.ID,
		Quantity:          quantity,
		Destination:       dest,
		ShippingLevel:     level,
		Provider:          provider,
		Status:            StatusPending,
	}

	order.AddDomainEvent(NewOrderCreatedEvent(order))

	return order, nil
}

// NewFallbackOrder creates a replacement order against another provider after
// the original failed. The original must already be terminal.
func NewFallbackOrder(original *PrintOrder, provider ProviderCode) (*PrintOrder, error) {
	if original.Status != StatusFailed {
		return nil, shared.NewDomainError("INVALID_STATE",
			"Fallback requires the original order to be failed, not "+original.Status.String())
	}
	if provider == original.Provider {
		return nil, shared.NewDomainError("INVALID_PROVIDER", "Fallback must target a different provider")
	}

	order, err := NewPrintOrder(original.Spec, original.Quantity, original.Destination, original.ShippingLevel, provider)
	if err != nil {
		return nil, err
	}
	originalID := original.ID
	order.FallbackOf = &originalID

	return order, nil
}

// CanSubmit reports whether the order is still waiting to be sent to the vendor
func (o *PrintOrder) CanSubmit() bool {
	return o.Status == StatusPending
}

// MarkSubmitted records a successful vendor submission
func (o *PrintOrder) MarkSubmitted(externalID string) error {
	if !o.CanSubmit() {
		return shared.NewDomainError("INVALID_STATE",
			"Cannot submit an order in status "+o.Status.String())
	}
	if externalID == "" {
		return shared.NewDomainError("INVALID_EXTERNAL_ID", "Vendor order ID cannot be empty")
	}

	now := time.Now()
	o.ExternalID = externalID
	o.SubmittedAt = &now
	o.recordTransition(StatusSubmitted, SourceInternal, "")
	o.AddDomainEvent(NewOrderSubmittedEvent(o))

	return nil
}

// MarkFailed moves the order to FAILED with a reason. Terminal orders stay put.
func (o *PrintOrder) MarkFailed(reason string) error {
	if o.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE",
			"Cannot fail an order already in terminal status "+o.Status.String())
	}

	o.FailureReason = reason
	o.recordTransition(StatusFailed, SourceInternal, reason)
	o.AddDomainEvent(NewOrderFailedEvent(o, reason))

	return nil
}

// Cancel moves the order to CANCELLED. Orders past production cannot be
// cancelled locally; that negotiation happens with the vendor first.
func (o *PrintOrder) Cancel(message string) error {
	if !o.Status.CanTransitionTo(StatusCancelled) {
		return shared.NewDomainError("INVALID_STATE",
			"Cannot cancel an order in status "+o.Status.String())
	}

	o.recordTransition(StatusCancelled, SourceInternal, message)
	o.AddDomainEvent(NewOrderCancelledEvent(o))

	return nil
}

// ApplyStatus applies a vendor-reported status if it is a forward transition.
// Stale or duplicate reports return changed=false with no error; reports are
// facts about the past and dropping an out-of-date one is not a failure.
func (o *PrintOrder) ApplyStatus(status OrderStatus, source StatusSource, message string, tracking *TrackingInfo) (changed bool, err error) {
	if !status.IsValid() {
		return false, shared.NewDomainError("INVALID_STATUS", "Unknown order status: "+string(status))
	}

	if tracking != nil && tracking.Number != "" {
		if o.attachShipment(*tracking) {
			changed = true
		}
	}

	if status == o.Status || !o.Status.CanTransitionTo(status) {
		o.touchChecked()
		return changed, nil
	}

	from := o.Status
	now := time.Now()
	switch status {
	case StatusInTransit:
		if o.ShippedAt == nil {
			o.ShippedAt = &now
		}
	case StatusDelivered:
		if o.ShippedAt == nil {
			o.ShippedAt = &now
		}
		o.DeliveredAt = &now
	case StatusFailed:
		o.FailureReason = message
	}

	o.recordTransition(status, source, message)
	o.AddDomainEvent(NewOrderStatusChangedEvent(o, from, status, source))
	if status == StatusDelivered {
		o.AddDomainEvent(NewOrderDeliveredEvent(o))
	}

	return true, nil
}

// attachShipment records a shipment if the tracking number is new
func (o *PrintOrder) attachShipment(t TrackingInfo) bool {
	for _, s := range o.Shipments {
		if s.TrackingNumber == t.Number {
			return false
		}
	}
	o.Shipments = append(o.Shipments, Shipment{
		ID:             uuid.New(),
		OrderID:        o.ID,
		Carrier:        t.Carrier,
		TrackingNumber: t.Number,
		TrackingURL:    t.URL,
		ShippedAt:      time.Now(),
	})
	o.Touch()
	return true
}

// recordTransition applies the transition and appends it to the history
func (o *PrintOrder) recordTransition(to OrderStatus, source StatusSource, message string) {
	from := o.Status
	now := time.Now()
	o.Status = to
	o.UpdatedAt = now
	o.LastCheckedAt = &now
	o.IncrementVersion()
	o.StatusHistory = append(o.StatusHistory, OrderStatusUpdate{
		ID:         uuid.New(),
		OrderID:    o.ID,
		From:       from,
		To:         to,
		Source:     source,
		Message:    message,
		OccurredAt: now,
	})
}

// touchChecked bumps the reconciliation timestamp without a transition
func (o *PrintOrder) touchChecked() {
	now := time.Now()
	o.LastCheckedAt = &now
	o.UpdatedAt = now
}

// IsTerminal reports whether the order has reached a final state
func (o *PrintOrder) IsTerminal() bool {
	return o.Status.IsTerminal()
}

// IsFallback reports whether this order replaced a failed one
func (o *PrintOrder) IsFallback() bool {
	return o.FallbackOf != nil
}
