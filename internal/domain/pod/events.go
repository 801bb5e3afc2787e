package pod

import (
	"github.com/google/uuid"
	"github.com/printcore/backend/internal/domain/shared"
)

// Aggregate type constants
const (
	AggregateTypePrintOrder = "PrintOrder"
)

// Event type constants for PrintOrder
const (
	EventTypeOrderCreated       = "PrintOrderCreated"
	EventTypeOrderSubmitted     = "PrintOrderSubmitted"
	EventTypeOrderStatusChanged = "PrintOrderStatusChanged"
	EventTypeOrderDelivered     = "PrintOrderDelivered"
	EventTypeOrderCancelled     = "PrintOrderCancelled"
	EventTypeOrderFailed        = "PrintOrderFailed"
)

// OrderCreatedEvent is published when a new print order is created
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderID    uuid.UUID    `json:"order_id"`
	SpecID     string       `json:"spec_id"`
	Provider   ProviderCode `json:"provider"`
	Quantity   int          `json:"quantity"`
	FallbackOf *uuid.UUID   `json:"fallback_of,omitempty"`
}

// NewOrderCreatedEvent creates a new OrderCreatedEvent
func NewOrderCreatedEvent(order *PrintOrder) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCreated, AggregateTypePrintOrder, order.ID),
		OrderID:         order.ID,
		SpecID:          order.SpecID,
		Provider:        order.Provider,
		Quantity:        order.Quantity,
		FallbackOf:      order.FallbackOf,
	}
}

// OrderSubmittedEvent is published when the vendor acknowledges the order
type OrderSubmittedEvent struct {
	shared.BaseDomainEvent
	OrderID    uuid.UUID    `json:"order_id"`
	Provider   ProviderCode `json:"provider"`
	ExternalID string       `json:"external_id"`
}

// NewOrderSubmittedEvent creates a new OrderSubmittedEvent
func NewOrderSubmittedEvent(order *PrintOrder) *OrderSubmittedEvent {
	return &OrderSubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderSubmitted, AggregateTypePrintOrder, order.ID),
		OrderID:         order.ID,
		Provider:        order.Provider,
		ExternalID:      order.ExternalID,
	}
}

// OrderStatusChangedEvent is published on every status transition
type OrderStatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderID  uuid.UUID    `json:"order_id"`
	Provider ProviderCode `json:"provider"`
	From     OrderStatus  `json:"from"`
	To       OrderStatus  `json:"to"`
	Source   StatusSource `json:"source"`
}

// NewOrderStatusChangedEvent creates a new OrderStatusChangedEvent
func NewOrderStatusChangedEvent(order *PrintOrder, from, to OrderStatus, source StatusSource) *OrderStatusChangedEvent {
	return &OrderStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderStatusChanged, AggregateTypePrintOrder, order.ID),
		OrderID:         order.ID,
		Provider:        order.Provider,
		From:            from,
		To:              to,
		Source:          source,
	}
}

// OrderDeliveredEvent is published when the carrier confirms delivery
type OrderDeliveredEvent struct {
	shared.BaseDomainEvent
	OrderID  uuid.UUID    `json:"order_id"`
	Provider ProviderCode `json:"provider"`
}

// NewOrderDeliveredEvent creates a new OrderDeliveredEvent
func NewOrderDeliveredEvent(order *PrintOrder) *OrderDeliveredEvent {
	return &OrderDeliveredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderDelivered, AggregateTypePrintOrder, order.ID),
		OrderID:         order.ID,
		Provider:        order.Provider,
	}
}

// OrderCancelledEvent is published when an order is cancelled
type OrderCancelledEvent struct {
	shared.BaseDomainEvent
	OrderID  uuid.UUID    `json:"order_id"`
	Provider ProviderCode `json:"provider"`
}

// NewOrderCancelledEvent creates a new OrderCancelledEvent
func NewOrderCancelledEvent(order *PrintOrder) *OrderCancelledEvent {
	return &OrderCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCancelled, AggregateTypePrintOrder, order.ID),
		OrderID:         order.ID,
		Provider:        order.Provider,
	}
}

// OrderFailedEvent is published when an order fails permanently
type OrderFailedEvent struct {
	shared.BaseDomainEvent
	OrderID  uuid.UUID    `json:"order_id"`
	Provider ProviderCode `json:"provider"`
	Reason   string       `json:"reason"`
}

// NewOrderFailedEvent creates a new OrderFailedEvent
func NewOrderFailedEvent(order *PrintOrder, reason string) *OrderFailedEvent {
	return &OrderFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderFailed, AggregateTypePrintOrder, order.ID),
		OrderID:         order.ID,
		Provider:        order.Provider,
		Reason:          reason,
	}
}
