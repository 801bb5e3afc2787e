package fulfillment

import (
	"time"

	"github.com/google/uuid"
	"github.com/printcore/backend/internal/domain/pod"
)

// CreateOrderRequest opens a pending order against a chosen provider. The
// provider is normally the winner of a prior GetBestQuote call; when that
// quote is echoed back here, its expiry gates order creation.
type CreateOrderRequest struct {
	Spec          pod.PrintSpec       `json:"spec"`
	Quantity      int                 `json:"quantity"`
	Destination   pod.ShippingAddress `json:"destination"`
	ShippingLevel pod.ShippingLevel   `json:"shipping_level"`
	Provider      pod.ProviderCode    `json:"provider"`
	Quote         *pod.Quote          `json:"quote,omitempty"`
}

// SubmitOrderRequest pushes a pending order to its vendor. When a rendition
// is named, its preflight verdict gates the submission unless the caller
// explicitly accepts the risk.
type SubmitOrderRequest struct {
	OrderID               uuid.UUID  `json:"order_id"`
	RenditionID           *uuid.UUID `json:"rendition_id,omitempty"`
	AllowPreflightFailure bool       `json:"allow_preflight_failure,omitempty"`
}

// SubmitOrderResponse reports the submission outcome. Fallback is set only
// when the primary submission failed and a replacement order was opened on
// another provider.
type SubmitOrderResponse struct {
	Order    *OrderResponse `json:"order"`
	Fallback *OrderResponse `json:"fallback,omitempty"`
}

// CancelOrderResponse carries the vendor's answer to a cancellation attempt.
// A refusal past the production cutoff is a normal outcome, not an error.
type CancelOrderResponse struct {
	Cancelled bool           `json:"cancelled"`
	Message   string         `json:"message,omitempty"`
	Order     *OrderResponse `json:"order"`
}

// QuoteSetResponse is the aggregated answer of all capable providers.
// Quotes holds available offers sorted by landed cost ascending; Unavailable
// preserves each declining provider's reason for diagnostics.
type QuoteSetResponse struct {
	Quotes      []pod.Quote `json:"quotes"`
	Unavailable []pod.Quote `json:"unavailable,omitempty"`
}

// StatusUpdateResponse is one entry of an order's status history
type StatusUpdateResponse struct {
	From       string    `json:"from"`
	To         string    `json:"to"`
	Source     string    `json:"source"`
	Message    string    `json:"message,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ShipmentResponse is one physical parcel of an order
type ShipmentResponse struct {
	Carrier        string    `json:"carrier"`
	TrackingNumber string    `json:"tracking_number"`
	TrackingURL    string    `json:"tracking_url,omitempty"`
	ShippedAt      time.Time `json:"shipped_at"`
}

// OrderResponse is the outward-facing view of a print order
type OrderResponse struct {
	ID            uuid.UUID              `json:"id"`
	SpecID        string                 `json:"spec_id"`
	Quantity      int                    `json:"quantity"`
	Destination   pod.ShippingAddress    `json:"destination"`
	ShippingLevel string                 `json:"shipping_level"`
	Provider      string                 `json:"provider"`
	ExternalID    string                 `json:"external_id,omitempty"`
	Status        string                 `json:"status"`
	FallbackOf    *uuid.UUID             `json:"fallback_of,omitempty"`
	FailureReason string                 `json:"failure_reason,omitempty"`
	StatusHistory []StatusUpdateResponse `json:"status_history,omitempty"`
	Shipments     []ShipmentResponse     `json:"shipments,omitempty"`
	SubmittedAt   *time.Time             `json:"submitted_at,omitempty"`
	ShippedAt     *time.Time             `json:"shipped_at,omitempty"`
	DeliveredAt   *time.Time             `json:"delivered_at,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
	Version       int                    `json:"version"`
}

// ToOrderResponse converts a domain order to its response representation
func ToOrderResponse(order *pod.PrintOrder) OrderResponse {
	resp := OrderResponse{
		ID:            order.ID,
		SpecID:        order.SpecID,
		Quantity:      order.Quantity,
		Destination:   order.Destination,
		ShippingLevel: order.ShippingLevel.String(),
		Provider:      order.Provider.String(),
		ExternalID:    order.ExternalID,
		Status:        order.Status.String(),
		FallbackOf:    order.FallbackOf,
		FailureReason: order.FailureReason,
		SubmittedAt:   order.SubmittedAt,
		ShippedAt:     order.ShippedAt,
		DeliveredAt:   order.DeliveredAt,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
		Version:       order.Version,
	}

	for _, update := range order.StatusHistory {
		resp.StatusHistory = append(resp.StatusHistory, StatusUpdateResponse{
			From:       update.From.String(),
			To:         update.To.String(),
			Source:     string(update.Source),
			Message:    update.Message,
			OccurredAt: update.OccurredAt,
		})
	}

	for _, shipment := range order.Shipments {
		resp.Shipments = append(resp.Shipments, ShipmentResponse{
			Carrier:        shipment.Carrier,
			TrackingNumber: shipment.TrackingNumber,
			TrackingURL:    shipment.TrackingURL,
			ShippedAt:      shipment.ShippedAt,
		})
	}

	return resp
}
