package pod

import (
	"context"
	"errors"

	"github.com/printcore/backend/internal/domain/preflight"
)

// Provider error taxonomy. Adapters translate vendor-specific failures into
// these so callers can branch without knowing which vendor they talk to.
var (
	// ErrProviderUnavailable means the vendor API is unreachable or degraded
	ErrProviderUnavailable = errors.New("pod: provider unavailable")
	// ErrInvalidSpec means the vendor cannot produce the requested spec at all
	ErrInvalidSpec = errors.New("pod: spec not producible by provider")
	// ErrQuoteExpired means the quote backing a submission is no longer valid
	ErrQuoteExpired = errors.New("pod: quote expired")
	// ErrSubmissionConflict means the vendor already has an order for this key
	ErrSubmissionConflict = errors.New("pod: submission already in progress")
	// ErrVendorRejected means the vendor refused the files after submission
	ErrVendorRejected = errors.New("pod: vendor rejected order")
	// ErrOrderNotFound means the vendor does not know the external order ID
	ErrOrderNotFound = errors.New("pod: order not found at provider")
	// ErrWebhookParse means a webhook payload could not be understood
	ErrWebhookParse = errors.New("pod: unparseable webhook payload")
)

// CreateOrderRequest is the submission payload handed to a provider adapter
type CreateOrderRequest struct {
	// IdempotencyKey deduplicates retried submissions on the vendor side
	// where the vendor supports it
	IdempotencyKey string
	Spec           PrintSpec
	Quantity       int
	Destination    ShippingAddress
	ShippingLevel  ShippingLevel
}

// CreateOrderResult is the vendor's acknowledgement of a submission
type CreateOrderResult struct {
	// ExternalID is the vendor's identifier for the order
	ExternalID string
	// Status is the canonical status the vendor reported at creation
	Status OrderStatus
}

// OrderStatusResult is the vendor's answer to a status poll
type OrderStatusResult struct {
	Status   OrderStatus
	Message  string
	Tracking *TrackingInfo
}

// CancelResult reports the outcome of a cancellation attempt. Vendors refuse
// cancellation once production starts; that refusal is a result, not an error.
type CancelResult struct {
	Cancelled bool
	Message   string
}

// WebhookUpdate is a vendor push notification translated to canonical form
type WebhookUpdate struct {
	// ExternalOrderID is the vendor's order identifier
	ExternalOrderID string
	// EventID is the vendor's notification identifier, used for deduplication
	EventID  string
	Status   OrderStatus
	Message  string
	Tracking *TrackingInfo
}

// ProviderAdapter is the port every print vendor integration implements.
// Adapters own all vendor-specific wire formats, status vocabularies and
// authentication; everything above this interface is vendor-agnostic.
type ProviderAdapter interface {
	// Code identifies the vendor
	Code() ProviderCode

	// SupportsSpec is a cheap, synchronous capability check (trim size,
	// binding, page-count range) used to filter which adapters are even
	// asked for a quote. It never touches the network.
	SupportsSpec(spec PrintSpec) bool

	// GetQuote prices the request. An unproducible spec yields an
	// Available=false quote; errors are reserved for transport failures.
	GetQuote(ctx context.Context, req QuoteRequest) (Quote, error)

	// Preflight runs vendor-specific file validation on top of the generic
	// engine checks. Vendors without extra rules return an empty result.
	Preflight(ctx context.Context, spec PrintSpec) (*preflight.Result, error)

	// CreateOrder submits the order to the vendor
	CreateOrder(ctx context.Context, req CreateOrderRequest) (CreateOrderResult, error)

	// GetOrderStatus polls the vendor for the order's current state
	GetOrderStatus(ctx context.Context, externalID string) (OrderStatusResult, error)

	// CancelOrder asks the vendor to cancel
	CancelOrder(ctx context.Context, externalID string) (CancelResult, error)

	// ParseWebhook verifies and translates a raw webhook delivery
	ParseWebhook(ctx context.Context, signature string, body []byte) (WebhookUpdate, error)
}

// ProviderRegistry resolves adapters by code and enumerates the active set
type ProviderRegistry interface {
	// Get returns the adapter for a provider code
	Get(code ProviderCode) (ProviderAdapter, error)
	// All returns every registered adapter in registration order
	All() []ProviderAdapter
	// Codes returns the registered provider codes in registration order
	Codes() []ProviderCode
}
