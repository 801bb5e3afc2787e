package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/printcore/backend/internal/domain/pod"
	"github.com/printcore/backend/internal/domain/preflight"
	"github.com/printcore/backend/internal/domain/shared/valueobject"
)

// Constants for the Peecho API
const (
	// maxPeechoResponseSize limits the response body size to prevent memory exhaustion
	maxPeechoResponseSize = 10 * 1024 * 1024 // 10MB max response
	// mmPerInch converts trim sizes; Peecho thinks metric
	mmPerInch = 25.4
	// peechoDefaultQuoteValidity applies when the vendor omits validUntil
	peechoDefaultQuoteValidity = 12 * time.Hour
)

// Peecho production capabilities
const (
	peechoMinTrimIn = 3.5
	peechoMaxTrimIn = 13.0
)

// PeechoAdapter implements the ProviderAdapter interface for the Peecho print API
type PeechoAdapter struct {
	config     *PeechoConfig
	httpClient *http.Client
}

// NewPeechoAdapter creates a new Peecho adapter with the given configuration
func NewPeechoAdapter(config *PeechoConfig) (*PeechoAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &PeechoAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// Code returns the provider code this adapter handles
func (a *PeechoAdapter) Code() pod.ProviderCode {
	return pod.ProviderPeecho
}

// SupportsSpec checks the spec against Peecho's production capabilities.
// Peecho handles large-format trims that Lulu does not, but produces no
// plastic coil. Never touches the network.
func (a *PeechoAdapter) SupportsSpec(spec pod.PrintSpec) bool {
	if spec.Trim.WidthIn < peechoMinTrimIn || spec.Trim.HeightIn < peechoMinTrimIn {
		return false
	}
	if spec.Trim.WidthIn > peechoMaxTrimIn || spec.Trim.HeightIn > peechoMaxTrimIn {
		return false
	}

	switch spec.Binding {
	case pod.BindingPerfect:
		return spec.PageCount >= 40 && spec.PageCount <= 700
	case pod.BindingSaddle:
		return spec.PageCount >= 8 && spec.PageCount <= 60
	case pod.BindingCasewrap:
		return spec.PageCount >= 24 && spec.PageCount <= 500
	case pod.BindingSpiral, pod.BindingWireO:
		return spec.PageCount >= 20 && spec.PageCount <= 300
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// Quoting
// ---------------------------------------------------------------------------

// GetQuote prices the request. Transport and vendor failures come back as
// unavailable quotes, never errors.
func (a *PeechoAdapter) GetQuote(ctx context.Context, req pod.QuoteRequest) (pod.Quote, error) {
	if !a.SupportsSpec(req.Spec) {
		return pod.NewUnavailableQuote(pod.ProviderPeecho, "spec outside production capabilities"), nil
	}

	quoteReq := PeechoQuoteRequest{
		MerchantID:      a.config.MerchantID,
		Product:         toPeechoProduct(req.Spec, req.Quantity),
		ShippingAddress: toPeechoAddress(req.Destination),
		DeliveryType:    mapToPeechoDeliveryType(req.ShippingLevel),
	}

	respBody, statusCode, err := a.doRequest(ctx, http.MethodPost, "/rest/v3/quotes", quoteReq)
	if err != nil {
		return pod.NewUnavailableQuote(pod.ProviderPeecho, err.Error()), nil
	}
	if statusCode >= 400 {
		return pod.NewUnavailableQuote(pod.ProviderPeecho, fmt.Sprintf("quote failed: HTTP %d", statusCode)), nil
	}

	var resp PeechoQuoteResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return pod.NewUnavailableQuote(pod.ProviderPeecho, "unparseable quote response"), nil
	}
	if !resp.Producible {
		reason := resp.RejectionMessage
		if reason == "" {
			reason = "vendor cannot produce this spec"
		}
		return pod.NewUnavailableQuote(pod.ProviderPeecho, reason), nil
	}

	currency := valueobject.Currency(resp.Currency)
	if currency == "" {
		currency = valueobject.EUR
	}

	unitCost, err := valueobject.NewMoneyFromFloat(resp.UnitPrice, currency)
	if err != nil {
		return pod.NewUnavailableQuote(pod.ProviderPeecho, "bad unit price"), nil
	}
	goods, _ := valueobject.NewMoneyFromFloat(resp.ProductPrice, currency)
	shipping, _ := valueobject.NewMoneyFromFloat(resp.ShippingPrice, currency)
	handling, _ := valueobject.NewMoneyFromFloat(resp.HandlingFee, currency)
	tax, _ := valueobject.NewMoneyFromFloat(resp.Vat, currency)

	expiresAt := time.Now().Add(peechoDefaultQuoteValidity)
	if resp.ValidUntilEpoch > 0 {
		expiresAt = time.Unix(resp.ValidUntilEpoch, 0)
	}

	return pod.Quote{
		Provider:  pod.ProviderPeecho,
		Available: true,
		Cost: pod.CostBreakdown{
			UnitCost: unitCost,
			Shipping: shipping,
			Handling: handling,
			Tax:      tax,
			Total:    goods.MustAdd(handling).MustAdd(tax),
		},
		ProductionDays: resp.ProductionDays,
		ShippingDays:   resp.DeliveryDays,
		ExpiresAt:      expiresAt,
	}, nil
}

// ---------------------------------------------------------------------------
// Preflight
// ---------------------------------------------------------------------------

// Preflight applies Peecho-specific file rules. Peecho punches spiral and
// wire-o hardware itself, so wire capacity is checked against its tables
// before submission instead of failing at the bindery.
func (a *PeechoAdapter) Preflight(_ context.Context, spec pod.PrintSpec) (*preflight.Result, error) {
	var errs, warns []preflight.Issue

	if spec.Binding == pod.BindingCoil {
		errs = append(errs, preflight.Issue{
			Code:     preflight.CodeVendorRejection,
			Message:  "Peecho does not produce plastic coil bindings",
			Severity: preflight.SeverityHigh,
		})
	}

	if spec.Binding.IsSpiralFamily() && spec.Spiral != nil {
		for _, issue := range preflight.CheckWireSizeCompatibility(spec.Spiral.WirePitch, spec.PageCount) {
			if issue.Severity == preflight.SeverityHigh {
				errs = append(errs, issue)
			} else {
				warns = append(warns, issue)
			}
		}
	}

	return preflight.NewResult(errs, warns), nil
}

// ---------------------------------------------------------------------------
// Order Operations
// ---------------------------------------------------------------------------

// CreateOrder submits the order. The idempotency key rides as the
// merchantReference; a duplicate reference conflicts instead of
// double-printing.
func (a *PeechoAdapter) CreateOrder(ctx context.Context, req pod.CreateOrderRequest) (pod.CreateOrderResult, error) {
	orderReq := PeechoOrderRequest{
		MerchantID:        a.config.MerchantID,
		MerchantReference: req.IdempotencyKey,
		Product:           toPeechoProduct(req.Spec, req.Quantity),
		ShippingAddress:   toPeechoAddress(req.Destination),
		DeliveryType:      mapToPeechoDeliveryType(req.ShippingLevel),
	}

	respBody, statusCode, err := a.doRequest(ctx, http.MethodPost, "/rest/v3/orders", orderReq)
	if err != nil {
		return pod.CreateOrderResult{}, err
	}

	switch {
	case statusCode == http.StatusConflict:
		return pod.CreateOrderResult{}, fmt.Errorf("%w: merchantReference %s already used", pod.ErrSubmissionConflict, req.IdempotencyKey)
	case statusCode == http.StatusBadRequest || statusCode == http.StatusUnprocessableEntity:
		return pod.CreateOrderResult{}, fmt.Errorf("%w: %s", pod.ErrVendorRejected, peechoErrorMessage(respBody))
	case statusCode >= 400:
		return pod.CreateOrderResult{}, fmt.Errorf("%w: HTTP %d", pod.ErrProviderUnavailable, statusCode)
	}

	var resp PeechoOrderResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return pod.CreateOrderResult{}, fmt.Errorf("peecho: failed to parse response: %w", err)
	}
	if resp.OrderID == "" {
		return pod.CreateOrderResult{}, fmt.Errorf("%w: response missing order ID", pod.ErrProviderUnavailable)
	}

	return pod.CreateOrderResult{
		ExternalID: resp.OrderID,
		Status:     mapPeechoState(resp.State),
	}, nil
}

// GetOrderStatus polls an order's current state
func (a *PeechoAdapter) GetOrderStatus(ctx context.Context, externalID string) (pod.OrderStatusResult, error) {
	respBody, statusCode, err := a.doRequest(ctx, http.MethodGet, "/rest/v3/orders/"+externalID, nil)
	if err != nil {
		return pod.OrderStatusResult{}, err
	}

	if statusCode == http.StatusNotFound {
		return pod.OrderStatusResult{}, fmt.Errorf("%w: order %s", pod.ErrOrderNotFound, externalID)
	}
	if statusCode >= 400 {
		return pod.OrderStatusResult{}, fmt.Errorf("%w: HTTP %d", pod.ErrProviderUnavailable, statusCode)
	}

	var resp PeechoOrderResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return pod.OrderStatusResult{}, fmt.Errorf("peecho: failed to parse response: %w", err)
	}

	return pod.OrderStatusResult{
		Status:   mapPeechoState(resp.State),
		Message:  resp.StateMessage,
		Tracking: peechoTracking(resp.Shipping),
	}, nil
}

// CancelOrder asks Peecho to cancel. A refusal after production has started
// is a result, not an error.
func (a *PeechoAdapter) CancelOrder(ctx context.Context, externalID string) (pod.CancelResult, error) {
	respBody, statusCode, err := a.doRequest(ctx, http.MethodPost, "/rest/v3/orders/"+externalID+"/cancel", nil)
	if err != nil {
		return pod.CancelResult{}, err
	}

	switch {
	case statusCode == http.StatusNotFound:
		return pod.CancelResult{}, fmt.Errorf("%w: order %s", pod.ErrOrderNotFound, externalID)
	case statusCode >= 500:
		return pod.CancelResult{}, fmt.Errorf("%w: HTTP %d", pod.ErrProviderUnavailable, statusCode)
	}

	var resp PeechoCancelResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return pod.CancelResult{}, fmt.Errorf("peecho: failed to parse response: %w", err)
	}

	return pod.CancelResult{Cancelled: resp.Cancelled, Message: resp.Reason}, nil
}

// ---------------------------------------------------------------------------
// Webhooks
// ---------------------------------------------------------------------------

// ParseWebhook verifies the delivery signature when a webhook secret is
// configured and translates the payload
func (a *PeechoAdapter) ParseWebhook(_ context.Context, signature string, body []byte) (pod.WebhookUpdate, error) {
	if !a.config.VerifyWebhook(signature, body) {
		return pod.WebhookUpdate{}, fmt.Errorf("%w: bad signature", pod.ErrWebhookParse)
	}

	var payload PeechoWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return pod.WebhookUpdate{}, fmt.Errorf("%w: %v", pod.ErrWebhookParse, err)
	}
	if payload.OrderID == "" {
		return pod.WebhookUpdate{}, fmt.Errorf("%w: missing order ID", pod.ErrWebhookParse)
	}
	if payload.State == "" {
		return pod.WebhookUpdate{}, fmt.Errorf("%w: missing state", pod.ErrWebhookParse)
	}

	return pod.WebhookUpdate{
		ExternalOrderID: payload.OrderID,
		EventID:         payload.NotificationID,
		Status:          mapPeechoState(payload.State),
		Message:         payload.StateMessage,
		Tracking:        peechoTracking(payload.Shipping),
	}, nil
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// doRequest performs an HTTP request to the Peecho API
func (a *PeechoAdapter) doRequest(ctx context.Context, method, path string, body any) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("peecho: failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.config.APIBaseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("peecho: failed to create request: %w", err)
	}

	req.Header.Set("X-Api-Key", a.config.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", pod.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxPeechoResponseSize))
	if err != nil {
		return nil, 0, fmt.Errorf("peecho: failed to read response: %w", err)
	}

	return respBody, resp.StatusCode, nil
}

// peechoErrorMessage extracts the human-readable message from an error envelope
func peechoErrorMessage(body []byte) string {
	var e PeechoErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		return e.Message
	}
	return "vendor rejected the request"
}

// peechoTracking converts shipping info to canonical tracking
func peechoTracking(s *PeechoShipping) *pod.TrackingInfo {
	if s == nil || s.TrackingCode == "" {
		return nil
	}
	return &pod.TrackingInfo{
		Carrier: s.Carrier,
		Number:  s.TrackingCode,
		URL:     s.TrackingURL,
	}
}

// toPeechoProduct converts the canonical spec to the Peecho product shape
func toPeechoProduct(spec pod.PrintSpec, quantity int) PeechoProduct {
	return PeechoProduct{
		OfferingID:    peechoOfferingID(spec),
		WidthMm:       int(math.Round(spec.Trim.WidthIn * mmPerInch)),
		HeightMm:      int(math.Round(spec.Trim.HeightIn * mmPerInch)),
		NumberOfPages: spec.PageCount,
		Quantity:      quantity,
		ContentURL:    spec.InteriorPDFURL,
		CoverURL:      spec.CoverPDFURL,
	}
}

// toPeechoAddress converts the canonical address to the Peecho wire shape
func toPeechoAddress(addr pod.ShippingAddress) PeechoAddress {
	return PeechoAddress{
		RecipientName: addr.Name,
		AddressLine1:  addr.Street1,
		AddressLine2:  addr.Street2,
		City:          addr.City,
		Region:        addr.State,
		ZipCode:       addr.PostalCode,
		Country:       addr.CountryCode,
		PhoneNumber:   addr.Phone,
		EmailAddress:  addr.Email,
	}
}

// peechoOfferingID maps the spec to Peecho's offering catalog
func peechoOfferingID(spec pod.PrintSpec) string {
	binding := "softcover"
	switch spec.Binding {
	case pod.BindingSaddle:
		binding = "saddle-stitched"
	case pod.BindingCasewrap:
		binding = "hardcover"
	case pod.BindingSpiral:
		binding = "spiral"
	case pod.BindingWireO:
		binding = "wire-o"
	}

	paper := "premium-uncoated"
	switch spec.Paper {
	case pod.Paper80lbCoated:
		paper = "premium-coated"
	case pod.Paper100lbPhoto:
		paper = "photo-lustre"
	}

	return binding + "-" + paper
}

// mapPeechoState maps Peecho order states to canonical order status.
// Unknown vendor states map to pending rather than failing the update.
func mapPeechoState(state string) pod.OrderStatus {
	switch state {
	case PeechoStateOrderReceived:
		return pod.StatusSubmitted
	case PeechoStatePreflightOK:
		return pod.StatusAccepted
	case PeechoStateOnHold:
		return pod.StatusOnHold
	case PeechoStatePrinting:
		return pod.StatusInProduction
	case PeechoStateShipped:
		return pod.StatusInTransit
	case PeechoStateDelivered:
		return pod.StatusDelivered
	case PeechoStateCancelled:
		return pod.StatusCancelled
	case PeechoStateRejected, PeechoStateError:
		return pod.StatusFailed
	default:
		return pod.StatusPending
	}
}

// mapToPeechoDeliveryType maps the canonical shipping level to Peecho's vocabulary
func mapToPeechoDeliveryType(level pod.ShippingLevel) string {
	switch level {
	case pod.ShippingMail:
		return "standard"
	case pod.ShippingGround:
		return "tracked"
	case pod.ShippingExpedited:
		return "expedited"
	case pod.ShippingExpress:
		return "express"
	default:
		return "standard"
	}
}

// Ensure PeechoAdapter implements the ProviderAdapter interface
var _ pod.ProviderAdapter = (*PeechoAdapter)(nil)
