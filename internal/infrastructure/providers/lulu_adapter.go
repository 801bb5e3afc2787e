package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/printcore/backend/internal/domain/pod"
	"github.com/printcore/backend/internal/domain/preflight"
	"github.com/printcore/backend/internal/domain/shared/valueobject"
)

// Constants for the Lulu API
const (
	// maxLuluResponseSize limits the response body size to prevent memory exhaustion
	maxLuluResponseSize = 10 * 1024 * 1024 // 10MB max response
	// luluDefaultQuoteValidity applies when the vendor omits validity_seconds
	luluDefaultQuoteValidity = 24 * time.Hour
)

// Lulu production capabilities. Outside these bounds SupportsSpec answers
// false and the adapter is never asked for a quote.
const (
	luluMinTrimIn       = 4.0
	luluMaxTrimWidthIn  = 8.5
	luluMaxTrimHeightIn = 11.0
)

// LuluAdapter implements the ProviderAdapter interface for the Lulu print API
type LuluAdapter struct {
	config     *LuluConfig
	httpClient *http.Client
}

// NewLuluAdapter creates a new Lulu adapter with the given configuration
func NewLuluAdapter(config *LuluConfig) (*LuluAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &LuluAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// Code returns the provider code this adapter handles
func (a *LuluAdapter) Code() pod.ProviderCode {
	return pod.ProviderLulu
}

// SupportsSpec checks the spec against Lulu's production capabilities.
// Never touches the network.
func (a *LuluAdapter) SupportsSpec(spec pod.PrintSpec) bool {
	if spec.Trim.WidthIn < luluMinTrimIn || spec.Trim.HeightIn < luluMinTrimIn {
		return false
	}
	if spec.Trim.WidthIn > luluMaxTrimWidthIn || spec.Trim.HeightIn > luluMaxTrimHeightIn {
		return false
	}

	switch spec.Binding {
	case pod.BindingPerfect:
		return spec.PageCount >= 32 && spec.PageCount <= 800
	case pod.BindingSaddle:
		return spec.PageCount >= 4 && spec.PageCount <= 48
	case pod.BindingCasewrap:
		return spec.PageCount >= 24 && spec.PageCount <= 800
	case pod.BindingCoil:
		return spec.PageCount >= 24 && spec.PageCount <= 470
	default:
		// Lulu does not produce spiral or wire-o bindings
		return false
	}
}

// ---------------------------------------------------------------------------
// Quoting
// ---------------------------------------------------------------------------

// GetQuote prices the request via the cost calculation endpoint. Any
// transport or vendor failure yields an unavailable quote, never an error;
// one broken vendor must not sink the aggregate quote call.
func (a *LuluAdapter) GetQuote(ctx context.Context, req pod.QuoteRequest) (pod.Quote, error) {
	if !a.SupportsSpec(req.Spec) {
		return pod.NewUnavailableQuote(pod.ProviderLulu, "spec outside production capabilities"), nil
	}

	costReq := LuluCostRequest{
		LineItems: []LuluLineItem{{
			PodPackageID: luluPodPackageID(req.Spec),
			PageCount:    req.Spec.PageCount,
			Quantity:     req.Quantity,
		}},
		ShippingAddress: toLuluAddress(req.Destination),
		ShippingLevel:   mapToLuluShippingLevel(req.ShippingLevel),
	}

	respBody, statusCode, err := a.doRequest(ctx, http.MethodPost, "/print-job-cost-calculations/", costReq)
	if err != nil {
		return pod.NewUnavailableQuote(pod.ProviderLulu, err.Error()), nil
	}
	if statusCode >= 400 {
		return pod.NewUnavailableQuote(pod.ProviderLulu, fmt.Sprintf("cost calculation failed: HTTP %d", statusCode)), nil
	}

	var resp LuluCostResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return pod.NewUnavailableQuote(pod.ProviderLulu, "unparseable cost response"), nil
	}
	if len(resp.LineItemCosts) == 0 {
		return pod.NewUnavailableQuote(pod.ProviderLulu, "cost response missing line items"), nil
	}

	cost, err := a.buildCostBreakdown(&resp)
	if err != nil {
		return pod.NewUnavailableQuote(pod.ProviderLulu, err.Error()), nil
	}

	validity := luluDefaultQuoteValidity
	if resp.ValiditySeconds > 0 {
		validity = time.Duration(resp.ValiditySeconds) * time.Second
	}

	return pod.Quote{
		Provider:       pod.ProviderLulu,
		Available:      true,
		Cost:           cost,
		ProductionDays: resp.FabricationDays,
		ShippingDays:   resp.ShippingDays,
		ExpiresAt:      time.Now().Add(validity),
	}, nil
}

// buildCostBreakdown converts the vendor's decimal strings into Money
func (a *LuluAdapter) buildCostBreakdown(resp *LuluCostResponse) (pod.CostBreakdown, error) {
	currency := valueobject.Currency(resp.Currency)
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}

	unitCost, err := valueobject.NewMoneyFromString(resp.LineItemCosts[0].UnitCost, currency)
	if err != nil {
		return pod.CostBreakdown{}, fmt.Errorf("lulu: bad unit cost: %w", err)
	}
	goods, err := valueobject.NewMoneyFromString(resp.LineItemCosts[0].CostExclTax, currency)
	if err != nil {
		return pod.CostBreakdown{}, fmt.Errorf("lulu: bad line item cost: %w", err)
	}
	shipping, err := valueobject.NewMoneyFromString(resp.ShippingCost.CostExclTax, currency)
	if err != nil {
		return pod.CostBreakdown{}, fmt.Errorf("lulu: bad shipping cost: %w", err)
	}
	handling, err := valueobject.NewMoneyFromString(resp.FulfillmentCost.CostExclTax, currency)
	if err != nil {
		return pod.CostBreakdown{}, fmt.Errorf("lulu: bad fulfillment cost: %w", err)
	}
	tax, err := valueobject.NewMoneyFromString(resp.TotalTax, currency)
	if err != nil {
		return pod.CostBreakdown{}, fmt.Errorf("lulu: bad tax: %w", err)
	}

	total := goods.MustAdd(handling).MustAdd(tax)
	return pod.CostBreakdown{
		UnitCost: unitCost,
		Shipping: shipping,
		Handling: handling,
		Tax:      tax,
		Total:    total,
	}, nil
}

// ---------------------------------------------------------------------------
// Preflight
// ---------------------------------------------------------------------------

// Preflight applies Lulu-specific file rules on top of the generic engine
// checks. These never touch the network; Lulu's real validation happens
// again on their side after submission.
func (a *LuluAdapter) Preflight(_ context.Context, spec pod.PrintSpec) (*preflight.Result, error) {
	var errs, warns []preflight.Issue

	if spec.Binding.IsSpiralFamily() && spec.Binding != pod.BindingCoil {
		errs = append(errs, preflight.Issue{
			Code:     preflight.CodeVendorRejection,
			Message:  fmt.Sprintf("Lulu does not produce %s bindings", spec.Binding),
			Severity: preflight.SeverityHigh,
		})
	}

	if spec.ColorSpace == pod.ColorSpaceRGB {
		warns = append(warns, preflight.Issue{
			Code:     preflight.CodePDFXCompliance,
			Message:  "Lulu converts RGB interiors to CMYK during production; expect color shift",
			Severity: preflight.SeverityMedium,
		})
	}

	return preflight.NewResult(errs, warns), nil
}

// ---------------------------------------------------------------------------
// Order Operations
// ---------------------------------------------------------------------------

// CreateOrder submits a print job. The idempotency key rides as the
// external_id, which Lulu enforces as unique per account: a retried
// submission with the same key conflicts instead of double-printing.
func (a *LuluAdapter) CreateOrder(ctx context.Context, req pod.CreateOrderRequest) (pod.CreateOrderResult, error) {
	jobReq := LuluPrintJobRequest{
		ExternalID: req.IdempotencyKey,
		LineItems: []LuluLineItem{{
			PodPackageID:  luluPodPackageID(req.Spec),
			PageCount:     req.Spec.PageCount,
			Quantity:      req.Quantity,
			InteriorURL:   req.Spec.InteriorPDFURL,
			CoverURL:      req.Spec.CoverPDFURL,
			ExternalRefID: req.Spec.ID,
		}},
		ShippingAddress: toLuluAddress(req.Destination),
		ShippingLevel:   mapToLuluShippingLevel(req.ShippingLevel),
		ContactEmail:    req.Destination.Email,
	}

	respBody, statusCode, err := a.doRequest(ctx, http.MethodPost, "/print-jobs/", jobReq)
	if err != nil {
		return pod.CreateOrderResult{}, err
	}

	switch {
	case statusCode == http.StatusConflict:
		return pod.CreateOrderResult{}, fmt.Errorf("%w: external_id %s already used", pod.ErrSubmissionConflict, req.IdempotencyKey)
	case statusCode == http.StatusBadRequest || statusCode == http.StatusUnprocessableEntity:
		return pod.CreateOrderResult{}, fmt.Errorf("%w: %s", pod.ErrVendorRejected, luluErrorDetail(respBody))
	case statusCode >= 400:
		return pod.CreateOrderResult{}, fmt.Errorf("%w: HTTP %d", pod.ErrProviderUnavailable, statusCode)
	}

	var resp LuluPrintJobResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return pod.CreateOrderResult{}, fmt.Errorf("lulu: failed to parse response: %w", err)
	}
	if resp.ID == 0 {
		return pod.CreateOrderResult{}, fmt.Errorf("%w: response missing print job ID", pod.ErrProviderUnavailable)
	}

	return pod.CreateOrderResult{
		ExternalID: strconv.FormatInt(resp.ID, 10),
		Status:     mapLuluStatus(resp.Status.Name),
	}, nil
}

// GetOrderStatus polls a print job's current state
func (a *LuluAdapter) GetOrderStatus(ctx context.Context, externalID string) (pod.OrderStatusResult, error) {
	respBody, statusCode, err := a.doRequest(ctx, http.MethodGet, "/print-jobs/"+externalID+"/", nil)
	if err != nil {
		return pod.OrderStatusResult{}, err
	}

	if statusCode == http.StatusNotFound {
		return pod.OrderStatusResult{}, fmt.Errorf("%w: print job %s", pod.ErrOrderNotFound, externalID)
	}
	if statusCode >= 400 {
		return pod.OrderStatusResult{}, fmt.Errorf("%w: HTTP %d", pod.ErrProviderUnavailable, statusCode)
	}

	var resp LuluPrintJobResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return pod.OrderStatusResult{}, fmt.Errorf("lulu: failed to parse response: %w", err)
	}

	return pod.OrderStatusResult{
		Status:   mapLuluStatus(resp.Status.Name),
		Message:  resp.Status.Message,
		Tracking: luluTracking(resp.Shipments),
	}, nil
}

// CancelOrder asks Lulu to cancel the print job. Lulu refuses once the job
// enters production; the refusal comes back as a result, not an error.
func (a *LuluAdapter) CancelOrder(ctx context.Context, externalID string) (pod.CancelResult, error) {
	body := map[string]string{"name": LuluStatusCanceled}
	respBody, statusCode, err := a.doRequest(ctx, http.MethodPut, "/print-jobs/"+externalID+"/status/", body)
	if err != nil {
		return pod.CancelResult{}, err
	}

	switch {
	case statusCode == http.StatusNotFound:
		return pod.CancelResult{}, fmt.Errorf("%w: print job %s", pod.ErrOrderNotFound, externalID)
	case statusCode == http.StatusBadRequest || statusCode == http.StatusConflict:
		return pod.CancelResult{Cancelled: false, Message: luluErrorDetail(respBody)}, nil
	case statusCode >= 400:
		return pod.CancelResult{}, fmt.Errorf("%w: HTTP %d", pod.ErrProviderUnavailable, statusCode)
	}

	return pod.CancelResult{Cancelled: true}, nil
}

// ---------------------------------------------------------------------------
// Webhooks
// ---------------------------------------------------------------------------

// ParseWebhook verifies the delivery signature when a webhook secret is
// configured and translates the payload. Anything malformed maps to
// ErrWebhookParse so the HTTP layer can answer 400 without vendor-specific
// knowledge.
func (a *LuluAdapter) ParseWebhook(_ context.Context, signature string, body []byte) (pod.WebhookUpdate, error) {
	if !a.config.VerifyWebhook(signature, body) {
		return pod.WebhookUpdate{}, fmt.Errorf("%w: bad signature", pod.ErrWebhookParse)
	}

	var payload LuluWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return pod.WebhookUpdate{}, fmt.Errorf("%w: %v", pod.ErrWebhookParse, err)
	}
	if payload.Data == nil || payload.Data.ID == 0 {
		return pod.WebhookUpdate{}, fmt.Errorf("%w: missing print job data", pod.ErrWebhookParse)
	}
	if payload.Data.Status.Name == "" {
		return pod.WebhookUpdate{}, fmt.Errorf("%w: missing status name", pod.ErrWebhookParse)
	}

	return pod.WebhookUpdate{
		ExternalOrderID: strconv.FormatInt(payload.Data.ID, 10),
		EventID:         payload.EventID,
		Status:          mapLuluStatus(payload.Data.Status.Name),
		Message:         payload.Data.Status.Message,
		Tracking:        luluTracking(payload.Data.Shipments),
	}, nil
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// doRequest performs an HTTP request to the Lulu API
func (a *LuluAdapter) doRequest(ctx context.Context, method, path string, body any) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("lulu: failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.config.APIBaseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("lulu: failed to create request: %w", err)
	}

	req.SetBasicAuth(a.config.APIKey, a.config.APISecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", pod.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxLuluResponseSize))
	if err != nil {
		return nil, 0, fmt.Errorf("lulu: failed to read response: %w", err)
	}

	return respBody, resp.StatusCode, nil
}

// luluErrorDetail extracts the human-readable detail from an error envelope
func luluErrorDetail(body []byte) string {
	var e LuluErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Detail != "" {
		return e.Detail
	}
	return "vendor rejected the request"
}

// luluTracking returns tracking info from the most recent shipment
func luluTracking(shipments []LuluShipment) *pod.TrackingInfo {
	if len(shipments) == 0 {
		return nil
	}
	s := shipments[len(shipments)-1]
	if s.TrackingID == "" {
		return nil
	}
	return &pod.TrackingInfo{
		Carrier: s.Carrier,
		Number:  s.TrackingID,
		URL:     s.TrackingURL,
	}
}

// toLuluAddress converts the canonical address to the Lulu wire shape
func toLuluAddress(addr pod.ShippingAddress) LuluShippingAddress {
	return LuluShippingAddress{
		Name:        addr.Name,
		StreetOne:   addr.Street1,
		StreetTwo:   addr.Street2,
		City:        addr.City,
		StateCode:   addr.State,
		PostalCode:  addr.PostalCode,
		CountryCode: addr.CountryCode,
		PhoneNumber: addr.Phone,
		Email:       addr.Email,
	}
}

// luluPodPackageID encodes the spec into Lulu's SKU-style package ID,
// e.g. 0600X0900BWSTDPB060UW444MXX for a 6x9 B&W perfect-bound book
// on 60lb white.
func luluPodPackageID(spec pod.PrintSpec) string {
	color := "FC" // full color
	quality := "STD"
	switch spec.ColorSpace {
	case pod.ColorSpaceGrayscale:
		color = "BW"
	case pod.ColorSpaceCMYK, pod.ColorSpaceRGB:
		if spec.Paper == pod.Paper100lbPhoto {
			quality = "PRE" // premium color on photo stock
		}
	}

	binding := "PB" // perfect bound
	switch spec.Binding {
	case pod.BindingSaddle:
		binding = "SS"
	case pod.BindingCasewrap:
		binding = "CW"
	case pod.BindingCoil:
		binding = "CO"
	}

	paper := "060UW444"
	switch spec.Paper {
	case pod.Paper60lbCream:
		paper = "060UC444"
	case pod.Paper80lbCoated:
		paper = "080CW420"
	case pod.Paper100lbPhoto:
		paper = "100CW310"
	}

	finish := "G" // gloss
	if spec.CoverFinish == pod.CoverFinishMatte {
		finish = "M"
	}

	return fmt.Sprintf("%04dX%04d%s%s%s%s%sXX",
		int(spec.Trim.WidthIn*100), int(spec.Trim.HeightIn*100),
		color, quality, binding, paper, finish)
}

// mapLuluStatus maps Lulu print-job status names to canonical order status.
// Unknown vendor statuses map to pending rather than failing the update.
func mapLuluStatus(name string) pod.OrderStatus {
	switch name {
	case LuluStatusCreated:
		return pod.StatusSubmitted
	case LuluStatusUnpaid, LuluStatusPaymentInProgress, LuluStatusProductionDelayed:
		return pod.StatusOnHold
	case LuluStatusProductionReady:
		return pod.StatusAccepted
	case LuluStatusInProduction:
		return pod.StatusInProduction
	case LuluStatusShipped:
		return pod.StatusInTransit
	case LuluStatusDelivered:
		return pod.StatusDelivered
	case LuluStatusRejected, LuluStatusError:
		return pod.StatusFailed
	case LuluStatusCanceled:
		return pod.StatusCancelled
	default:
		return pod.StatusPending
	}
}

// mapToLuluShippingLevel maps the canonical shipping level to Lulu's vocabulary
func mapToLuluShippingLevel(level pod.ShippingLevel) string {
	switch level {
	case pod.ShippingMail:
		return "MAIL"
	case pod.ShippingGround:
		return "GROUND"
	case pod.ShippingExpedited:
		return "EXPEDITED"
	case pod.ShippingExpress:
		return "EXPRESS"
	default:
		return "MAIL"
	}
}

// Ensure LuluAdapter implements the ProviderAdapter interface
var _ pod.ProviderAdapter = (*LuluAdapter)(nil)
