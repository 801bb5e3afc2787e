// Package fulfillment orchestrates print order placement across providers:
// quote aggregation, submission with at-most-one delivery to the vendor,
// single-shot fallback and cooperative cancellation.
package fulfillment

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/printcore/backend/internal/domain/pod"
	"github.com/printcore/backend/internal/domain/rendition"
	"github.com/printcore/backend/internal/domain/shared"
	"github.com/printcore/backend/internal/infrastructure/config"
	"github.com/printcore/backend/internal/infrastructure/telemetry"
)

// preferredCostTolerance is how much more expensive a preferred provider may
// be, relative to the cheapest available quote, and still win selection.
const preferredCostTolerance = 0.10

// guardKeyPrefix namespaces submission guard keys in the shared cache
const guardKeyPrefix = "pod:submit:"

// Errors returned by the orchestrator beyond the provider taxonomy
var (
	ErrNoQuotesAvailable    = shared.NewDomainError("NO_QUOTES", "No provider can produce this spec right now")
	ErrPreflightBlocked     = shared.NewDomainError("PREFLIGHT_BLOCKED", "Rendition failed preflight; submission requires an explicit override")
	ErrRenditionNotQuotable = shared.NewDomainError("RENDITION_NOT_QUOTABLE", "Rendition is not ready; quoting against it is blocked")
)

// Service coordinates quoting, submission and cancellation of print orders
type Service struct {
	orders     pod.OrderRepository
	specs      pod.SpecRepository
	renditions rendition.Repository
	registry   pod.ProviderRegistry
	guard      shared.SubmissionGuard
	cfg        config.FulfillmentConfig
	logger     *zap.Logger

	eventPublisher shared.EventPublisher
	metrics        *telemetry.FulfillmentMetrics
}

// NewService creates a new fulfillment Service
func NewService(
	orders pod.OrderRepository,
	specs pod.SpecRepository,
	renditions rendition.Repository,
	registry pod.ProviderRegistry,
	guard shared.SubmissionGuard,
	cfg config.FulfillmentConfig,
	logger *zap.Logger,
) *Service {
	return &Service{
		orders:     orders,
		specs:      specs,
		renditions: renditions,
		registry:   registry,
		guard:      guard,
		cfg:        cfg,
		logger:     logger,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetMetrics wires fulfillment metrics recording
func (s *Service) SetMetrics(metrics *telemetry.FulfillmentMetrics) {
	s.metrics = metrics
}

// GetAllQuotes asks every provider capable of producing the spec for a price,
// concurrently and each under its own timeout. One provider's outage never
// aborts the aggregation; it shows up in the unavailable list instead.
func (s *Service) GetAllQuotes(ctx context.Context, req pod.QuoteRequest) (*QuoteSetResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.RenditionID != nil {
		rend, err := s.renditions.FindByID(ctx, *req.RenditionID)
		if err != nil {
			return nil, err
		}
		if !rend.CanQuote() {
			return nil, ErrRenditionNotQuotable
		}
	}

	var supported []pod.ProviderAdapter
	for _, adapter := range s.registry.All() {
		if adapter.SupportsSpec(req.Spec) {
			supported = append(supported, adapter)
		}
	}

	quotes := make([]pod.Quote, len(supported))
	g, gctx := errgroup.WithContext(ctx)
	for i, adapter := range supported {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, s.cfg.QuoteTimeout)
			defer cancel()

			start := time.Now()
			quote, err := adapter.GetQuote(callCtx, req)
			s.recordVendorRequest(ctx, adapter.Code(), "get_quote", time.Since(start))
			if err != nil {
				s.logger.Warn("Provider quote failed",
					zap.String("provider", adapter.Code().String()),
					zap.Error(err))
				quote = pod.NewUnavailableQuote(adapter.Code(), "provider unavailable: "+err.Error())
			}
			quotes[i] = quote
			return nil
		})
	}
	// Workers never return errors; failures become unavailable quotes
	_ = g.Wait()

	resp := &QuoteSetResponse{}
	for _, quote := range quotes {
		if quote.Available {
			resp.Quotes = append(resp.Quotes, quote)
			s.recordQuoteRequest(ctx, quote.Provider, telemetry.QuoteOutcomeAvailable)
		} else {
			resp.Unavailable = append(resp.Unavailable, quote)
			s.recordQuoteRequest(ctx, quote.Provider, telemetry.QuoteOutcomeUnavailable)
		}
	}

	sort.SliceStable(resp.Quotes, func(i, j int) bool {
		return landedAmount(resp.Quotes[i]).Cmp(landedAmount(resp.Quotes[j])) < 0
	})

	return resp, nil
}

// GetBestQuote ranks the available quotes by the preferred axis and picks the
// winner. A configured preferred provider beats the nominal best when its
// landed cost is within tolerance of the cheapest offer.
func (s *Service) GetBestQuote(ctx context.Context, req pod.QuoteRequest, pref pod.QuotePreference) (pod.Quote, error) {
	set, err := s.GetAllQuotes(ctx, req)
	if err != nil {
		return pod.Quote{}, err
	}
	if len(set.Quotes) == 0 {
		return pod.Quote{}, ErrNoQuotesAvailable
	}

	// Quotes arrive cost-ascending, so on the speed axis a strict comparison
	// breaks lead-time ties toward the cheaper offer.
	best := set.Quotes[0]
	if pref.Optimize == pod.OptimizeSpeed {
		for _, quote := range set.Quotes[1:] {
			if quote.TotalLeadDays() < best.TotalLeadDays() {
				best = quote
			}
		}
	}

	preferred := pref.PreferredProvider
	if preferred == "" && s.cfg.PreferredProvider != "" {
		preferred = pod.ProviderCode(s.cfg.PreferredProvider)
	}
	if preferred != "" && preferred != best.Provider {
		limit := landedAmount(set.Quotes[0]).Mul(decimal.NewFromFloat(1 + preferredCostTolerance))
		for _, quote := range set.Quotes {
			if quote.Provider == preferred && landedAmount(quote).Cmp(limit) <= 0 {
				return quote, nil
			}
		}
	}

	return best, nil
}

// CreateOrder persists the spec and opens a pending order against the chosen
// provider. Nothing is sent to the vendor until SubmitOrder.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "fulfillment", "create_order",
		telemetry.WithAttribute(telemetry.SpanAttrProvider, req.Provider.String()),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, req.Quantity))
	defer span.End()

	if _, err := s.registry.Get(req.Provider); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if req.Quote != nil && req.Quote.IsExpired(time.Now()) {
		telemetry.RecordError(span, pod.ErrQuoteExpired)
		return nil, pod.ErrQuoteExpired
	}

	order, err := pod.NewPrintOrder(req.Spec, req.Quantity, req.Destination, req.ShippingLevel, req.Provider)
	if err != nil {
		return nil, err
	}

	if err := s.specs.Save(ctx, &req.Spec); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, order)

	s.logger.Info("Print order created",
		zap.String("order_id", order.ID.String()),
		zap.String("spec_id", order.SpecID),
		zap.String("provider", order.Provider.String()))

	resp := ToOrderResponse(order)
	return &resp, nil
}

// GetOrder loads an order with its status history and shipments
func (s *Service) GetOrder(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(order)
	return &resp, nil
}

// ListOrdersByStatus lists orders in the given status, oldest first
func (s *Service) ListOrdersByStatus(ctx context.Context, status pod.OrderStatus, limit int) ([]OrderResponse, error) {
	if !status.IsValid() {
		return nil, shared.NewDomainError("INVALID_STATUS", "Unknown order status: "+string(status))
	}
	orders, err := s.orders.FindByStatus(ctx, status, limit)
	if err != nil {
		return nil, err
	}
	responses := make([]OrderResponse, 0, len(orders))
	for _, order := range orders {
		responses = append(responses, ToOrderResponse(order))
	}
	return responses, nil
}

// SubmitOrder sends a pending order to its vendor. Concurrent submissions of
// the same order collapse into one vendor call via the submission guard; the
// loser gets ErrSubmissionConflict and can poll for the outcome. On vendor
// failure, and only when fallback is enabled, exactly one replacement order
// is opened on another capable provider and submitted once.
func (s *Service) SubmitOrder(ctx context.Context, req SubmitOrderRequest) (*SubmitOrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "fulfillment", "submit_order",
		telemetry.WithAttribute(telemetry.SpanAttrOrderID, req.OrderID.String()))
	defer span.End()

	order, err := s.orders.FindByID(ctx, req.OrderID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrProvider, order.Provider.String())
	if !order.CanSubmit() {
		return nil, shared.NewDomainError("INVALID_STATE",
			"Order is "+order.Status.String()+", not awaiting submission")
	}

	if req.RenditionID != nil {
		rend, err := s.renditions.FindByID(ctx, *req.RenditionID)
		if err != nil {
			return nil, err
		}
		if !rend.IsPrintSafe() && !req.AllowPreflightFailure {
			return nil, ErrPreflightBlocked
		}
	}

	key := guardKeyPrefix + order.ID.String()
	acquired, err := s.guard.Acquire(ctx, key, s.cfg.SubmissionGuardTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		s.recordSubmission(ctx, order.Provider, telemetry.SubmissionOutcomeConflict)
		telemetry.RecordError(span, pod.ErrSubmissionConflict)
		return nil, pod.ErrSubmissionConflict
	}
	telemetry.AddEvent(span, "submission_lock_acquired")
	defer func() {
		// The order state now decides resubmission eligibility; release even
		// when the request context is already cancelled.
		if err := s.guard.Release(context.WithoutCancel(ctx), key); err != nil {
			s.logger.Warn("Failed to release submission guard",
				zap.String("order_id", order.ID.String()),
				zap.Error(err))
		}
	}()

	vendorErr, err := s.submitToVendor(ctx, order)
	if err != nil {
		return nil, err
	}

	orderResp := ToOrderResponse(order)
	resp := &SubmitOrderResponse{Order: &orderResp}
	if vendorErr == nil {
		return resp, nil
	}
	if !s.cfg.FallbackEnabled {
		return resp, vendorErr
	}

	fallbackAdapter := s.selectFallbackAdapter(order)
	if fallbackAdapter == nil {
		s.logger.Warn("No fallback provider supports the spec",
			zap.String("order_id", order.ID.String()),
			zap.String("failed_provider", order.Provider.String()))
		return resp, vendorErr
	}

	fallback, err := pod.NewFallbackOrder(order, fallbackAdapter.Code())
	if err != nil {
		return resp, err
	}
	if err := s.orders.Save(ctx, fallback); err != nil {
		return resp, err
	}
	s.publishEvents(ctx, fallback)
	s.recordFallback(ctx, order.Provider, fallback.Provider)
	s.logger.Info("Submitting fallback order",
		zap.String("original_order_id", order.ID.String()),
		zap.String("fallback_order_id", fallback.ID.String()),
		zap.String("provider", fallback.Provider.String()))

	fallbackVendorErr, err := s.submitToVendor(ctx, fallback)
	fallbackResp := ToOrderResponse(fallback)
	resp.Fallback = &fallbackResp
	if err != nil {
		return resp, err
	}
	if fallbackVendorErr != nil {
		// One retry only; a second provider failing is where we stop
		return resp, fallbackVendorErr
	}
	return resp, nil
}

// submitToVendor pushes one order to its provider and persists the outcome.
// vendorErr reports a vendor rejection or outage already recorded on the
// order, the only failures eligible for fallback; err reports an
// infrastructure failure that leaves the order state unchanged.
func (s *Service) submitToVendor(ctx context.Context, order *pod.PrintOrder) (vendorErr, err error) {
	adapter, err := s.registry.Get(order.Provider)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.SubmitTimeout)
	defer cancel()

	start := time.Now()
	result, callErr := adapter.CreateOrder(callCtx, pod.CreateOrderRequest{
		IdempotencyKey: order.ID.String(),
		Spec:           order.Spec,
		Quantity:       order.Quantity,
		Destination:    order.Destination,
		ShippingLevel:  order.ShippingLevel,
	})
	s.recordVendorRequest(ctx, order.Provider, "create_order", time.Since(start))

	if callErr != nil {
		s.logger.Warn("Vendor submission failed",
			zap.String("order_id", order.ID.String()),
			zap.String("provider", order.Provider.String()),
			zap.Error(callErr))
		if markErr := order.MarkFailed(callErr.Error()); markErr != nil {
			return nil, markErr
		}
		if updateErr := s.orders.Update(ctx, order); updateErr != nil {
			return nil, updateErr
		}
		s.publishEvents(ctx, order)
		outcome := telemetry.SubmissionOutcomeError
		if errors.Is(callErr, pod.ErrVendorRejected) || errors.Is(callErr, pod.ErrInvalidSpec) {
			outcome = telemetry.SubmissionOutcomeRejected
		}
		s.recordSubmission(ctx, order.Provider, outcome)
		return callErr, nil
	}

	if err := order.MarkSubmitted(result.ExternalID); err != nil {
		return nil, err
	}
	if result.Status != "" && result.Status != pod.StatusSubmitted {
		if _, err := order.ApplyStatus(result.Status, pod.SourceInternal, "Reported at creation", nil); err != nil {
			s.logger.Warn("Ignoring unusable creation status",
				zap.String("order_id", order.ID.String()),
				zap.String("status", string(result.Status)),
				zap.Error(err))
		}
	}
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, order)
	s.recordSubmission(ctx, order.Provider, telemetry.SubmissionOutcomeSubmitted)

	s.logger.Info("Order submitted",
		zap.String("order_id", order.ID.String()),
		zap.String("provider", order.Provider.String()),
		zap.String("external_id", order.ExternalID))

	return nil, nil
}

// selectFallbackAdapter picks the first registered provider, other than the
// failed one, that can produce the order's spec
func (s *Service) selectFallbackAdapter(order *pod.PrintOrder) pod.ProviderAdapter {
	for _, adapter := range s.registry.All() {
		if adapter.Code() == order.Provider {
			continue
		}
		if adapter.SupportsSpec(order.Spec) {
			return adapter
		}
	}
	return nil
}

// CancelOrder cancels locally while the order is still pending, otherwise
// asks the vendor. The vendor's refusal past its production cutoff is
// reported as a result, not an error.
func (s *Service) CancelOrder(ctx context.Context, orderID uuid.UUID, reason string) (*CancelOrderResponse, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status == pod.StatusCancelled {
		resp := ToOrderResponse(order)
		return &CancelOrderResponse{Cancelled: true, Message: "Order is already cancelled", Order: &resp}, nil
	}
	if order.IsTerminal() {
		return nil, shared.NewDomainError("INVALID_STATE",
			"Order is "+order.Status.String()+" and cannot be cancelled")
	}

	if order.Status == pod.StatusPending {
		if err := order.Cancel(reason); err != nil {
			return nil, err
		}
		if err := s.orders.Update(ctx, order); err != nil {
			return nil, err
		}
		s.publishEvents(ctx, order)
		resp := ToOrderResponse(order)
		return &CancelOrderResponse{Cancelled: true, Message: reason, Order: &resp}, nil
	}

	adapter, err := s.registry.Get(order.Provider)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.SubmitTimeout)
	defer cancel()

	start := time.Now()
	result, err := adapter.CancelOrder(callCtx, order.ExternalID)
	s.recordVendorRequest(ctx, order.Provider, "cancel_order", time.Since(start))
	if err != nil {
		return nil, err
	}

	if result.Cancelled {
		if err := order.Cancel(result.Message); err != nil {
			return nil, err
		}
		if err := s.orders.Update(ctx, order); err != nil {
			return nil, err
		}
		s.publishEvents(ctx, order)
	} else {
		s.logger.Info("Vendor refused cancellation",
			zap.String("order_id", order.ID.String()),
			zap.String("provider", order.Provider.String()),
			zap.String("message", result.Message))
	}

	resp := ToOrderResponse(order)
	return &CancelOrderResponse{Cancelled: result.Cancelled, Message: result.Message, Order: &resp}, nil
}

// GetOrderStatus refreshes a submitted order from the vendor and returns the
// current view. When the live lookup fails or times out, the last known
// state is served; the reconciliation poller catches up later.
func (s *Service) GetOrderStatus(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.IsTerminal() || order.ExternalID == "" {
		resp := ToOrderResponse(order)
		return &resp, nil
	}

	adapter, err := s.registry.Get(order.Provider)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.StatusTimeout)
	defer cancel()

	start := time.Now()
	result, err := adapter.GetOrderStatus(callCtx, order.ExternalID)
	s.recordVendorRequest(ctx, order.Provider, "get_order_status", time.Since(start))
	if err != nil {
		s.logger.Warn("Live status lookup failed, serving last known state",
			zap.String("order_id", order.ID.String()),
			zap.String("provider", order.Provider.String()),
			zap.Error(err))
		s.recordStatusUpdate(ctx, order.Provider, pod.SourcePoll, telemetry.StatusUpdateError)
		resp := ToOrderResponse(order)
		return &resp, nil
	}

	changed, err := order.ApplyStatus(result.Status, pod.SourcePoll, result.Message, result.Tracking)
	if err != nil {
		return nil, err
	}
	if err := s.orders.Update(ctx, order); err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			// Another channel updated the order first; its state stands
			return s.GetOrder(ctx, orderID)
		}
		return nil, err
	}
	if changed {
		s.publishEvents(ctx, order)
		s.recordStatusUpdate(ctx, order.Provider, pod.SourcePoll, telemetry.StatusUpdateApplied)
	} else {
		s.recordStatusUpdate(ctx, order.Provider, pod.SourcePoll, telemetry.StatusUpdateStale)
	}

	resp := ToOrderResponse(order)
	return &resp, nil
}

// publishEvents drains the aggregate's pending events onto the bus
func (s *Service) publishEvents(ctx context.Context, order *pod.PrintOrder) {
	if s.eventPublisher == nil {
		return
	}
	events := order.PullDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		// Event handling is async; the order state is already persisted
		s.logger.Warn("Failed to publish domain events",
			zap.String("order_id", order.ID.String()),
			zap.Error(err))
	}
}

func (s *Service) recordQuoteRequest(ctx context.Context, provider pod.ProviderCode, outcome telemetry.QuoteOutcome) {
	if s.metrics != nil {
		s.metrics.RecordQuoteRequest(ctx, provider.String(), outcome)
	}
}

func (s *Service) recordSubmission(ctx context.Context, provider pod.ProviderCode, outcome telemetry.SubmissionOutcome) {
	if s.metrics != nil {
		s.metrics.RecordSubmission(ctx, provider.String(), outcome)
	}
}

func (s *Service) recordFallback(ctx context.Context, from, to pod.ProviderCode) {
	if s.metrics != nil {
		s.metrics.RecordFallback(ctx, from.String(), to.String())
	}
}

func (s *Service) recordStatusUpdate(ctx context.Context, provider pod.ProviderCode, source pod.StatusSource, outcome telemetry.StatusUpdateOutcome) {
	if s.metrics != nil {
		s.metrics.RecordStatusUpdate(ctx, provider.String(), string(source), outcome)
	}
}

func (s *Service) recordVendorRequest(ctx context.Context, provider pod.ProviderCode, operation string, d time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordVendorRequest(ctx, provider.String(), operation, d)
	}
}

func landedAmount(q pod.Quote) decimal.Decimal {
	return q.Cost.Landed().Amount()
}
