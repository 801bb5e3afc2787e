// Package reconciliation keeps local order state aligned with vendor truth.
// Webhook deliveries are the primary channel; the poll sweep is the safety
// net for deliveries that never arrived.
package reconciliation

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/printcore/backend/internal/domain/pod"
	"github.com/printcore/backend/internal/domain/shared"
	"github.com/printcore/backend/internal/infrastructure/telemetry"
)

const (
	// webhookKeyPrefix namespaces webhook dedup keys in the guard store
	webhookKeyPrefix = "pod:webhook:"
	// webhookDedupTTL is how long a delivery's event ID stays claimed.
	// Vendors retry for at most a day; re-deliveries after that are
	// harmless because status application is monotonic anyway.
	webhookDedupTTL = 24 * time.Hour
)

// WebhookService applies vendor webhook deliveries to local orders
type WebhookService struct {
	orders   pod.OrderRepository
	registry pod.ProviderRegistry
	guard    shared.SubmissionGuard
	logger   *zap.Logger

	eventPublisher shared.EventPublisher
	metrics        *telemetry.FulfillmentMetrics
}

// NewWebhookService creates a new webhook service
func NewWebhookService(orders pod.OrderRepository, registry pod.ProviderRegistry, guard shared.SubmissionGuard, logger *zap.Logger) *WebhookService {
	return &WebhookService{
		orders:   orders,
		registry: registry,
		guard:    guard,
		logger:   logger,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *WebhookService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetMetrics attaches fulfillment metrics
func (s *WebhookService) SetMetrics(metrics *telemetry.FulfillmentMetrics) {
	s.metrics = metrics
}

// HandleWebhook verifies, parses and applies one vendor delivery. Handling is
// idempotent: a replayed delivery, whether caught by the event ID claim or by
// the order's monotonic status application, leaves the order unchanged.
func (s *WebhookService) HandleWebhook(ctx context.Context, provider pod.ProviderCode, signature string, body []byte) (*WebhookResult, error) {
	adapter, err := s.registry.Get(provider)
	if err != nil {
		return nil, err
	}

	update, err := adapter.ParseWebhook(ctx, signature, body)
	if err != nil {
		return nil, err
	}

	if duplicate := s.claimEvent(ctx, provider, update.EventID); duplicate {
		s.logger.Info("Webhook delivery already processed",
			zap.String("provider", provider.String()),
			zap.String("event_id", update.EventID))
		return s.serveCurrent(ctx, provider, update.ExternalOrderID)
	}

	return s.apply(ctx, provider, update)
}

func (s *WebhookService) apply(ctx context.Context, provider pod.ProviderCode, update pod.WebhookUpdate) (*WebhookResult, error) {
	order, err := s.orders.FindByExternalID(ctx, provider, update.ExternalOrderID)
	if err != nil {
		return nil, err
	}

	changed, err := order.ApplyStatus(update.Status, pod.SourceWebhook, update.Message, update.Tracking)
	if err != nil {
		s.recordStatusUpdate(ctx, provider, telemetry.StatusUpdateError)
		return nil, err
	}

	if err := s.orders.Update(ctx, order); err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			// Another writer advanced the order first. Reapply on the
			// fresh copy; monotonic application makes this safe.
			return s.apply(ctx, provider, update)
		}
		return nil, err
	}
	s.publishEvents(ctx, order)

	if changed {
		s.recordStatusUpdate(ctx, provider, telemetry.StatusUpdateApplied)
		s.logger.Info("Webhook applied",
			zap.String("order_id", order.ID.String()),
			zap.String("provider", provider.String()),
			zap.String("status", order.Status.String()))
	} else {
		s.recordStatusUpdate(ctx, provider, telemetry.StatusUpdateStale)
	}

	result := newWebhookResult(order, changed, false)
	return &result, nil
}

// claimEvent reports whether this delivery was already processed. Claim
// failures are tolerated: application is idempotent, so processing a
// delivery twice only costs a little work.
func (s *WebhookService) claimEvent(ctx context.Context, provider pod.ProviderCode, eventID string) bool {
	if s.guard == nil || eventID == "" {
		return false
	}
	key := webhookKeyPrefix + provider.String() + ":" + eventID
	acquired, err := s.guard.Acquire(ctx, key, webhookDedupTTL)
	if err != nil {
		s.logger.Warn("Webhook dedup claim failed, processing anyway",
			zap.String("key", key), zap.Error(err))
		return false
	}
	return !acquired
}

func (s *WebhookService) serveCurrent(ctx context.Context, provider pod.ProviderCode, externalID string) (*WebhookResult, error) {
	order, err := s.orders.FindByExternalID(ctx, provider, externalID)
	if err != nil {
		return nil, err
	}
	result := newWebhookResult(order, false, true)
	return &result, nil
}

func (s *WebhookService) publishEvents(ctx context.Context, order *pod.PrintOrder) {
	if s.eventPublisher == nil {
		return
	}
	events := order.PullDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish domain events",
			zap.String("order_id", order.ID.String()),
			zap.Error(err))
	}
}

func (s *WebhookService) recordStatusUpdate(ctx context.Context, provider pod.ProviderCode, outcome telemetry.StatusUpdateOutcome) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordStatusUpdate(ctx, provider.String(), string(pod.SourceWebhook), outcome)
}
