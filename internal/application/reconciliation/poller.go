package reconciliation

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/printcore/backend/internal/domain/pod"
	"github.com/printcore/backend/internal/domain/shared"
	"github.com/printcore/backend/internal/infrastructure/config"
	"github.com/printcore/backend/internal/infrastructure/scheduler"
	"github.com/printcore/backend/internal/infrastructure/telemetry"
)

// Poller implements the scheduler's PollExecutor: one sweep refreshes the
// submitted orders whose vendor has gone quiet past the staleness threshold.
// Orders past the maximum age drop out of the sweep entirely; terminal
// orders never enter it.
type Poller struct {
	orders   pod.OrderRepository
	registry pod.ProviderRegistry
	cfg      config.PollerConfig
	logger   *zap.Logger

	eventPublisher shared.EventPublisher
	metrics        *telemetry.FulfillmentMetrics
}

// NewPoller creates a new reconciliation poller
func NewPoller(orders pod.OrderRepository, registry pod.ProviderRegistry, cfg config.PollerConfig, logger *zap.Logger) *Poller {
	return &Poller{
		orders:   orders,
		registry: registry,
		cfg:      cfg,
		logger:   logger,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (p *Poller) SetEventPublisher(publisher shared.EventPublisher) {
	p.eventPublisher = publisher
}

// SetMetrics attaches fulfillment metrics
func (p *Poller) SetMetrics(metrics *telemetry.FulfillmentMetrics) {
	p.metrics = metrics
}

// Execute runs one reconciliation sweep
func (p *Poller) Execute(ctx context.Context) (scheduler.PollStats, error) {
	var stats scheduler.PollStats

	cutoff := time.Now().Add(-p.cfg.StaleAfter)
	orders, err := p.orders.FindNeedingPoll(ctx, cutoff, p.cfg.MaxAge, p.cfg.BatchSize)
	if err != nil {
		return stats, err
	}

	for _, order := range orders {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		stats.Polled++
		switch p.pollOne(ctx, order) {
		case pollAdvanced:
			stats.Updated++
		case pollFailed:
			stats.Failed++
		}
	}

	return stats, nil
}

type pollOutcome int

const (
	pollUnchanged pollOutcome = iota
	pollAdvanced
	pollFailed
)

// pollOne refreshes a single order
func (p *Poller) pollOne(ctx context.Context, order *pod.PrintOrder) pollOutcome {
	adapter, err := p.registry.Get(order.Provider)
	if err != nil {
		p.logger.Warn("No adapter for polled order",
			zap.String("order_id", order.ID.String()),
			zap.String("provider", order.Provider.String()))
		return pollFailed
	}

	callCtx, cancel := context.WithTimeout(ctx, p.cfg.StatusTimeout)
	result, err := adapter.GetOrderStatus(callCtx, order.ExternalID)
	cancel()
	if err != nil {
		p.recordStatusUpdate(ctx, order.Provider, telemetry.StatusUpdateError)
		p.logger.Warn("Vendor status lookup failed during sweep",
			zap.String("order_id", order.ID.String()),
			zap.String("provider", order.Provider.String()),
			zap.Error(err))
		return pollFailed
	}

	changed, err := order.ApplyStatus(result.Status, pod.SourcePoll, result.Message, result.Tracking)
	if err != nil {
		p.recordStatusUpdate(ctx, order.Provider, telemetry.StatusUpdateError)
		p.logger.Warn("Vendor reported an unusable status",
			zap.String("order_id", order.ID.String()),
			zap.String("status", result.Status.String()),
			zap.Error(err))
		return pollFailed
	}

	if err := p.orders.Update(ctx, order); err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			// A webhook got there first; its state wins
			return pollUnchanged
		}
		p.logger.Error("Failed to persist polled status",
			zap.String("order_id", order.ID.String()),
			zap.Error(err))
		return pollFailed
	}
	p.publishEvents(ctx, order)

	if changed {
		p.recordStatusUpdate(ctx, order.Provider, telemetry.StatusUpdateApplied)
		p.logger.Info("Poll advanced order",
			zap.String("order_id", order.ID.String()),
			zap.String("status", order.Status.String()))
		return pollAdvanced
	}
	p.recordStatusUpdate(ctx, order.Provider, telemetry.StatusUpdateStale)
	return pollUnchanged
}

func (p *Poller) publishEvents(ctx context.Context, order *pod.PrintOrder) {
	if p.eventPublisher == nil {
		return
	}
	events := order.PullDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := p.eventPublisher.Publish(ctx, events...); err != nil {
		p.logger.Warn("Failed to publish domain events",
			zap.String("order_id", order.ID.String()),
			zap.Error(err))
	}
}

func (p *Poller) recordStatusUpdate(ctx context.Context, provider pod.ProviderCode, outcome telemetry.StatusUpdateOutcome) {
	if p.metrics == nil {
		return
	}
	p.metrics.RecordStatusUpdate(ctx, provider.String(), string(pod.SourcePoll), outcome)
}
