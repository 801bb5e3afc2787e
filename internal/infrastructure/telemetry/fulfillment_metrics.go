// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// FulfillmentMetrics tracks the fulfillment pipeline: quote fan-out, vendor
// submissions, status reconciliation, and rendition job health.
type FulfillmentMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	quoteRequestsTotal *Counter
	submissionsTotal   *Counter
	fallbacksTotal     *Counter
	statusUpdatesTotal *Counter
	renditionJobsTotal *Counter

	// Vendor call latency
	vendorDuration *Histogram

	// Gauge metrics (point-in-time values)
	openOrders   *Gauge
	runnableJobs *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	provider FulfillmentStateProvider
}

// FulfillmentStateProvider provides pipeline state for periodic gauge
// collection. The interface keeps the telemetry layer off the domain
// repositories.
type FulfillmentStateProvider interface {
	// CountOpenOrdersByStatus returns the number of non-terminal orders per status
	CountOpenOrdersByStatus(ctx context.Context) (map[string]int64, error)

	// CountRunnableJobs returns the rendition job backlog
	CountRunnableJobs(ctx context.Context) (int64, error)
}

// FulfillmentMetricsConfig holds configuration for fulfillment metrics.
type FulfillmentMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 1 minute
	StateProvider   FulfillmentStateProvider
}

// NewFulfillmentMetrics creates a new FulfillmentMetrics instance.
func NewFulfillmentMetrics(cfg FulfillmentMetricsConfig) (*FulfillmentMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	fm := &FulfillmentMetrics{
		meter:    cfg.Meter,
		logger:   logger,
		stopChan: make(chan struct{}),
		provider: cfg.StateProvider,
	}

	var err error

	fm.quoteRequestsTotal, err = NewCounter(
		cfg.Meter,
		"pod_quote_requests_total",
		"Total number of provider quote requests",
		"{requests}",
	)
	if err != nil {
		return nil, err
	}

	fm.submissionsTotal, err = NewCounter(
		cfg.Meter,
		"pod_order_submissions_total",
		"Total number of vendor order submissions",
		"{submissions}",
	)
	if err != nil {
		return nil, err
	}

	fm.fallbacksTotal, err = NewCounter(
		cfg.Meter,
		"pod_order_fallbacks_total",
		"Total number of fallback resubmissions to an alternate provider",
		"{orders}",
	)
	if err != nil {
		return nil, err
	}

	fm.statusUpdatesTotal, err = NewCounter(
		cfg.Meter,
		"pod_status_updates_total",
		"Total number of vendor status reports processed",
		"{updates}",
	)
	if err != nil {
		return nil, err
	}

	fm.renditionJobsTotal, err = NewCounter(
		cfg.Meter,
		"pod_rendition_jobs_total",
		"Total number of rendition job executions",
		"{jobs}",
	)
	if err != nil {
		return nil, err
	}

	fm.vendorDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "pod_vendor_request_duration_seconds",
		Description: "Duration of print vendor API calls",
		Unit:        "s",
		Boundaries:  VendorDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	fm.openOrders, err = NewGauge(
		cfg.Meter,
		"pod_open_orders",
		"Number of non-terminal print orders",
		"{orders}",
	)
	if err != nil {
		return nil, err
	}

	fm.runnableJobs, err = NewGauge(
		cfg.Meter,
		"pod_runnable_jobs",
		"Rendition jobs waiting to be picked up",
		"{jobs}",
	)
	if err != nil {
		return nil, err
	}

	return fm, nil
}

// =============================================================================
// Quote Metrics
// =============================================================================

// QuoteOutcome labels the result of one provider quote request.
type QuoteOutcome string

const (
	QuoteOutcomeAvailable   QuoteOutcome = "available"
	QuoteOutcomeUnavailable QuoteOutcome = "unavailable"
)

// RecordQuoteRequest records one provider quote request and its outcome.
func (fm *FulfillmentMetrics) RecordQuoteRequest(ctx context.Context, provider string, outcome QuoteOutcome) {
	fm.quoteRequestsTotal.Inc(ctx,
		AttrProvider.String(provider),
		AttrOutcome.String(string(outcome)),
	)
}

// =============================================================================
// Submission Metrics
// =============================================================================

// SubmissionOutcome labels the result of one vendor order submission.
type SubmissionOutcome string

const (
	SubmissionOutcomeSubmitted SubmissionOutcome = "submitted"
	SubmissionOutcomeRejected  SubmissionOutcome = "rejected"
	SubmissionOutcomeConflict  SubmissionOutcome = "conflict"
	SubmissionOutcomeError     SubmissionOutcome = "error"
)

// RecordSubmission records a vendor order submission attempt.
func (fm *FulfillmentMetrics) RecordSubmission(ctx context.Context, provider string, outcome SubmissionOutcome) {
	fm.submissionsTotal.Inc(ctx,
		AttrProvider.String(provider),
		AttrOutcome.String(string(outcome)),
	)
}

// RecordFallback records a fallback resubmission from one provider to another.
func (fm *FulfillmentMetrics) RecordFallback(ctx context.Context, fromProvider, toProvider string) {
	fm.fallbacksTotal.Inc(ctx,
		AttrProvider.String(toProvider),
		AttrOutcome.String("fallback_from_"+fromProvider),
	)
}

// =============================================================================
// Reconciliation Metrics
// =============================================================================

// StatusUpdateOutcome labels what a vendor status report did to the order.
type StatusUpdateOutcome string

const (
	StatusUpdateApplied StatusUpdateOutcome = "applied"
	StatusUpdateStale   StatusUpdateOutcome = "stale"
	StatusUpdateError   StatusUpdateOutcome = "error"
)

// RecordStatusUpdate records one processed vendor status report. Source is
// "WEBHOOK" or "POLL".
func (fm *FulfillmentMetrics) RecordStatusUpdate(ctx context.Context, provider, source string, outcome StatusUpdateOutcome) {
	fm.statusUpdatesTotal.Inc(ctx,
		AttrProvider.String(provider),
		AttrStatusSource.String(source),
		AttrOutcome.String(string(outcome)),
	)
}

// RecordVendorRequest records the latency of one vendor API call.
func (fm *FulfillmentMetrics) RecordVendorRequest(ctx context.Context, provider, operation string, d time.Duration) {
	fm.vendorDuration.RecordDuration(ctx, d,
		AttrProvider.String(provider),
		AttrOperation.String(operation),
	)
}

// =============================================================================
// Rendition Metrics
// =============================================================================

// JobOutcome labels the result of one rendition job execution.
type JobOutcome string

const (
	JobOutcomeCompleted JobOutcome = "completed"
	JobOutcomeRetried   JobOutcome = "retried"
	JobOutcomeExhausted JobOutcome = "exhausted"
)

// RecordRenditionJob records one rendition job execution.
func (fm *FulfillmentMetrics) RecordRenditionJob(ctx context.Context, jobType string, outcome JobOutcome) {
	fm.renditionJobsTotal.Inc(ctx,
		AttrJobType.String(jobType),
		AttrOutcome.String(string(outcome)),
	)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection starts periodic collection of gauge metrics.
// This is non-blocking; use Stop() to stop collection.
func (fm *FulfillmentMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	fm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = time.Minute
		}

		go fm.runPeriodicCollection(ctx, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (fm *FulfillmentMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	fm.collectStateMetrics(ctx)

	for {
		select {
		case <-fm.stopChan:
			fm.logger.Info("Stopping periodic fulfillment metrics collection")
			return
		case <-ctx.Done():
			fm.logger.Info("Context cancelled, stopping periodic fulfillment metrics collection")
			return
		case <-ticker.C:
			fm.collectStateMetrics(ctx)
		}
	}
}

// collectStateMetrics samples the order book and job backlog gauges.
func (fm *FulfillmentMetrics) collectStateMetrics(ctx context.Context) {
	if fm.provider == nil {
		fm.logger.Debug("No state provider configured, skipping gauge collection")
		return
	}

	byStatus, err := fm.provider.CountOpenOrdersByStatus(ctx)
	if err != nil {
		fm.logger.Warn("Failed to count open orders", zap.Error(err))
	} else {
		for status, count := range byStatus {
			fm.openOrders.Record(ctx, count, AttrOrderStatus.String(status))
		}
	}

	backlog, err := fm.provider.CountRunnableJobs(ctx)
	if err != nil {
		fm.logger.Warn("Failed to count runnable jobs", zap.Error(err))
	} else {
		fm.runnableJobs.Record(ctx, backlog)
	}
}

// Stop stops the periodic collection.
func (fm *FulfillmentMetrics) Stop() {
	fm.stopOnce.Do(func() {
		close(fm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewFulfillmentMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
