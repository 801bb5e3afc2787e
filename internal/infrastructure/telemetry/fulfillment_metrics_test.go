package telemetry_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/printcore/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap/zaptest"
)

// stubStateProvider serves fixed gauge values and counts how often it is asked
type stubStateProvider struct {
	calls atomic.Int64
	err   error
}

func (p *stubStateProvider) CountOpenOrdersByStatus(context.Context) (map[string]int64, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	return map[string]int64{"SUBMITTED": 4, "IN_PRODUCTION": 2}, nil
}

func (p *stubStateProvider) CountRunnableJobs(context.Context) (int64, error) {
	if p.err != nil {
		return 0, p.err
	}
	return 7, nil
}

func newFulfillmentMetrics(t *testing.T, provider telemetry.FulfillmentStateProvider) *telemetry.FulfillmentMetrics {
	t.Helper()

	fm, err := telemetry.NewFulfillmentMetrics(telemetry.FulfillmentMetricsConfig{
		Meter:         noop.NewMeterProvider().Meter("test"),
		Logger:        zaptest.NewLogger(t),
		StateProvider: provider,
	})
	require.NoError(t, err)
	return fm
}

func TestNewFulfillmentMetrics_RequiresMeter(t *testing.T) {
	_, err := telemetry.NewFulfillmentMetrics(telemetry.FulfillmentMetricsConfig{})
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)
}

func TestFulfillmentMetrics_RecordingDoesNotPanic(t *testing.T) {
	fm := newFulfillmentMetrics(t, nil)
	ctx := context.Background()

	fm.RecordQuoteRequest(ctx, "LULU", telemetry.QuoteOutcomeAvailable)
	fm.RecordQuoteRequest(ctx, "PEECHO", telemetry.QuoteOutcomeUnavailable)
	fm.RecordSubmission(ctx, "LULU", telemetry.SubmissionOutcomeSubmitted)
	fm.RecordSubmission(ctx, "LULU", telemetry.SubmissionOutcomeRejected)
	fm.RecordFallback(ctx, "LULU", "PEECHO")
	fm.RecordStatusUpdate(ctx, "PEECHO", "WEBHOOK", telemetry.StatusUpdateApplied)
	fm.RecordStatusUpdate(ctx, "LULU", "POLL", telemetry.StatusUpdateStale)
	fm.RecordVendorRequest(ctx, "LULU", "create_order", 800*time.Millisecond)
	fm.RecordRenditionJob(ctx, "INTERIOR", telemetry.JobOutcomeCompleted)
	fm.RecordRenditionJob(ctx, "PREFLIGHT", telemetry.JobOutcomeExhausted)
}

func TestFulfillmentMetrics_PeriodicCollection(t *testing.T) {
	provider := &stubStateProvider{}
	fm := newFulfillmentMetrics(t, provider)
	defer fm.Stop()

	fm.StartPeriodicCollection(context.Background(), 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		return provider.calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestFulfillmentMetrics_ProviderErrorDoesNotStopCollection(t *testing.T) {
	provider := &stubStateProvider{err: errors.New("db down")}
	fm := newFulfillmentMetrics(t, provider)
	defer fm.Stop()

	fm.StartPeriodicCollection(context.Background(), 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		return provider.calls.Load() >= 3
	}, time.Second, 5*time.Millisecond)
}

func TestFulfillmentMetrics_StopIsIdempotent(t *testing.T) {
	fm := newFulfillmentMetrics(t, &stubStateProvider{})
	fm.StartPeriodicCollection(context.Background(), time.Hour)

	fm.Stop()
	fm.Stop()
}
