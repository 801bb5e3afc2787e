package rendition

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printcore/backend/internal/domain/preflight"
)

func newTestRendition(t *testing.T) *Rendition {
	t.Helper()
	r, err := NewRendition(uuid.New(), 1, 3)
	require.NoError(t, err)
	return r
}

func TestNewRendition(t *testing.T) {
	r := newTestRendition(t)

	assert.Equal(t, RenditionPending, r.Status)
	require.Len(t, r.Jobs, 3)
	assert.NotNil(t, r.JobOfType(JobTypeInterior))
	assert.NotNil(t, r.JobOfType(JobTypeCover))
	assert.NotNil(t, r.JobOfType(JobTypePreflight))

	t.Run("preflight is delayed, render jobs are not", func(t *testing.T) {
		now := time.Now()
		assert.True(t, r.JobOfType(JobTypeInterior).IsRunnable(now))
		assert.True(t, r.JobOfType(JobTypeCover).IsRunnable(now))
		assert.False(t, r.JobOfType(JobTypePreflight).IsRunnable(now))
		assert.True(t, r.JobOfType(JobTypePreflight).IsRunnable(now.Add(PreflightDelay)))
	})

	t.Run("rejects nil book", func(t *testing.T) {
		_, err := NewRendition(uuid.Nil, 1, 3)
		assert.Error(t, err)
	})
}

func TestJobLifecycle(t *testing.T) {
	r := newTestRendition(t)
	job := r.JobOfType(JobTypeInterior)

	require.NoError(t, job.Start())
	assert.Equal(t, JobStatusActive, job.Status)
	assert.Equal(t, 1, job.Attempts)
	assert.NotNil(t, job.StartedAt)

	t.Run("cannot start an active job", func(t *testing.T) {
		assert.Error(t, job.Start())
	})

	require.NoError(t, r.CompleteJob(job, "https://store.example.com/interior.pdf", nil))
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Equal(t, "https://store.example.com/interior.pdf", r.InteriorURL)
	assert.Equal(t, RenditionPending, r.Status)
}

func TestJobRetryBackoff(t *testing.T) {
	r := newTestRendition(t)
	job := r.JobOfType(JobTypeCover)

	require.NoError(t, job.Start())
	require.NoError(t, r.FailJob(job, "renderer timeout"))

	assert.Equal(t, JobStatusWaiting, job.Status)
	assert.Equal(t, "renderer timeout", job.LastError)
	assert.Equal(t, RenditionPending, r.Status)

	t.Run("backoff gates the retry", func(t *testing.T) {
		assert.False(t, job.IsRunnable(time.Now()))
		assert.True(t, job.IsRunnable(time.Now().Add(BaseRetryDelay+time.Second)))
	})
}

func TestRetryDelayGrowth(t *testing.T) {
	assert.Equal(t, BaseRetryDelay, RetryDelay(1))
	assert.Equal(t, 2*BaseRetryDelay, RetryDelay(2))
	assert.Equal(t, 4*BaseRetryDelay, RetryDelay(3))

	t.Run("capped at the maximum", func(t *testing.T) {
		assert.Equal(t, MaxRetryDelay, RetryDelay(30))
	})
}

func TestAttemptCeilingFailsRendition(t *testing.T) {
	r := newTestRendition(t)
	job := r.JobOfType(JobTypeInterior)

	for i := 0; i < 2; i++ {
		require.NoError(t, job.Start())
		require.NoError(t, r.FailJob(job, "renderer 500"))
		require.Equal(t, JobStatusWaiting, job.Status)
	}

	require.NoError(t, job.Start())
	require.NoError(t, r.FailJob(job, "renderer 500"))

	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, RenditionFailed, r.Status)
	assert.False(t, r.CanQuote())
	assert.Contains(t, r.FailureReason, "INTERIOR")

	var sawFailedEvent bool
	for _, ev := range r.GetDomainEvents() {
		if ev.EventType() == EventTypeRenditionFailed {
			sawFailedEvent = true
		}
	}
	assert.True(t, sawFailedEvent)
}

func completeAll(t *testing.T, r *Rendition, pf *preflight.Result) {
	t.Helper()
	for _, typ := range []JobType{JobTypeInterior, JobTypeCover} {
		job := r.JobOfType(typ)
		require.NoError(t, job.Start())
		require.NoError(t, r.CompleteJob(job, "https://store.example.com/"+typ.String()+".pdf", nil))
	}
	job := r.JobOfType(JobTypePreflight)
	require.NoError(t, job.Start())
	require.NoError(t, r.CompleteJob(job, "", pf))
}

func TestRenditionBecomesReady(t *testing.T) {
	r := newTestRendition(t)
	completeAll(t, r, preflight.NewResult(nil, nil))

	assert.Equal(t, RenditionReady, r.Status)
	assert.True(t, r.CanQuote())
	assert.True(t, r.IsPrintSafe())
}

func TestReadyButNotPrintSafe(t *testing.T) {
	r := newTestRendition(t)
	failing := preflight.NewResult([]preflight.Issue{
		{Code: preflight.CodeLowDPI, Severity: preflight.SeverityHigh},
	}, nil)
	completeAll(t, r, failing)

	assert.Equal(t, RenditionReady, r.Status)
	assert.True(t, r.CanQuote())
	assert.False(t, r.IsPrintSafe())
}

func TestCancelDiscardsQueuedAndInFlightOutcomes(t *testing.T) {
	r := newTestRendition(t)

	inflight := r.JobOfType(JobTypeInterior)
	require.NoError(t, inflight.Start())

	require.NoError(t, r.Cancel())
	assert.Equal(t, RenditionCancelled, r.Status)
	for _, job := range r.Jobs {
		if job.Type != JobTypeInterior {
			assert.Equal(t, JobStatusDiscarded, job.Status, job.Type)
		}
	}

	t.Run("in-flight job keeps running until it reports", func(t *testing.T) {
		assert.Equal(t, JobStatusActive, inflight.Status)
	})

	t.Run("late outcome is discarded, not applied", func(t *testing.T) {
		require.NoError(t, r.CompleteJob(inflight, "https://store.example.com/interior.pdf", nil))
		assert.Equal(t, JobStatusDiscarded, inflight.Status)
		assert.Empty(t, r.InteriorURL)
	})

	t.Run("cancel is not repeatable", func(t *testing.T) {
		assert.Error(t, r.Cancel())
	})
}
