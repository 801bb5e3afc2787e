package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PollExecutor runs one reconciliation sweep over stale orders
type PollExecutor interface {
	Execute(ctx context.Context) (PollStats, error)
}

// PollStats summarizes one reconciliation sweep
type PollStats struct {
	// Polled is how many orders were checked against their vendor
	Polled int
	// Updated is how many orders actually advanced
	Updated int
	// Failed is how many vendor calls errored
	Failed int
}

// StatusPollerConfig holds configuration for the status poller
type StatusPollerConfig struct {
	// Interval between reconciliation sweeps
	Interval time.Duration
	// SweepTimeout bounds one whole sweep
	SweepTimeout time.Duration
}

// DefaultStatusPollerConfig returns default configuration
func DefaultStatusPollerConfig() StatusPollerConfig {
	return StatusPollerConfig{
		Interval:     5 * time.Minute,
		SweepTimeout: 4 * time.Minute,
	}
}

// Validate validates the configuration
func (c *StatusPollerConfig) Validate() error {
	if c.Interval <= 0 {
		return ErrInvalidConfig
	}
	if c.SweepTimeout <= 0 {
		c.SweepTimeout = c.Interval
	}
	return nil
}

// StatusPoller drives periodic reconciliation sweeps. Webhooks are the
// primary status channel; the poller is the safety net for orders whose
// webhooks never arrived.
type StatusPoller struct {
	config   StatusPollerConfig
	executor PollExecutor
	logger   *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewStatusPoller creates a new status poller
func NewStatusPoller(config StatusPollerConfig, executor PollExecutor, logger *zap.Logger) (*StatusPoller, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &StatusPoller{
		config:   config,
		executor: executor,
		logger:   logger,
	}, nil
}

// Start starts the poll loop
func (p *StatusPoller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = true
	p.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.runLoop(ctx)

	p.logger.Info("Status poller started",
		zap.Duration("interval", p.config.Interval),
	)

	return nil
}

// Stop gracefully stops the poll loop
func (p *StatusPoller) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = false
	p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("Status poller stopped gracefully")
		return nil
	case <-ctx.Done():
		p.logger.Warn("Status poller stop timed out")
		return ctx.Err()
	}
}

// RunOnce triggers a single sweep outside the schedule, for admin endpoints
// and tests
func (p *StatusPoller) RunOnce(ctx context.Context) (PollStats, error) {
	sweepCtx, cancel := context.WithTimeout(ctx, p.config.SweepTimeout)
	defer cancel()
	return p.executor.Execute(sweepCtx)
}

func (p *StatusPoller) runLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runSweep(ctx)
		}
	}
}

func (p *StatusPoller) runSweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, p.config.SweepTimeout)
	defer cancel()

	stats, err := p.executor.Execute(sweepCtx)
	if err != nil {
		p.logger.Error("Reconciliation sweep failed", zap.Error(err))
		return
	}

	if stats.Polled > 0 {
		p.logger.Info("Reconciliation sweep finished",
			zap.Int("polled", stats.Polled),
			zap.Int("updated", stats.Updated),
			zap.Int("failed", stats.Failed),
		)
	}
}
