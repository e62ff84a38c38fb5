package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/resolution-engine/internal/engine"
)

// PassRunner is what the scheduler drives once per tick.
type PassRunner interface {
	RunPass(ctx context.Context) (*engine.Summary, error)
}

// Locker guards a pass across service instances. Acquire returns false
// when another instance holds the lock; the tick is skipped.
type Locker interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context)
}

// Scheduler drives repeated batch passes. Passes never overlap: the tick
// loop runs them inline, and TryPass refuses re-entry, so a slow pass makes
// later ticks coalesce rather than stack.
type Scheduler struct {
	runner      PassRunner
	lock        Locker
	logger      *zap.Logger
	interval    time.Duration
	backoffBase time.Duration
	backoffCap  time.Duration

	inFlight atomic.Bool
	wg       sync.WaitGroup
}

// Options configures the scheduler.
type Options struct {
	Interval    time.Duration
	BackoffBase time.Duration
	BackoffCap  time.Duration
	// Lock is optional; nil degrades to process-local single-flight.
	Lock Locker
}

// New constructs a scheduler.
func New(runner PassRunner, logger *zap.Logger, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = opts.Interval
	}
	if opts.BackoffCap <= 0 {
		opts.BackoffCap = 10 * opts.BackoffBase
	}
	return &Scheduler{
		runner:      runner,
		lock:        opts.Lock,
		logger:      logger,
		interval:    opts.Interval,
		backoffBase: opts.BackoffBase,
		backoffCap:  opts.BackoffCap,
	}
}

// Start launches the tick loop in the background. Cancel the context to
// stop; Wait blocks until the in-flight pass has finished cleanly.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Run(ctx)
	}()
}

// Wait blocks until the loop started by Start has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Run executes the tick loop until the context is cancelled. The in-flight
// pass always completes; cancellation takes effect at the next tick
// boundary (per-ticket cancellation inside a pass is the engine's concern).
func (s *Scheduler) Run(ctx context.Context) {
	failures := 0
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-timer.C:
		}

		if _, err := s.TryPass(ctx); err != nil {
			failures++
			delay := s.NextDelay(failures)
			s.logger.Error("pass failed",
				zap.Int("consecutive_failures", failures),
				zap.Duration("retry_in", delay),
				zap.Error(err))
			timer.Reset(delay)
			continue
		}
		failures = 0
		timer.Reset(s.interval)
	}
}

// TryPass runs one pass unless another is already in flight (or another
// instance holds the lock), in which case it returns (false, nil).
func (s *Scheduler) TryPass(ctx context.Context) (bool, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.logger.Debug("pass already in flight, skipping tick")
		return false, nil
	}
	defer s.inFlight.Store(false)

	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx)
		if err != nil {
			// Lock trouble must not halt sweeping: fall through and
			// rely on the store's compare-and-set writes.
			s.logger.Warn("pass lock unavailable, proceeding unlocked", zap.Error(err))
		} else if !acquired {
			s.logger.Debug("another instance is sweeping, skipping tick")
			return false, nil
		} else {
			defer s.lock.Release(ctx)
		}
	}

	_, err := s.runner.RunPass(ctx)
	if err != nil {
		return true, err
	}
	return true, nil
}

// NextDelay returns the backoff delay after the given number of
// consecutive failed passes: base × 2^(failures-1), capped.
func (s *Scheduler) NextDelay(failures int) time.Duration {
	if failures < 1 {
		return s.interval
	}
	delay := s.backoffBase
	for i := 1; i < failures; i++ {
		delay *= 2
		if delay >= s.backoffCap {
			return s.backoffCap
		}
	}
	if delay > s.backoffCap {
		return s.backoffCap
	}
	return delay
}
