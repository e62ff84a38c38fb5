package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/resolution-engine/internal/engine"
	"github.com/spec-kit/resolution-engine/internal/scheduler"
)

type stubRunner struct {
	mu      sync.Mutex
	calls   int
	err     error
	block   chan struct{}
	started chan struct{}
}

func (r *stubRunner) RunPass(ctx context.Context) (*engine.Summary, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.started != nil {
		r.started <- struct{}{}
	}
	if r.block != nil {
		<-r.block
	}
	return &engine.Summary{}, r.err
}

func (r *stubRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type stubLocker struct {
	acquired bool
	err      error
	releases atomic.Int32
}

func (l *stubLocker) Acquire(ctx context.Context) (bool, error) { return l.acquired, l.err }
func (l *stubLocker) Release(ctx context.Context)               { l.releases.Add(1) }

func newScheduler(runner scheduler.PassRunner, lock scheduler.Locker) *scheduler.Scheduler {
	return scheduler.New(runner, zap.NewNop(), scheduler.Options{
		Interval:    time.Second,
		BackoffBase: 2 * time.Second,
		BackoffCap:  30 * time.Second,
		Lock:        lock,
	})
}

func TestNextDelay_DoublesAndCaps(t *testing.T) {
	s := newScheduler(&stubRunner{}, nil)

	assert.Equal(t, 2*time.Second, s.NextDelay(1))
	assert.Equal(t, 4*time.Second, s.NextDelay(2))
	assert.Equal(t, 8*time.Second, s.NextDelay(3))
	assert.Equal(t, 16*time.Second, s.NextDelay(4))
	assert.Equal(t, 30*time.Second, s.NextDelay(5))
	assert.Equal(t, 30*time.Second, s.NextDelay(20))
	assert.Equal(t, time.Second, s.NextDelay(0))
}

func TestTryPass_RunsAndReportsErrors(t *testing.T) {
	runner := &stubRunner{}
	s := newScheduler(runner, nil)

	ran, err := s.TryPass(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 1, runner.callCount())

	runner.err = errors.New("store down")
	ran, err = s.TryPass(context.Background())
	assert.True(t, ran)
	assert.Error(t, err)
}

// A second TryPass while one is in flight must be refused, not queued.
func TestTryPass_SingleFlight(t *testing.T) {
	runner := &stubRunner{block: make(chan struct{}), started: make(chan struct{}, 1)}
	s := newScheduler(runner, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		ran, err := s.TryPass(context.Background())
		assert.True(t, ran)
		assert.NoError(t, err)
	}()

	<-runner.started
	ran, err := s.TryPass(context.Background())
	assert.False(t, ran)
	assert.NoError(t, err)

	close(runner.block)
	<-done
	assert.Equal(t, 1, runner.callCount())
}

func TestTryPass_LockHeldElsewhereSkips(t *testing.T) {
	runner := &stubRunner{}
	lock := &stubLocker{acquired: false}
	s := newScheduler(runner, lock)

	ran, err := s.TryPass(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Equal(t, 0, runner.callCount())
}

func TestTryPass_LockAcquiredReleasedAfterPass(t *testing.T) {
	runner := &stubRunner{}
	lock := &stubLocker{acquired: true}
	s := newScheduler(runner, lock)

	ran, err := s.TryPass(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, int32(1), lock.releases.Load())
}

// Lock backend trouble degrades to an unlocked pass rather than halting
// the sweep.
func TestTryPass_LockErrorProceedsUnlocked(t *testing.T) {
	runner := &stubRunner{}
	lock := &stubLocker{err: errors.New("redis unreachable")}
	s := newScheduler(runner, lock)

	ran, err := s.TryPass(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 1, runner.callCount())
	assert.Equal(t, int32(0), lock.releases.Load())
}

func TestRun_StopsOnCancelAfterInFlightPass(t *testing.T) {
	runner := &stubRunner{block: make(chan struct{}), started: make(chan struct{}, 1)}
	s := newScheduler(runner, nil)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	<-runner.started
	cancel()
	close(runner.block)

	finished := make(chan struct{})
	go func() {
		s.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
	assert.Equal(t, 1, runner.callCount())
}
