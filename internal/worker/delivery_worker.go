package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/resolution-engine/internal/domain"
	"github.com/spec-kit/resolution-engine/internal/notify"
	"github.com/spec-kit/resolution-engine/internal/repository"
)

type job struct {
	notice   notify.Notice
	attempts int
}

// DeliveryWorker retries failed notifications asynchronously, decoupled
// from the ticket-state transaction. It updates delivery bookkeeping on the
// resolution and never touches ticket status.
type DeliveryWorker struct {
	store       repository.TicketStore
	notifier    notify.Notifier
	logger      *zap.Logger
	maxAttempts int
	spacing     time.Duration

	jobs chan job
	wg   sync.WaitGroup
}

// NewDeliveryWorker constructs the worker. maxAttempts counts total
// delivery tries including the applier's first one.
func NewDeliveryWorker(store repository.TicketStore, notifier notify.Notifier, logger *zap.Logger, maxAttempts int, spacing time.Duration) *DeliveryWorker {
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	if spacing <= 0 {
		spacing = 30 * time.Second
	}
	return &DeliveryWorker{
		store:       store,
		notifier:    notifier,
		logger:      logger,
		maxAttempts: maxAttempts,
		spacing:     spacing,
		jobs:        make(chan job, 64),
	}
}

// Enqueue hands over a failed notice. attempts is how many tries already
// happened. Notices past the attempt bound, or overflowing the queue, stay
// FAILED on the resolution and surface through the review flow.
func (w *DeliveryWorker) Enqueue(notice notify.Notice, attempts int) {
	if attempts >= w.maxAttempts {
		w.logger.Warn("delivery permanently failed",
			zap.String("resolution_id", notice.ResolutionID),
			zap.Int("attempts", attempts))
		return
	}
	select {
	case w.jobs <- job{notice: notice, attempts: attempts}:
	default:
		w.logger.Warn("delivery retry queue full, dropping",
			zap.String("resolution_id", notice.ResolutionID))
	}
}

// Start launches the retry loop until the context is cancelled.
func (w *DeliveryWorker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
}

// Wait blocks until the retry loop has exited.
func (w *DeliveryWorker) Wait() {
	w.wg.Wait()
}

func (w *DeliveryWorker) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-w.jobs:
			if !w.pause(ctx) {
				return
			}
			w.attempt(ctx, item)
		}
	}
}

func (w *DeliveryWorker) pause(ctx context.Context) bool {
	timer := time.NewTimer(w.spacing)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (w *DeliveryWorker) attempt(ctx context.Context, item job) {
	attempts := item.attempts + 1
	err := w.notifier.Deliver(ctx, item.notice)
	status := domain.DeliverySent
	if err != nil {
		status = domain.DeliveryFailed
	}

	if updateErr := w.store.UpdateDelivery(ctx, item.notice.ResolutionID, status, attempts); updateErr != nil {
		w.logger.Error("delivery bookkeeping failed",
			zap.String("resolution_id", item.notice.ResolutionID),
			zap.Error(updateErr))
	}

	if err == nil {
		w.logger.Info("delivery retry succeeded",
			zap.String("resolution_id", item.notice.ResolutionID),
			zap.Int("attempts", attempts))
		return
	}

	w.logger.Warn("delivery retry failed",
		zap.String("resolution_id", item.notice.ResolutionID),
		zap.Int("attempts", attempts),
		zap.Error(err))
	w.Enqueue(item.notice, attempts)
}
