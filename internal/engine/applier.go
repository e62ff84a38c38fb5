package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/resolution-engine/internal/domain"
	"github.com/spec-kit/resolution-engine/internal/events"
	"github.com/spec-kit/resolution-engine/internal/notify"
	"github.com/spec-kit/resolution-engine/internal/repository"
)

// ErrSkipped signals the ticket was transitioned by someone else between
// the snapshot read and the status write. Not an error escalation: the
// pass records the skip and moves on.
var ErrSkipped = errors.New("ticket skipped: concurrent transition")

// LinkBuilder mints the approve/reject URLs embedded in escalation emails.
type LinkBuilder interface {
	Links(ticketID string) (approve, reject string, err error)
}

// DeliveryRetrier accepts failed notices for asynchronous redelivery.
type DeliveryRetrier interface {
	Enqueue(notice notify.Notice, attempts int)
}

// Applier transitions a ticket's state, persists the resolution, and fires
// the notification side effect. It exclusively creates Resolutions.
type Applier struct {
	store      repository.TicketStore
	notifier   notify.Notifier
	links      LinkBuilder
	retrier    DeliveryRetrier
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// ApplierDependencies bundles collaborators for the applier.
type ApplierDependencies struct {
	Store      repository.TicketStore
	Notifier   notify.Notifier
	Links      LinkBuilder
	Retrier    DeliveryRetrier
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewApplier constructs the applier.
func NewApplier(deps ApplierDependencies) *Applier {
	return &Applier{
		store:      deps.Store,
		notifier:   deps.Notifier,
		links:      deps.Links,
		retrier:    deps.Retrier,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// Apply writes {status, resolution} as one logical transaction, then
// delivers the notification. Notification failure never rolls back the
// state change; it is recorded on the resolution and retried independently.
// Returns ErrSkipped on a lost compare-and-set race.
func (a *Applier) Apply(ctx context.Context, ticket domain.Ticket, res *domain.Resolution) error {
	if ticket.Status != domain.TicketStatusOpen {
		return fmt.Errorf("ticket %s is %s, applier requires OPEN", ticket.ID, ticket.Status)
	}

	var next domain.TicketStatus
	switch res.Outcome {
	case domain.OutcomeAutoClosed:
		next = domain.TicketStatusClosed
	case domain.OutcomeEscalated:
		next = domain.TicketStatusPendingReview
	default:
		return fmt.Errorf("outcome %s never reaches the applier", res.Outcome)
	}

	res.ID = uuid.NewString()
	res.TicketID = ticket.ID
	res.DecidedAt = time.Now()
	res.Delivery = domain.DeliveryPending
	res.DeliveryAttempts = 0

	if err := a.store.ApplyResolution(ctx, ticket.ID, domain.TicketStatusOpen, next, res); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			a.logger.Info("lost status race, skipping ticket", zap.String("ticket_id", ticket.ID))
			return ErrSkipped
		}
		return fmt.Errorf("apply resolution: %w", err)
	}

	a.publishOutcome(ctx, ticket.ID, res)
	a.deliver(ctx, ticket, res)
	return nil
}

func (a *Applier) deliver(ctx context.Context, ticket domain.Ticket, res *domain.Resolution) {
	notice, err := a.buildNotice(ticket, res)
	if err != nil {
		a.logger.Error("cannot build notice", zap.String("ticket_id", ticket.ID), zap.Error(err))
		a.markDelivery(ctx, res, domain.DeliveryFailed, 1)
		return
	}

	if err := a.notifier.Deliver(ctx, notice); err != nil {
		a.logger.Warn("notification failed, queueing retry",
			zap.String("ticket_id", ticket.ID),
			zap.Error(err))
		a.markDelivery(ctx, res, domain.DeliveryFailed, 1)
		a.dispatcher.Publish(ctx, events.Event{
			Type:     events.EventNotificationFailed,
			TicketID: ticket.ID,
			Payload: events.NotificationFailedPayload{
				ResolutionID: res.ID,
				Attempts:     1,
				Reason:       err.Error(),
			},
		})
		if a.retrier != nil {
			a.retrier.Enqueue(notice, 1)
		}
		return
	}
	a.markDelivery(ctx, res, domain.DeliverySent, 1)
}

func (a *Applier) buildNotice(ticket domain.Ticket, res *domain.Resolution) (notify.Notice, error) {
	if res.Outcome == domain.OutcomeAutoClosed {
		return notify.RequesterNotice(ticket, *res), nil
	}
	approve, reject, err := a.links.Links(ticket.ID)
	if err != nil {
		return notify.Notice{}, fmt.Errorf("review links: %w", err)
	}
	return notify.ManagerNotice(ticket, *res, approve, reject), nil
}

func (a *Applier) markDelivery(ctx context.Context, res *domain.Resolution, status domain.DeliveryStatus, attempts int) {
	res.Delivery = status
	res.DeliveryAttempts = attempts
	if err := a.store.UpdateDelivery(ctx, res.ID, status, attempts); err != nil {
		a.logger.Error("delivery bookkeeping failed",
			zap.String("resolution_id", res.ID),
			zap.Error(err))
	}
}

func (a *Applier) publishOutcome(ctx context.Context, ticketID string, res *domain.Resolution) {
	eventType := events.EventTicketAutoClosed
	if res.Outcome == domain.OutcomeEscalated {
		eventType = events.EventTicketEscalated
	}
	a.dispatcher.Publish(ctx, events.Event{
		Type:     eventType,
		TicketID: ticketID,
		Payload: events.ResolutionPayload{
			ResolutionID: res.ID,
			Outcome:      res.Outcome,
			RecordID:     res.RecordID,
			Rationale:    res.Rationale,
		},
	})
}
