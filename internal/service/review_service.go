package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/resolution-engine/internal/domain"
	"github.com/spec-kit/resolution-engine/internal/events"
	"github.com/spec-kit/resolution-engine/internal/repository"
	"github.com/spec-kit/resolution-engine/pkg/util"
)

// ReviewService carries the manager decision on escalated tickets: approve
// finalizes the escalation, reject re-opens the ticket for the next pass.
// Transitions go through the same compare-and-set write the engine uses, so
// a race with a concurrent pass is a conflict, never a double transition.
type ReviewService struct {
	store      repository.TicketStore
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewReviewService constructs the service.
func NewReviewService(store repository.TicketStore, dispatcher events.Dispatcher, logger *zap.Logger) *ReviewService {
	return &ReviewService{store: store, dispatcher: dispatcher, logger: logger}
}

// ReviewOutcome is the payload the review UI reads after a decision.
type ReviewOutcome struct {
	Ticket     *domain.Ticket
	Resolution *domain.Resolution
}

// Approve moves a pending-review ticket to resolved.
func (s *ReviewService) Approve(ctx context.Context, ticketID string) (*ReviewOutcome, error) {
	return s.decide(ctx, ticketID, true)
}

// Reject moves a pending-review ticket back to open; the engine will sweep
// it again. The superseded resolution stays on record.
func (s *ReviewService) Reject(ctx context.Context, ticketID string) (*ReviewOutcome, error) {
	return s.decide(ctx, ticketID, false)
}

// PendingResolution returns the ticket and the resolution awaiting review.
func (s *ReviewService) PendingResolution(ctx context.Context, ticketID string) (*ReviewOutcome, error) {
	ticket, err := s.store.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, mapStoreError(err, "ticket")
	}
	res, err := s.store.LatestResolution(ctx, ticketID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, mapStoreError(err, "resolution")
	}
	return &ReviewOutcome{Ticket: ticket, Resolution: res}, nil
}

func (s *ReviewService) decide(ctx context.Context, ticketID string, approved bool) (*ReviewOutcome, error) {
	next := domain.TicketStatusResolved
	if !approved {
		next = domain.TicketStatusOpen
	}

	if err := s.store.UpdateTicketStatus(ctx, ticketID, domain.TicketStatusPendingReview, next); err != nil {
		return nil, mapStoreError(err, "ticket")
	}

	s.logger.Info("manager review recorded",
		zap.String("ticket_id", ticketID),
		zap.Bool("approved", approved))
	s.dispatcher.Publish(ctx, events.Event{
		Type:     events.EventTicketReviewed,
		TicketID: ticketID,
		Payload:  events.ReviewPayload{Approved: approved, NewStatus: next},
	})

	return s.PendingResolution(ctx, ticketID)
}

func mapStoreError(err error, resource string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return util.NewNotFound(resource, nil)
	case errors.Is(err, repository.ErrConflict):
		return util.NewConflict("ticket is not awaiting review", nil)
	default:
		return util.NewStoreUnavailable(err)
	}
}
