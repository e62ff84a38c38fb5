package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/resolution-engine/internal/domain"
	"github.com/spec-kit/resolution-engine/internal/events"
	"github.com/spec-kit/resolution-engine/internal/repository"
	"github.com/spec-kit/resolution-engine/internal/service"
	"github.com/spec-kit/resolution-engine/pkg/util"
)

func newReviewFixture(t *testing.T) (*service.ReviewService, *repository.MemoryStore, events.Dispatcher) {
	t.Helper()
	store := repository.NewMemoryStore()
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	return service.NewReviewService(store, dispatcher, zap.NewNop()), store, dispatcher
}

func seedEscalated(store *repository.MemoryStore, ticketID string) {
	store.SeedTicket(domain.Ticket{ID: ticketID, Status: domain.TicketStatusPendingReview})
	_ = store.AppendResolution(context.Background(), &domain.Resolution{
		ID:       "R-" + ticketID,
		TicketID: ticketID,
		Outcome:  domain.OutcomeEscalated,
		Delivery: domain.DeliverySent,
	})
}

func TestReviewService_ApproveResolvesTicket(t *testing.T) {
	svc, store, dispatcher := newReviewFixture(t)
	seedEscalated(store, "T-1")

	var reviewed []events.Event
	dispatcher.Subscribe(events.EventTicketReviewed, func(ctx context.Context, ev events.Event) error {
		reviewed = append(reviewed, ev)
		return nil
	})

	outcome, err := svc.Approve(context.Background(), "T-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, outcome.Ticket.Status)
	require.NotNil(t, outcome.Resolution)
	assert.Equal(t, "R-T-1", outcome.Resolution.ID)

	require.Len(t, reviewed, 1)
	payload, ok := reviewed[0].Payload.(events.ReviewPayload)
	require.True(t, ok)
	assert.True(t, payload.Approved)
	assert.Equal(t, domain.TicketStatusResolved, payload.NewStatus)
}

// Rejection re-opens the ticket; the escalation resolution stays on
// record so the audit trail is append-only.
func TestReviewService_RejectReopensTicket(t *testing.T) {
	svc, store, _ := newReviewFixture(t)
	seedEscalated(store, "T-1")

	outcome, err := svc.Reject(context.Background(), "T-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, outcome.Ticket.Status)
	assert.Len(t, store.ResolutionsFor("T-1"), 1)
}

func TestReviewService_DecideRequiresPendingReview(t *testing.T) {
	svc, store, _ := newReviewFixture(t)
	store.SeedTicket(domain.Ticket{ID: "T-1", Status: domain.TicketStatusOpen})

	_, err := svc.Approve(context.Background(), "T-1")
	require.Error(t, err)
	domainErr := util.ToDomainError(err)
	assert.Equal(t, "STORE_CONFLICT", domainErr.Code)
}

func TestReviewService_UnknownTicket(t *testing.T) {
	svc, _, _ := newReviewFixture(t)

	_, err := svc.Approve(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", util.ToDomainError(err).Code)
}

// A ticket can legitimately await review with its resolution row missing
// (delivery bookkeeping lag); the payload then carries the ticket alone.
func TestReviewService_PendingResolutionWithoutRecord(t *testing.T) {
	svc, store, _ := newReviewFixture(t)
	store.SeedTicket(domain.Ticket{ID: "T-1", Status: domain.TicketStatusPendingReview})

	outcome, err := svc.PendingResolution(context.Background(), "T-1")
	require.NoError(t, err)
	assert.Equal(t, "T-1", outcome.Ticket.ID)
	assert.Nil(t, outcome.Resolution)
}
