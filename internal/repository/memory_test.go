package repository_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/resolution-engine/internal/domain"
	"github.com/spec-kit/resolution-engine/internal/repository"
)

func TestMemoryStore_StatusCompareAndSet(t *testing.T) {
	store := repository.NewMemoryStore()
	store.SeedTicket(domain.Ticket{ID: "T-1", Status: domain.TicketStatusOpen})

	require.NoError(t, store.UpdateTicketStatus(context.Background(), "T-1", domain.TicketStatusOpen, domain.TicketStatusClosed))

	err := store.UpdateTicketStatus(context.Background(), "T-1", domain.TicketStatusOpen, domain.TicketStatusPendingReview)
	assert.ErrorIs(t, err, repository.ErrConflict)

	err = store.UpdateTicketStatus(context.Background(), "missing", domain.TicketStatusOpen, domain.TicketStatusClosed)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// Two writers racing on the same open ticket: exactly one status write
// succeeds, the other observes a conflict.
func TestMemoryStore_ConcurrentWritersConflict(t *testing.T) {
	store := repository.NewMemoryStore()
	store.SeedTicket(domain.Ticket{ID: "T-1", Status: domain.TicketStatusOpen})

	const writers = 8
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.ApplyResolution(context.Background(), "T-1",
				domain.TicketStatusOpen, domain.TicketStatusClosed,
				&domain.Resolution{ID: "R", TicketID: "T-1", Outcome: domain.OutcomeAutoClosed})
		}(i)
	}
	wg.Wait()

	var succeeded, conflicted int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case err == repository.ErrConflict:
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, writers-1, conflicted)
	assert.Len(t, store.ResolutionsFor("T-1"), 1)
}

func TestMemoryStore_ListOpenTickets(t *testing.T) {
	store := repository.NewMemoryStore()
	store.SeedTicket(domain.Ticket{ID: "T-2", Status: domain.TicketStatusOpen})
	store.SeedTicket(domain.Ticket{ID: "T-1", Status: domain.TicketStatusOpen})
	store.SeedTicket(domain.Ticket{ID: "T-3", Status: domain.TicketStatusClosed})

	tickets, err := store.ListOpenTickets(context.Background())
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.Equal(t, "T-1", tickets[0].ID)
	assert.Equal(t, "T-2", tickets[1].ID)
}

func TestMemoryStore_DeliveryBookkeeping(t *testing.T) {
	store := repository.NewMemoryStore()
	res := &domain.Resolution{ID: "R-1", TicketID: "T-1", Outcome: domain.OutcomeEscalated, Delivery: domain.DeliveryPending}
	require.NoError(t, store.AppendResolution(context.Background(), res))

	require.NoError(t, store.UpdateDelivery(context.Background(), "R-1", domain.DeliverySent, 2))
	latest, err := store.LatestResolution(context.Background(), "T-1")
	require.NoError(t, err)
	assert.Equal(t, domain.DeliverySent, latest.Delivery)
	assert.Equal(t, 2, latest.DeliveryAttempts)

	assert.ErrorIs(t, store.UpdateDelivery(context.Background(), "missing", domain.DeliverySent, 1), repository.ErrNotFound)
}

func TestMemoryStore_SearchRecords(t *testing.T) {
	store := repository.NewMemoryStore()
	crossRef := "PO-9"
	store.SeedRecord(domain.FinancialRecord{ID: "INV-1", Kind: domain.RecordKindInvoice, Vendor: "Acme", Amount: 10.01, CrossRef: &crossRef})
	store.SeedRecord(domain.FinancialRecord{ID: "INV-2", Kind: domain.RecordKindInvoice, Vendor: "Beta", Amount: 10})

	ident := "PO-9"
	byCrossRef, err := store.SearchRecords(context.Background(), repository.RecordFilter{Identifier: &ident})
	require.NoError(t, err)
	require.Len(t, byCrossRef, 1)
	assert.Equal(t, "INV-1", byCrossRef[0].ID)

	vendor := "ACME"
	amount := 10.0149
	byVendor, err := store.SearchRecords(context.Background(), repository.RecordFilter{Vendor: &vendor, Amount: &amount})
	require.NoError(t, err)
	require.Len(t, byVendor, 1)
	assert.Equal(t, "INV-1", byVendor[0].ID)
}
