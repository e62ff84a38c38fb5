package repository

import (
	"context"
	"errors"

	"github.com/spec-kit/resolution-engine/internal/domain"
)

// Sentinel errors surfaced by store implementations.
var (
	// ErrConflict signals the compare-and-set status write lost to a
	// concurrent transition. The engine skips the ticket for this pass.
	ErrConflict = errors.New("ticket status conflict")
	// ErrNotFound signals the referenced row does not exist.
	ErrNotFound = errors.New("not found")
)

// RecordFilter narrows a financial record search. Nil fields are ignored.
// Identifier matches the document number or its cross-reference exactly;
// Vendor matches case-insensitively; Amount matches after rounding to cents.
type RecordFilter struct {
	Identifier *string
	Vendor     *string
	Amount     *float64
}

// RecordStore is the read-only view of invoices and purchase orders.
type RecordStore interface {
	SearchRecords(ctx context.Context, filter RecordFilter) ([]domain.FinancialRecord, error)
}

// TicketStore is the engine's read/write contract for tickets and
// resolutions. Status writes are compare-and-set: ErrConflict means a
// concurrent pass or reviewer got there first.
type TicketStore interface {
	ListOpenTickets(ctx context.Context) ([]domain.Ticket, error)
	GetTicket(ctx context.Context, id string) (*domain.Ticket, error)
	UpdateTicketStatus(ctx context.Context, id string, expected, next domain.TicketStatus) error

	// ApplyResolution transitions the ticket status and appends the
	// resolution as one logical transaction. Either both happen or neither.
	ApplyResolution(ctx context.Context, id string, expected, next domain.TicketStatus, res *domain.Resolution) error

	AppendResolution(ctx context.Context, res *domain.Resolution) error
	LatestResolution(ctx context.Context, ticketID string) (*domain.Resolution, error)
	UpdateDelivery(ctx context.Context, resolutionID string, status domain.DeliveryStatus, attempts int) error
}
