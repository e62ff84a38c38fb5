package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen          TicketStatus = "OPEN"
	TicketStatusPendingReview TicketStatus = "PENDING_REVIEW"
	TicketStatusResolved      TicketStatus = "RESOLVED"
	TicketStatusEscalated     TicketStatus = "ESCALATED"
	TicketStatusClosed        TicketStatus = "CLOSED"
)

// TicketCategory describes what kind of query the ticket carries.
type TicketCategory string

const (
	TicketCategoryInvoiceStatus TicketCategory = "INVOICE_STATUS"
	TicketCategoryPOStatus      TicketCategory = "PO_STATUS"
	TicketCategoryGeneric       TicketCategory = "GENERIC"
)

// TicketReferences are the structured fields already extracted from the
// ticket description by the upstream intake flow. Each is optional.
type TicketReferences struct {
	InvoiceNumber *string
	PONumber      *string
	Vendor        *string
	Amount        *float64
}

// Ticket is the aggregate the engine sweeps over.
type Ticket struct {
	ID             string
	Category       TicketCategory
	Status         TicketStatus
	RequesterName  string
	RequesterEmail *string
	AssignedTeam   string
	ManagerEmail   *string
	Description    string
	References     TicketReferences
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ClosedAt       *time.Time
	Resolution     *Resolution
}

// IsTerminal reports whether the engine must never touch the ticket again.
func (t *Ticket) IsTerminal() bool {
	return t.Status == TicketStatusResolved || t.Status == TicketStatusClosed
}
