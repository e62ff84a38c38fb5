package domain

import "time"

// Outcome is the decision the engine reached for a ticket.
type Outcome string

const (
	OutcomeAutoClosed Outcome = "AUTO_CLOSED"
	OutcomeEscalated  Outcome = "ESCALATED_FOR_REVIEW"
	OutcomeLeftOpen   Outcome = "LEFT_OPEN"
)

// DeliveryStatus tracks the manager/requester notification for a resolution.
type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "PENDING"
	DeliverySent    DeliveryStatus = "SENT"
	DeliveryFailed  DeliveryStatus = "FAILED"
)

// DecidedBySystem marks resolutions produced by the engine rather than a
// human reviewer.
const DecidedBySystem = "system"

// Resolution is the recorded outcome and rationale of the engine's decision
// on a ticket. Append-only: never updated except for delivery bookkeeping.
type Resolution struct {
	ID               string
	TicketID         string
	Outcome          Outcome
	RecordID         *string
	Rationale        string
	DecidedBy        string
	DecidedAt        time.Time
	Delivery         DeliveryStatus
	DeliveryAttempts int
}
