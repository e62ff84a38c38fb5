package events

import (
	"time"

	"github.com/spec-kit/resolution-engine/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketAutoClosed   EventType = "ticket_auto_closed"
	EventTicketEscalated    EventType = "ticket_escalated"
	EventTicketReviewed     EventType = "ticket_reviewed"
	EventNotificationFailed EventType = "notification_failed"
	EventPassCompleted      EventType = "pass_completed"
)

// Event represents a domain event emitted by the engine.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ResolutionPayload accompanies auto-close and escalation events.
type ResolutionPayload struct {
	ResolutionID string         `json:"resolution_id"`
	Outcome      domain.Outcome `json:"outcome"`
	RecordID     *string        `json:"record_id,omitempty"`
	Rationale    string         `json:"rationale"`
}

// ReviewPayload accompanies manager review decisions.
type ReviewPayload struct {
	Approved  bool                `json:"approved"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// NotificationFailedPayload accompanies delivery failures.
type NotificationFailedPayload struct {
	ResolutionID string `json:"resolution_id"`
	Attempts     int    `json:"attempts"`
	Reason       string `json:"reason"`
}

// PassCompletedPayload carries the per-pass summary counts.
type PassCompletedPayload struct {
	Total      int           `json:"total"`
	AutoClosed int           `json:"auto_closed"`
	Escalated  int           `json:"escalated"`
	LeftOpen   int           `json:"left_open"`
	Conflicts  int           `json:"conflicts"`
	Failures   int           `json:"failures"`
	Duration   time.Duration `json:"duration"`
}
