package notify

import "context"

// Notice is one outbound email. Delivery failure must be retriable with no
// side effects beyond bookkeeping, so a Notice carries everything needed to
// send it again verbatim.
type Notice struct {
	To           string
	Subject      string
	Body         string
	TicketID     string
	ResolutionID string
}

// Notifier delivers a notice or reports a retriable failure.
type Notifier interface {
	Deliver(ctx context.Context, notice Notice) error
}
