package notify

import (
	"fmt"

	"github.com/spec-kit/resolution-engine/internal/domain"
)

// ManagerNotice builds the review email for an escalated ticket. The
// approve and reject links carry signed tokens minted by the caller.
func ManagerNotice(ticket domain.Ticket, res domain.Resolution, approveURL, rejectURL string) Notice {
	to := ""
	if ticket.ManagerEmail != nil {
		to = *ticket.ManagerEmail
	}
	body := fmt.Sprintf(`Hello,

Ticket %s (team %s) was escalated by the resolution engine and needs your review.

Rationale:
%s

Please review:
APPROVE: %s
REJECT & REOPEN: %s

Regards,
Query Management System
`, ticket.ID, ticket.AssignedTeam, res.Rationale, approveURL, rejectURL)

	return Notice{
		To:           to,
		Subject:      fmt.Sprintf("Approval Required: Ticket %s", ticket.ID),
		Body:         body,
		TicketID:     ticket.ID,
		ResolutionID: res.ID,
	}
}

// RequesterNotice builds the closure email for an auto-closed ticket.
func RequesterNotice(ticket domain.Ticket, res domain.Resolution) Notice {
	to := ""
	if ticket.RequesterEmail != nil {
		to = *ticket.RequesterEmail
	}
	body := fmt.Sprintf(`Hello %s,

Your ticket has been resolved automatically.

%s

Ticket ID: %s
Status: Closed

Regards,
Query Management System
`, ticket.RequesterName, res.Rationale, ticket.ID)

	return Notice{
		To:           to,
		Subject:      fmt.Sprintf("Ticket %s Resolved", ticket.ID),
		Body:         body,
		TicketID:     ticket.ID,
		ResolutionID: res.ID,
	}
}
