package engine

import (
	"fmt"

	"github.com/spec-kit/resolution-engine/internal/domain"
)

// Policy turns a match result into a resolution decision. Thresholds are
// configuration, not business truth: the original system documented none.
type Policy struct {
	autoCloseConfidence float64
	escalateConfidence  float64
}

// NewPolicy builds a policy. Zero or inverted thresholds fall back to the
// defaults (auto-close at 0.9, escalate at 0.5).
func NewPolicy(autoClose, escalate float64) *Policy {
	if autoClose <= 0 || autoClose > 1 {
		autoClose = 0.9
	}
	if escalate <= 0 || escalate >= autoClose {
		escalate = 0.5
	}
	return &Policy{autoCloseConfidence: autoClose, escalateConfidence: escalate}
}

// Decide is total over all match tags. The caller fills ticket identifier,
// timestamps and delivery bookkeeping; a LEFT_OPEN outcome is never
// persisted and signals the pass to move on.
func (p *Policy) Decide(match domain.MatchResult) domain.Resolution {
	res := domain.Resolution{
		TicketID:  match.TicketID,
		DecidedBy: domain.DecidedBySystem,
	}
	if match.Record != nil {
		recordID := match.Record.ID
		res.RecordID = &recordID
	}

	switch {
	case match.Tag == domain.MatchTagAmbiguous:
		res.Outcome = domain.OutcomeEscalated
	case match.Tag == domain.MatchTagSingle && match.Confidence >= p.autoCloseConfidence:
		res.Outcome = domain.OutcomeAutoClosed
	case match.Tag == domain.MatchTagSingle && match.Confidence >= p.escalateConfidence:
		res.Outcome = domain.OutcomeEscalated
	default:
		// Covers NO_DATA and low-confidence single matches.
		res.Outcome = domain.OutcomeLeftOpen
	}

	res.Rationale = rationaleFor(res.Outcome, match)
	return res
}

func rationaleFor(outcome domain.Outcome, match domain.MatchResult) string {
	switch outcome {
	case domain.OutcomeAutoClosed:
		return fmt.Sprintf("%s; confidence %.2f meets the auto-close bar", match.Rationale, match.Confidence)
	case domain.OutcomeEscalated:
		if match.Tag == domain.MatchTagAmbiguous {
			return fmt.Sprintf("%s; escalated for manager review", match.Rationale)
		}
		return fmt.Sprintf("%s; confidence %.2f requires manager review", match.Rationale, match.Confidence)
	default:
		return fmt.Sprintf("%s; ticket stays open for the next pass", match.Rationale)
	}
}
