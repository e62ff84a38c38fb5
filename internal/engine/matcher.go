package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/spec-kit/resolution-engine/internal/domain"
	"github.com/spec-kit/resolution-engine/internal/repository"
)

// Matcher resolves one ticket's references against the financial record
// store. Pure read: it never mutates the ticket or the store.
type Matcher struct {
	records repository.RecordStore
}

// NewMatcher constructs a matcher over the given record store.
func NewMatcher(records repository.RecordStore) *Matcher {
	return &Matcher{records: records}
}

// Match queries candidates equality-first: an exact document identifier
// takes priority over a vendor+amount lookup. Ambiguity is surfaced as its
// own tag, never resolved by scoring.
func (m *Matcher) Match(ctx context.Context, ticket domain.Ticket) (domain.MatchResult, error) {
	result := domain.MatchResult{TicketID: ticket.ID, Tag: domain.MatchTagNoData}

	identifier := firstIdentifier(ticket.References)
	if identifier != nil {
		candidates, err := m.records.SearchRecords(ctx, repository.RecordFilter{Identifier: identifier})
		if err != nil {
			return result, fmt.Errorf("search by identifier: %w", err)
		}
		if len(candidates) > 0 {
			return classify(ticket.ID, candidates, domain.ConfidenceExactIdentifier,
				fmt.Sprintf("document number %q", *identifier)), nil
		}
	}

	refs := ticket.References
	if refs.Vendor != nil && refs.Amount != nil {
		candidates, err := m.records.SearchRecords(ctx, repository.RecordFilter{
			Vendor: refs.Vendor,
			Amount: refs.Amount,
		})
		if err != nil {
			return result, fmt.Errorf("search by vendor and amount: %w", err)
		}
		if len(candidates) > 0 {
			return classify(ticket.ID, candidates, domain.ConfidenceVendorAmount,
				fmt.Sprintf("vendor %q with amount %.2f", *refs.Vendor, *refs.Amount)), nil
		}
	}

	result.Rationale = "no financial record matches the ticket references"
	return result, nil
}

func classify(ticketID string, candidates []domain.FinancialRecord, confidence float64, criteria string) domain.MatchResult {
	if len(candidates) == 1 {
		rec := candidates[0]
		return domain.MatchResult{
			TicketID:   ticketID,
			Record:     &rec,
			Confidence: confidence,
			Rationale: fmt.Sprintf("%s %s matched by %s, payment status %q",
				recordNoun(rec.Kind), rec.ID, criteria, rec.PaymentStatus),
			Tag:        domain.MatchTagSingle,
			Candidates: 1,
		}
	}
	return domain.MatchResult{
		TicketID:   ticketID,
		Confidence: 0,
		Rationale:  fmt.Sprintf("%d records match %s; cannot pick one", len(candidates), criteria),
		Tag:        domain.MatchTagAmbiguous,
		Candidates: len(candidates),
	}
}

func firstIdentifier(refs domain.TicketReferences) *string {
	for _, ref := range []*string{refs.InvoiceNumber, refs.PONumber} {
		if ref != nil && strings.TrimSpace(*ref) != "" {
			trimmed := strings.TrimSpace(*ref)
			return &trimmed
		}
	}
	return nil
}

func recordNoun(kind domain.RecordKind) string {
	if kind == domain.RecordKindPurchaseOrder {
		return "purchase order"
	}
	return "invoice"
}
