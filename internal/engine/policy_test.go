package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/resolution-engine/internal/domain"
	"github.com/spec-kit/resolution-engine/internal/engine"
)

func TestPolicy_Decide(t *testing.T) {
	record := &domain.FinancialRecord{ID: "INV-100", Kind: domain.RecordKindInvoice}

	tests := []struct {
		name        string
		match       domain.MatchResult
		wantOutcome domain.Outcome
	}{
		{
			name: "exact match auto closes",
			match: domain.MatchResult{
				TicketID:   "T-1",
				Tag:        domain.MatchTagSingle,
				Record:     record,
				Confidence: 1.0,
				Rationale:  "invoice INV-100 matched",
			},
			wantOutcome: domain.OutcomeAutoClosed,
		},
		{
			name: "mid confidence escalates",
			match: domain.MatchResult{
				TicketID:   "T-1",
				Tag:        domain.MatchTagSingle,
				Record:     record,
				Confidence: 0.7,
				Rationale:  "vendor match",
			},
			wantOutcome: domain.OutcomeEscalated,
		},
		{
			name: "ambiguity always escalates",
			match: domain.MatchResult{
				TicketID:   "T-1",
				Tag:        domain.MatchTagAmbiguous,
				Candidates: 2,
				Rationale:  "2 records match",
			},
			wantOutcome: domain.OutcomeEscalated,
		},
		{
			name: "no data leaves the ticket open",
			match: domain.MatchResult{
				TicketID:  "T-1",
				Tag:       domain.MatchTagNoData,
				Rationale: "no record matches",
			},
			wantOutcome: domain.OutcomeLeftOpen,
		},
		{
			name: "confidence below the escalation bar leaves the ticket open",
			match: domain.MatchResult{
				TicketID:   "T-1",
				Tag:        domain.MatchTagSingle,
				Record:     record,
				Confidence: 0.3,
				Rationale:  "weak match",
			},
			wantOutcome: domain.OutcomeLeftOpen,
		},
	}

	policy := engine.NewPolicy(0.9, 0.5)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := policy.Decide(tt.match)
			assert.Equal(t, tt.wantOutcome, res.Outcome)
			assert.Equal(t, "T-1", res.TicketID)
			assert.Equal(t, domain.DecidedBySystem, res.DecidedBy)
			assert.Contains(t, res.Rationale, tt.match.Rationale)
			if tt.match.Record != nil {
				assert.NotNil(t, res.RecordID)
			} else {
				assert.Nil(t, res.RecordID)
			}
		})
	}
}

func TestPolicy_DecideIsDeterministic(t *testing.T) {
	policy := engine.NewPolicy(0.9, 0.5)
	match := domain.MatchResult{
		TicketID:   "T-1",
		Tag:        domain.MatchTagSingle,
		Record:     &domain.FinancialRecord{ID: "INV-100"},
		Confidence: 1.0,
		Rationale:  "invoice INV-100 matched by document number",
	}
	first := policy.Decide(match)
	second := policy.Decide(match)
	assert.Equal(t, first.Rationale, second.Rationale)
	assert.Equal(t, first.Outcome, second.Outcome)
}

func TestPolicy_ConfigurableThresholds(t *testing.T) {
	// A stricter deployment can require manual review of everything.
	strict := engine.NewPolicy(1.1, 0.5) // invalid, falls back to default 0.9
	assert.Equal(t, domain.OutcomeAutoClosed, strict.Decide(domain.MatchResult{
		Tag: domain.MatchTagSingle, Confidence: 1.0,
	}).Outcome)

	lax := engine.NewPolicy(0.6, 0.2)
	assert.Equal(t, domain.OutcomeAutoClosed, lax.Decide(domain.MatchResult{
		Tag: domain.MatchTagSingle, Confidence: 0.7,
	}).Outcome)
}
