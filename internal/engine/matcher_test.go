package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/resolution-engine/internal/domain"
	"github.com/spec-kit/resolution-engine/internal/engine"
	"github.com/spec-kit/resolution-engine/internal/repository"
)

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func openTicket(id string, refs domain.TicketReferences) domain.Ticket {
	return domain.Ticket{
		ID:           id,
		Category:     domain.TicketCategoryInvoiceStatus,
		Status:       domain.TicketStatusOpen,
		AssignedTeam: "AP",
		References:   refs,
	}
}

func TestMatcher_Match(t *testing.T) {
	inv100 := domain.FinancialRecord{
		ID:            "INV-100",
		Kind:          domain.RecordKindInvoice,
		Vendor:        "Acme",
		Amount:        500.00,
		PaymentStatus: "PAID",
	}

	tests := []struct {
		name           string
		refs           domain.TicketReferences
		records        []domain.FinancialRecord
		wantTag        domain.MatchTag
		wantConfidence float64
		wantRecordID   *string
	}{
		{
			name:           "exact invoice number match",
			refs:           domain.TicketReferences{InvoiceNumber: strPtr("INV-100"), Amount: floatPtr(500.00)},
			records:        []domain.FinancialRecord{inv100},
			wantTag:        domain.MatchTagSingle,
			wantConfidence: 1.0,
			wantRecordID:   strPtr("INV-100"),
		},
		{
			name: "po number matches cross reference",
			refs: domain.TicketReferences{PONumber: strPtr("PO-77")},
			records: []domain.FinancialRecord{
				{ID: "INV-200", Kind: domain.RecordKindInvoice, Vendor: "Beta", Amount: 80, CrossRef: strPtr("PO-77")},
			},
			wantTag:        domain.MatchTagSingle,
			wantConfidence: 1.0,
			wantRecordID:   strPtr("INV-200"),
		},
		{
			name:           "vendor and amount fallback",
			refs:           domain.TicketReferences{Vendor: strPtr("acme"), Amount: floatPtr(500.004)},
			records:        []domain.FinancialRecord{inv100},
			wantTag:        domain.MatchTagSingle,
			wantConfidence: 0.7,
			wantRecordID:   strPtr("INV-100"),
		},
		{
			name: "two vendor matches are ambiguous",
			refs: domain.TicketReferences{Vendor: strPtr("Acme"), Amount: floatPtr(250.00)},
			records: []domain.FinancialRecord{
				{ID: "INV-301", Kind: domain.RecordKindInvoice, Vendor: "Acme", Amount: 250.00},
				{ID: "INV-302", Kind: domain.RecordKindInvoice, Vendor: "Acme", Amount: 250.00},
			},
			wantTag:        domain.MatchTagAmbiguous,
			wantConfidence: 0,
			wantRecordID:   nil,
		},
		{
			name:    "no references yields no data",
			refs:    domain.TicketReferences{},
			records: []domain.FinancialRecord{inv100},
			wantTag: domain.MatchTagNoData,
		},
		{
			name:    "nothing in the store yields no data",
			refs:    domain.TicketReferences{InvoiceNumber: strPtr("INV-999")},
			records: nil,
			wantTag: domain.MatchTagNoData,
		},
		{
			name: "identifier takes priority over vendor and amount",
			refs: domain.TicketReferences{InvoiceNumber: strPtr("INV-100"), Vendor: strPtr("Acme"), Amount: floatPtr(250.00)},
			records: []domain.FinancialRecord{
				inv100,
				{ID: "INV-301", Kind: domain.RecordKindInvoice, Vendor: "Acme", Amount: 250.00},
				{ID: "INV-302", Kind: domain.RecordKindInvoice, Vendor: "Acme", Amount: 250.00},
			},
			wantTag:        domain.MatchTagSingle,
			wantConfidence: 1.0,
			wantRecordID:   strPtr("INV-100"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := repository.NewMemoryStore()
			for _, rec := range tt.records {
				store.SeedRecord(rec)
			}
			matcher := engine.NewMatcher(store)

			result, err := matcher.Match(context.Background(), openTicket("T-1", tt.refs))
			require.NoError(t, err)

			assert.Equal(t, "T-1", result.TicketID)
			assert.Equal(t, tt.wantTag, result.Tag)
			assert.InDelta(t, tt.wantConfidence, result.Confidence, 1e-9)
			assert.NotEmpty(t, result.Rationale)
			if tt.wantRecordID == nil {
				assert.Nil(t, result.Record)
			} else {
				require.NotNil(t, result.Record)
				assert.Equal(t, *tt.wantRecordID, result.Record.ID)
			}
		})
	}
}

func TestMatcher_StoreErrorPropagates(t *testing.T) {
	store := repository.NewMemoryStore()
	store.SearchErr = errors.New("connection refused")
	matcher := engine.NewMatcher(store)

	_, err := matcher.Match(context.Background(), openTicket("T-1", domain.TicketReferences{
		InvoiceNumber: strPtr("INV-100"),
	}))
	require.Error(t, err)
}
