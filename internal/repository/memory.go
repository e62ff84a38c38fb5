package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/spec-kit/resolution-engine/internal/domain"
)

// MemoryStore is an in-process implementation of TicketStore and
// RecordStore. It serializes every operation under one mutex, which gives
// the same per-ticket atomicity the Postgres implementation gets from its
// transaction, so the engine behaves identically against either. Used by
// tests and by local runs without a database.
type MemoryStore struct {
	mu          sync.Mutex
	tickets     map[string]*domain.Ticket
	records     []domain.FinancialRecord
	resolutions []domain.Resolution

	// Optional fault injection for exercising the engine's error paths.
	ListErr   error
	SearchErr error
	WriteErr  error
}

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tickets: make(map[string]*domain.Ticket)}
}

// SeedTicket inserts or replaces a ticket.
func (s *MemoryStore) SeedTicket(t domain.Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := t
	s.tickets[t.ID] = &copied
}

// SeedRecord inserts a financial record.
func (s *MemoryStore) SeedRecord(rec domain.FinancialRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
}

func (s *MemoryStore) ListOpenTickets(ctx context.Context) ([]domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	var result []domain.Ticket
	for _, t := range s.tickets {
		if t.Status == domain.TicketStatusOpen {
			result = append(result, *t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *MemoryStore) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (s *MemoryStore) UpdateTicketStatus(ctx context.Context, id string, expected, next domain.TicketStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionLocked(id, expected, next)
}

func (s *MemoryStore) ApplyResolution(ctx context.Context, id string, expected, next domain.TicketStatus, res *domain.Resolution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transitionLocked(id, expected, next); err != nil {
		return err
	}
	s.resolutions = append(s.resolutions, *res)
	return nil
}

func (s *MemoryStore) AppendResolution(ctx context.Context, res *domain.Resolution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.WriteErr != nil {
		return s.WriteErr
	}
	s.resolutions = append(s.resolutions, *res)
	return nil
}

func (s *MemoryStore) LatestResolution(ctx context.Context, ticketID string) (*domain.Resolution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.resolutions) - 1; i >= 0; i-- {
		if s.resolutions[i].TicketID == ticketID {
			copied := s.resolutions[i]
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UpdateDelivery(ctx context.Context, resolutionID string, status domain.DeliveryStatus, attempts int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.resolutions {
		if s.resolutions[i].ID == resolutionID {
			s.resolutions[i].Delivery = status
			s.resolutions[i].DeliveryAttempts = attempts
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) SearchRecords(ctx context.Context, filter RecordFilter) ([]domain.FinancialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SearchErr != nil {
		return nil, s.SearchErr
	}
	var result []domain.FinancialRecord
	for _, rec := range s.records {
		if filter.Identifier != nil {
			ident := strings.TrimSpace(*filter.Identifier)
			if rec.ID != ident && (rec.CrossRef == nil || *rec.CrossRef != ident) {
				continue
			}
		}
		if filter.Vendor != nil && !strings.EqualFold(strings.TrimSpace(*filter.Vendor), rec.Vendor) {
			continue
		}
		if filter.Amount != nil && !domain.AmountsEqual(*filter.Amount, rec.Amount) {
			continue
		}
		result = append(result, rec)
	}
	return result, nil
}

// Resolutions returns a snapshot of all persisted resolutions.
func (s *MemoryStore) Resolutions() []domain.Resolution {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Resolution, len(s.resolutions))
	copy(out, s.resolutions)
	return out
}

// ResolutionsFor returns the resolutions recorded for one ticket.
func (s *MemoryStore) ResolutionsFor(ticketID string) []domain.Resolution {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Resolution
	for _, res := range s.resolutions {
		if res.TicketID == ticketID {
			out = append(out, res)
		}
	}
	return out
}

func (s *MemoryStore) transitionLocked(id string, expected, next domain.TicketStatus) error {
	if s.WriteErr != nil {
		return s.WriteErr
	}
	t, ok := s.tickets[id]
	if !ok {
		return ErrNotFound
	}
	if t.Status != expected {
		return ErrConflict
	}
	t.Status = next
	return nil
}
