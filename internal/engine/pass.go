package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/resolution-engine/internal/domain"
	"github.com/spec-kit/resolution-engine/internal/events"
	"github.com/spec-kit/resolution-engine/internal/repository"
)

// Summary accumulates per-ticket outcomes for one pass.
type Summary struct {
	Started    time.Time
	Finished   time.Time
	Total      int
	AutoClosed int
	Escalated  int
	LeftOpen   int
	Conflicts  int
	Failures   int
}

// Engine drives one batch pass: fetch open tickets, then Matcher → Policy →
// Applier per ticket. All per-pass state lives in the pass context created
// by RunPass; the Engine itself holds only wiring.
type Engine struct {
	store      repository.TicketStore
	matcher    *Matcher
	policy     *Policy
	applier    *Applier
	dispatcher events.Dispatcher
	logger     *zap.Logger
	workers    int
}

// EngineDependencies bundles collaborators for the engine.
type EngineDependencies struct {
	Store      repository.TicketStore
	Matcher    *Matcher
	Policy     *Policy
	Applier    *Applier
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	// Workers caps per-ticket parallelism within a pass. Safe above one
	// because the status write is compare-and-set per ticket. Defaults to
	// sequential.
	Workers int
}

// NewEngine constructs the engine.
func NewEngine(deps EngineDependencies) *Engine {
	workers := deps.Workers
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		store:      deps.Store,
		matcher:    deps.Matcher,
		policy:     deps.Policy,
		applier:    deps.Applier,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		workers:    workers,
	}
}

// pass is the explicit per-pass context. Counters are guarded because
// workers may report concurrently.
type pass struct {
	mu      sync.Mutex
	summary Summary
}

func (p *pass) record(update func(*Summary)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	update(&p.summary)
}

// RunPass sweeps all open tickets once. A store failure on the initial
// fetch fails the whole pass (the scheduler backs off); per-ticket failures
// are recorded in the summary and the ticket is retried next pass.
func (e *Engine) RunPass(ctx context.Context) (*Summary, error) {
	p := &pass{summary: Summary{Started: time.Now()}}

	tickets, err := e.store.ListOpenTickets(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch open tickets: %w", err)
	}
	p.summary.Total = len(tickets)

	if e.workers == 1 {
		for _, ticket := range tickets {
			if ctx.Err() != nil {
				break
			}
			e.processTicket(ctx, p, ticket)
		}
	} else {
		e.processParallel(ctx, p, tickets)
	}

	p.summary.Finished = time.Now()
	summary := p.summary
	e.logger.Info("pass completed",
		zap.Int("total", summary.Total),
		zap.Int("auto_closed", summary.AutoClosed),
		zap.Int("escalated", summary.Escalated),
		zap.Int("left_open", summary.LeftOpen),
		zap.Int("conflicts", summary.Conflicts),
		zap.Int("failures", summary.Failures),
		zap.Duration("duration", summary.Finished.Sub(summary.Started)))

	e.dispatcher.Publish(ctx, events.Event{
		Type: events.EventPassCompleted,
		Payload: events.PassCompletedPayload{
			Total:      summary.Total,
			AutoClosed: summary.AutoClosed,
			Escalated:  summary.Escalated,
			LeftOpen:   summary.LeftOpen,
			Conflicts:  summary.Conflicts,
			Failures:   summary.Failures,
			Duration:   summary.Finished.Sub(summary.Started),
		},
	})
	return &summary, nil
}

func (e *Engine) processParallel(ctx context.Context, p *pass, tickets []domain.Ticket) {
	jobs := make(chan domain.Ticket)
	var wg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ticket := range jobs {
				// An in-flight ticket always finishes; cancellation
				// is honored between tickets only.
				e.processTicket(ctx, p, ticket)
			}
		}()
	}

feed:
	for _, ticket := range tickets {
		select {
		case jobs <- ticket:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
}

func (e *Engine) processTicket(ctx context.Context, p *pass, ticket domain.Ticket) {
	if ticket.Status != domain.TicketStatusOpen {
		return
	}

	match, err := e.matcher.Match(ctx, ticket)
	if err != nil {
		e.logger.Warn("match failed, will retry next pass",
			zap.String("ticket_id", ticket.ID),
			zap.Error(err))
		p.record(func(s *Summary) { s.Failures++ })
		return
	}

	res := e.policy.Decide(match)
	if res.Outcome == domain.OutcomeLeftOpen {
		// No resolution persisted; the ticket is re-checked next pass.
		p.record(func(s *Summary) { s.LeftOpen++ })
		return
	}

	switch err := e.applier.Apply(ctx, ticket, &res); {
	case err == nil:
		if res.Outcome == domain.OutcomeAutoClosed {
			p.record(func(s *Summary) { s.AutoClosed++ })
		} else {
			p.record(func(s *Summary) { s.Escalated++ })
		}
	case errors.Is(err, ErrSkipped):
		p.record(func(s *Summary) { s.Conflicts++ })
	default:
		e.logger.Warn("apply failed, will retry next pass",
			zap.String("ticket_id", ticket.ID),
			zap.Error(err))
		p.record(func(s *Summary) { s.Failures++ })
	}
}
