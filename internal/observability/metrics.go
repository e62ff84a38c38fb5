package observability

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/spec-kit/resolution-engine/internal/domain"
	"github.com/spec-kit/resolution-engine/internal/events"
)

// Metrics provides basic in-memory counters for passes, outcomes, and the
// HTTP surface. A dashboard scrapes Snapshot; nothing here is load-bearing.
type Metrics struct {
	mu               sync.Mutex
	passCount        int64
	ticketsSwept     int64
	outcomeCount     map[domain.Outcome]int64
	conflictCount    int64
	failureCount     int64
	notifierFailures int64
	requestCount     map[string]int64
	errorCount       map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		outcomeCount: make(map[domain.Outcome]int64),
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
	}
}

// RegisterHandlers subscribes the metrics recorder to engine events.
func (m *Metrics) RegisterHandlers(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventPassCompleted, m.handlePassCompleted)
	dispatcher.Subscribe(events.EventNotificationFailed, m.handleNotificationFailed)
}

func (m *Metrics) handlePassCompleted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PassCompletedPayload)
	if !ok {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.passCount++
	m.ticketsSwept += int64(payload.Total)
	m.outcomeCount[domain.OutcomeAutoClosed] += int64(payload.AutoClosed)
	m.outcomeCount[domain.OutcomeEscalated] += int64(payload.Escalated)
	m.outcomeCount[domain.OutcomeLeftOpen] += int64(payload.LeftOpen)
	m.conflictCount += int64(payload.Conflicts)
	m.failureCount += int64(payload.Failures)
	return nil
}

func (m *Metrics) handleNotificationFailed(ctx context.Context, event events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifierFailures++
	return nil
}

// Snapshot returns a copy of all counters for reporting.
func (m *Metrics) Snapshot() map[string]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]int64{
		"passes":            m.passCount,
		"tickets_swept":     m.ticketsSwept,
		"auto_closed":       m.outcomeCount[domain.OutcomeAutoClosed],
		"escalated":         m.outcomeCount[domain.OutcomeEscalated],
		"left_open":         m.outcomeCount[domain.OutcomeLeftOpen],
		"conflicts":         m.conflictCount,
		"failures":          m.failureCount,
		"notifier_failures": m.notifierFailures,
	}
	return out
}

// RecordRequest increments counters for HTTP requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments HTTP error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
