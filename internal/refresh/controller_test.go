package refresh

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-beacon/internal/bucket"
	"github.com/spec-kit/ticket-beacon/internal/classify"
	"github.com/spec-kit/ticket-beacon/internal/clock"
	"github.com/spec-kit/ticket-beacon/internal/domain"
	"github.com/spec-kit/ticket-beacon/internal/events"
	"github.com/spec-kit/ticket-beacon/internal/observability"
	"github.com/spec-kit/ticket-beacon/internal/snapshot"
	"github.com/spec-kit/ticket-beacon/internal/source"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type result struct {
	applied bool
	err     error
}

// gatedSource blocks the n-th fetch until a payload is sent on gates[n].
type gatedSource struct {
	mu      sync.Mutex
	calls   int
	gates   map[int]chan source.Payload
	errs    map[int]error
	started chan int
}

func newGatedSource(n int) *gatedSource {
	g := &gatedSource{
		gates:   make(map[int]chan source.Payload),
		errs:    make(map[int]error),
		started: make(chan int, n),
	}
	for i := 1; i <= n; i++ {
		g.gates[i] = make(chan source.Payload, 1)
	}
	return g
}

func (g *gatedSource) FetchActive(ctx context.Context) (source.Payload, error) {
	g.mu.Lock()
	g.calls++
	n := g.calls
	gate := g.gates[n]
	g.mu.Unlock()

	g.started <- n
	select {
	case p := <-gate:
		g.mu.Lock()
		err := g.errs[n]
		g.mu.Unlock()
		if err != nil {
			return source.Payload{}, err
		}
		return p, nil
	case <-ctx.Done():
		return source.Payload{}, ctx.Err()
	}
}

type stubSource struct {
	mu      sync.Mutex
	calls   int
	payload source.Payload
	err     error
}

func (s *stubSource) FetchActive(context.Context) (source.Payload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.payload, s.err
}

func (s *stubSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubAgents struct {
	agents []domain.Agent
	err    error
}

func (s stubAgents) ListAgents(context.Context) ([]domain.Agent, error) { return s.agents, s.err }

type stubLinks struct{ calls int }

func (s *stubLinks) TicketBaseURL(context.Context) (string, error) {
	s.calls++
	return "https://psa.example/tickets/", nil
}

func flat(ids ...int64) source.Payload {
	tickets := make([]domain.Ticket, 0, len(ids))
	for _, id := range ids {
		tickets = append(tickets, domain.Ticket{ID: id, StatusRaw: domain.TicketStatusOpen})
	}
	return source.Payload{Tickets: tickets}
}

func newController(t *testing.T, tickets TicketSource, dispatcher events.Dispatcher) *Controller {
	t.Helper()
	return New(Options{}, Dependencies{
		Tickets:    tickets,
		Classifier: classify.New(classify.DefaultConfig(), nil),
		Cell:       snapshot.NewCell(),
		Clock:      clock.NewFake(now),
		Dispatcher: dispatcher,
		Metrics:    observability.NewMetrics(),
		Logger:     zap.NewNop(),
	})
}

func TestLastFetchWins(t *testing.T) {
	src := newGatedSource(2)
	dispatcher := events.NewInMemoryDispatcher()
	var discarded []uint64
	dispatcher.Subscribe(events.EventRefreshDiscarded, func(_ context.Context, e events.Event) error {
		discarded = append(discarded, e.Token)
		return nil
	})
	ctrl := newController(t, src, dispatcher)
	ctx := context.Background()

	results := make(chan result, 2)
	run := func() {
		applied, err := ctrl.Refresh(ctx)
		results <- result{applied, err}
	}

	go run()
	require.Equal(t, 1, <-src.started)
	go run()
	require.Equal(t, 2, <-src.started)

	// The newer fetch completes first and is applied.
	src.gates[2] <- flat(20, 21)
	r := <-results
	require.NoError(t, r.err)
	assert.True(t, r.applied)

	// The older fetch completes late and must not overwrite it.
	src.gates[1] <- flat(10)
	r = <-results
	require.NoError(t, r.err)
	assert.False(t, r.applied)

	snap := ctrl.Cell().Load()
	assert.Equal(t, uint64(1), snap.Seq)
	assert.Equal(t, uint64(2), snap.Token)
	require.Len(t, snap.Rows, 2)
	assert.Equal(t, int64(20), snap.Rows[0].ID)
	assert.Equal(t, []uint64{1}, discarded)
}

func TestFailureKeepsSnapshotAndMarksStale(t *testing.T) {
	src := &stubSource{payload: flat(1, 2, 3)}
	dispatcher := events.NewInMemoryDispatcher()
	var failures []string
	dispatcher.Subscribe(events.EventRefreshFailed, func(_ context.Context, e events.Event) error {
		failures = append(failures, e.Payload.(events.RefreshFailedPayload).Error)
		return nil
	})
	ctrl := newController(t, src, dispatcher)
	ctx := context.Background()

	applied, err := ctrl.Refresh(ctx)
	require.NoError(t, err)
	require.True(t, applied)
	first := ctrl.Cell().Load()

	src.mu.Lock()
	src.err = errors.New("connection refused")
	src.mu.Unlock()

	applied, err = ctrl.Refresh(ctx)
	require.Error(t, err)
	assert.False(t, applied)
	assert.Same(t, first, ctrl.Cell().Load())
	assert.True(t, ctrl.Cell().Stale())
	assert.Equal(t, []string{"connection refused"}, failures)

	src.mu.Lock()
	src.err = nil
	src.mu.Unlock()

	_, err = ctrl.Refresh(ctx)
	require.NoError(t, err)
	assert.False(t, ctrl.Cell().Stale())
	assert.Equal(t, uint64(2), ctrl.Cell().Load().Seq)
}

func staleGauge(t *testing.T, m *observability.Metrics) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == "beacon_snapshot_stale" {
			return f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatal("beacon_snapshot_stale not registered")
	return 0
}

func TestSupersededFailureLeavesSnapshotFresh(t *testing.T) {
	src := newGatedSource(2)
	src.errs[1] = errors.New("timeout")
	ctrl := newController(t, src, events.NewInMemoryDispatcher())
	ctx := context.Background()

	results := make(chan result, 2)
	run := func() {
		applied, err := ctrl.Refresh(ctx)
		results <- result{applied, err}
	}

	go run()
	require.Equal(t, 1, <-src.started)
	go run()
	require.Equal(t, 2, <-src.started)

	src.gates[2] <- flat(5)
	r := <-results
	require.NoError(t, r.err)
	require.True(t, r.applied)

	src.gates[1] <- source.Payload{}
	r = <-results
	require.Error(t, r.err)

	assert.False(t, ctrl.Cell().Stale())
	assert.Equal(t, 0.0, staleGauge(t, ctrl.deps.Metrics))

	src.errs[3] = errors.New("connection refused")
	src.gates[3] = make(chan source.Payload, 1)
	src.gates[3] <- source.Payload{}
	_, err := ctrl.Refresh(ctx)
	require.Error(t, err)
	assert.True(t, ctrl.Cell().Stale())
	assert.Equal(t, 1.0, staleGauge(t, ctrl.deps.Metrics))
}

func TestRefreshClassifiesAndDecoratesSnapshot(t *testing.T) {
	payload := flat(1)
	payload.Tickets[0].FRDueBy = now.Add(-time.Hour).Format(time.RFC3339)
	payload.LastSyncTime = "2024-05-01T11:59:00Z"

	ctrl := New(Options{}, Dependencies{
		Tickets:    &stubSource{payload: payload},
		Agents:     stubAgents{agents: []domain.Agent{{ID: 2, Name: "zed"}, {ID: 1, Name: "Amy"}}},
		Links:      &stubLinks{},
		Classifier: classify.New(classify.DefaultConfig(), nil),
		Clock:      clock.NewFake(now),
	})

	_, err := ctrl.Refresh(context.Background())
	require.NoError(t, err)

	snap := ctrl.Cell().Load()
	require.Len(t, snap.Rows, 1)
	assert.Equal(t, domain.SLAClassOverdue, snap.Rows[0].SLAClass)
	assert.Equal(t, time.Date(2024, 5, 1, 11, 59, 0, 0, time.UTC), snap.GeneratedAt)
	assert.Equal(t, now, snap.FetchedAt)
	assert.Equal(t, "Amy", snap.Agents[0].Name)
	assert.Equal(t, "https://psa.example/tickets/", snap.TicketBaseURL)
}

func TestAgentFailureKeepsPreviousAgents(t *testing.T) {
	agents := &switchingAgents{list: []domain.Agent{{ID: 1, Name: "Amy"}}}
	ctrl := New(Options{TicketBaseURL: "https://override/"}, Dependencies{
		Tickets:    &stubSource{payload: flat(1)},
		Agents:     agents,
		Classifier: classify.New(classify.DefaultConfig(), nil),
		Clock:      clock.NewFake(now),
	})
	ctx := context.Background()

	_, err := ctrl.Refresh(ctx)
	require.NoError(t, err)
	agents.err = errors.New("directory down")
	_, err = ctrl.Refresh(ctx)
	require.NoError(t, err)

	snap := ctrl.Cell().Load()
	assert.Equal(t, []domain.Agent{{ID: 1, Name: "Amy"}}, snap.Agents)
	assert.Equal(t, "https://override/", snap.TicketBaseURL)
}

type switchingAgents struct {
	list []domain.Agent
	err  error
}

func (s *switchingAgents) ListAgents(context.Context) ([]domain.Agent, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.list, nil
}

func TestSectionedPayloadKeepsAssignment(t *testing.T) {
	payload := source.Payload{Sections: map[domain.SectionID][]domain.Ticket{
		domain.SectionCustomerReplied: {{ID: 9, StatusRaw: domain.TicketStatusOpen}},
	}}
	ctrl := newController(t, &stubSource{payload: payload}, nil)

	_, err := ctrl.Refresh(context.Background())
	require.NoError(t, err)

	snap := ctrl.Cell().Load()
	require.True(t, snap.Sectioned())
	assert.Len(t, snap.Sections[domain.SectionCustomerReplied], 1)
	assert.Empty(t, snap.Sections[domain.SectionOpen])
}

func TestSectionedPayloadMovesBreachedTicketToNeedsAgent(t *testing.T) {
	payload := source.Payload{Sections: map[domain.SectionID][]domain.Ticket{
		domain.SectionCustomerReplied: {{
			ID:        9,
			Type:      domain.TicketTypeIncident,
			StatusRaw: domain.TicketStatusOpen,
			FRDueBy:   now.Add(-time.Hour).Format(time.RFC3339),
		}},
	}}
	ctrl := newController(t, &stubSource{payload: payload}, nil)

	_, err := ctrl.Refresh(context.Background())
	require.NoError(t, err)

	sections := ctrl.Cell().Load().For(bucket.Options{})
	assert.Empty(t, sections[domain.SectionCustomerReplied])
	require.Len(t, sections[domain.SectionNeedsAgent], 1)
	assert.Equal(t, domain.SLAClassOverdue, sections[domain.SectionNeedsAgent][0].SLAClass)
}

func TestStartWithZeroIntervalLoadsOnce(t *testing.T) {
	src := &stubSource{payload: flat(1)}
	ctrl := newController(t, src, nil)

	ctrl.Start(context.Background())
	ctrl.Stop()

	assert.Equal(t, 1, src.Calls())
	assert.Equal(t, uint64(1), ctrl.Cell().Load().Seq)
}

func TestStopCancelsHungFetch(t *testing.T) {
	src := newGatedSource(1)
	ctrl := newController(t, src, nil)

	ctrl.Start(context.Background())
	<-src.started
	ctrl.Stop()

	assert.True(t, ctrl.Cell().Load().Empty())
	assert.True(t, ctrl.Cell().Stale())
}
