// Package refresh polls the ticket source and publishes snapshots.
//
// Every fetch takes a token from a monotonically increasing counter. A
// completed fetch is applied only when its token is newer than the last
// applied one, so a slow response can never overwrite fresher data.
// Fetches may overlap; a hung request does not hold back the next tick.
package refresh

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-beacon/internal/bucket"
	"github.com/spec-kit/ticket-beacon/internal/classify"
	"github.com/spec-kit/ticket-beacon/internal/clock"
	"github.com/spec-kit/ticket-beacon/internal/directory"
	"github.com/spec-kit/ticket-beacon/internal/domain"
	"github.com/spec-kit/ticket-beacon/internal/events"
	"github.com/spec-kit/ticket-beacon/internal/observability"
	"github.com/spec-kit/ticket-beacon/internal/snapshot"
	"github.com/spec-kit/ticket-beacon/internal/source"
	"github.com/spec-kit/ticket-beacon/internal/timefmt"
)

// TicketSource returns the active ticket set.
type TicketSource interface {
	FetchActive(ctx context.Context) (source.Payload, error)
}

// LinkSource resolves the ticket link prefix.
type LinkSource interface {
	TicketBaseURL(ctx context.Context) (string, error)
}

// Options tunes the controller.
type Options struct {
	// Interval between refreshes. Zero loads once on Start.
	Interval time.Duration
	// Timeout bounds each fetch. Zero leaves it to the source.
	Timeout time.Duration
	// TicketBaseURL, when set, replaces the upstream link configuration.
	TicketBaseURL string
}

// Dependencies bundles collaborators. Agents, Links, Dispatcher and
// Metrics are optional.
type Dependencies struct {
	Tickets    TicketSource
	Agents     directory.Source
	Links      LinkSource
	Classifier *classify.Classifier
	Cell       *snapshot.Cell
	Clock      clock.Clock
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// Controller owns the refresh schedule and the apply path.
type Controller struct {
	opts Options
	deps Dependencies

	tokens atomic.Uint64

	mu      sync.Mutex
	applied uint64
	baseURL string

	sched  *cron.Cron
	runCtx context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a controller.
func New(opts Options, deps Dependencies) *Controller {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Cell == nil {
		deps.Cell = snapshot.NewCell()
	}
	return &Controller{opts: opts, deps: deps, baseURL: opts.TicketBaseURL}
}

// Cell returns the snapshot cell the controller publishes to.
func (c *Controller) Cell() *snapshot.Cell { return c.deps.Cell }

// Start runs the first load immediately and then schedules the rest.
func (c *Controller) Start(ctx context.Context) {
	c.runCtx, c.cancel = context.WithCancel(ctx)
	c.trigger()

	if c.opts.Interval <= 0 {
		c.deps.Logger.Info("periodic refresh disabled")
		return
	}
	c.sched = cron.New()
	c.sched.Schedule(cron.Every(c.opts.Interval), cron.FuncJob(c.trigger))
	c.sched.Start()
	c.deps.Logger.Info("refresh scheduled", zap.Duration("interval", c.opts.Interval))
}

// Stop halts the schedule, cancels in-flight fetches and waits for them.
func (c *Controller) Stop() {
	if c.sched != nil {
		<-c.sched.Stop().Done()
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}

func (c *Controller) trigger() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		_, _ = c.Refresh(c.runCtx)
	}()
}

// Refresh performs one fetch. It reports whether the result was applied;
// a result superseded by a newer fetch is discarded without error.
func (c *Controller) Refresh(ctx context.Context) (bool, error) {
	token := c.tokens.Add(1)
	start := time.Now()

	fetchCtx := ctx
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	payload, err := c.deps.Tickets.FetchActive(fetchCtx)
	elapsed := time.Since(start)
	if err != nil {
		c.fail(ctx, token, err, elapsed)
		return false, err
	}

	snap := c.build(fetchCtx, token, payload)

	c.mu.Lock()
	if token <= c.applied {
		latest := c.applied
		c.mu.Unlock()
		c.deps.Metrics.RecordRefresh(observability.RefreshDiscarded, elapsed)
		c.deps.Logger.Debug("discarding superseded refresh",
			zap.Uint64("token", token), zap.Uint64("applied_token", latest))
		c.publish(ctx, events.Event{
			Type:    events.EventRefreshDiscarded,
			Token:   token,
			Payload: events.RefreshDiscardedPayload{AppliedToken: latest},
		})
		return false, nil
	}
	snap.Seq = c.deps.Cell.Load().Seq + 1
	c.deps.Cell.Store(snap)
	c.applied = token
	c.mu.Unlock()

	total := snap.For(bucket.Options{}).Total()
	c.deps.Metrics.RecordRefresh(observability.RefreshApplied, elapsed)
	c.deps.Metrics.RecordSnapshot(snap.Seq, total)
	c.deps.Logger.Debug("snapshot applied",
		zap.Uint64("seq", snap.Seq), zap.Uint64("token", token),
		zap.Int("active", total), zap.Bool("sectioned", snap.Sectioned()))
	c.publish(ctx, events.Event{
		Type:  events.EventSnapshotPublished,
		Token: token,
		Payload: events.SnapshotPublishedPayload{
			Seq:         snap.Seq,
			Total:       total,
			Sectioned:   snap.Sectioned(),
			GeneratedAt: snap.GeneratedAt,
		},
	})
	return true, nil
}

func (c *Controller) fail(ctx context.Context, token uint64, err error, elapsed time.Duration) {
	c.mu.Lock()
	current := token > c.applied
	if current {
		c.deps.Cell.MarkStale(err)
	}
	c.mu.Unlock()

	c.deps.Metrics.RecordRefresh(observability.RefreshFailed, elapsed)
	if current {
		c.deps.Metrics.RecordStale()
	}
	c.deps.Logger.Warn("ticket refresh failed; keeping previous snapshot",
		zap.Uint64("token", token), zap.Bool("current", current), zap.Error(err))
	c.publish(ctx, events.Event{
		Type:    events.EventRefreshFailed,
		Token:   token,
		Payload: events.RefreshFailedPayload{Error: err.Error()},
	})
}

func (c *Controller) build(ctx context.Context, token uint64, p source.Payload) *snapshot.Snapshot {
	now := c.deps.Clock.Now()
	snap := &snapshot.Snapshot{
		Token:       token,
		FetchedAt:   now,
		GeneratedAt: now,
	}
	if synced, ok := timefmt.Parse(p.LastSyncTime); ok {
		snap.GeneratedAt = synced
	}

	if p.Sectioned() {
		snap.Sections = domain.NewSections()
		for id, tickets := range p.Sections {
			snap.Sections[id] = c.deps.Classifier.Rows(tickets, now)
		}
	} else {
		snap.Rows = c.deps.Classifier.Rows(p.Tickets, now)
	}

	snap.Agents = c.agents(ctx)
	snap.TicketBaseURL = c.ticketBaseURL(ctx)
	return snap
}

// agents refreshes the directory, keeping the previous list on failure.
func (c *Controller) agents(ctx context.Context) []domain.Agent {
	previous := c.deps.Cell.Load().Agents
	if c.deps.Agents == nil {
		return previous
	}
	agents, err := c.deps.Agents.ListAgents(ctx)
	if err != nil {
		c.deps.Logger.Warn("agent directory unavailable", zap.Error(err))
		return previous
	}
	return directory.Sorted(agents)
}

func (c *Controller) ticketBaseURL(ctx context.Context) string {
	c.mu.Lock()
	known := c.baseURL
	c.mu.Unlock()
	if known != "" || c.deps.Links == nil {
		return known
	}

	base, err := c.deps.Links.TicketBaseURL(ctx)
	if err != nil {
		c.deps.Logger.Warn("no ticket link configuration; ticket links disabled", zap.Error(err))
		return ""
	}
	c.mu.Lock()
	c.baseURL = base
	c.mu.Unlock()
	return base
}

func (c *Controller) publish(ctx context.Context, event events.Event) {
	if c.deps.Dispatcher == nil {
		return
	}
	if err := c.deps.Dispatcher.Publish(ctx, event); err != nil {
		c.deps.Logger.Warn("event handler failed", zap.String("event", string(event.Type)), zap.Error(err))
	}
}
