package indicator

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-beacon/internal/bucket"
	"github.com/spec-kit/ticket-beacon/internal/clock"
	"github.com/spec-kit/ticket-beacon/internal/config"
	"github.com/spec-kit/ticket-beacon/internal/domain"
	"github.com/spec-kit/ticket-beacon/internal/events"
	"github.com/spec-kit/ticket-beacon/internal/snapshot"
)

// Service keeps the current light of every view, recomputed whenever a
// refresh succeeds or fails.
type Service struct {
	dispatcher events.Dispatcher
	cell       *snapshot.Cell
	views      []domain.View
	clock      clock.Clock
	cfg        config.IndicatorConfig
	logger     *zap.Logger

	// recompute serializes Recompute so lights and change events follow
	// the order in which snapshots were read.
	recompute sync.Mutex

	mu     sync.RWMutex
	lights map[string]Light
}

// NewService creates the service.
func NewService(dispatcher events.Dispatcher, cell *snapshot.Cell, views []domain.View, clk clock.Clock, cfg config.IndicatorConfig, logger *zap.Logger) *Service {
	if clk == nil {
		clk = clock.Real()
	}
	return &Service{
		dispatcher: dispatcher,
		cell:       cell,
		views:      views,
		clock:      clk,
		cfg:        cfg,
		logger:     logger,
		lights:     make(map[string]Light, len(views)),
	}
}

// RegisterHandlers subscribes to refresh events.
func (s *Service) RegisterHandlers() {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Subscribe(events.EventSnapshotPublished, s.handleRefresh)
	s.dispatcher.Subscribe(events.EventRefreshFailed, s.handleRefresh)
}

func (s *Service) handleRefresh(ctx context.Context, _ events.Event) error {
	s.Recompute(ctx)
	return nil
}

// Recompute derives every view's light and announces changes.
func (s *Service) Recompute(ctx context.Context) {
	s.recompute.Lock()
	defer s.recompute.Unlock()

	for _, view := range s.views {
		light := s.compute(view)

		s.mu.Lock()
		previous, seen := s.lights[view.Slug]
		s.lights[view.Slug] = light
		s.mu.Unlock()

		if seen && previous.State == light.State {
			continue
		}
		s.logger.Info("indicator changed",
			zap.String("view", view.Slug),
			zap.String("state", string(light.State)),
			zap.String("color", light.Color),
			zap.String("mode", light.Mode),
			zap.Any("counts", light.Counts))
		if s.dispatcher == nil {
			continue
		}
		from := ""
		if seen {
			from = string(previous.State)
		}
		if err := s.dispatcher.Publish(ctx, events.Event{
			Type:    events.EventIndicatorChanged,
			Payload: events.IndicatorChangedPayload{View: view.Slug, From: from, To: string(light.State)},
		}); err != nil {
			s.logger.Warn("indicator subscriber failed", zap.Error(err))
		}
	}
}

// Light returns the light of the named view, computing it when no
// refresh has been observed yet.
func (s *Service) Light(slug string) (Light, bool) {
	s.mu.RLock()
	light, ok := s.lights[slug]
	s.mu.RUnlock()
	if ok {
		return light, true
	}
	for _, view := range s.views {
		if view.Slug == slug {
			return s.compute(view), true
		}
	}
	return Light{}, false
}

func (s *Service) compute(view domain.View) Light {
	snap := s.cell.Load()
	v := view
	counts := Count(snap.For(bucket.Options{View: &v}))
	if snap.Empty() || (s.cfg.StaleIsError && s.cell.Stale()) {
		counts.Errors = 1
	}
	return newLight(view.Slug, counts, s.clock.Now())
}
