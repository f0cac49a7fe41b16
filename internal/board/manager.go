package board

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-beacon/internal/bucket"
	"github.com/spec-kit/ticket-beacon/internal/clock"
	"github.com/spec-kit/ticket-beacon/internal/domain"
	"github.com/spec-kit/ticket-beacon/internal/preferences"
	"github.com/spec-kit/ticket-beacon/internal/render"
	"github.com/spec-kit/ticket-beacon/internal/snapshot"
	apperrors "github.com/spec-kit/ticket-beacon/pkg/util/errorutil"
)

// AgentSelection is the agent filter requested by a navigation. When Set
// is false the stored preference applies; a Set selection with a nil ID
// clears the filter.
type AgentSelection struct {
	Set bool
	ID  *int64
}

// Options configures a Manager.
type Options struct {
	Views           []domain.View
	DefaultView     string
	RefreshInterval time.Duration
	// IdleTimeout evicts boards not used for this long. Zero keeps them.
	IdleTimeout time.Duration
}

// Manager owns the boards of all sessions.
type Manager struct {
	opts     Options
	views    map[string]domain.View
	cell     *snapshot.Cell
	renderer *render.Renderer
	prefs    preferences.Store
	clock    clock.Clock
	logger   *zap.Logger

	mu        sync.Mutex
	boards    map[string]*Board
	lastSweep time.Time
}

// NewManager builds a Manager.
func NewManager(opts Options, cell *snapshot.Cell, renderer *render.Renderer, prefs preferences.Store, clk clock.Clock, logger *zap.Logger) *Manager {
	if clk == nil {
		clk = clock.Real()
	}
	if prefs == nil {
		prefs = preferences.NewMemoryStore()
	}
	views := make(map[string]domain.View, len(opts.Views))
	for _, v := range opts.Views {
		views[v.Slug] = v
	}
	return &Manager{
		opts:     opts,
		views:    views,
		cell:     cell,
		renderer: renderer,
		prefs:    prefs,
		clock:    clk,
		logger:   logger,
		boards:   make(map[string]*Board),
	}
}

// DefaultView returns the slug served at the root.
func (m *Manager) DefaultView() string { return m.opts.DefaultView }

// Views lists the configured views in order.
func (m *Manager) Views() []domain.View { return m.opts.Views }

// View looks up a view by slug.
func (m *Manager) View(slug string) (domain.View, error) {
	v, ok := m.views[slug]
	if !ok {
		return domain.View{}, apperrors.NewNotFound("view", map[string]any{"view": slug})
	}
	return v, nil
}

// Page starts a fresh board for the session and renders the full page.
func (m *Manager) Page(ctx context.Context, session, slug string, sel AgentSelection) (string, error) {
	view, err := m.View(slug)
	if err != nil {
		return "", err
	}
	prefs := m.loadPreferences(ctx, session)
	agentID := prefs.AgentID
	if sel.Set {
		agentID = sel.ID
		if !sameAgent(prefs.AgentID, sel.ID) {
			prefs.AgentID = sel.ID
			m.savePreferences(ctx, session, prefs)
		}
	}

	now := m.clock.Now()
	m.mu.Lock()
	b, ok := m.boards[session]
	if ok {
		b.mu.Lock()
		b.reset(view, agentID, now)
		b.mu.Unlock()
	} else {
		b = newBoard(m.cell, m.renderer, view, agentID, now)
		m.boards[session] = b
	}
	m.sweepLocked(now)
	m.mu.Unlock()

	indicators, sections, seq, err := b.fragments()
	if err != nil {
		return "", err
	}
	return m.renderer.Page(render.Page{
		Title:            view.Display,
		View:             view.Slug,
		Views:            m.opts.Views,
		Theme:            string(prefs.Theme),
		SidebarCollapsed: prefs.SidebarCollapsed,
		AgentID:          agentID,
		RefreshInterval:  m.opts.RefreshInterval,
		Seq:              seq,
		Indicators:       indicators,
		Sections:         sections,
	})
}

// Board returns the session's board for the view, starting one when the
// session has none or is on another view.
func (m *Manager) Board(ctx context.Context, session, slug string, sel AgentSelection) (*Board, error) {
	view, err := m.View(slug)
	if err != nil {
		return nil, err
	}
	now := m.clock.Now()

	m.mu.Lock()
	b, ok := m.boards[session]
	if ok && b.View().Slug == view.Slug {
		b.touch(now)
		m.sweepLocked(now)
		m.mu.Unlock()
		return b, nil
	}
	m.mu.Unlock()

	agentID := sel.ID
	if !sel.Set {
		agentID = m.loadPreferences(ctx, session).AgentID
	}
	b = newBoard(m.cell, m.renderer, view, agentID, now)

	m.mu.Lock()
	m.boards[session] = b
	m.sweepLocked(now)
	m.mu.Unlock()
	return b, nil
}

// Dataset is the stateless working set of a view, in default order.
type Dataset struct {
	View        domain.View
	Sections    domain.Sections
	Seq         uint64
	GeneratedAt time.Time
	Stale       bool
	Empty       bool
}

// Dataset returns the working set of a view without touching any board.
func (m *Manager) Dataset(slug string, agentID *int64) (Dataset, error) {
	view, err := m.View(slug)
	if err != nil {
		return Dataset{}, err
	}
	snap := m.cell.Load()
	return Dataset{
		View:        view,
		Sections:    snap.For(bucket.Options{View: &view, AgentID: agentID}),
		Seq:         snap.Seq,
		GeneratedAt: snap.GeneratedAt,
		Stale:       m.cell.Stale(),
		Empty:       snap.Empty(),
	}, nil
}

// Preferences returns the stored preferences of a session.
func (m *Manager) Preferences(ctx context.Context, session string) preferences.Preferences {
	return m.loadPreferences(ctx, session)
}

// UpdatePreferences applies fn to the stored preferences and saves them.
func (m *Manager) UpdatePreferences(ctx context.Context, session string, fn func(*preferences.Preferences)) (preferences.Preferences, error) {
	p := m.loadPreferences(ctx, session)
	fn(&p)
	if err := m.prefs.Save(ctx, session, p); err != nil {
		return p, apperrors.NewInternalError(err)
	}
	return p, nil
}

// Sessions returns the number of live boards.
func (m *Manager) Sessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.boards)
}

func (m *Manager) loadPreferences(ctx context.Context, session string) preferences.Preferences {
	p, err := m.prefs.Load(ctx, session)
	if err != nil {
		m.logger.Warn("preferences unavailable; using defaults", zap.Error(err))
		return preferences.Default()
	}
	return p
}

func (m *Manager) savePreferences(ctx context.Context, session string, p preferences.Preferences) {
	if err := m.prefs.Save(ctx, session, p); err != nil {
		m.logger.Warn("failed to save preferences", zap.Error(err))
	}
}

func (m *Manager) sweepLocked(now time.Time) {
	if m.opts.IdleTimeout <= 0 || now.Sub(m.lastSweep) < m.opts.IdleTimeout {
		return
	}
	m.lastSweep = now
	for session, b := range m.boards {
		if now.Sub(b.idleSince()) > m.opts.IdleTimeout {
			delete(m.boards, session)
		}
	}
}

func sameAgent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
