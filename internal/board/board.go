// Package board keeps per-session dashboard state: the agent filter, sort
// state of each section and the open ticket modal. A Board re-derives its
// working set lazily, only when a newer snapshot has been published.
package board

import (
	"fmt"
	"sync"
	"time"

	"github.com/spec-kit/ticket-beacon/internal/bucket"
	"github.com/spec-kit/ticket-beacon/internal/domain"
	"github.com/spec-kit/ticket-beacon/internal/render"
	"github.com/spec-kit/ticket-beacon/internal/snapshot"
	"github.com/spec-kit/ticket-beacon/internal/tablesort"
	apperrors "github.com/spec-kit/ticket-beacon/pkg/util/errorutil"
)

// Board is the state of one browser session. Its methods serialize on an
// internal mutex so each session observes a consistent pipeline.
type Board struct {
	cell     *snapshot.Cell
	renderer *render.Renderer

	mu       sync.Mutex
	view     domain.View
	agentID  *int64
	sorts    map[domain.SectionID]tablesort.State
	modal    *int64
	seq      uint64
	snap     *snapshot.Snapshot
	base     domain.Sections
	sections domain.Sections
	lastUsed time.Time
}

func newBoard(cell *snapshot.Cell, renderer *render.Renderer, view domain.View, agentID *int64, now time.Time) *Board {
	b := &Board{cell: cell, renderer: renderer}
	b.reset(view, agentID, now)
	return b
}

// reset starts a fresh page: sorts and modal are cleared.
func (b *Board) reset(view domain.View, agentID *int64, now time.Time) {
	b.view = view
	b.agentID = agentID
	b.sorts = make(map[domain.SectionID]tablesort.State, len(domain.SectionIDs))
	b.modal = nil
	b.snap = nil
	b.seq = 0
	b.base = nil
	b.sections = nil
	b.lastUsed = now
}

// View returns the board's view.
func (b *Board) View() domain.View {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.view
}

// AgentID returns the active agent filter.
func (b *Board) AgentID() *int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.agentID
}

// SortState returns the sort applied to a section.
func (b *Board) SortState(id domain.SectionID) tablesort.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sorts[id]
}

// ModalTicket returns the id of the open modal, if any.
func (b *Board) ModalTicket() (int64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.modal == nil {
		return 0, false
	}
	return *b.modal, true
}

// syncLocked rebuilds the working set when the snapshot advanced.
func (b *Board) syncLocked() {
	snap := b.cell.Load()
	if b.sections != nil && snap.Seq == b.seq {
		return
	}
	view := b.view
	b.snap = snap
	b.seq = snap.Seq
	b.base = snap.For(bucket.Options{View: &view, AgentID: b.agentID})
	b.sections = make(domain.Sections, len(b.base))
	for id, rows := range b.base {
		b.sections[id] = b.sorts[id].Apply(rows)
	}
}

func (b *Board) sectionLocked(id domain.SectionID) render.Section {
	return render.Section{
		ID:            id,
		Name:          b.view.SectionName(id),
		View:          b.view.Slug,
		Sort:          b.sorts[id],
		Rows:          b.sections[id],
		TicketBaseURL: b.snap.TicketBaseURL,
		Now:           b.snap.FetchedAt,
		Seq:           b.seq,
	}
}

// Section renders one section fragment.
func (b *Board) Section(id domain.SectionID) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.syncLocked()
	return b.renderer.Section(b.sectionLocked(id))
}

// Sort toggles the sort of a section by key and renders it.
func (b *Board) Sort(id domain.SectionID, key string) (string, error) {
	if !tablesort.Known(key) {
		return "", apperrors.NewValidationError("unknown sort key", map[string]any{"key": key})
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.syncLocked()
	state := b.sorts[id].Toggle(key)
	b.sorts[id] = state
	b.sections[id] = state.Apply(b.base[id])
	return b.renderer.Section(b.sectionLocked(id))
}

// OpenModal renders the detail view of a ticket in the current working
// set. No network call is made.
func (b *Board) OpenModal(ticketID int64) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.syncLocked()
	row, _, ok := b.sections.Find(ticketID)
	if !ok {
		return "", apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
	}
	id := ticketID
	b.modal = &id
	return b.renderer.Modal(render.Modal{Row: row, TicketBaseURL: b.snap.TicketBaseURL, Now: b.snap.FetchedAt})
}

// CloseModal clears the modal selection. Closing a modal that is not open
// is a no-op.
func (b *Board) CloseModal(ticketID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.modal != nil && *b.modal == ticketID {
		b.modal = nil
	}
}

// Indicators renders the global indicators fragment.
func (b *Board) Indicators() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.syncLocked()
	return b.indicatorsLocked()
}

func (b *Board) indicatorsLocked() (string, error) {
	return b.renderer.Indicators(render.Indicators{
		Seq:         b.seq,
		Total:       b.sections.Total(),
		GeneratedAt: b.snap.GeneratedAt,
		Stale:       b.cell.Stale(),
		Agents:      b.snap.Agents,
		AgentID:     b.agentID,
	})
}

// fragments renders the indicators and every section in display order.
func (b *Board) fragments() (string, []string, uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.syncLocked()

	indicators, err := b.indicatorsLocked()
	if err != nil {
		return "", nil, 0, fmt.Errorf("render indicators: %w", err)
	}
	sections := make([]string, 0, len(domain.DisplayOrder))
	for _, id := range domain.DisplayOrder {
		html, err := b.renderer.Section(b.sectionLocked(id))
		if err != nil {
			return "", nil, 0, fmt.Errorf("render section %s: %w", id, err)
		}
		sections = append(sections, html)
	}
	return indicators, sections, b.seq, nil
}

func (b *Board) touch(now time.Time) {
	b.mu.Lock()
	b.lastUsed = now
	b.mu.Unlock()
}

func (b *Board) idleSince() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastUsed
}
