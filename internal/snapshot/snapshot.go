// Package snapshot holds the latest classified ticket set. A Snapshot is
// never mutated after it is stored; refreshes replace it wholesale.
package snapshot

import (
	"sync/atomic"
	"time"

	"github.com/spec-kit/ticket-beacon/internal/bucket"
	"github.com/spec-kit/ticket-beacon/internal/domain"
)

// Snapshot is one applied refresh.
type Snapshot struct {
	// Seq increases by one for every applied snapshot. Zero means no data
	// has been loaded yet.
	Seq uint64
	// Token is the fetch token that produced the snapshot.
	Token uint64

	// Rows is set when the upstream returned a flat ticket list.
	Rows []domain.Row
	// Sections is set instead of Rows when the upstream assigned sections.
	Sections domain.Sections

	Agents        []domain.Agent
	TicketBaseURL string

	// GeneratedAt is the upstream sync time when reported, otherwise the
	// time the fetch completed.
	GeneratedAt time.Time
	FetchedAt   time.Time
}

// Empty reports whether no refresh has been applied yet.
func (s *Snapshot) Empty() bool { return s == nil || s.Seq == 0 }

// Sectioned reports whether the upstream assigned sections.
func (s *Snapshot) Sectioned() bool { return s != nil && s.Sections != nil }

// For returns the sections of the working set selected by opts.
func (s *Snapshot) For(opts bucket.Options) domain.Sections {
	if s == nil {
		return domain.NewSections()
	}
	if s.Sectioned() {
		return bucket.Restrict(s.Sections, opts)
	}
	return bucket.Bucket(s.Rows, opts)
}

// Cell publishes snapshots to concurrent readers.
type Cell struct {
	current atomic.Pointer[Snapshot]
	stale   atomic.Bool
	lastErr atomic.Pointer[errBox]
}

type errBox struct{ err error }

// NewCell returns a cell holding an empty snapshot.
func NewCell() *Cell {
	c := &Cell{}
	c.current.Store(&Snapshot{})
	return c
}

// Load returns the current snapshot. It is never nil.
func (c *Cell) Load() *Snapshot {
	return c.current.Load()
}

// Store replaces the current snapshot and clears the stale flag.
func (c *Cell) Store(s *Snapshot) {
	c.current.Store(s)
	c.stale.Store(false)
	c.lastErr.Store(nil)
}

// MarkStale records a failed refresh. The current snapshot stays in place.
func (c *Cell) MarkStale(err error) {
	c.stale.Store(true)
	c.lastErr.Store(&errBox{err: err})
}

// Stale reports whether the most recent refresh failed.
func (c *Cell) Stale() bool { return c.stale.Load() }

// LastError returns the error of the most recent failed refresh, if any.
func (c *Cell) LastError() error {
	if b := c.lastErr.Load(); b != nil {
		return b.err
	}
	return nil
}
