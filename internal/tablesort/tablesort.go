// Package tablesort orders section rows by a column key.
package tablesort

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/spec-kit/ticket-beacon/internal/domain"
	"github.com/spec-kit/ticket-beacon/internal/timefmt"
)

// Direction is the sort direction of a column.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// State is the sort applied to one section. The zero value is unsorted.
type State struct {
	Key string
	Dir Direction
}

// Active reports whether a column is selected.
func (s State) Active() bool { return s.Key != "" }

// Toggle returns the state after clicking the header for key: the same
// key flips direction, a new key starts ascending.
func (s State) Toggle(key string) State {
	if s.Key == key {
		if s.Dir == Asc {
			return State{Key: key, Dir: Desc}
		}
		return State{Key: key, Dir: Asc}
	}
	return State{Key: key, Dir: Asc}
}

// Apply sorts rows by the state, returning a new slice.
func (s State) Apply(rows []domain.Row) []domain.Row {
	return Sort(rows, s.Key, s.Dir)
}

type kind int

const (
	kindString kind = iota
	kindNumber
	kindTime
)

var numberFields = map[string]func(domain.Row) float64{
	"id":           func(r domain.Row) float64 { return float64(r.ID) },
	"priority_raw": func(r domain.Row) float64 { return float64(r.PriorityRaw) },
	"status_raw":   func(r domain.Row) float64 { return float64(r.StatusRaw) },
}

// deadlineFields are already-parsed times. sla_due is the deadline the SLA
// column shows, whichever of fr_due_by or due_by the ticket surfaces.
var deadlineFields = map[string]func(domain.Row) (time.Time, bool){
	"sla_due": func(r domain.Row) (time.Time, bool) {
		if r.DueAt == nil {
			return time.Time{}, false
		}
		return *r.DueAt, true
	},
}

var textFields = map[string]func(domain.Row) string{
	"subject":            func(r domain.Row) string { return r.Subject },
	"description":        func(r domain.Row) string { return r.Description },
	"type":               func(r domain.Row) string { return r.Type },
	"requester_name":     func(r domain.Row) string { return r.RequesterName },
	"agent_name":         func(r domain.Row) string { return r.AgentName },
	"priority_text":      func(r domain.Row) string { return r.PriorityText },
	"status_text":        func(r domain.Row) string { return r.StatusText },
	"sla_text":           func(r domain.Row) string { return r.SLAText },
	"sla_class":          func(r domain.Row) string { return string(r.SLAClass) },
	"updated_friendly":   func(r domain.Row) string { return r.UpdatedFriendly },
	"created_days_old":   func(r domain.Row) string { return r.CreatedDaysOld },
	"created_at":         func(r domain.Row) string { return r.CreatedAt },
	"updated_at":         func(r domain.Row) string { return r.UpdatedAt },
	"first_responded_at": func(r domain.Row) string { return r.FirstRespondedAt },
	"agent_responded_at": func(r domain.Row) string { return r.AgentRespondedAt },
	"fr_due_by":          func(r domain.Row) string { return r.FRDueBy },
	"due_by":             func(r domain.Row) string { return r.DueBy },
}

// Known reports whether key names a sortable column.
func Known(key string) bool {
	if _, ok := numberFields[key]; ok {
		return true
	}
	if _, ok := deadlineFields[key]; ok {
		return true
	}
	_, ok := textFields[key]
	return ok
}

func kindOf(key string) kind {
	if _, ok := numberFields[key]; ok {
		return kindNumber
	}
	if strings.HasSuffix(key, "_at") || strings.HasSuffix(key, "_by") {
		return kindTime
	}
	return kindString
}

// Sort returns a stably sorted copy of rows. Missing values sort last in
// ascending order and first in descending order. Unknown keys keep the
// input order.
func Sort(rows []domain.Row, key string, dir Direction) []domain.Row {
	out := slices.Clone(rows)
	cmp := comparator(key)
	if cmp == nil {
		return out
	}
	slices.SortStableFunc(out, func(a, b domain.Row) int {
		if dir == Desc {
			return -cmp(a, b)
		}
		return cmp(a, b)
	})
	return out
}

func comparator(key string) func(a, b domain.Row) int {
	if num, ok := numberFields[key]; ok {
		return func(a, b domain.Row) int {
			x, y := num(a), num(b)
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	}
	if due, ok := deadlineFields[key]; ok {
		return func(a, b domain.Row) int {
			ta, okA := due(a)
			tb, okB := due(b)
			if c, done := nullsLast(okA, okB); done {
				return c
			}
			return ta.Compare(tb)
		}
	}
	text, ok := textFields[key]
	if !ok {
		return nil
	}
	if kindOf(key) == kindTime {
		return func(a, b domain.Row) int {
			ta, okA := timefmt.Parse(text(a))
			tb, okB := timefmt.Parse(text(b))
			if c, done := nullsLast(okA, okB); done {
				return c
			}
			return ta.Compare(tb)
		}
	}
	col := collate.New(language.Und, collate.IgnoreCase)
	return func(a, b domain.Row) int {
		sa, sb := strings.TrimSpace(text(a)), strings.TrimSpace(text(b))
		if c, done := nullsLast(sa != "", sb != ""); done {
			return c
		}
		return col.CompareString(sa, sb)
	}
}

func nullsLast(hasA, hasB bool) (int, bool) {
	switch {
	case !hasA && !hasB:
		return 0, true
	case !hasA:
		return 1, true
	case !hasB:
		return -1, true
	}
	return 0, false
}
