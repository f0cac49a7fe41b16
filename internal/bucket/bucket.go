// Package bucket partitions classified tickets into display sections.
//
// Assignment precedence, first match wins:
//
//  1. SLA critical or overdue, any status      -> s3 (needs agent)
//  2. status Waiting on Agent                   -> s2 (customer replied)
//  3. status Open without a first response      -> s1 (open)
//  4. any other active status                   -> s4 (other active)
//
// Resolved and closed tickets are dropped.
package bucket

import (
	"slices"
	"time"

	"github.com/spec-kit/ticket-beacon/internal/domain"
	"github.com/spec-kit/ticket-beacon/internal/timefmt"
)

// Options narrows the working set before partitioning.
type Options struct {
	View    *domain.View
	AgentID *int64
}

func (o Options) keep(row domain.Row) bool {
	if !row.IsActive() {
		return false
	}
	if o.View != nil && !o.View.Matches(row.Ticket) {
		return false
	}
	if o.AgentID != nil && (row.AgentID == nil || *row.AgentID != *o.AgentID) {
		return false
	}
	return true
}

// Assign returns the section for an active row.
func Assign(row domain.Row) (domain.SectionID, bool) {
	if !row.IsActive() {
		return "", false
	}
	switch {
	case row.SLAClass.Urgent():
		return domain.SectionNeedsAgent, true
	case row.StatusRaw == domain.TicketStatusWaitingOnAgent:
		return domain.SectionCustomerReplied, true
	case row.StatusRaw == domain.TicketStatusOpen && !row.HasFirstResponse():
		return domain.SectionOpen, true
	default:
		return domain.SectionOtherActive, true
	}
}

// Bucket filters rows and partitions them, each section in its default
// urgency order.
func Bucket(rows []domain.Row, opts Options) domain.Sections {
	sections := domain.NewSections()
	for _, row := range rows {
		if !opts.keep(row) {
			continue
		}
		id, _ := Assign(row)
		sections[id] = append(sections[id], row)
	}
	for id := range sections {
		DefaultOrder(id, sections[id])
	}
	return sections
}

// Restrict applies opts to sections that were assigned upstream, keeping
// the upstream assignment and order except that a row breaching its SLA
// always lands in the needs-agent section, after the rows listed there. A
// ticket listed in more than one section stays in the first one in
// section order.
func Restrict(in domain.Sections, opts Options) domain.Sections {
	out := domain.NewSections()
	seen := make(map[int64]struct{})
	var promoted []domain.Row
	for _, id := range domain.SectionIDs {
		for _, row := range in[id] {
			if !opts.keep(row) {
				continue
			}
			if _, dup := seen[row.ID]; dup {
				continue
			}
			seen[row.ID] = struct{}{}
			if row.SLAClass.Urgent() && id != domain.SectionNeedsAgent {
				promoted = append(promoted, row)
				continue
			}
			out[id] = append(out[id], row)
		}
	}
	out[domain.SectionNeedsAgent] = append(out[domain.SectionNeedsAgent], promoted...)
	return out
}

// DefaultOrder sorts a section in place: deadline sections by time
// remaining, the others by least recently updated. Missing values go last.
func DefaultOrder(id domain.SectionID, rows []domain.Row) {
	switch id {
	case domain.SectionOpen, domain.SectionNeedsAgent:
		slices.SortStableFunc(rows, func(a, b domain.Row) int {
			return compareDurations(a.Remaining, b.Remaining)
		})
	default:
		slices.SortStableFunc(rows, func(a, b domain.Row) int {
			return compareTimes(a.UpdatedAt, b.UpdatedAt)
		})
	}
}

func compareDurations(a, b *time.Duration) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	}
	return 0
}

func compareTimes(a, b string) int {
	ta, okA := timefmt.Parse(a)
	tb, okB := timefmt.Parse(b)
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return 1
	case !okB:
		return -1
	}
	return ta.Compare(tb)
}
