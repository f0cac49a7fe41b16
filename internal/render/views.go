package render

import (
	"strconv"
	"strings"
	"time"

	"github.com/flosch/pongo2/v6"

	"github.com/spec-kit/ticket-beacon/internal/domain"
	"github.com/spec-kit/ticket-beacon/internal/timefmt"
)

// Total severities.
const (
	TotalOK       = "total-ok"
	TotalWarning  = "total-warning"
	TotalCritical = "total-critical"
)

// Modal is the input of the ticket detail fragment.
type Modal struct {
	Row           domain.Row
	TicketBaseURL string
	Now           time.Time
}

type modalView struct {
	ID     int64
	Title  string
	Link   string
	Body   string
	Fields []fieldView
}

type fieldView struct {
	Label string
	Value string
	Class string
}

// Modal renders the detail view of one ticket.
func (r *Renderer) Modal(m Modal) (string, error) {
	row := m.Row
	updated := r.format.Local(row.UpdatedAt)
	if row.UpdatedFriendly != "" && row.UpdatedFriendly != timefmt.NotAvailable {
		updated += " (" + row.UpdatedFriendly + ")"
	}
	view := modalView{
		ID:    row.ID,
		Title: strings.TrimSpace(row.Subject),
		Link:  TicketLink(m.TicketBaseURL, row.ID),
		Body:  strings.TrimSpace(r.body.Sanitize(row.Description)),
		Fields: []fieldView{
			{Label: "Status", Value: row.StatusText},
			{Label: "Priority", Value: row.PriorityText},
			{Label: "Type", Value: orNA(row.Type)},
			{Label: "Requester", Value: row.RequesterName},
			{Label: "Agent", Value: row.AgentName},
			{Label: "SLA", Value: row.SLAText, Class: string(row.SLAClass)},
			{Label: "Created", Value: r.format.Local(row.CreatedAt) + " (" + row.CreatedDaysOld + ")"},
			{Label: "Updated", Value: updated},
			{Label: "First response", Value: r.format.Local(row.FirstRespondedAt)},
			{Label: "First response due", Value: r.format.Local(row.FRDueBy)},
			{Label: "Resolution due", Value: r.format.Local(row.DueBy)},
		},
	}
	if view.Title == "" {
		view.Title = "(no subject)"
	}
	return r.modal.Execute(pongo2.Context{"modal": view})
}

// Indicators is the input of the global indicators fragment.
type Indicators struct {
	Seq         uint64
	Total       int
	GeneratedAt time.Time
	Stale       bool
	Agents      []domain.Agent
	AgentID     *int64
}

type indicatorsView struct {
	Seq           uint64
	Total         int
	Severity      string
	Generated     string
	GeneratedISO  string
	Stale         bool
	AgentSelected bool
	Agents        []agentOption
}

type agentOption struct {
	ID       int64
	Name     string
	Selected bool
}

// Severity classifies the active total.
func (r *Renderer) Severity(total int) string {
	switch {
	case r.opts.TotalCritical > 0 && total >= r.opts.TotalCritical:
		return TotalCritical
	case r.opts.TotalWarning > 0 && total >= r.opts.TotalWarning:
		return TotalWarning
	default:
		return TotalOK
	}
}

// Indicators renders the total count, last update time and agent filter.
func (r *Renderer) Indicators(in Indicators) (string, error) {
	view := indicatorsView{
		Seq:       in.Seq,
		Total:     in.Total,
		Severity:  r.Severity(in.Total),
		Generated: timefmt.NotAvailable,
		Stale:     in.Stale,
	}
	if !in.GeneratedAt.IsZero() {
		view.Generated = r.format.LocalTime(in.GeneratedAt)
		view.GeneratedISO = in.GeneratedAt.UTC().Format(time.RFC3339)
	}
	for _, a := range in.Agents {
		selected := in.AgentID != nil && *in.AgentID == a.ID
		view.AgentSelected = view.AgentSelected || selected
		view.Agents = append(view.Agents, agentOption{ID: a.ID, Name: a.Name, Selected: selected})
	}
	return r.indicators.Execute(pongo2.Context{"ind": view})
}

// Page is the input of the full dashboard document.
type Page struct {
	Title            string
	View             string
	Views            []domain.View
	Theme            string
	SidebarCollapsed bool
	AgentID          *int64
	RefreshInterval  time.Duration
	Seq              uint64
	Indicators       string
	Sections         []string
}

type pageView struct {
	Title            string
	View             string
	Views            []navView
	Theme            string
	SidebarCollapsed bool
	AgentID          string
	RefreshMillis    int64
	Seq              uint64
	Indicators       string
	Sections         []string
	Script           string
}

type navView struct {
	Slug    string
	Display string
	Current bool
}

// Page renders the document shell around pre-rendered fragments.
func (r *Renderer) Page(p Page) (string, error) {
	view := pageView{
		Title:            p.Title,
		View:             p.View,
		Theme:            p.Theme,
		SidebarCollapsed: p.SidebarCollapsed,
		RefreshMillis:    p.RefreshInterval.Milliseconds(),
		Seq:              p.Seq,
		Indicators:       p.Indicators,
		Sections:         p.Sections,
		Script:           r.script,
	}
	if p.AgentID != nil {
		view.AgentID = strconv.FormatInt(*p.AgentID, 10)
	}
	for _, v := range p.Views {
		view.Views = append(view.Views, navView{Slug: v.Slug, Display: v.Display, Current: v.Slug == p.View})
	}
	return r.page.Execute(pongo2.Context{"page": view})
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return timefmt.NotAvailable
	}
	return s
}
