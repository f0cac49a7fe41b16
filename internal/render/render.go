// Package render turns section rows into HTML fragments. Every fragment is
// a complete replacement for its element, so rendering the same input
// twice yields the same markup.
package render

import (
	"embed"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/flosch/pongo2/v6"
	"github.com/microcosm-cc/bluemonday"

	"github.com/spec-kit/ticket-beacon/internal/domain"
	"github.com/spec-kit/ticket-beacon/internal/tablesort"
	"github.com/spec-kit/ticket-beacon/internal/timefmt"
)

//go:embed templates/*
var templateFS embed.FS

const ellipsis = "…"

// Options tunes the rendered output.
type Options struct {
	SubjectMaxRunes int
	TooltipMaxRunes int
	// TotalWarning and TotalCritical are the active-count thresholds at
	// which the total badge changes severity.
	TotalWarning  int
	TotalCritical int
	EmptyMessage  string
}

// DefaultOptions returns the stock limits.
func DefaultOptions() Options {
	return Options{
		SubjectMaxRunes: 60,
		TooltipMaxRunes: 200,
		TotalWarning:    10,
		TotalCritical:   20,
		EmptyMessage:    "No tickets in this section.",
	}
}

// Renderer executes the fragment templates.
type Renderer struct {
	opts   Options
	format *timefmt.Formatter
	strict *bluemonday.Policy
	body   *bluemonday.Policy
	script string

	section    *pongo2.Template
	modal      *pongo2.Template
	indicators *pongo2.Template
	page       *pongo2.Template
}

// New parses the templates.
func New(opts Options, format *timefmt.Formatter) (*Renderer, error) {
	if opts.EmptyMessage == "" {
		opts.EmptyMessage = DefaultOptions().EmptyMessage
	}
	if format == nil {
		format = timefmt.NewFormatter(time.UTC, "")
	}
	r := &Renderer{
		opts:   opts,
		format: format,
		strict: bluemonday.StrictPolicy(),
		body:   bluemonday.UGCPolicy(),
	}

	script, err := templateFS.ReadFile("templates/page.js")
	if err != nil {
		return nil, fmt.Errorf("read page script: %w", err)
	}
	r.script = string(script)

	for name, dst := range map[string]**pongo2.Template{
		"section.html":    &r.section,
		"modal.html":      &r.modal,
		"indicators.html": &r.indicators,
		"page.html":       &r.page,
	} {
		raw, err := templateFS.ReadFile("templates/" + name)
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", name, err)
		}
		tpl, err := pongo2.FromString(string(raw))
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		*dst = tpl
	}
	return r, nil
}

// Formatter returns the timestamp formatter used for display.
func (r *Renderer) Formatter() *timefmt.Formatter { return r.format }

// Section is the input of one section fragment.
type Section struct {
	ID            domain.SectionID
	Name          string
	View          string
	Sort          tablesort.State
	Rows          []domain.Row
	TicketBaseURL string
	Now           time.Time
	// Seq is the snapshot the rows came from.
	Seq uint64
}

type sectionView struct {
	ID      string
	Seq     uint64
	Class   string
	Name    string
	View    string
	Count   int
	Empty   string
	Headers []headerView
	Rows    []rowView
}

type headerView struct {
	Key      string
	Label    string
	Active   bool
	Dir      string
	Arrow    string
	AriaSort string
}

type rowView struct {
	ID              int64
	Link            string
	Subject         string
	Tooltip         string
	Requester       string
	Agent           string
	Priority        string
	PriorityClass   string
	Status          string
	SLAText         string
	SLAClass        string
	DueDetail       string
	UpdatedLocal    string
	UpdatedFriendly string
	CreatedLocal    string
	CreatedDaysOld  string
}

// Columns lists the sortable columns in display order.
var Columns = []struct{ Key, Label string }{
	{"id", "ID"},
	{"subject", "Subject"},
	{"requester_name", "Requester"},
	{"agent_name", "Agent"},
	{"priority_raw", "Priority"},
	{"status_raw", "Status"},
	{"sla_due", "SLA"},
	{"updated_at", "Updated"},
	{"created_at", "Created"},
}

// Section renders a section fragment. Empty sections show the
// placeholder and hide the table.
func (r *Renderer) Section(s Section) (string, error) {
	view := sectionView{
		ID:    string(s.ID),
		Seq:   s.Seq,
		Class: "section-" + string(s.ID),
		Name:  s.Name,
		View:  s.View,
		Count: len(s.Rows),
		Empty: r.opts.EmptyMessage,
		Rows:  make([]rowView, 0, len(s.Rows)),
	}
	for _, col := range Columns {
		h := headerView{Key: col.Key, Label: col.Label, AriaSort: "none"}
		if s.Sort.Key == col.Key {
			h.Active = true
			h.Dir = string(s.Sort.Dir)
			if s.Sort.Dir == tablesort.Desc {
				h.Arrow, h.AriaSort = "▼", "descending"
			} else {
				h.Arrow, h.AriaSort = "▲", "ascending"
			}
		}
		view.Headers = append(view.Headers, h)
	}
	for _, row := range s.Rows {
		view.Rows = append(view.Rows, r.row(row, s.TicketBaseURL, s.Now))
	}
	return r.section.Execute(pongo2.Context{"section": view})
}

func (r *Renderer) row(row domain.Row, baseURL string, now time.Time) rowView {
	v := rowView{
		ID:              row.ID,
		Link:            TicketLink(baseURL, row.ID),
		Subject:         Truncate(strings.TrimSpace(row.Subject), r.opts.SubjectMaxRunes),
		Tooltip:         Truncate(r.PlainText(row.Description), r.opts.TooltipMaxRunes),
		Requester:       row.RequesterName,
		Agent:           row.AgentName,
		Priority:        row.PriorityText,
		PriorityClass:   strings.ToLower(row.PriorityText),
		Status:          row.StatusText,
		SLAText:         row.SLAText,
		SLAClass:        string(row.SLAClass),
		UpdatedLocal:    r.format.Local(row.UpdatedAt),
		UpdatedFriendly: row.UpdatedFriendly,
		CreatedLocal:    r.format.Local(row.CreatedAt),
		CreatedDaysOld:  row.CreatedDaysOld,
	}
	if v.Subject == "" {
		v.Subject = "(no subject)"
	}
	if row.PriorityText == timefmt.NotAvailable {
		v.PriorityClass = "none"
	}
	if row.DueAt != nil {
		v.DueDetail = r.format.LocalTime(*row.DueAt)
	}
	if row.UpdatedFriendly == "" && !now.IsZero() {
		v.UpdatedFriendly = r.format.Friendly(row.UpdatedAt, now)
	}
	return v
}

// PlainText strips all markup from s, decodes entities and collapses
// whitespace. Script and style contents are dropped entirely.
func (r *Renderer) PlainText(s string) string {
	text := html.UnescapeString(r.strict.Sanitize(s))
	return strings.Join(strings.Fields(text), " ")
}

// Truncate shortens s to max runes, ending with an ellipsis. A max of zero
// or less disables truncation.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimRight(string(runes[:max]), " ") + ellipsis
}

// TicketLink joins the ticket link prefix and id. An empty prefix
// disables links.
func TicketLink(base string, id int64) string {
	if base == "" {
		return ""
	}
	return base + strconv.FormatInt(id, 10)
}
