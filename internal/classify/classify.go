// Package classify derives priority labels and SLA state from raw tickets.
package classify

import (
	"fmt"
	"math"
	"time"

	"github.com/spec-kit/ticket-beacon/internal/domain"
	"github.com/spec-kit/ticket-beacon/internal/timefmt"
)

// NotAvailable labels unknown codes and missing deadlines.
const NotAvailable = "N/A"

var priorityText = map[domain.TicketPriority]string{
	domain.TicketPriorityLow:    "Low",
	domain.TicketPriorityMedium: "Medium",
	domain.TicketPriorityHigh:   "High",
	domain.TicketPriorityUrgent: "Urgent",
}

var statusText = map[domain.TicketStatus]string{
	domain.TicketStatusOpen:                "Open",
	domain.TicketStatusPending:             "Pending",
	domain.TicketStatusResolved:            "Resolved",
	domain.TicketStatusClosed:              "Closed",
	domain.TicketStatusScheduled:           "Scheduled",
	domain.TicketStatusWaitingOnCustomer:   "Waiting on Customer",
	domain.TicketStatusWaitingOnThirdParty: "Waiting on Third Party",
	domain.TicketStatusUnderInvestigation:  "Under Investigation",
	domain.TicketStatusOnHold:              "On Hold",
	domain.TicketStatusWaitingOnAgent:      "Waiting on Agent",
}

// PriorityText maps a priority code to its label.
func PriorityText(p domain.TicketPriority) string {
	if text, ok := priorityText[p]; ok {
		return text
	}
	return NotAvailable
}

// StatusText maps a status code to its label.
func StatusText(s domain.TicketStatus) string {
	if text, ok := statusText[s]; ok {
		return text
	}
	return NotAvailable
}

// Config carries the variant-specific rules.
type Config struct {
	// WarningWithin and CriticalWithin are measured as time remaining
	// before the deadline. A deadline at or before now is overdue.
	WarningWithin  time.Duration
	CriticalWithin time.Duration

	// DueFields picks the deadline by ticket type; DefaultDueField covers
	// every other type.
	DueFields       map[string]domain.DueField
	DefaultDueField domain.DueField

	// PausedStatuses stop the SLA clock; no countdown is shown for them.
	PausedStatuses map[domain.TicketStatus]bool
}

// DefaultConfig returns the helpdesk rules.
func DefaultConfig() Config {
	return Config{
		WarningWithin:  12 * time.Hour,
		CriticalWithin: 4 * time.Hour,
		DueFields: map[string]domain.DueField{
			domain.TicketTypeServiceRequest: domain.DueFieldResolution,
		},
		DefaultDueField: domain.DueFieldFirstResponse,
		PausedStatuses: map[domain.TicketStatus]bool{
			domain.TicketStatusWaitingOnCustomer:   true,
			domain.TicketStatusWaitingOnThirdParty: true,
			domain.TicketStatusOnHold:              true,
			domain.TicketStatusScheduled:           true,
			domain.TicketStatusResolved:            true,
			domain.TicketStatusClosed:              true,
		},
	}
}

// Classifier is stateless apart from its configuration.
type Classifier struct {
	cfg    Config
	format *timefmt.Formatter
}

// New builds a Classifier.
func New(cfg Config, format *timefmt.Formatter) *Classifier {
	if format == nil {
		format = timefmt.NewFormatter(time.UTC, "")
	}
	return &Classifier{cfg: cfg, format: format}
}

// Row classifies t and pairs it with its derived fields.
func (c *Classifier) Row(t domain.Ticket, now time.Time) domain.Row {
	t = t.WithDefaultNames()
	return domain.Row{Ticket: t, Classification: c.Classify(t, now)}
}

// Rows classifies a batch against the same instant.
func (c *Classifier) Rows(tickets []domain.Ticket, now time.Time) []domain.Row {
	rows := make([]domain.Row, 0, len(tickets))
	for _, t := range tickets {
		rows = append(rows, c.Row(t, now))
	}
	return rows
}

// Classify derives the display fields of t at now. The result depends only
// on its inputs.
func (c *Classifier) Classify(t domain.Ticket, now time.Time) domain.Classification {
	out := domain.Classification{
		PriorityText:    PriorityText(t.PriorityRaw),
		StatusText:      StatusText(t.StatusRaw),
		UpdatedFriendly: c.format.Friendly(t.UpdatedAt, now),
		CreatedDaysOld:  c.format.DaysOld(t.CreatedAt, now),
	}

	field := c.dueField(t)
	if field == domain.DueFieldNone {
		out.SLAText, out.SLAClass = c.statusLabel(t, out.UpdatedFriendly, now)
		return out
	}

	out.DueField = field
	raw := t.FRDueBy
	if field == domain.DueFieldResolution {
		raw = t.DueBy
	}
	due, ok := timefmt.Parse(raw)
	if !ok {
		out.SLAText, out.SLAClass = NotAvailable, domain.SLAClassNone
		return out
	}
	remaining := due.Sub(now)
	out.DueAt = &due
	out.Remaining = &remaining
	out.SLAText, out.SLAClass = c.countdown(field, remaining)
	return out
}

func (c *Classifier) dueField(t domain.Ticket) domain.DueField {
	if c.cfg.PausedStatuses[t.StatusRaw] {
		return domain.DueFieldNone
	}
	field := c.cfg.DefaultDueField
	if f, ok := c.cfg.DueFields[t.Type]; ok {
		field = f
	}
	if field == domain.DueFieldFirstResponse && t.HasFirstResponse() {
		return domain.DueFieldNone
	}
	return field
}

func (c *Classifier) countdown(field domain.DueField, remaining time.Duration) (string, domain.SLAClass) {
	value, unit := humanDuration(remaining)
	if remaining <= 0 {
		if field == domain.DueFieldResolution {
			return fmt.Sprintf("Overdue by %s %s", value, unit), domain.SLAClassOverdue
		}
		return fmt.Sprintf("FR Overdue by %s %s", value, unit), domain.SLAClassOverdue
	}

	text := fmt.Sprintf("%s %s for FR", value, unit)
	if field == domain.DueFieldResolution {
		text = fmt.Sprintf("Due in %s %s", value, unit)
	}
	switch {
	case remaining < c.cfg.CriticalWithin:
		return text, domain.SLAClassCritical
	case remaining < c.cfg.WarningWithin:
		return text, domain.SLAClassWarning
	default:
		return text, domain.SLAClassNormal
	}
}

// humanDuration picks days past two days, then hours, minutes, seconds.
func humanDuration(d time.Duration) (string, string) {
	abs := math.Abs(d.Seconds())
	switch {
	case abs >= 48*3600:
		return fmt.Sprintf("%.1f", abs/86400), "days"
	case abs >= 3600:
		return fmt.Sprintf("%.1f", abs/3600), "hours"
	case abs >= 60:
		return fmt.Sprintf("%.0f", abs/60), "min"
	default:
		return fmt.Sprintf("%.0f", abs), "sec"
	}
}

func (c *Classifier) statusLabel(t domain.Ticket, updated string, now time.Time) (string, domain.SLAClass) {
	switch t.StatusRaw {
	case domain.TicketStatusOpen:
		return fmt.Sprintf("Open (%s)", updated), domain.SLAClassResponded
	case domain.TicketStatusWaitingOnAgent:
		return fmt.Sprintf("Waiting on Agent (%s)", updated), domain.SLAClassWarning
	case domain.TicketStatusWaitingOnCustomer:
		text := "Waiting on Customer"
		if t.AgentRespondedAt != "" {
			text += fmt.Sprintf(" (Agent: %s)", c.format.Friendly(t.AgentRespondedAt, now))
		}
		return text, domain.SLAClassResponded
	case domain.TicketStatusOnHold:
		return fmt.Sprintf("On Hold (%s)", updated), domain.SLAClassNone
	case domain.TicketStatusResolved, domain.TicketStatusClosed:
		return StatusText(t.StatusRaw), domain.SLAClassNone
	}
	if label, ok := statusText[t.StatusRaw]; ok {
		return fmt.Sprintf("%s (%s)", label, updated), domain.SLAClassInProgress
	}
	return NotAvailable, domain.SLAClassNone
}
