package domain

import (
	"strings"
	"time"
)

// TicketStatus is the ticketing-system status code.
type TicketStatus int

const (
	TicketStatusOpen                TicketStatus = 2
	TicketStatusPending             TicketStatus = 3
	TicketStatusResolved            TicketStatus = 4
	TicketStatusClosed              TicketStatus = 5
	TicketStatusScheduled           TicketStatus = 8
	TicketStatusWaitingOnCustomer   TicketStatus = 9
	TicketStatusWaitingOnThirdParty TicketStatus = 10
	TicketStatusUnderInvestigation  TicketStatus = 13
	TicketStatusOnHold              TicketStatus = 23
	TicketStatusWaitingOnAgent      TicketStatus = 26
)

// TicketPriority is the ticketing-system priority code.
type TicketPriority int

const (
	TicketPriorityLow    TicketPriority = 1
	TicketPriorityMedium TicketPriority = 2
	TicketPriorityHigh   TicketPriority = 3
	TicketPriorityUrgent TicketPriority = 4
)

// Ticket types that change which deadline applies.
const (
	TicketTypeIncident       = "Incident"
	TicketTypeServiceRequest = "Service Request"
)

// Display defaults for unresolved names.
const (
	UnknownRequester = "N/A"
	UnassignedAgent  = "Unassigned"
)

// Ticket is one record as received from the ticket source. Timestamps are
// kept in their raw textual form and parsed on demand.
type Ticket struct {
	ID               int64          `json:"id"`
	Subject          string         `json:"subject"`
	Description      string         `json:"description"`
	Type             string         `json:"type"`
	StatusRaw        TicketStatus   `json:"status_raw"`
	PriorityRaw      TicketPriority `json:"priority_raw"`
	RequesterID      *int64         `json:"requester_id"`
	AgentID          *int64         `json:"agent_id"`
	GroupID          *int64         `json:"group_id,omitempty"`
	RequesterName    string         `json:"requester_name"`
	AgentName        string         `json:"agent_name"`
	CreatedAt        string         `json:"created_at"`
	UpdatedAt        string         `json:"updated_at"`
	FirstRespondedAt string         `json:"first_responded_at"`
	AgentRespondedAt string         `json:"agent_responded_at,omitempty"`
	FRDueBy          string         `json:"fr_due_by"`
	DueBy            string         `json:"due_by"`
}

// IsActive reports whether the ticket is not in a terminal status.
func (t Ticket) IsActive() bool {
	return t.StatusRaw != TicketStatusResolved && t.StatusRaw != TicketStatusClosed
}

// HasFirstResponse reports whether an agent already replied.
func (t Ticket) HasFirstResponse() bool {
	return strings.TrimSpace(t.FirstRespondedAt) != ""
}

// WithDefaultNames fills empty requester/agent names.
func (t Ticket) WithDefaultNames() Ticket {
	if strings.TrimSpace(t.RequesterName) == "" {
		t.RequesterName = UnknownRequester
	}
	if strings.TrimSpace(t.AgentName) == "" {
		t.AgentName = UnassignedAgent
	}
	return t
}

// SLAClass tags the severity of a ticket's SLA state.
type SLAClass string

const (
	SLAClassNone       SLAClass = "sla-none"
	SLAClassNormal     SLAClass = "sla-normal"
	SLAClassInProgress SLAClass = "sla-in-progress"
	SLAClassResponded  SLAClass = "sla-responded"
	SLAClassWarning    SLAClass = "sla-warning"
	SLAClassCritical   SLAClass = "sla-critical"
	SLAClassOverdue    SLAClass = "sla-overdue"
)

// Urgent reports whether the class means the SLA is breached or about to be.
func (c SLAClass) Urgent() bool {
	return c == SLAClassCritical || c == SLAClassOverdue
}

// DueField names the deadline surfaced for a ticket.
type DueField string

const (
	DueFieldNone          DueField = ""
	DueFieldFirstResponse DueField = "fr_due_by"
	DueFieldResolution    DueField = "due_by"
)

// Classification holds fields derived from a ticket at a point in time.
type Classification struct {
	PriorityText    string         `json:"priority_text"`
	StatusText      string         `json:"status_text"`
	SLAText         string         `json:"sla_text"`
	SLAClass        SLAClass       `json:"sla_class"`
	UpdatedFriendly string         `json:"updated_friendly"`
	CreatedDaysOld  string         `json:"created_days_old"`
	DueField        DueField       `json:"which_due_field,omitempty"`
	DueAt           *time.Time     `json:"-"`
	Remaining       *time.Duration `json:"-"`
}

// Row is a classified ticket, the unit that is bucketed, sorted and rendered.
type Row struct {
	Ticket
	Classification
}
