// Package indicator derives a status light from the ticket set.
//
// The light reflects the most pressing condition, in order: error (no
// usable data), a first-response deadline already missed, open tickets
// awaiting a first response, tickets waiting on an agent, and finally
// clear.
package indicator

import (
	"time"

	"github.com/spec-kit/ticket-beacon/internal/domain"
)

// State names an indicator condition.
type State string

const (
	StateError        State = "error"
	StateFROverdue    State = "fr_overdue"
	StateOpen         State = "open"
	StateWaitingAgent State = "waiting_agent"
	StateClear        State = "clear"
)

// Counts tallies the conditions the light is derived from.
type Counts struct {
	Open         int `json:"open"`
	WaitingAgent int `json:"waiting_agent"`
	FROverdue    int `json:"fr_overdue"`
	Errors       int `json:"error"`
}

// Light is the rendered indicator for a view.
type Light struct {
	View      string    `json:"view"`
	State     State     `json:"state"`
	Color     string    `json:"color"`
	Mode      string    `json:"mode"`
	Counts    Counts    `json:"counts"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Count tallies sections. Open counts tickets in Open status regardless of
// section; FROverdue counts those whose first-response deadline passed.
func Count(sections domain.Sections) Counts {
	var c Counts
	for _, id := range domain.SectionIDs {
		for _, row := range sections[id] {
			switch row.StatusRaw {
			case domain.TicketStatusOpen:
				c.Open++
				if !row.HasFirstResponse() &&
					row.DueField == domain.DueFieldFirstResponse &&
					row.SLAClass == domain.SLAClassOverdue {
					c.FROverdue++
				}
			case domain.TicketStatusWaitingOnAgent:
				c.WaitingAgent++
			}
		}
	}
	return c
}

// Derive picks the state for c.
func Derive(c Counts) State {
	switch {
	case c.Errors > 0:
		return StateError
	case c.FROverdue > 0:
		return StateFROverdue
	case c.Open > 0:
		return StateOpen
	case c.WaitingAgent > 0:
		return StateWaitingAgent
	default:
		return StateClear
	}
}

// Appearance maps a state to a colour and mode.
func Appearance(s State) (color, mode string) {
	switch s {
	case StateError:
		return "magenta", "solid"
	case StateFROverdue:
		return "red", "strobe"
	case StateOpen:
		return "red", "solid"
	case StateWaitingAgent:
		return "yellow", "solid"
	default:
		return "green", "solid"
	}
}

func newLight(view string, c Counts, at time.Time) Light {
	state := Derive(c)
	color, mode := Appearance(state)
	return Light{View: view, State: state, Color: color, Mode: mode, Counts: c, UpdatedAt: at}
}
