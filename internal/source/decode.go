package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spec-kit/ticket-beacon/internal/domain"
)

var sectionKeys = map[string]domain.SectionID{
	"section1": domain.SectionOpen,
	"section2": domain.SectionCustomerReplied,
	"section3": domain.SectionNeedsAgent,
	"section4": domain.SectionOtherActive,
}

// DecodePayload accepts either a flat ticket list or upstream sections.
// Records that cannot be read as objects, or that carry no id, are
// skipped; fields of the wrong type fall back to their zero value.
func DecodePayload(raw []byte) (Payload, error) {
	var doc map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return Payload{}, fmt.Errorf("decode tickets payload: %w", err)
	}

	p := Payload{LastSyncTime: stringField(doc, "last_sync_time")}
	for key, id := range sectionKeys {
		list, ok := doc[key].([]any)
		if !ok {
			continue
		}
		if p.Sections == nil {
			p.Sections = make(map[domain.SectionID][]domain.Ticket, len(sectionKeys))
		}
		p.Sections[id] = decodeTickets(list, &p.Skipped)
	}
	if p.Sections != nil {
		return p, nil
	}

	list, ok := doc["tickets"].([]any)
	if !ok {
		return Payload{}, fmt.Errorf("decode tickets payload: neither tickets nor section lists present")
	}
	p.Tickets = decodeTickets(list, &p.Skipped)
	return p, nil
}

func decodeTickets(list []any, skipped *int) []domain.Ticket {
	out := make([]domain.Ticket, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			*skipped++
			continue
		}
		t, ok := decodeTicket(obj)
		if !ok {
			*skipped++
			continue
		}
		out = append(out, t)
	}
	return out
}

// decodeTicket reads the normalized field names and the raw ticketing
// system names (status, priority, responder_id, stats.first_responded_at).
func decodeTicket(obj map[string]any) (domain.Ticket, bool) {
	id, ok := intField(obj, "id")
	if !ok {
		return domain.Ticket{}, false
	}
	stats, _ := obj["stats"].(map[string]any)

	t := domain.Ticket{
		ID:               id,
		Subject:          stringField(obj, "subject"),
		Description:      firstString(obj, "description", "description_text"),
		Type:             stringField(obj, "type"),
		StatusRaw:        domain.TicketStatus(firstInt(obj, "status_raw", "status")),
		PriorityRaw:      domain.TicketPriority(firstInt(obj, "priority_raw", "priority")),
		RequesterID:      optionalInt(obj, "requester_id"),
		AgentID:          optionalInt(obj, "agent_id"),
		GroupID:          optionalInt(obj, "group_id"),
		RequesterName:    stringField(obj, "requester_name"),
		AgentName:        stringField(obj, "agent_name"),
		CreatedAt:        stringField(obj, "created_at"),
		UpdatedAt:        stringField(obj, "updated_at"),
		FirstRespondedAt: stringField(obj, "first_responded_at"),
		AgentRespondedAt: stringField(obj, "agent_responded_at"),
		FRDueBy:          stringField(obj, "fr_due_by"),
		DueBy:            stringField(obj, "due_by"),
	}
	if t.AgentID == nil {
		t.AgentID = optionalInt(obj, "responder_id")
	}
	if stats != nil {
		if t.FirstRespondedAt == "" {
			t.FirstRespondedAt = stringField(stats, "first_responded_at")
		}
		if t.AgentRespondedAt == "" {
			t.AgentRespondedAt = stringField(stats, "agent_responded_at")
		}
	}
	return t, true
}

func stringField(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	}
	return ""
}

func firstString(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := stringField(obj, key); s != "" {
			return s
		}
	}
	return ""
}

func intField(obj map[string]any, key string) (int64, bool) {
	switch v := obj[key].(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, true
		}
		if f, err := v.Float64(); err == nil {
			return int64(f), true
		}
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

func firstInt(obj map[string]any, keys ...string) int {
	for _, key := range keys {
		if n, ok := intField(obj, key); ok {
			return int(n)
		}
	}
	return 0
}

func optionalInt(obj map[string]any, key string) *int64 {
	n, ok := intField(obj, key)
	if !ok {
		return nil
	}
	return &n
}
