package dto

import (
	"time"

	"github.com/spec-kit/ticket-beacon/internal/domain"
)

// TicketsResponse is the JSON dataset of one view.
type TicketsResponse struct {
	TotalActiveItems int          `json:"total_active_items"`
	GeneratedTimeISO string       `json:"dashboard_generated_time_iso"`
	View             string       `json:"view"`
	S1Items          []domain.Row `json:"s1_items"`
	S2Items          []domain.Row `json:"s2_items"`
	S3Items          []domain.Row `json:"s3_items"`
	S4Items          []domain.Row `json:"s4_items"`
	Section1Name     string       `json:"section1_name_js"`
	Section2Name     string       `json:"section2_name_js"`
	Section3Name     string       `json:"section3_name_js"`
	Section4Name     string       `json:"section4_name_js"`
	Stale            bool         `json:"stale"`
}

// NewTicketsResponse maps a view's sections to the response. A zero
// generation time is reported as an empty string.
func NewTicketsResponse(view domain.View, sections domain.Sections, generatedAt time.Time, stale bool) TicketsResponse {
	resp := TicketsResponse{
		TotalActiveItems: sections.Total(),
		View:             view.Slug,
		S1Items:          nonNil(sections[domain.SectionOpen]),
		S2Items:          nonNil(sections[domain.SectionCustomerReplied]),
		S3Items:          nonNil(sections[domain.SectionNeedsAgent]),
		S4Items:          nonNil(sections[domain.SectionOtherActive]),
		Section1Name:     view.SectionName(domain.SectionOpen),
		Section2Name:     view.SectionName(domain.SectionCustomerReplied),
		Section3Name:     view.SectionName(domain.SectionNeedsAgent),
		Section4Name:     view.SectionName(domain.SectionOtherActive),
		Stale:            stale,
	}
	if !generatedAt.IsZero() {
		resp.GeneratedTimeISO = generatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func nonNil(rows []domain.Row) []domain.Row {
	if rows == nil {
		return []domain.Row{}
	}
	return rows
}

// PreferencesRequest updates display preferences. Absent fields are left
// unchanged.
type PreferencesRequest struct {
	Theme            string `json:"theme" form:"theme"`
	SidebarCollapsed string `json:"sidebar_collapsed" form:"sidebar_collapsed"`
}

// PreferencesResponse echoes the stored preferences.
type PreferencesResponse struct {
	Theme            string `json:"theme"`
	SidebarCollapsed bool   `json:"sidebar_collapsed"`
	AgentID          *int64 `json:"agent_id"`
}
