package render

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-beacon/internal/domain"
	"github.com/spec-kit/ticket-beacon/internal/tablesort"
	"github.com/spec-kit/ticket-beacon/internal/timefmt"
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New(DefaultOptions(), timefmt.NewFormatter(time.UTC, ""))
	require.NoError(t, err)
	return r
}

func sampleRow() domain.Row {
	due := time.Date(2024, 5, 1, 16, 0, 0, 0, time.UTC)
	return domain.Row{
		Ticket: domain.Ticket{
			ID:            4242,
			Subject:       "Email is down",
			Description:   "<script>alert(1)</script>Hello",
			RequesterName: "Pat",
			AgentName:     "Unassigned",
			UpdatedAt:     "2024-05-01T10:00:00Z",
			CreatedAt:     "2024-04-28T10:00:00Z",
		},
		Classification: domain.Classification{
			PriorityText:    "High",
			StatusText:      "Open",
			SLAText:         "4.0 hours for FR",
			SLAClass:        domain.SLAClassCritical,
			UpdatedFriendly: "2 hours ago",
			CreatedDaysOld:  "3 days old",
			DueField:        domain.DueFieldFirstResponse,
			DueAt:           &due,
		},
	}
}

func TestPlainTextStripsScripts(t *testing.T) {
	r := newRenderer(t)
	assert.Equal(t, "Hello", r.PlainText("<script>alert(1)</script>Hello"))
	assert.Equal(t, "Fish & chips for two", r.PlainText("<p>Fish &amp; chips</p>\n\n<b>for</b>   two"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 60))
	long := strings.Repeat("é", 61)
	got := Truncate(long, 60)
	assert.Equal(t, strings.Repeat("é", 60)+"…", got)
	assert.Equal(t, long, Truncate(long, 0))
}

func TestSectionRendersRows(t *testing.T) {
	r := newRenderer(t)
	out, err := r.Section(Section{
		ID:            domain.SectionNeedsAgent,
		Name:          "Needs Agent / Update Overdue",
		View:          "helpdesk",
		Sort:          tablesort.State{Key: "updated_at", Dir: tablesort.Desc},
		Rows:          []domain.Row{sampleRow()},
		TicketBaseURL: "https://psa.example/tickets/",
	})
	require.NoError(t, err)

	assert.Contains(t, out, `id="section-s3"`)
	assert.Contains(t, out, `href="https://psa.example/tickets/4242"`)
	assert.Contains(t, out, `title="Hello"`)
	assert.NotContains(t, out, "alert(1)")
	assert.Contains(t, out, "sla-critical")
	assert.Contains(t, out, "4.0 hours for FR")
	assert.Contains(t, out, `<p class="section-empty" hidden>`)
	assert.Contains(t, out, `<table class="ticket-table">`)
	assert.Contains(t, out, `aria-sort="descending"`)
	assert.Contains(t, out, "▼")
	assert.Equal(t, 2, strings.Count(out, `data-ticket-id="4242"`), "row and subject button carry the id")

	again, err := r.Section(Section{
		ID:            domain.SectionNeedsAgent,
		Name:          "Needs Agent / Update Overdue",
		View:          "helpdesk",
		Sort:          tablesort.State{Key: "updated_at", Dir: tablesort.Desc},
		Rows:          []domain.Row{sampleRow()},
		TicketBaseURL: "https://psa.example/tickets/",
	})
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestSectionEmptyPlaceholder(t *testing.T) {
	r := newRenderer(t)
	out, err := r.Section(Section{ID: domain.SectionOpen, Name: "Open Helpdesk Tickets", View: "helpdesk"})
	require.NoError(t, err)

	assert.Contains(t, out, `<p class="section-empty">No tickets in this section.</p>`)
	assert.Contains(t, out, `<table class="ticket-table" hidden>`)
	assert.NotContains(t, out, "ticket-row")
}

func TestSectionWithoutLinkBase(t *testing.T) {
	r := newRenderer(t)
	out, err := r.Section(Section{ID: domain.SectionOpen, Rows: []domain.Row{sampleRow()}})
	require.NoError(t, err)
	assert.NotContains(t, out, "href=")
}

func TestModal(t *testing.T) {
	r := newRenderer(t)
	row := sampleRow()
	row.Description = `<p>Printer <b>jammed</b></p><script>steal()</script>`
	out, err := r.Modal(Modal{Row: row, TicketBaseURL: "https://psa.example/tickets/"})
	require.NoError(t, err)

	assert.Contains(t, out, "#4242 Email is down")
	assert.Contains(t, out, "<b>jammed</b>")
	assert.NotContains(t, out, "steal()")
	assert.Contains(t, out, "3 days old")
	assert.Contains(t, out, `data-ticket-id="4242"`)
	assert.Contains(t, out, "Open in ticketing system")
}

func TestSeverity(t *testing.T) {
	r := newRenderer(t)
	assert.Equal(t, TotalOK, r.Severity(9))
	assert.Equal(t, TotalWarning, r.Severity(10))
	assert.Equal(t, TotalWarning, r.Severity(19))
	assert.Equal(t, TotalCritical, r.Severity(20))
}

func TestIndicators(t *testing.T) {
	r := newRenderer(t)
	agent := int64(2)
	out, err := r.Indicators(Indicators{
		Seq:         3,
		Total:       12,
		GeneratedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Stale:       true,
		Agents:      []domain.Agent{{ID: 1, Name: "Amy"}, {ID: 2, Name: "Bo"}},
		AgentID:     &agent,
	})
	require.NoError(t, err)

	assert.Contains(t, out, `class="total total-warning"`)
	assert.Contains(t, out, "Data may be stale")
	assert.Contains(t, out, `data-generated="2024-05-01T10:00:00Z"`)
	assert.Contains(t, out, `<option value="2" selected>Bo</option>`)
	assert.Contains(t, out, `<option value="1">Amy</option>`)
	assert.Contains(t, out, `data-seq="3"`)
}

func TestPage(t *testing.T) {
	r := newRenderer(t)
	out, err := r.Page(Page{
		Title:           "Helpdesk",
		View:            "helpdesk",
		Views:           []domain.View{{Slug: "helpdesk", Display: "Helpdesk"}, {Slug: "professional-services", Display: "Professional Services"}},
		Theme:           "dark",
		RefreshInterval: time.Minute,
		Indicators:      `<div id="indicators"></div>`,
		Sections:        []string{`<section id="section-s3"></section>`},
	})
	require.NoError(t, err)

	assert.Contains(t, out, `class="theme-dark"`)
	assert.Contains(t, out, `data-refresh-ms="60000"`)
	assert.Contains(t, out, `<section id="section-s3"></section>`)
	assert.Contains(t, out, `<li class="current"><a href="/helpdesk">Helpdesk</a></li>`)
	assert.Contains(t, out, "addEventListener")
}

func TestSectionCarriesSnapshotSeq(t *testing.T) {
	r := newRenderer(t)
	out, err := r.Section(Section{ID: domain.SectionOpen, View: "helpdesk", Seq: 7})
	require.NoError(t, err)
	assert.Contains(t, out, `data-seq="7"`)
}

func TestPageScriptDropsSupersededFragments(t *testing.T) {
	r := newRenderer(t)
	out, err := r.Page(Page{Title: "Helpdesk", View: "helpdesk", RefreshInterval: time.Minute})
	require.NoError(t, err)

	// Responses are matched against the latest request per element and
	// never replace a fragment from a newer snapshot.
	assert.Contains(t, out, "if (tokens[key] !== token) { throw superseded; }")
	assert.Contains(t, out, "seqOf(next) < seqOf(current)")
	assert.Contains(t, out, "if (refreshing) { return; }")
}
