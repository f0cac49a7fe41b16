// Package timefmt turns upstream timestamps into display strings. Every
// function falls back to the raw input when it cannot be parsed.
package timefmt

import (
	"fmt"
	"strings"
	"time"

	"github.com/xeonx/timeago"
)

// NotAvailable is shown for missing timestamps.
const NotAvailable = "N/A"

// DefaultLayout renders local timestamps.
const DefaultLayout = "Jan 2, 2006 3:04 PM MST"

var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02",
}

// Parse reads a server timestamp. Values without a zone are taken as UTC.
func Parse(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Formatter renders timestamps in a fixed location.
type Formatter struct {
	loc      *time.Location
	layout   string
	relative timeago.Config
}

// NewFormatter builds a Formatter. A nil location means UTC.
func NewFormatter(loc *time.Location, layout string) *Formatter {
	if loc == nil {
		loc = time.UTC
	}
	if layout == "" {
		layout = DefaultLayout
	}
	relative := timeago.English
	relative.Max = 100 * 365 * 24 * time.Hour
	return &Formatter{loc: loc, layout: layout, relative: relative}
}

// Location returns the display location.
func (f *Formatter) Location() *time.Location { return f.loc }

// Local formats raw in the display location.
func (f *Formatter) Local(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return NotAvailable
	}
	t, ok := Parse(raw)
	if !ok {
		return raw
	}
	return f.LocalTime(t)
}

// LocalTime formats t in the display location.
func (f *Formatter) LocalTime(t time.Time) string {
	return t.In(f.loc).Format(f.layout)
}

// Friendly renders raw relative to now, e.g. "3 hours ago".
func (f *Formatter) Friendly(raw string, now time.Time) string {
	if strings.TrimSpace(raw) == "" {
		return NotAvailable
	}
	t, ok := Parse(raw)
	if !ok {
		return raw
	}
	return f.relative.FormatReference(t, now)
}

// DaysOld renders the calendar-day age of raw, e.g. "5 days old".
func (f *Formatter) DaysOld(raw string, now time.Time) string {
	if strings.TrimSpace(raw) == "" {
		return NotAvailable
	}
	t, ok := Parse(raw)
	if !ok {
		return raw
	}
	days := calendarDays(t.In(f.loc), now.In(f.loc))
	switch {
	case days < 0:
		return "Future Date"
	case days == 0:
		return "Today"
	case days == 1:
		return "1 day old"
	default:
		return fmt.Sprintf("%d days old", days)
	}
}

func calendarDays(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	start := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	end := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}
