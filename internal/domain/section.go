package domain

// SectionID identifies a display bucket.
type SectionID string

const (
	SectionOpen            SectionID = "s1"
	SectionCustomerReplied SectionID = "s2"
	SectionNeedsAgent      SectionID = "s3"
	SectionOtherActive     SectionID = "s4"
)

// SectionIDs lists every section in numeric order.
var SectionIDs = []SectionID{SectionOpen, SectionCustomerReplied, SectionNeedsAgent, SectionOtherActive}

// DisplayOrder lists sections by descending urgency.
var DisplayOrder = []SectionID{SectionNeedsAgent, SectionOpen, SectionCustomerReplied, SectionOtherActive}

// ParseSectionID validates a section identifier.
func ParseSectionID(raw string) (SectionID, bool) {
	for _, id := range SectionIDs {
		if string(id) == raw {
			return id, true
		}
	}
	return "", false
}

// Sections maps each section to its rows. Every active ticket appears in
// exactly one section.
type Sections map[SectionID][]Row

// NewSections returns a Sections value with every section present and empty.
func NewSections() Sections {
	s := make(Sections, len(SectionIDs))
	for _, id := range SectionIDs {
		s[id] = []Row{}
	}
	return s
}

// Total counts rows across all sections.
func (s Sections) Total() int {
	total := 0
	for _, rows := range s {
		total += len(rows)
	}
	return total
}

// Find returns the row with the given ticket id.
func (s Sections) Find(id int64) (Row, SectionID, bool) {
	for _, sid := range SectionIDs {
		for _, row := range s[sid] {
			if row.ID == id {
				return row, sid, true
			}
		}
	}
	return Row{}, "", false
}

// View is a named slice of the ticket set (helpdesk, professional services).
type View struct {
	Slug          string
	Display       string
	GroupIDs      []int64
	ExcludeGroups bool
}

// Matches reports whether t belongs to the view. A view without group ids
// matches every ticket.
func (v View) Matches(t Ticket) bool {
	if len(v.GroupIDs) == 0 {
		return true
	}
	in := false
	if t.GroupID != nil {
		for _, id := range v.GroupIDs {
			if id == *t.GroupID {
				in = true
				break
			}
		}
	}
	if v.ExcludeGroups {
		return !in
	}
	return in
}

// SectionName returns the heading of a section within the view.
func (v View) SectionName(id SectionID) string {
	switch id {
	case SectionOpen:
		return "Open " + v.Display + " Tickets"
	case SectionCustomerReplied:
		return "Customer Replied"
	case SectionNeedsAgent:
		return "Needs Agent / Update Overdue"
	case SectionOtherActive:
		return "Other Active " + v.Display + " Tickets"
	}
	return string(id)
}
