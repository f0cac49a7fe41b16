package events

import (
	"time"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSnapshotPublished EventType = "snapshot_published"
	EventRefreshFailed     EventType = "refresh_failed"
	EventRefreshDiscarded  EventType = "refresh_discarded"
	EventIndicatorChanged  EventType = "indicator_changed"
)

// Event is emitted by the refresh pipeline and its subscribers.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Token     uint64    `json:"token"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// SnapshotPublishedPayload describes a newly applied snapshot.
type SnapshotPublishedPayload struct {
	Seq         uint64    `json:"seq"`
	Total       int       `json:"total"`
	Sectioned   bool      `json:"sectioned"`
	GeneratedAt time.Time `json:"generated_at"`
}

// RefreshFailedPayload carries the fetch error.
type RefreshFailedPayload struct {
	Error string `json:"error"`
}

// RefreshDiscardedPayload names the token that superseded a late result.
type RefreshDiscardedPayload struct {
	AppliedToken uint64 `json:"applied_token"`
}

// IndicatorChangedPayload reports a status light transition for a view.
type IndicatorChangedPayload struct {
	View string `json:"view"`
	From string `json:"from"`
	To   string `json:"to"`
}
