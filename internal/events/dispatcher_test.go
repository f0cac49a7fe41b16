package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherRunsEveryHandler(t *testing.T) {
	d := NewInMemoryDispatcher()
	var seen []string
	boom := errors.New("boom")

	d.Subscribe(EventRefreshFailed, func(_ context.Context, e Event) error {
		seen = append(seen, "first")
		return boom
	})
	d.Subscribe(EventRefreshFailed, func(_ context.Context, e Event) error {
		seen = append(seen, "second")
		assert.NotEmpty(t, e.ID)
		assert.False(t, e.Timestamp.IsZero())
		return nil
	})
	d.Subscribe(EventSnapshotPublished, func(context.Context, Event) error {
		seen = append(seen, "other")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventRefreshFailed})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first", "second"}, seen)
}

func TestDispatcherWithoutListeners(t *testing.T) {
	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventRefreshDiscarded}))
}
