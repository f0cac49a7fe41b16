package snapshot

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-beacon/internal/bucket"
	"github.com/spec-kit/ticket-beacon/internal/domain"
)

func TestCellLifecycle(t *testing.T) {
	cell := NewCell()
	require.NotNil(t, cell.Load())
	assert.True(t, cell.Load().Empty())
	assert.False(t, cell.Stale())

	boom := errors.New("upstream down")
	cell.MarkStale(boom)
	assert.True(t, cell.Stale())
	assert.ErrorIs(t, cell.LastError(), boom)
	assert.True(t, cell.Load().Empty(), "a failure keeps the previous snapshot")

	snap := &Snapshot{Seq: 1, Token: 1}
	cell.Store(snap)
	assert.Same(t, snap, cell.Load())
	assert.False(t, cell.Stale())
	assert.NoError(t, cell.LastError())
}

func TestSnapshotFor(t *testing.T) {
	agent := int64(7)
	open := domain.Row{Ticket: domain.Ticket{ID: 1, StatusRaw: domain.TicketStatusOpen, AgentID: &agent}}
	pending := domain.Row{Ticket: domain.Ticket{ID: 2, StatusRaw: domain.TicketStatusPending}}

	t.Run("flat rows are bucketed", func(t *testing.T) {
		s := &Snapshot{Seq: 1, Rows: []domain.Row{open, pending}}
		sections := s.For(bucket.Options{})
		assert.Len(t, sections[domain.SectionOpen], 1)
		assert.Len(t, sections[domain.SectionOtherActive], 1)
	})

	t.Run("upstream sections are kept", func(t *testing.T) {
		upstream := domain.NewSections()
		upstream[domain.SectionCustomerReplied] = []domain.Row{open}
		s := &Snapshot{Seq: 1, Sections: upstream}
		require.True(t, s.Sectioned())

		sections := s.For(bucket.Options{AgentID: &agent})
		assert.Len(t, sections[domain.SectionCustomerReplied], 1)
		assert.Empty(t, sections[domain.SectionOpen])
	})

	t.Run("nil snapshot yields empty sections", func(t *testing.T) {
		var s *Snapshot
		assert.Equal(t, 0, s.For(bucket.Options{}).Total())
	})
}
