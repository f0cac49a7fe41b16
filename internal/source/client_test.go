package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-beacon/internal/auth"
	"github.com/spec-kit/ticket-beacon/internal/config"
	"github.com/spec-kit/ticket-beacon/internal/domain"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tokens := auth.NewTokenManager("secret", "beacon", 5)
	c, err := NewClient(config.UpstreamConfig{URL: srv.URL, TimeoutSeconds: 5, TargetService: "codex"}, tokens, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestFetchActiveFlat(t *testing.T) {
	verifier := auth.NewTokenManager("secret", "codex", 5)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tickets/active", r.URL.Path)
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		claims, err := verifier.ParseToken(token)
		if assert.NoError(t, err) {
			assert.Equal(t, "beacon", claims.CallingService)
		}
		_, _ = w.Write([]byte(`{
			"last_sync_time": "2024-05-01T10:00:00Z",
			"tickets": [
				{"id": 101, "subject": "Printer", "status": 2, "priority": 3,
				 "responder_id": 19000111222, "group_id": 19000234009,
				 "fr_due_by": "2024-05-01T12:00:00Z",
				 "stats": {"first_responded_at": null, "agent_responded_at": "2024-05-01T09:00:00Z"}},
				{"id": "102", "subject": "VPN", "status_raw": "26", "priority_raw": 1,
				 "agent_id": 5, "first_responded_at": "2024-05-01T08:00:00Z"},
				{"subject": "no id"},
				"garbage"
			]}`))
	}))

	p, err := c.FetchActive(context.Background())
	require.NoError(t, err)
	assert.False(t, p.Sectioned())
	assert.Equal(t, "2024-05-01T10:00:00Z", p.LastSyncTime)
	assert.Equal(t, 2, p.Skipped)
	require.Len(t, p.Tickets, 2)

	first := p.Tickets[0]
	assert.Equal(t, int64(101), first.ID)
	assert.Equal(t, domain.TicketStatusOpen, first.StatusRaw)
	assert.Equal(t, domain.TicketPriorityHigh, first.PriorityRaw)
	require.NotNil(t, first.AgentID)
	assert.Equal(t, int64(19000111222), *first.AgentID)
	require.NotNil(t, first.GroupID)
	assert.Equal(t, int64(19000234009), *first.GroupID)
	assert.Empty(t, first.FirstRespondedAt)
	assert.Equal(t, "2024-05-01T09:00:00Z", first.AgentRespondedAt)

	second := p.Tickets[1]
	assert.Equal(t, int64(102), second.ID)
	assert.Equal(t, domain.TicketStatusWaitingOnAgent, second.StatusRaw)
	assert.True(t, second.HasFirstResponse())
	assert.Nil(t, second.RequesterID)
}

func TestFetchActiveSectioned(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"section1": [{"id": 1, "status": 2}],
			"section3": [{"id": 3, "status": 26}],
			"section4": []
		}`))
	}))

	p, err := c.FetchActive(context.Background())
	require.NoError(t, err)
	require.True(t, p.Sectioned())
	assert.Len(t, p.Sections[domain.SectionOpen], 1)
	assert.Len(t, p.Sections[domain.SectionNeedsAgent], 1)
	assert.Empty(t, p.Sections[domain.SectionCustomerReplied])
	assert.Empty(t, p.LastSyncTime)
}

func TestFetchActiveErrors(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		_, err := c.FetchActive(context.Background())
		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	})

	t.Run("malformed body", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"tickets": [`))
		}))
		_, err := c.FetchActive(context.Background())
		assert.Error(t, err)
	})

	t.Run("unknown shape", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"items": []}`))
		}))
		_, err := c.FetchActive(context.Background())
		assert.Error(t, err)
	})
}

func TestListAgents(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/psa/agents", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"external_id": 19000111222, "name": "Dana"},
			{"external_id": 7, "name": "Lee", "active": false},
			{"external_id": 8, "name": "Sam", "active": true}
		]`))
	}))

	agents, err := c.ListAgents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Agent{
		{ID: 19000111222, Name: "Dana", Active: true},
		{ID: 8, Name: "Sam", Active: true},
	}, agents)
}

func TestTicketBaseURL(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"default_provider": "freshservice",
			"providers": {"freshservice": {"ticket_url_template": "https://acme.freshservice.com/a/tickets/{ticket_id}"}}
		}`))
	}))

	base, err := c.TicketBaseURL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://acme.freshservice.com/a/tickets/", base)
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient(config.UpstreamConfig{URL: "not a url"}, nil, zap.NewNop())
	assert.Error(t, err)
}
