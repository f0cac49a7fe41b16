// Package source reads tickets, agents and link configuration from the
// upstream ticket service.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-beacon/internal/auth"
	"github.com/spec-kit/ticket-beacon/internal/config"
	"github.com/spec-kit/ticket-beacon/internal/domain"
)

const maxBodyBytes = 32 << 20

// Payload is one response of the active tickets endpoint. Exactly one of
// Tickets and Sections is set.
type Payload struct {
	Tickets      []domain.Ticket
	Sections     map[domain.SectionID][]domain.Ticket
	LastSyncTime string
	// Skipped counts records dropped as unreadable.
	Skipped int
}

// Sectioned reports whether the upstream assigned sections.
func (p Payload) Sectioned() bool { return p.Sections != nil }

// Client talks to the upstream service over HTTP.
type Client struct {
	base   *url.URL
	target string
	http   *http.Client
	tokens *auth.TokenManager
	logger *zap.Logger
}

// NewClient builds a client. tokens may be nil for unauthenticated upstreams.
func NewClient(cfg config.UpstreamConfig, tokens *auth.TokenManager, logger *zap.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid UPSTREAM_URL %q", cfg.URL)
	}
	timeout := cfg.Timeout()
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		base:   base,
		target: cfg.TargetService,
		http:   &http.Client{Timeout: timeout},
		tokens: tokens,
		logger: logger,
	}, nil
}

// FetchActive returns the active ticket set.
func (c *Client) FetchActive(ctx context.Context) (Payload, error) {
	body, err := c.get(ctx, "/api/tickets/active")
	if err != nil {
		return Payload{}, err
	}
	p, err := DecodePayload(body)
	if err != nil {
		return Payload{}, err
	}
	if p.Skipped > 0 {
		c.logger.Warn("skipped unreadable ticket records", zap.Int("count", p.Skipped))
	}
	return p, nil
}

// ListAgents returns the active agents.
func (c *Client) ListAgents(ctx context.Context) ([]domain.Agent, error) {
	body, err := c.get(ctx, "/api/psa/agents")
	if err != nil {
		return nil, err
	}
	var raw []struct {
		ExternalID json.Number `json:"external_id"`
		Name       string      `json:"name"`
		Active     *bool       `json:"active"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode agents: %w", err)
	}
	agents := make([]domain.Agent, 0, len(raw))
	for _, a := range raw {
		id, err := a.ExternalID.Int64()
		if err != nil {
			continue
		}
		active := a.Active == nil || *a.Active
		if !active {
			continue
		}
		agents = append(agents, domain.Agent{ID: id, Name: a.Name, Active: true})
	}
	return agents, nil
}

// TicketBaseURL returns the link prefix for ticket ids, derived from the
// default provider's ticket url template.
func (c *Client) TicketBaseURL(ctx context.Context) (string, error) {
	body, err := c.get(ctx, "/api/psa/config")
	if err != nil {
		return "", err
	}
	var cfg struct {
		DefaultProvider string `json:"default_provider"`
		Providers       map[string]struct {
			TicketURLTemplate string `json:"ticket_url_template"`
		} `json:"providers"`
	}
	if err := json.Unmarshal(body, &cfg); err != nil {
		return "", fmt.Errorf("decode psa config: %w", err)
	}
	provider, ok := cfg.Providers[cfg.DefaultProvider]
	if !ok || provider.TicketURLTemplate == "" {
		return "", fmt.Errorf("psa config has no ticket url template for provider %q", cfg.DefaultProvider)
	}
	return strings.ReplaceAll(provider.TicketURLTemplate, "{ticket_id}", ""), nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	endpoint := c.base.JoinPath(path).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.tokens != nil {
		token, _, err := c.tokens.GenerateToken(c.target)
		if err != nil {
			return nil, fmt.Errorf("sign service token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Path: path, StatusCode: resp.StatusCode}
	}
	return body, nil
}

// StatusError is returned for non-200 upstream responses.
type StatusError struct {
	Path       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("get %s: upstream returned %d", e.Path, e.StatusCode)
}
