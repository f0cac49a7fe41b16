// Package preferences persists per-browser display settings.
package preferences

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Theme is the colour scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme validates a theme name.
func ParseTheme(raw string) (Theme, bool) {
	switch Theme(raw) {
	case ThemeLight, ThemeDark:
		return Theme(raw), true
	}
	return "", false
}

// Preferences survive page loads. Sort state is deliberately absent.
type Preferences struct {
	Theme            Theme  `json:"theme"`
	SidebarCollapsed bool   `json:"sidebar_collapsed"`
	AgentID          *int64 `json:"agent_id,omitempty"`
}

// Default returns the settings of a first visit.
func Default() Preferences {
	return Preferences{Theme: ThemeLight}
}

// Store loads and saves preferences by session id. Load returns Default
// for unknown sessions.
type Store interface {
	Load(ctx context.Context, session string) (Preferences, error)
	Save(ctx context.Context, session string, p Preferences) error
}

// RedisStore keeps preferences as JSON strings.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisStore returns a store. A zero ttl keeps entries forever.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, prefix: "beacon:prefs:"}
}

// Load reads a session's preferences and refreshes their expiry.
func (s *RedisStore) Load(ctx context.Context, session string) (Preferences, error) {
	raw, err := s.client.Get(ctx, s.prefix+session).Bytes()
	if errors.Is(err, redis.Nil) {
		return Default(), nil
	}
	if err != nil {
		return Default(), fmt.Errorf("load preferences: %w", err)
	}
	p := Default()
	if err := json.Unmarshal(raw, &p); err != nil {
		return Default(), fmt.Errorf("decode preferences: %w", err)
	}
	if s.ttl > 0 {
		s.client.Expire(ctx, s.prefix+session, s.ttl)
	}
	return normalize(p), nil
}

// Save writes a session's preferences.
func (s *RedisStore) Save(ctx context.Context, session string, p Preferences) error {
	raw, err := json.Marshal(normalize(p))
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+session, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu    sync.RWMutex
	prefs map[string]Preferences
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{prefs: make(map[string]Preferences)}
}

func (s *MemoryStore) Load(_ context.Context, session string) (Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.prefs[session]; ok {
		return p, nil
	}
	return Default(), nil
}

func (s *MemoryStore) Save(_ context.Context, session string, p Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[session] = normalize(p)
	return nil
}

func normalize(p Preferences) Preferences {
	if _, ok := ParseTheme(string(p.Theme)); !ok {
		p.Theme = ThemeLight
	}
	return p
}
