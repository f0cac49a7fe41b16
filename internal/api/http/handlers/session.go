package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Sessions identifies browsers by a random cookie. The id only keys
// dashboard state and preferences; it grants nothing.
type Sessions struct {
	cookie string
	ttl    time.Duration
}

// NewSessions configures the session cookie.
func NewSessions(cookie string, ttl time.Duration) *Sessions {
	if cookie == "" {
		cookie = "beacon_session"
	}
	return &Sessions{cookie: cookie, ttl: ttl}
}

// ID returns the session of the request, issuing a new cookie when the
// request carries none or a malformed one.
func (s *Sessions) ID(c *fiber.Ctx) string {
	if raw := c.Cookies(s.cookie); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			return id.String()
		}
	}
	id := uuid.NewString()
	cookie := &fiber.Cookie{
		Name:     s.cookie,
		Value:    id,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
	if s.ttl > 0 {
		cookie.Expires = time.Now().Add(s.ttl)
	}
	c.Cookie(cookie)
	return id
}
