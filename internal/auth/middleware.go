package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/ticket-beacon/pkg/util/errorutil"
)

const callerKey = "auth_caller"

// ServiceAuth guards the JSON API consumed by other services. When
// disabled every request passes.
type ServiceAuth struct {
	tokens  *TokenManager
	enabled bool
}

// NewServiceAuth constructs middleware.
func NewServiceAuth(tokens *TokenManager, enabled bool) *ServiceAuth {
	return &ServiceAuth{tokens: tokens, enabled: enabled}
}

// Handle enforces a valid bearer token.
func (m *ServiceAuth) Handle(c *fiber.Ctx) error {
	if m == nil || !m.enabled {
		return c.Next()
	}
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	c.Locals(callerKey, claims.CallingService)
	return c.Next()
}

// CallerFromContext returns the authenticated calling service.
func CallerFromContext(c *fiber.Ctx) (string, bool) {
	caller, ok := c.Locals(callerKey).(string)
	return caller, ok
}
