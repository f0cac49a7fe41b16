package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-beacon/internal/api/dto"
	"github.com/spec-kit/ticket-beacon/internal/board"
	"github.com/spec-kit/ticket-beacon/internal/preferences"
	apperrors "github.com/spec-kit/ticket-beacon/pkg/util/errorutil"
)

// PreferencesHandler stores theme and sidebar choices.
type PreferencesHandler struct {
	boards   *board.Manager
	sessions *Sessions
}

// NewPreferencesHandler constructs handler.
func NewPreferencesHandler(boards *board.Manager, sessions *Sessions) *PreferencesHandler {
	return &PreferencesHandler{boards: boards, sessions: sessions}
}

// Update POST /preferences.
func (h *PreferencesHandler) Update(c *fiber.Ctx) error {
	var req dto.PreferencesRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	var theme preferences.Theme
	if req.Theme != "" {
		t, ok := preferences.ParseTheme(req.Theme)
		if !ok {
			return apperrors.NewValidationError("invalid theme", map[string]any{"theme": req.Theme})
		}
		theme = t
	}
	var collapsed *bool
	if req.SidebarCollapsed != "" {
		v, err := strconv.ParseBool(req.SidebarCollapsed)
		if err != nil {
			return apperrors.NewValidationError("invalid sidebar_collapsed", map[string]any{"sidebar_collapsed": req.SidebarCollapsed})
		}
		collapsed = &v
	}

	p, err := h.boards.UpdatePreferences(c.UserContext(), h.sessions.ID(c), func(p *preferences.Preferences) {
		if theme != "" {
			p.Theme = theme
		}
		if collapsed != nil {
			p.SidebarCollapsed = *collapsed
		}
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.PreferencesResponse{
		Theme:            string(p.Theme),
		SidebarCollapsed: p.SidebarCollapsed,
		AgentID:          p.AgentID,
	}})
}
