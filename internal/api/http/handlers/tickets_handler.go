package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-beacon/internal/api/dto"
	"github.com/spec-kit/ticket-beacon/internal/board"
	apperrors "github.com/spec-kit/ticket-beacon/pkg/util/errorutil"
)

// TicketsHandler exposes the bucketed dataset as JSON for other services.
type TicketsHandler struct {
	boards *board.Manager
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(boards *board.Manager) *TicketsHandler {
	return &TicketsHandler{boards: boards}
}

// List GET /api/tickets/:view?agent_id=.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	agentID, err := parseAgentID(c.Query("agent_id"))
	if err != nil {
		return err
	}
	ds, err := h.boards.Dataset(c.Params("view"), agentID)
	if err != nil {
		return err
	}
	if ds.Empty {
		return apperrors.NewUnavailable("ticket data not loaded yet", nil)
	}
	return c.JSON(dto.NewTicketsResponse(ds.View, ds.Sections, ds.GeneratedAt, ds.Stale))
}
