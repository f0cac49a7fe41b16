package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-beacon/internal/board"
	"github.com/spec-kit/ticket-beacon/internal/domain"
	apperrors "github.com/spec-kit/ticket-beacon/pkg/util/errorutil"
)

// DashboardHandler serves the page and its HTML fragments.
type DashboardHandler struct {
	boards   *board.Manager
	sessions *Sessions
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(boards *board.Manager, sessions *Sessions) *DashboardHandler {
	return &DashboardHandler{boards: boards, sessions: sessions}
}

// Root GET /.
func (h *DashboardHandler) Root(c *fiber.Ctx) error {
	return c.Redirect("/"+h.boards.DefaultView(), fiber.StatusFound)
}

// Page GET /:view.
func (h *DashboardHandler) Page(c *fiber.Ctx) error {
	sel, err := agentSelection(c)
	if err != nil {
		return err
	}
	html, err := h.boards.Page(c.UserContext(), h.sessions.ID(c), c.Params("view"), sel)
	if err != nil {
		return err
	}
	return sendHTML(c, html)
}

// Section GET /:view/sections/:section.
func (h *DashboardHandler) Section(c *fiber.Ctx) error {
	b, id, err := h.sectionBoard(c)
	if err != nil {
		return err
	}
	html, err := b.Section(id)
	if err != nil {
		return err
	}
	return sendHTML(c, html)
}

// Sort POST /:view/sections/:section/sort?key=.
func (h *DashboardHandler) Sort(c *fiber.Ctx) error {
	b, id, err := h.sectionBoard(c)
	if err != nil {
		return err
	}
	html, err := b.Sort(id, c.Query("key"))
	if err != nil {
		return err
	}
	return sendHTML(c, html)
}

// OpenModal GET /:view/modal/:id.
func (h *DashboardHandler) OpenModal(c *fiber.Ctx) error {
	b, err := h.board(c)
	if err != nil {
		return err
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	html, err := b.OpenModal(id)
	if err != nil {
		return err
	}
	return sendHTML(c, html)
}

// CloseModal DELETE /:view/modal/:id.
func (h *DashboardHandler) CloseModal(c *fiber.Ctx) error {
	b, err := h.board(c)
	if err != nil {
		return err
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	b.CloseModal(id)
	return c.SendStatus(fiber.StatusNoContent)
}

// Indicators GET /:view/indicators.
func (h *DashboardHandler) Indicators(c *fiber.Ctx) error {
	b, err := h.board(c)
	if err != nil {
		return err
	}
	html, err := b.Indicators()
	if err != nil {
		return err
	}
	return sendHTML(c, html)
}

func (h *DashboardHandler) board(c *fiber.Ctx) (*board.Board, error) {
	sel, err := agentSelection(c)
	if err != nil {
		return nil, err
	}
	return h.boards.Board(c.UserContext(), h.sessions.ID(c), c.Params("view"), sel)
}

func (h *DashboardHandler) sectionBoard(c *fiber.Ctx) (*board.Board, domain.SectionID, error) {
	b, err := h.board(c)
	if err != nil {
		return nil, "", err
	}
	id, ok := domain.ParseSectionID(c.Params("section"))
	if !ok {
		return nil, "", apperrors.NewNotFound("section", map[string]any{"section": c.Params("section")})
	}
	return b, id, nil
}

// agentSelection reads agent_id. An absent parameter defers to the stored
// preference; an empty one selects all agents.
func agentSelection(c *fiber.Ctx) (board.AgentSelection, error) {
	if !c.Context().QueryArgs().Has("agent_id") {
		return board.AgentSelection{}, nil
	}
	id, err := parseAgentID(c.Query("agent_id"))
	if err != nil {
		return board.AgentSelection{}, err
	}
	return board.AgentSelection{Set: true, ID: id}, nil
}

func parseAgentID(raw string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid agent_id", map[string]any{"agent_id": raw})
	}
	return &id, nil
}

func ticketID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return 0, apperrors.NewValidationError("invalid ticket id", map[string]any{"id": c.Params("id")})
	}
	return id, nil
}

func sendHTML(c *fiber.Ctx, html string) error {
	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Type("html", "utf-8")
	return c.SendString(html)
}
