package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-beacon/internal/indicator"
	apperrors "github.com/spec-kit/ticket-beacon/pkg/util/errorutil"
)

// IndicatorHandler reports the status light of a view.
type IndicatorHandler struct {
	service *indicator.Service
}

// NewIndicatorHandler constructs handler.
func NewIndicatorHandler(service *indicator.Service) *IndicatorHandler {
	return &IndicatorHandler{service: service}
}

// Get GET /api/indicator/:view.
func (h *IndicatorHandler) Get(c *fiber.Ctx) error {
	light, ok := h.service.Light(c.Params("view"))
	if !ok {
		return apperrors.NewNotFound("view", map[string]any{"view": c.Params("view")})
	}
	return c.JSON(fiber.Map{"data": light})
}
