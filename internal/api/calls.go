package api

import (
	"errors"

	"github.com/CHris23132/Movienta-app/internal/services/calls"
	"github.com/CHris23132/Movienta-app/internal/services/pages"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CallsHandler struct {
	pages *pages.Service
	calls *calls.Service
}

func NewCallsHandler(pagesService *pages.Service, callsService *calls.Service) *CallsHandler {
	return &CallsHandler{
		pages: pagesService,
		calls: callsService,
	}
}

// StartCallRequest opens a widget conversation against a landing page.
type StartCallRequest struct {
	Slug           string `json:"slug"`
	OpeningMessage string `json:"opening_message,omitempty"`
}

// StartCall creates a call session for the widget.
func (h *CallsHandler) StartCall(c *fiber.Ctx) error {
	var req StartCallRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Slug == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "slug is required",
		})
	}

	page, err := h.pages.GetBySlug(c.Context(), req.Slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Landing page not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch landing page",
		})
	}

	call, err := h.calls.Start(c.Context(), page.ID, req.OpeningMessage)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to start call",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(call)
}
