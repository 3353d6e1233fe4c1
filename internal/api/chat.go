package api

import (
	"errors"

	"github.com/CHris23132/Movienta-app/internal/models"
	"github.com/CHris23132/Movienta-app/internal/services/chat"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

type ChatHandler struct {
	chatService *chat.Service
}

func NewChatHandler(chatService *chat.Service) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// ChatRequest is one visitor turn from the widget.
type ChatRequest struct {
	Slug    string `json:"slug"`
	CallID  string `json:"call_id"`
	Message string `json:"message"`
}

// HandleMessage runs one chatbot turn. Insufficient owner credits surface
// as 402 so the widget can stop the conversation; infrastructure failures
// stay 500.
func (h *ChatHandler) HandleMessage(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	reply, err := h.chatService.Respond(c.Context(), req.Slug, req.CallID, req.Message)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return c.Status(appErr.GetStatusCode()).JSON(models.SanitizeError(appErr))
		}

		fiberlog.Errorf("chat turn failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process chat message",
		})
	}

	return c.JSON(reply)
}
