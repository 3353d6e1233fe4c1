package api

import (
	"crypto/subtle"

	"github.com/CHris23132/Movienta-app/internal/services/accounts"
	"github.com/CHris23132/Movienta-app/internal/services/auth"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService  *auth.Service
	accounts     *accounts.Service
	bootstrapKey string
}

func NewAuthHandler(authService *auth.Service, accountsService *accounts.Service, bootstrapKey string) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		accounts:     accountsService,
		bootstrapKey: bootstrapKey,
	}
}

// TokenRequest is presented by the companion frontend's server, which holds
// the bootstrap key and has already authenticated the end user.
type TokenRequest struct {
	BootstrapKey string `json:"bootstrap_key"`
	AccountID    string `json:"account_id"`
	Email        string `json:"email,omitempty"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

// IssueToken mints a JWT for an account, creating the account record on
// first contact.
func (h *AuthHandler) IssueToken(c *fiber.Ctx) error {
	var req TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if h.bootstrapKey == "" ||
		subtle.ConstantTimeCompare([]byte(req.BootstrapKey), []byte(h.bootstrapKey)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid bootstrap key",
		})
	}

	if req.AccountID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "account_id is required",
		})
	}

	if _, err := h.accounts.GetOrCreate(c.Context(), req.AccountID, req.Email); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to initialize account",
		})
	}

	token, err := h.authService.IssueToken(req.AccountID, req.Email)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to issue token",
		})
	}

	return c.JSON(TokenResponse{Token: token})
}
