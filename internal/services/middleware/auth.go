package middleware

import (
	"strings"

	"github.com/CHris23132/Movienta-app/internal/services/auth"
	"github.com/gofiber/fiber/v2"
)

// Locals keys populated by RequireAuth.
const (
	LocalAccountID = "account_id"
	LocalEmail     = "email"
)

type AuthMiddleware struct {
	authService *auth.Service
}

func NewAuthMiddleware(authService *auth.Service) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// RequireAuth verifies the Bearer token and stores the account identity in
// request locals. Webhook, widget and health routes are never behind this.
func (m *AuthMiddleware) RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing Authorization header",
			})
		}

		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization header must be a Bearer token",
			})
		}

		claims, err := m.authService.VerifyToken(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals(LocalAccountID, claims.Subject)
		c.Locals(LocalEmail, claims.Email)

		return c.Next()
	}
}

// AccountID reads the authenticated account id from locals. Empty when the
// request did not pass RequireAuth.
func AccountID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalAccountID).(string)
	return id
}

// Email reads the authenticated email from locals.
func Email(c *fiber.Ctx) string {
	email, _ := c.Locals(LocalEmail).(string)
	return email
}
