package api

import (
	"strconv"

	"github.com/CHris23132/Movienta-app/internal/models"
	"github.com/CHris23132/Movienta-app/internal/services/accounts"
	"github.com/CHris23132/Movienta-app/internal/services/ledger"
	"github.com/CHris23132/Movienta-app/internal/services/middleware"
	"github.com/gofiber/fiber/v2"
)

type CreditsHandler struct {
	ledger   *ledger.Service
	accounts *accounts.Service
}

func NewCreditsHandler(ledgerService *ledger.Service, accountsService *accounts.Service) *CreditsHandler {
	return &CreditsHandler{
		ledger:   ledgerService,
		accounts: accountsService,
	}
}

// GetSummary returns the authenticated account's balance and subscription
// state.
func (h *CreditsHandler) GetSummary(c *fiber.Ctx) error {
	accountID := middleware.AccountID(c)

	summary, err := h.accounts.Summary(c.Context(), accountID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch credits summary",
		})
	}

	return c.JSON(summary)
}

// LedgerResponse wraps a page of ledger history.
type LedgerResponse struct {
	AccountID string               `json:"account_id"`
	Entries   []models.LedgerEntry `json:"entries"`
	Limit     int                  `json:"limit"`
	Offset    int                  `json:"offset"`
}

// GetLedger returns the authenticated account's ledger history, newest
// first.
func (h *CreditsHandler) GetLedger(c *fiber.Ctx) error {
	accountID := middleware.AccountID(c)

	limit := 50
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	entries, err := h.ledger.Entries(c.Context(), accountID, limit, offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch ledger entries",
		})
	}

	return c.JSON(LedgerResponse{
		AccountID: accountID,
		Entries:   entries,
		Limit:     limit,
		Offset:    offset,
	})
}
