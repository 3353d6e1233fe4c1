package api

import (
	"context"
	"errors"

	"github.com/CHris23132/Movienta-app/internal/services/billing"
	"github.com/CHris23132/Movienta-app/internal/services/middleware"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v81"
)

type BillingHandler struct {
	billingService *billing.Service
}

func NewBillingHandler(billingService *billing.Service) *BillingHandler {
	return &BillingHandler{billingService: billingService}
}

// CheckoutRequest selects the Stripe price to buy.
type CheckoutRequest struct {
	PriceID string `json:"price_id"`
}

// CheckoutResponse carries the hosted checkout URL to redirect to.
type CheckoutResponse struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"url"`
}

// CreateTopupCheckout starts a one-time credit purchase.
func (h *BillingHandler) CreateTopupCheckout(c *fiber.Ctx) error {
	return h.createCheckout(c, h.billingService.CreateTopupSession)
}

// CreateMonthlyCheckout starts a monthly subscription purchase.
func (h *BillingHandler) CreateMonthlyCheckout(c *fiber.Ctx) error {
	return h.createCheckout(c, h.billingService.CreateSubscriptionSession)
}

func (h *BillingHandler) createCheckout(
	c *fiber.Ctx,
	create func(ctx context.Context, accountID, email, priceID string) (*stripe.CheckoutSession, error),
) error {
	var req CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.PriceID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "price_id is required",
		})
	}

	session, err := create(c.Context(), middleware.AccountID(c), middleware.Email(c), req.PriceID)
	if err != nil {
		fiberlog.Errorf("checkout session creation failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create checkout session",
		})
	}

	return c.JSON(CheckoutResponse{
		SessionID:   session.ID,
		CheckoutURL: session.URL,
	})
}

// HandleWebhook processes Stripe webhook events. A 400 is only ever a
// signature failure; any post-verification failure returns 500 so Stripe
// redelivers (safe: grants are keyed by event id).
func (h *BillingHandler) HandleWebhook(c *fiber.Ctx) error {
	payload := c.Body()
	if len(payload) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Empty request body",
		})
	}

	signature := c.Get("Stripe-Signature")
	if signature == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing Stripe-Signature header",
		})
	}

	if err := h.billingService.HandleWebhook(c.Context(), payload, signature); err != nil {
		if errors.Is(err, billing.ErrSignatureInvalid) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid webhook signature",
			})
		}

		fiberlog.Errorf("webhook handler failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process webhook",
		})
	}

	return c.JSON(fiber.Map{"received": true})
}
