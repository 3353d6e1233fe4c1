package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"gorm.io/gorm"
)

// ErrSignatureInvalid marks a webhook payload that failed signature
// verification. Handlers map it to HTTP 400; everything else that fails
// after verification maps to 500 so Stripe redelivers.
var ErrSignatureInvalid = errors.New("webhook signature invalid")

// HandleWebhook authenticates a Stripe event and translates it into ledger
// calls. The Stripe event id is the idempotency key for every grant, which
// makes webhook redelivery safe: a replayed event conflicts on the ledger
// entry's primary key and the balance is untouched.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	fiberlog.Infof("stripe webhook: received %s (%s)", event.Type, event.ID)

	switch event.Type {
	case "checkout.session.completed":
		return s.handleCheckoutCompleted(ctx, event)
	case "invoice.payment_succeeded":
		return s.handleInvoicePaid(ctx, event)
	case "customer.subscription.deleted":
		return s.handleSubscriptionDeleted(ctx, event)
	case "invoice.payment_failed":
		return s.handleInvoiceFailed(event)
	default:
		// Acknowledge everything else so Stripe stops retrying.
		return nil
	}
}

// handleCheckoutCompleted grants top-up credits for one-time-payment
// checkouts. Subscription-mode sessions are ignored here: their credits
// arrive via invoice.payment_succeeded.
func (s *Service) handleCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return fmt.Errorf("failed to parse checkout session: %w", err)
	}

	if session.Mode != stripe.CheckoutSessionModePayment {
		fiberlog.Infof("stripe webhook: skipping %s-mode checkout session %s", session.Mode, session.ID)
		return nil
	}

	uid := session.Metadata["uid"]
	if uid == "" {
		fiberlog.Warnf("stripe webhook: no uid in metadata for session %s", session.ID)
		return nil
	}

	// The raw event payload carries no line items; fetch the session with
	// prices expanded to read the credit quantity off the price metadata.
	full, err := s.backend.CheckoutSession(ctx, session.ID)
	if err != nil {
		return err
	}

	var price *stripe.Price
	if full.LineItems != nil && len(full.LineItems.Data) > 0 {
		price = full.LineItems.Data[0].Price
	}
	if price == nil {
		fiberlog.Warnf("stripe webhook: no price on session %s", session.ID)
		return nil
	}

	credits := metadataInt(price.Metadata, "credits")
	if credits <= 0 {
		fiberlog.Warnf("stripe webhook: no credits metadata on price %s", price.ID)
		return nil
	}

	applied, err := s.ledger.Grant(ctx, uid, credits, "topup:"+price.ID, event.ID)
	if err != nil {
		return err
	}
	if !applied {
		fiberlog.Infof("stripe webhook: credits already granted for event %s", event.ID)
		return nil
	}

	fiberlog.Infof("stripe webhook: granted %d credits to %s for topup:%s", credits, uid, price.ID)
	return nil
}

// handleInvoicePaid grants the monthly credit allotment on a successful
// subscription invoice and records the subscription on the owning account.
func (s *Service) handleInvoicePaid(ctx context.Context, event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("failed to parse invoice: %w", err)
	}

	if invoice.Subscription == nil || invoice.Subscription.ID == "" {
		fiberlog.Infof("stripe webhook: invoice %s has no subscription", invoice.ID)
		return nil
	}

	sub, err := s.backend.Subscription(ctx, invoice.Subscription.ID)
	if err != nil {
		return err
	}

	uid := sub.Metadata["uid"]
	if uid == "" && sub.Customer != nil {
		account, err := s.accounts.FindByStripeCustomerID(ctx, sub.Customer.ID)
		if err == nil {
			uid = account.ID
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}
	if uid == "" {
		fiberlog.Warnf("stripe webhook: no account found for subscription %s", sub.ID)
		return nil
	}

	var total int64
	if sub.Items != nil {
		for _, item := range sub.Items.Data {
			if item.Price != nil {
				total += metadataInt(item.Price.Metadata, "monthly_credits")
			}
		}
	}
	if total <= 0 {
		fiberlog.Warnf("stripe webhook: no monthly_credits metadata on subscription %s", sub.ID)
		return nil
	}

	applied, err := s.ledger.Grant(ctx, uid, total, "monthly_reset:"+sub.ID, event.ID)
	if err != nil {
		return err
	}

	// Persist the subscription id on replays too: if the grant committed but
	// this write failed last time, the redelivery must complete it.
	if err := s.accounts.SetSubscriptionID(ctx, uid, sub.ID); err != nil {
		return err
	}

	if !applied {
		fiberlog.Infof("stripe webhook: credits already granted for event %s", event.ID)
		return nil
	}

	fiberlog.Infof("stripe webhook: granted %d monthly credits to %s for %s", total, uid, sub.ID)
	return nil
}

// handleSubscriptionDeleted detaches the subscription from its account.
// Remaining credits survive cancellation; an unknown customer is a no-op.
func (s *Service) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("failed to parse subscription: %w", err)
	}

	if sub.Customer == nil || sub.Customer.ID == "" {
		return nil
	}

	if err := s.accounts.ClearSubscriptionByCustomerID(ctx, sub.Customer.ID); err != nil {
		return err
	}

	fiberlog.Infof("stripe webhook: cleared subscription for customer %s", sub.Customer.ID)
	return nil
}

// handleInvoiceFailed logs only. Credits are never revoked automatically.
func (s *Service) handleInvoiceFailed(event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("failed to parse invoice: %w", err)
	}

	fiberlog.Warnf("stripe webhook: payment failed for invoice %s", invoice.ID)
	return nil
}

func metadataInt(metadata map[string]string, key string) int64 {
	value, err := strconv.ParseInt(metadata[key], 10, 64)
	if err != nil {
		return 0
	}
	return value
}
