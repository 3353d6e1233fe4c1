package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/CHris23132/Movienta-app/internal/models"
	"github.com/CHris23132/Movienta-app/internal/services/accounts"
	"github.com/CHris23132/Movienta-app/internal/services/ledger"
	"github.com/stripe/stripe-go/v81"
	"gorm.io/gorm"
)

// Service owns everything Stripe-facing: checkout session creation, customer
// management, and the webhook dispatcher that turns payment events into
// ledger grants.
type Service struct {
	webhookSecret string
	successURL    string
	cancelURL     string
	backend       Backend
	ledger        *ledger.Service
	accounts      *accounts.Service
}

func NewService(cfg models.BillingConfig, backend Backend, ledgerSvc *ledger.Service, accountsSvc *accounts.Service) *Service {
	stripe.Key = cfg.SecretKey

	return &Service{
		webhookSecret: cfg.WebhookSecret,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
		backend:       backend,
		ledger:        ledgerSvc,
		accounts:      accountsSvc,
	}
}

// CreateTopupSession starts a one-time-payment checkout for a credit top-up
// price. The account id rides in the session metadata so the webhook can
// attribute the grant.
func (s *Service) CreateTopupSession(ctx context.Context, accountID, email, priceID string) (*stripe.CheckoutSession, error) {
	if priceID == "" {
		return nil, fmt.Errorf("price id is required")
	}

	customerID, err := s.getOrCreateCustomer(ctx, accountID, email)
	if err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModePayment)),
		Customer: stripe.String(customerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(s.successURL),
		CancelURL:  stripe.String(s.cancelURL),
		Metadata: map[string]string{
			"uid":     accountID,
			"purpose": "credits_topup",
		},
	}

	return s.backend.NewCheckoutSession(ctx, params)
}

// CreateSubscriptionSession starts a subscription checkout for a monthly
// credit plan. The account id is stamped onto the subscription itself as
// well, so invoice events can resolve the owner without a customer lookup.
func (s *Service) CreateSubscriptionSession(ctx context.Context, accountID, email, priceID string) (*stripe.CheckoutSession, error) {
	if priceID == "" {
		return nil, fmt.Errorf("price id is required")
	}

	customerID, err := s.getOrCreateCustomer(ctx, accountID, email)
	if err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer: stripe.String(customerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(s.successURL),
		CancelURL:  stripe.String(s.cancelURL),
		Metadata: map[string]string{
			"uid":     accountID,
			"purpose": "monthly_credits",
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"uid": accountID},
		},
	}

	return s.backend.NewCheckoutSession(ctx, params)
}

// getOrCreateCustomer reuses the account's stored Stripe customer or creates
// one and persists its id.
func (s *Service) getOrCreateCustomer(ctx context.Context, accountID, email string) (string, error) {
	account, err := s.accounts.GetOrCreate(ctx, accountID, email)
	if err != nil {
		return "", err
	}
	if account.StripeCustomerID != nil && *account.StripeCustomerID != "" {
		return *account.StripeCustomerID, nil
	}

	cust, err := s.backend.NewCustomer(ctx, email, accountID)
	if err != nil {
		return "", err
	}

	if err := s.accounts.SetStripeCustomerID(ctx, accountID, cust.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("account %s vanished while creating customer", accountID)
		}
		return "", err
	}
	return cust.ID, nil
}
