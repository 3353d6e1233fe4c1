package billing

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v81"
	checkoutsession "github.com/stripe/stripe-go/v81/checkout/session"
	"github.com/stripe/stripe-go/v81/customer"
	"github.com/stripe/stripe-go/v81/subscription"
)

// Backend is the slice of the Stripe API this service depends on. The
// webhook dispatcher re-fetches sessions and subscriptions through it
// because credit-quantity metadata is not always present on the raw event
// payload; tests substitute a fake.
type Backend interface {
	NewCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	NewCustomer(ctx context.Context, email, accountID string) (*stripe.Customer, error)
	// CheckoutSession returns the session with line_items.data.price expanded.
	CheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
	// Subscription returns the subscription with items.data.price expanded.
	Subscription(ctx context.Context, id string) (*stripe.Subscription, error)
}

type stripeBackend struct{}

// NewStripeBackend returns a Backend over the live Stripe API. The API key
// must already be set on the stripe-go client (see NewService).
func NewStripeBackend() Backend {
	return stripeBackend{}
}

func (stripeBackend) NewCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	params.Context = ctx
	sess, err := checkoutsession.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return sess, nil
}

func (stripeBackend) NewCustomer(ctx context.Context, email, accountID string) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	if email != "" {
		params.Email = stripe.String(email)
	}
	params.AddMetadata("uid", accountID)

	cust, err := customer.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create stripe customer: %w", err)
	}
	return cust, nil
}

func (stripeBackend) CheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("line_items.data.price")

	sess, err := checkoutsession.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve checkout session %s: %w", id, err)
	}
	return sess, nil
}

func (stripeBackend) Subscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	params.AddExpand("items.data.price")

	sub, err := subscription.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve subscription %s: %w", id, err)
	}
	return sub, nil
}
