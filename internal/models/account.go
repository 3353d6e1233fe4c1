package models

import "time"

// UserAccount is a landing-page owner. The account ID is opaque here: it is
// minted by the companion frontend's auth layer and carried in JWT subjects
// and Stripe metadata.
type UserAccount struct {
	ID               string    `gorm:"primaryKey" json:"id"`
	Email            string    `gorm:"index" json:"email"`
	CreditsCurrent   int64     `gorm:"not null;default:0" json:"credits_current"`
	CreditsUpdatedAt time.Time `json:"credits_updated_at"`

	// At most one Stripe customer and one active subscription per account.
	StripeCustomerID     *string `gorm:"uniqueIndex" json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID *string `json:"stripe_subscription_id,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// AccountSummary is the balance view served to the dashboard.
type AccountSummary struct {
	AccountID       string `json:"account_id"`
	Credits         int64  `json:"credits"`
	HasSubscription bool   `json:"has_subscription"`
	SubscriptionID  string `json:"subscription_id,omitempty"`
}
