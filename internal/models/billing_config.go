package models

// BillingConfig holds Stripe credentials and checkout redirect targets.
// Credit quantities are not configured here: they live in Stripe price
// metadata (`credits` on top-up prices, `monthly_credits` on subscription
// prices) so that pricing changes never require a deploy.
type BillingConfig struct {
	SecretKey     string `json:"secret_key" yaml:"secret_key"`
	WebhookSecret string `json:"webhook_secret" yaml:"webhook_secret"`
	SuccessURL    string `json:"success_url,omitzero" yaml:"success_url"`
	CancelURL     string `json:"cancel_url,omitzero" yaml:"cancel_url"`
}
