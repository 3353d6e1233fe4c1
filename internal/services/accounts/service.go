package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/CHris23132/Movienta-app/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service manages user-account records and their Stripe billing fields.
// Credit balances are owned by the ledger service; this package never
// touches them.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) AutoMigrate() error {
	return s.db.AutoMigrate(&models.UserAccount{})
}

// GetOrCreate fetches the account, creating an empty one on first contact.
func (s *Service) GetOrCreate(ctx context.Context, accountID, email string) (*models.UserAccount, error) {
	if accountID == "" {
		return nil, fmt.Errorf("account id is required")
	}

	account := models.UserAccount{ID: accountID, Email: email}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&account).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	if err := s.db.WithContext(ctx).Where("id = ?", accountID).First(&account).Error; err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	return &account, nil
}

// Get returns the account or gorm.ErrRecordNotFound.
func (s *Service) Get(ctx context.Context, accountID string) (*models.UserAccount, error) {
	var account models.UserAccount
	if err := s.db.WithContext(ctx).Where("id = ?", accountID).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// Summary returns the dashboard view of an account: balance plus
// subscription state. Missing accounts read as an empty summary.
func (s *Service) Summary(ctx context.Context, accountID string) (*models.AccountSummary, error) {
	account, err := s.Get(ctx, accountID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.AccountSummary{AccountID: accountID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account summary: %w", err)
	}

	summary := &models.AccountSummary{
		AccountID: accountID,
		Credits:   account.CreditsCurrent,
	}
	if account.StripeSubscriptionID != nil && *account.StripeSubscriptionID != "" {
		summary.HasSubscription = true
		summary.SubscriptionID = *account.StripeSubscriptionID
	}
	return summary, nil
}

// FindByStripeCustomerID reverse-looks-up the account owning a Stripe
// customer. Returns gorm.ErrRecordNotFound when no account matches.
func (s *Service) FindByStripeCustomerID(ctx context.Context, customerID string) (*models.UserAccount, error) {
	if customerID == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var account models.UserAccount
	if err := s.db.WithContext(ctx).Where("stripe_customer_id = ?", customerID).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// SetStripeCustomerID persists the customer id minted at first checkout.
func (s *Service) SetStripeCustomerID(ctx context.Context, accountID, customerID string) error {
	res := s.db.WithContext(ctx).Model(&models.UserAccount{}).
		Where("id = ?", accountID).
		Update("stripe_customer_id", customerID)
	if res.Error != nil {
		return fmt.Errorf("failed to set stripe customer id: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetSubscriptionID records the active subscription on the account.
func (s *Service) SetSubscriptionID(ctx context.Context, accountID, subscriptionID string) error {
	res := s.db.WithContext(ctx).Model(&models.UserAccount{}).
		Where("id = ?", accountID).
		Update("stripe_subscription_id", subscriptionID)
	if res.Error != nil {
		return fmt.Errorf("failed to set subscription id: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ClearSubscriptionByCustomerID removes the stored subscription for the
// account owning customerID. Remaining credits survive cancellation, so the
// balance is untouched. A customer with no matching account is a no-op.
func (s *Service) ClearSubscriptionByCustomerID(ctx context.Context, customerID string) error {
	if customerID == "" {
		return nil
	}
	err := s.db.WithContext(ctx).Model(&models.UserAccount{}).
		Where("stripe_customer_id = ?", customerID).
		Update("stripe_subscription_id", nil).Error
	if err != nil {
		return fmt.Errorf("failed to clear subscription id: %w", err)
	}
	return nil
}
