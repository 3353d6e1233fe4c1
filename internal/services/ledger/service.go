package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CHris23132/Movienta-app/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInsufficientCredits is returned by Debit when the balance is already
// zero. It is an expected business condition, distinguishable from store
// failures, and must never be auto-retried by callers.
var ErrInsufficientCredits = errors.New("insufficient credits")

// errAlreadyProcessed aborts a grant transaction when the idempotency key
// has been seen before. Never leaves the package: Grant maps it to the
// idempotent success path.
var errAlreadyProcessed = errors.New("grant already processed")

// Service applies balance-affecting operations with exactly-once semantics
// per idempotency key. Every mutation writes a ledger entry and the cached
// balance inside one transaction; the entry's primary key is the
// concurrency guard for grants.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// AutoMigrate runs database migrations for account and ledger tables
func (s *Service) AutoMigrate() error {
	return s.db.AutoMigrate(
		&models.UserAccount{},
		&models.LedgerEntry{},
	)
}

// Grant credits amount to userID exactly once per idempotencyKey. The
// returned bool reports whether this call applied the grant; a replayed key
// returns (false, nil), which is success from the caller's point of view.
//
// The ledger entry is inserted with the key as its primary key before the
// balance update, so two racing grants with the same key conflict inside
// the store: one commits, the other rolls back without touching the
// balance. The balance update is a relative assignment, so concurrent
// grants with distinct keys never lose increments.
func (s *Service) Grant(ctx context.Context, userID string, amount int64, reason, idempotencyKey string) (bool, error) {
	if userID == "" || idempotencyKey == "" {
		return false, fmt.Errorf("grant requires user id and idempotency key")
	}
	if amount <= 0 {
		return false, fmt.Errorf("grant amount must be positive, got %d", amount)
	}

	// Fast path: a committed entry under this key means the grant already
	// happened. Races slipping past this read are caught by the key
	// conflict inside the transaction below.
	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.LedgerEntry{}).
		Where("id = ?", idempotencyKey).
		Count(&existing).Error; err != nil {
		return false, fmt.Errorf("failed to check idempotency key: %w", err)
	}
	if existing > 0 {
		return false, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry := models.LedgerEntry{
			ID:     idempotencyKey,
			UserID: userID,
			Type:   models.LedgerEntryGrant,
			Amount: amount,
			Reason: reason,
		}
		if err := tx.Create(&entry).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errAlreadyProcessed
			}
			return fmt.Errorf("failed to record grant entry: %w", err)
		}

		now := time.Now().UTC()
		account := models.UserAccount{
			ID:               userID,
			CreditsCurrent:   amount,
			CreditsUpdatedAt: now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"credits_current":    gorm.Expr("credits_current + ?", amount),
				"credits_updated_at": now,
			}),
		}).Create(&account).Error; err != nil {
			return fmt.Errorf("failed to update credit balance: %w", err)
		}

		return nil
	})
	if errors.Is(err, errAlreadyProcessed) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

// Debit deducts one credit from userID and records a debit entry tagged with
// reason. Returns ErrInsufficientCredits, with no entry written, when the
// balance is not positive (a missing account counts as balance zero).
//
// The balance update is conditional on credits_current > 0, so under N
// concurrent debits against a balance of B exactly B commit and the rest
// fail; the balance can never go negative.
func (s *Service) Debit(ctx context.Context, userID, reason string) (*models.LedgerEntry, error) {
	if userID == "" {
		return nil, fmt.Errorf("debit requires a user id")
	}

	var entry models.LedgerEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.UserAccount{}).
			Where("id = ? AND credits_current > 0", userID).
			Updates(map[string]any{
				"credits_current":    gorm.Expr("credits_current - 1"),
				"credits_updated_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to update credit balance: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientCredits
		}

		entry = models.LedgerEntry{
			ID:     uuid.NewString(),
			UserID: userID,
			Type:   models.LedgerEntryDebit,
			Amount: -1,
			Reason: reason,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to record debit entry: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &entry, nil
}

// Balance returns the cached credit balance. Missing accounts read as zero.
func (s *Service) Balance(ctx context.Context, userID string) (int64, error) {
	var account models.UserAccount
	err := s.db.WithContext(ctx).Where("id = ?", userID).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read credit balance: %w", err)
	}
	return account.CreditsCurrent, nil
}

// HasCredits reports whether userID holds at least required credits.
func (s *Service) HasCredits(ctx context.Context, userID string, required int64) (bool, error) {
	balance, err := s.Balance(ctx, userID)
	if err != nil {
		return false, err
	}
	return balance >= required, nil
}

// Entries returns the user's ledger history, newest first.
func (s *Service) Entries(ctx context.Context, userID string, limit, offset int) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry

	query := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to read ledger entries: %w", err)
	}

	return entries, nil
}

// LedgerSum computes the user's balance from the ledger itself. Equal to
// Balance in correct operation; reconciliation jobs and tests compare the
// two to detect drift in the cached balance.
func (s *Service) LedgerSum(ctx context.Context, userID string) (int64, error) {
	var sum *int64
	err := s.db.WithContext(ctx).Model(&models.LedgerEntry{}).
		Where("user_id = ?", userID).
		Select("SUM(amount)").
		Scan(&sum).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum ledger entries: %w", err)
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}
