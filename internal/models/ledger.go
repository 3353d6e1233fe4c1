package models

import "time"

type LedgerEntryType string

const (
	LedgerEntryGrant LedgerEntryType = "grant"
	LedgerEntryDebit LedgerEntryType = "debit"
)

// LedgerEntry is an immutable record of a single balance adjustment. For
// payment-driven grants the ID is the Stripe event ID, which makes the
// primary-key constraint the idempotency guard: a redelivered event conflicts
// on insert instead of crediting twice. Debits get generated UUIDs.
//
// Invariant: the sum of a user's entry amounts equals
// UserAccount.CreditsCurrent; both are written in the same transaction.
type LedgerEntry struct {
	ID        string          `gorm:"primaryKey" json:"id"`
	UserID    string          `gorm:"index;not null" json:"user_id"`
	Type      LedgerEntryType `gorm:"not null" json:"type"`
	Amount    int64           `gorm:"not null" json:"amount"`
	Reason    string          `json:"reason"`
	CreatedAt time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}
