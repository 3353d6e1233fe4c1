package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/CHris23132/Movienta-app/internal/models"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// One connection keeps the in-memory database alive for the whole test
	// and serializes concurrent transactions.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	svc := NewService(db)
	if err := svc.AutoMigrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return svc
}

func TestGrantValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		userID string
		amount int64
		key    string
	}{
		{"empty user id", "", 100, "evt_1"},
		{"empty idempotency key", "user-1", 100, ""},
		{"zero amount", "user-1", 0, "evt_1"},
		{"negative amount", "user-1", -5, "evt_1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Grant(ctx, tt.userID, tt.amount, "topup:price_1", tt.key); err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}

	balance, err := svc.Balance(ctx, "user-1")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("rejected grants must not change the balance, got %d", balance)
	}
}

func TestGrantAppliesOncePerKey(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	applied, err := svc.Grant(ctx, "user-1", 100, "topup:price_1", "evt_1")
	if err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if !applied {
		t.Fatal("first grant should report applied=true")
	}

	// Replay with the same key: success, but no second credit.
	applied, err = svc.Grant(ctx, "user-1", 100, "topup:price_1", "evt_1")
	if err != nil {
		t.Fatalf("replayed Grant: %v", err)
	}
	if applied {
		t.Fatal("replayed grant should report applied=false")
	}

	balance, err := svc.Balance(ctx, "user-1")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 100 {
		t.Fatalf("balance = %d, want 100", balance)
	}

	entries, err := svc.Entries(ctx, "user-1", 0, 0)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("ledger has %d entries, want 1", len(entries))
	}
	if entries[0].ID != "evt_1" || entries[0].Type != models.LedgerEntryGrant || entries[0].Amount != 100 {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}
}

func TestGrantConcurrentSameKey(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	var g errgroup.Group
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			_, err := svc.Grant(ctx, "user-1", 50, "topup:price_1", "evt_race")
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent grants: %v", err)
	}

	balance, err := svc.Balance(ctx, "user-1")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 50 {
		t.Fatalf("balance = %d, want exactly one applied grant of 50", balance)
	}
}

func TestGrantConcurrentDistinctKeys(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	const n = 20
	var g errgroup.Group
	for i := 0; i < n; i++ {
		key := string(rune('a' + i))
		g.Go(func() error {
			applied, err := svc.Grant(ctx, "user-1", 10, "topup:price_1", "evt_"+key)
			if err != nil {
				return err
			}
			if !applied {
				return errors.New("distinct-key grant reported applied=false")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent grants: %v", err)
	}

	balance, err := svc.Balance(ctx, "user-1")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != n*10 {
		t.Fatalf("balance = %d, want %d (no lost increments)", balance, n*10)
	}
}

func TestDebitConsumesOneCredit(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Grant(ctx, "user-1", 3, "topup:price_1", "evt_1"); err != nil {
		t.Fatalf("Grant: %v", err)
	}

	entry, err := svc.Debit(ctx, "user-1", "api_call:page-1")
	if err != nil {
		t.Fatalf("Debit: %v", err)
	}
	if entry.Amount != -1 || entry.Type != models.LedgerEntryDebit {
		t.Fatalf("unexpected debit entry: %+v", entry)
	}
	if entry.Reason != "api_call:page-1" {
		t.Fatalf("entry reason = %q", entry.Reason)
	}

	balance, err := svc.Balance(ctx, "user-1")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 2 {
		t.Fatalf("balance = %d, want 2", balance)
	}
}

func TestDebitInsufficientCredits(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// Unknown user: balance zero.
	if _, err := svc.Debit(ctx, "nobody", "api_call:page-1"); !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("debit of unknown user = %v, want ErrInsufficientCredits", err)
	}

	// Drained account: same sentinel, no entry written.
	if _, err := svc.Grant(ctx, "user-1", 1, "topup:price_1", "evt_1"); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if _, err := svc.Debit(ctx, "user-1", "api_call:page-1"); err != nil {
		t.Fatalf("Debit: %v", err)
	}
	if _, err := svc.Debit(ctx, "user-1", "api_call:page-1"); !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("debit at zero = %v, want ErrInsufficientCredits", err)
	}

	entries, err := svc.Entries(ctx, "user-1", 0, 0)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("ledger has %d entries, want 2 (failed debit must not record)", len(entries))
	}
}

func TestDebitConcurrentNeverOverdraws(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	const credits = 5
	const attempts = 20

	if _, err := svc.Grant(ctx, "user-1", credits, "topup:price_1", "evt_1"); err != nil {
		t.Fatalf("Grant: %v", err)
	}

	results := make(chan error, attempts)
	var g errgroup.Group
	for i := 0; i < attempts; i++ {
		g.Go(func() error {
			_, err := svc.Debit(ctx, "user-1", "api_call:page-1")
			results <- err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("errgroup: %v", err)
	}
	close(results)

	var succeeded, denied int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrInsufficientCredits):
			denied++
		default:
			t.Fatalf("unexpected debit error: %v", err)
		}
	}

	if succeeded != credits {
		t.Fatalf("%d debits succeeded, want exactly %d", succeeded, credits)
	}
	if denied != attempts-credits {
		t.Fatalf("%d debits denied, want %d", denied, attempts-credits)
	}

	balance, err := svc.Balance(ctx, "user-1")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("balance = %d, want 0 and never negative", balance)
	}
}

func TestLedgerSumMatchesBalance(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Grant(ctx, "user-1", 10, "topup:price_1", "evt_1"); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if _, err := svc.Grant(ctx, "user-1", 25, "monthly_reset:sub_1", "evt_2"); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	for i := 0; i < 4; i++ {
		if _, err := svc.Debit(ctx, "user-1", "api_call:page-1"); err != nil {
			t.Fatalf("Debit: %v", err)
		}
	}

	balance, err := svc.Balance(ctx, "user-1")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	sum, err := svc.LedgerSum(ctx, "user-1")
	if err != nil {
		t.Fatalf("LedgerSum: %v", err)
	}
	if balance != sum {
		t.Fatalf("cached balance %d drifted from ledger sum %d", balance, sum)
	}
	if balance != 31 {
		t.Fatalf("balance = %d, want 31", balance)
	}
}

func TestLedgerSumEmptyUser(t *testing.T) {
	svc := newTestService(t)

	sum, err := svc.LedgerSum(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("LedgerSum: %v", err)
	}
	if sum != 0 {
		t.Fatalf("sum = %d, want 0", sum)
	}
}

func TestEntriesPagination(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		key := "evt_" + string(rune('a'+i))
		if _, err := svc.Grant(ctx, "user-1", 1, "topup:price_1", key); err != nil {
			t.Fatalf("Grant: %v", err)
		}
	}

	page, err := svc.Entries(ctx, "user-1", 2, 0)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("limit 2 returned %d entries", len(page))
	}

	rest, err := svc.Entries(ctx, "user-1", 10, 2)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(rest) != 3 {
		t.Fatalf("offset 2 returned %d entries, want 3", len(rest))
	}
}

func TestHasCredits(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	ok, err := svc.HasCredits(ctx, "user-1", 1)
	if err != nil {
		t.Fatalf("HasCredits: %v", err)
	}
	if ok {
		t.Fatal("unknown user should have no credits")
	}

	if _, err := svc.Grant(ctx, "user-1", 2, "topup:price_1", "evt_1"); err != nil {
		t.Fatalf("Grant: %v", err)
	}

	ok, err = svc.HasCredits(ctx, "user-1", 2)
	if err != nil {
		t.Fatalf("HasCredits: %v", err)
	}
	if !ok {
		t.Fatal("user with 2 credits should satisfy required=2")
	}
}
