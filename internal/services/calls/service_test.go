package calls

import (
	"context"
	"errors"
	"testing"

	"github.com/CHris23132/Movienta-app/internal/models"
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

func TestStartSeedsOpeningMessage(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	call, err := svc.Start(ctx, "page-1", "Hi! What's your name?")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if call.Status != models.CallStatusActive {
		t.Fatalf("status = %q", call.Status)
	}
	if len(call.Messages) != 1 {
		t.Fatalf("transcript has %d messages, want 1", len(call.Messages))
	}
	if call.Messages[0].Role != models.MessageRoleAssistant || call.Messages[0].Content != "Hi! What's your name?" {
		t.Fatalf("unexpected opening message: %+v", call.Messages[0])
	}
}

func TestStartWithoutOpeningMessage(t *testing.T) {
	svc := newTestService(t)

	call, err := svc.Start(context.Background(), "page-1", "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if len(call.Messages) != 0 {
		t.Fatalf("transcript has %d messages, want 0", len(call.Messages))
	}
}

func TestStartRequiresPage(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.Start(context.Background(), "", ""); err == nil {
		t.Fatal("expected error for empty page id")
	}
}

func TestTranscriptOrdering(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	call, err := svc.Start(ctx, "page-1", "opening")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	turns := []struct {
		role    models.MessageRole
		content string
	}{
		{models.MessageRoleUser, "first"},
		{models.MessageRoleAssistant, "second"},
		{models.MessageRoleUser, "third"},
	}
	for _, turn := range turns {
		if err := svc.AppendMessage(ctx, call.ID, turn.role, turn.content); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
	}

	got, err := svc.Get(ctx, call.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := []string{"opening", "first", "second", "third"}
	if len(got.Messages) != len(want) {
		t.Fatalf("transcript has %d messages, want %d", len(got.Messages), len(want))
	}
	for i, content := range want {
		if got.Messages[i].Content != content {
			t.Fatalf("message %d = %q, want %q", i, got.Messages[i].Content, content)
		}
	}
}

func TestSetClientInfo(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	call, err := svc.Start(ctx, "page-1", "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := svc.SetClientInfo(ctx, call.ID, "5551234567", "Jane Doe"); err != nil {
		t.Fatalf("SetClientInfo: %v", err)
	}

	got, err := svc.Get(ctx, call.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.PhoneNumber != "5551234567" || got.ClientName != "Jane Doe" {
		t.Fatalf("client info not recorded: %+v", got)
	}

	if err := svc.SetClientInfo(ctx, "no-such-call", "5551234567", ""); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("err = %v, want ErrRecordNotFound", err)
	}
}

func TestComplete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	call, err := svc.Start(ctx, "page-1", "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := svc.Complete(ctx, call.ID); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	got, err := svc.Get(ctx, call.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != models.CallStatusCompleted {
		t.Fatalf("status = %q", got.Status)
	}
	if got.EndedAt == nil {
		t.Fatal("ended_at not set")
	}

	if err := svc.Complete(ctx, "no-such-call"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("err = %v, want ErrRecordNotFound", err)
	}
}

func TestListByPage(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Start(ctx, "page-1", "hi"); err != nil {
			t.Fatalf("Start: %v", err)
		}
	}
	if _, err := svc.Start(ctx, "page-2", "hi"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	list, err := svc.ListByPage(ctx, "page-1")
	if err != nil {
		t.Fatalf("ListByPage: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("got %d calls, want 3", len(list))
	}
	for _, c := range list {
		if c.LandingPageID != "page-1" {
			t.Fatalf("listed call for page %q", c.LandingPageID)
		}
		if len(c.Messages) != 1 {
			t.Fatalf("call transcript not preloaded: %+v", c)
		}
	}
}
