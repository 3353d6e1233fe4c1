package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/CHris23132/Movienta-app/internal/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	svc, err := NewService(models.AuthConfig{JWTSecret: "test-secret", TokenTTLMins: 15})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestNewServiceRequiresSecret(t *testing.T) {
	if _, err := NewService(models.AuthConfig{}); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newTestService(t)

	token, err := svc.IssueToken("user-1", "owner@example.com")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	claims, err := svc.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("subject = %q", claims.Subject)
	}
	if claims.Email != "owner@example.com" {
		t.Fatalf("email = %q", claims.Email)
	}
}

func TestIssueTokenRequiresAccount(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.IssueToken("", "owner@example.com"); err == nil {
		t.Fatal("expected error for empty account id")
	}
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	svc := newTestService(t)
	other, err := NewService(models.AuthConfig{JWTSecret: "different-secret"})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	token, err := other.IssueToken("user-1", "")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	if _, err := svc.VerifyToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	svc := newTestService(t)

	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := svc.VerifyToken(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("VerifyToken(%q) = %v, want ErrInvalidToken", token, err)
		}
	}
}

func TestVerifyTokenExpiry(t *testing.T) {
	svc := newTestService(t)

	issued := time.Now()
	svc.now = func() time.Time { return issued }

	token, err := svc.IssueToken("user-1", "")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	// Just inside the TTL.
	svc.now = func() time.Time { return issued.Add(14 * time.Minute) }
	if _, err := svc.VerifyToken(token); err != nil {
		t.Fatalf("token rejected before expiry: %v", err)
	}

	// Past the TTL.
	svc.now = func() time.Time { return issued.Add(16 * time.Minute) }
	if _, err := svc.VerifyToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken after expiry", err)
	}
}
