package tokenstore

import (
	"testing"
	"time"

	"taskman/internal/identity/usecase"
)

func TestIssueRedeemRoundTrip(t *testing.T) {
	store := NewMemory(nil)

	entry := usecase.RefreshTokenEntry{
		Subject:   "U1",
		ClientID:  "web-client",
		Scope:     "taskapi offline_access",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	token, err := store.Issue(entry)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}

	got, ok := store.Redeem(token)
	if !ok {
		t.Fatal("redeem failed")
	}
	if got.Subject != "U1" || got.ClientID != "web-client" {
		t.Fatalf("unexpected entry: %+v", got)
	}
}

func TestRedeemConsumesToken(t *testing.T) {
	store := NewMemory(nil)
	token, err := store.Issue(usecase.RefreshTokenEntry{
		Subject:   "U1",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, ok := store.Redeem(token); !ok {
		t.Fatal("first redeem failed")
	}
	if _, ok := store.Redeem(token); ok {
		t.Fatal("replayed token must not redeem")
	}
}

func TestRedeemRejectsExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemory(func() time.Time { return now })

	token, err := store.Issue(usecase.RefreshTokenEntry{
		Subject:   "U1",
		ExpiresAt: now.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := store.Redeem(token); ok {
		t.Fatal("expired token must not redeem")
	}
}

func TestTokensAreUnique(t *testing.T) {
	store := NewMemory(nil)
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		token, err := store.Issue(usecase.RefreshTokenEntry{ExpiresAt: time.Now().Add(time.Hour)})
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		if _, dup := seen[token]; dup {
			t.Fatalf("duplicate token at iteration %d", i)
		}
		seen[token] = struct{}{}
	}
}
