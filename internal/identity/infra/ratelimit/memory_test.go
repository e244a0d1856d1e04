package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiterFixedWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewMemory(MemoryConfig{Now: func() time.Time { return now }})

	for i := 0; i < 3; i++ {
		decision, err := limiter.Allow(context.Background(), "token:1.2.3.4", 3, time.Minute)
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !decision.Allowed {
			t.Fatalf("request %d denied inside limit", i+1)
		}
		if decision.Remaining != 3-(i+1) {
			t.Fatalf("remaining = %d after %d requests", decision.Remaining, i+1)
		}
	}

	decision, err := limiter.Allow(context.Background(), "token:1.2.3.4", 3, time.Minute)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if decision.Allowed {
		t.Fatal("fourth request must be denied")
	}
	if decision.ResetAt.IsZero() {
		t.Fatal("denial must carry window end")
	}
}

func TestMemoryLimiterWindowResets(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewMemory(MemoryConfig{Now: func() time.Time { return now }})

	for i := 0; i < 2; i++ {
		if _, err := limiter.Allow(context.Background(), "k", 2, time.Minute); err != nil {
			t.Fatalf("allow: %v", err)
		}
	}
	if decision, _ := limiter.Allow(context.Background(), "k", 2, time.Minute); decision.Allowed {
		t.Fatal("expected denial at limit")
	}

	now = now.Add(2 * time.Minute)
	decision, err := limiter.Allow(context.Background(), "k", 2, time.Minute)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("expected fresh window to admit")
	}
}

func TestMemoryLimiterKeysAreIndependent(t *testing.T) {
	limiter := NewMemory(MemoryConfig{})

	if _, err := limiter.Allow(context.Background(), "a", 1, time.Minute); err != nil {
		t.Fatalf("allow: %v", err)
	}
	if decision, _ := limiter.Allow(context.Background(), "a", 1, time.Minute); decision.Allowed {
		t.Fatal("key a should be exhausted")
	}
	decision, err := limiter.Allow(context.Background(), "b", 1, time.Minute)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("key b must be unaffected")
	}
}

func TestMemoryLimiterZeroLimitDisables(t *testing.T) {
	limiter := NewMemory(MemoryConfig{})
	decision, err := limiter.Allow(context.Background(), "k", 0, time.Minute)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("zero limit must disable limiting")
	}
}
