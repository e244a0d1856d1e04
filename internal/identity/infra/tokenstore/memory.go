// Package tokenstore keeps the server-side state behind opaque refresh
// tokens. The store is in-memory only: issued refresh tokens do not survive
// a restart, which is acceptable for a core that persists no token state.
package tokenstore

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"taskman/internal/identity/usecase"
)

const tokenBytes = 32

type Memory struct {
	mu      sync.Mutex
	entries map[string]usecase.RefreshTokenEntry
	now     func() time.Time
}

func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{
		entries: make(map[string]usecase.RefreshTokenEntry),
		now:     now,
	}
}

// Issue stores the entry under a fresh opaque token.
func (m *Memory) Issue(entry usecase.RefreshTokenEntry) (string, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.purgeLocked()
	m.entries[token] = entry
	return token, nil
}

// Redeem consumes the token. A second redemption of the same value, or an
// expired entry, reports not found.
func (m *Memory) Redeem(token string) (usecase.RefreshTokenEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[token]
	if !ok {
		return usecase.RefreshTokenEntry{}, false
	}
	delete(m.entries, token)
	if m.now().After(entry.ExpiresAt) {
		return usecase.RefreshTokenEntry{}, false
	}
	return entry, true
}

func (m *Memory) purgeLocked() {
	now := m.now()
	for token, entry := range m.entries {
		if now.After(entry.ExpiresAt) {
			delete(m.entries, token)
		}
	}
}

var _ usecase.RefreshTokenStore = (*Memory)(nil)
