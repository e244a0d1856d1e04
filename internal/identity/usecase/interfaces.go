package usecase

import (
	"context"
	"time"

	"taskman/internal/identity/domain"
)

// TokenSource yields a valid machine token for outbound calls to the
// resource service.
type TokenSource interface {
	Token(ctx context.Context) (domain.MachineToken, error)
}

// CredentialChecker verifies end-user credentials against the resource
// service's credential store.
type CredentialChecker interface {
	Check(ctx context.Context, machineToken, identifier, password string) (domain.CredentialResult, error)
}

// AccessTokenClaims is the fixed claim set embedded in every minted access
// token. Optional identity claims stay empty for machine clients.
type AccessTokenClaims struct {
	Subject  string
	ClientID string
	Scope    string
	Name     string
	Email    string
}

// TokenMinter signs access tokens.
type TokenMinter interface {
	Mint(claims AccessTokenClaims) (token string, expiresIn int64, err error)
}

// RefreshTokenEntry is the server-side state behind an opaque refresh token.
type RefreshTokenEntry struct {
	Subject   string
	ClientID  string
	Scope     string
	Name      string
	Email     string
	ExpiresAt time.Time
}

// RefreshTokenStore issues and redeems opaque refresh tokens. Redeeming
// consumes the token; a replayed value is not found.
type RefreshTokenStore interface {
	Issue(entry RefreshTokenEntry) (string, error)
	Redeem(token string) (RefreshTokenEntry, bool)
}
