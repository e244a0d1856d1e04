package usecase

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"time"

	"taskman/internal/identity/domain"
)

// TokenRequest carries the decoded form fields of one token endpoint call.
type TokenRequest struct {
	GrantType    string
	Username     string
	Password     string
	ClientID     string
	ClientSecret string
	Scope        string
	RefreshToken string
}

type TokenResult struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// TokenService implements the grant flows of the token endpoint. The
// password flow is strictly linear: received credentials, machine token,
// remote validation, then grant or a uniform denial.
type TokenService struct {
	clients         *domain.ClientRegistry
	validator       *CredentialValidator
	minter          TokenMinter
	refreshTokens   RefreshTokenStore
	refreshTokenTTL time.Duration
	logger          *slog.Logger
	now             func() time.Time
}

type TokenServiceConfig struct {
	Clients         *domain.ClientRegistry
	Validator       *CredentialValidator
	Minter          TokenMinter
	RefreshTokens   RefreshTokenStore
	RefreshTokenTTL time.Duration
	Logger          *slog.Logger
	Now             func() time.Time
}

func NewTokenService(cfg TokenServiceConfig) *TokenService {
	s := &TokenService{
		clients:         cfg.Clients,
		validator:       cfg.Validator,
		minter:          cfg.Minter,
		refreshTokens:   cfg.RefreshTokens,
		refreshTokenTTL: cfg.RefreshTokenTTL,
		logger:          cfg.Logger,
		now:             cfg.Now,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.refreshTokenTTL <= 0 {
		s.refreshTokenTTL = 30 * 24 * time.Hour
	}
	return s
}

// Grant dispatches on grant_type.
func (s *TokenService) Grant(ctx context.Context, req TokenRequest) (TokenResult, error) {
	switch req.GrantType {
	case domain.GrantPassword:
		return s.passwordGrant(ctx, req)
	case domain.GrantClientCredentials:
		return s.clientCredentialsGrant(req)
	case domain.GrantRefreshToken:
		return s.refreshGrant(req)
	default:
		return TokenResult{}, domain.ErrUnsupportedGrant
	}
}

func (s *TokenService) passwordGrant(ctx context.Context, req TokenRequest) (TokenResult, error) {
	client, err := s.resolveClient(req, domain.GrantPassword)
	if err != nil {
		return TokenResult{}, err
	}
	if req.Username == "" || req.Password == "" {
		return TokenResult{}, domain.ErrInvalidGrant
	}
	if !client.AllowsScope(req.Scope) {
		return TokenResult{}, domain.ErrInvalidGrant
	}

	grant := s.validator.Validate(ctx, req.Username, req.Password)
	if !grant.Valid {
		// Deliberately indistinguishable from an upstream failure.
		return TokenResult{}, domain.ErrInvalidGrant
	}

	claims := AccessTokenClaims{
		Subject:  grant.PrincipalID,
		ClientID: client.ID,
		Scope:    req.Scope,
		Name:     grant.Name,
		Email:    grant.Email,
	}
	token, expiresIn, err := s.minter.Mint(claims)
	if err != nil {
		s.logger.Error("access token minting failed", "err", err)
		return TokenResult{}, domain.ErrInvalidGrant
	}

	result := TokenResult{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   expiresIn,
		Scope:       req.Scope,
	}
	if domain.HasScope(req.Scope, domain.ScopeOfflineAccess) && client.AllowOfflineAccess {
		refresh, err := s.refreshTokens.Issue(RefreshTokenEntry{
			Subject:   grant.PrincipalID,
			ClientID:  client.ID,
			Scope:     req.Scope,
			Name:      grant.Name,
			Email:     grant.Email,
			ExpiresAt: s.now().Add(s.refreshTokenTTL),
		})
		if err != nil {
			s.logger.Error("refresh token issuance failed", "err", err)
			return TokenResult{}, domain.ErrInvalidGrant
		}
		result.RefreshToken = refresh
	}
	s.logger.Info("password grant issued", "subject", grant.PrincipalID, "client_id", client.ID)
	return result, nil
}

func (s *TokenService) clientCredentialsGrant(req TokenRequest) (TokenResult, error) {
	client, err := s.resolveClient(req, domain.GrantClientCredentials)
	if err != nil {
		return TokenResult{}, err
	}
	if !client.Confidential() {
		return TokenResult{}, domain.ErrInvalidClient
	}
	if !client.AllowsScope(req.Scope) {
		return TokenResult{}, domain.ErrInvalidGrant
	}

	token, expiresIn, err := s.minter.Mint(AccessTokenClaims{
		Subject:  client.ID,
		ClientID: client.ID,
		Scope:    req.Scope,
	})
	if err != nil {
		s.logger.Error("access token minting failed", "err", err)
		return TokenResult{}, domain.ErrInvalidGrant
	}
	s.logger.Info("client credentials grant issued", "client_id", client.ID)
	return TokenResult{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   expiresIn,
		Scope:       req.Scope,
	}, nil
}

func (s *TokenService) refreshGrant(req TokenRequest) (TokenResult, error) {
	client, err := s.resolveClient(req, domain.GrantRefreshToken)
	if err != nil {
		return TokenResult{}, err
	}
	if req.RefreshToken == "" {
		return TokenResult{}, domain.ErrInvalidGrant
	}
	entry, ok := s.refreshTokens.Redeem(req.RefreshToken)
	if !ok || s.now().After(entry.ExpiresAt) || entry.ClientID != client.ID {
		return TokenResult{}, domain.ErrInvalidGrant
	}

	token, expiresIn, err := s.minter.Mint(AccessTokenClaims{
		Subject:  entry.Subject,
		ClientID: entry.ClientID,
		Scope:    entry.Scope,
		Name:     entry.Name,
		Email:    entry.Email,
	})
	if err != nil {
		s.logger.Error("access token minting failed", "err", err)
		return TokenResult{}, domain.ErrInvalidGrant
	}

	// Rotate: the redeemed token is gone, a fresh one takes its place.
	rotated, err := s.refreshTokens.Issue(RefreshTokenEntry{
		Subject:   entry.Subject,
		ClientID:  entry.ClientID,
		Scope:     entry.Scope,
		Name:      entry.Name,
		Email:     entry.Email,
		ExpiresAt: s.now().Add(s.refreshTokenTTL),
	})
	if err != nil {
		s.logger.Error("refresh token rotation failed", "err", err)
		return TokenResult{}, domain.ErrInvalidGrant
	}
	s.logger.Info("refresh grant issued", "subject", entry.Subject, "client_id", client.ID)
	return TokenResult{
		AccessToken:  token,
		TokenType:    "Bearer",
		ExpiresIn:    expiresIn,
		RefreshToken: rotated,
		Scope:        entry.Scope,
	}, nil
}

func (s *TokenService) resolveClient(req TokenRequest, grantType string) (domain.Client, error) {
	client, ok := s.clients.Lookup(req.ClientID)
	if !ok {
		return domain.Client{}, domain.ErrInvalidClient
	}
	if client.Confidential() {
		if subtle.ConstantTimeCompare([]byte(req.ClientSecret), []byte(client.Secret)) != 1 {
			return domain.Client{}, domain.ErrInvalidClient
		}
	}
	if !client.AllowsGrant(grantType) {
		return domain.Client{}, domain.ErrUnsupportedGrant
	}
	return client, nil
}
