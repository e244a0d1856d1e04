package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"taskman/internal/identity/config"
	"taskman/internal/identity/domain"
	"taskman/internal/identity/infra/ratelimit"
	"taskman/internal/identity/infra/signing"
	"taskman/internal/identity/infra/tokenstore"
	"taskman/internal/identity/usecase"
)

type stubTokenSource struct{}

func (stubTokenSource) Token(_ context.Context) (domain.MachineToken, error) {
	return domain.MachineToken{
		AccessToken: "machine-token",
		ExpiresAt:   time.Now().Add(time.Hour),
	}, nil
}

type stubChecker struct {
	result domain.CredentialResult
}

func (s stubChecker) Check(_ context.Context, _, _, _ string) (domain.CredentialResult, error) {
	return s.result, nil
}

func testServerConfig() config.Config {
	return config.Config{
		IssuerURL:           "http://localhost:5001",
		Audience:            "taskapi",
		WebClientID:         "web-client",
		MachineClientID:     "identityd-machine",
		MachineClientSecret: "machine-secret",
		RateLimitRequests:   100,
	}
}

func newTestServer(t *testing.T, checker usecase.CredentialChecker) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testServerConfig()

	signer, err := signing.New(signing.Config{
		Issuer:   cfg.IssuerURL,
		Audience: cfg.Audience,
		TokenTTL: time.Hour,
	})
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	validator := usecase.NewCredentialValidator(stubTokenSource{}, checker, logger)
	tokens := usecase.NewTokenService(usecase.TokenServiceConfig{
		Clients:         defaultClients(cfg),
		Validator:       validator,
		Minter:          signer,
		RefreshTokens:   tokenstore.NewMemory(nil),
		RefreshTokenTTL: 720 * time.Hour,
		Logger:          logger,
	})
	return NewServerWithDeps(cfg, ServerDeps{
		Tokens:  tokens,
		Signer:  signer,
		Limiter: ratelimit.NewMemory(ratelimit.MemoryConfig{}),
		Logger:  logger,
	})
}

func acceptingChecker() stubChecker {
	return stubChecker{result: domain.CredentialResult{
		IsValid: true,
		UserID:  "U1",
		Name:    "John Doe",
		Email:   "john@example.com",
	}}
}

func rejectingChecker() stubChecker {
	return stubChecker{result: domain.CredentialResult{
		IsValid:      false,
		ErrorMessage: "invalid username or password",
	}}
}

func postForm(t *testing.T, s *Server, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestDiscoveryDocument(t *testing.T) {
	s := newTestServer(t, acceptingChecker())

	req := httptest.NewRequest(http.MethodGet, "/.well-known/openid-configuration", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var doc discoveryDocument
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Issuer != "http://localhost:5001" {
		t.Fatalf("issuer = %q", doc.Issuer)
	}
	if doc.TokenEndpoint != "http://localhost:5001/token" {
		t.Fatalf("token_endpoint = %q", doc.TokenEndpoint)
	}
	if doc.JWKSURI != "http://localhost:5001/.well-known/jwks.json" {
		t.Fatalf("jwks_uri = %q", doc.JWKSURI)
	}
}

func TestJWKSEndpoint(t *testing.T) {
	s := newTestServer(t, acceptingChecker())

	req := httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var set signing.JWKS
	if err := json.Unmarshal(w.Body.Bytes(), &set); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(set.Keys) != 1 || set.Keys[0].Kty != "RSA" {
		t.Fatalf("unexpected jwks: %+v", set)
	}
}

func TestPasswordGrantEndToEnd(t *testing.T) {
	s := newTestServer(t, acceptingChecker())

	w := postForm(t, s, url.Values{
		"grant_type": {"password"},
		"client_id":  {"web-client"},
		"username":   {"john@example.com"},
		"password":   {"password"},
		"scope":      {"openid taskapi"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-store" {
		t.Fatalf("Cache-Control = %q", cc)
	}
	var result usecase.TokenResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.TokenType != "Bearer" || result.ExpiresIn != 3600 {
		t.Fatalf("unexpected result: %+v", result)
	}

	// The minted token must verify against the server's own JWKS key and
	// carry the validated subject.
	parsed, err := jwt.Parse(result.AccessToken, func(tok *jwt.Token) (any, error) {
		return s.signer.PublicKey(), nil
	})
	if err != nil {
		t.Fatalf("parse minted token: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["sub"] != "U1" {
		t.Fatalf("sub = %v, want U1", claims["sub"])
	}
}

func TestPasswordGrantRejection(t *testing.T) {
	s := newTestServer(t, rejectingChecker())

	w := postForm(t, s, url.Values{
		"grant_type": {"password"},
		"client_id":  {"web-client"},
		"username":   {"john@example.com"},
		"password":   {"wrong"},
		"scope":      {"taskapi"},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var body tokenErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "invalid_grant" {
		t.Fatalf("error = %q, want invalid_grant", body.Error)
	}
}

func TestClientCredentialsGrantEndToEnd(t *testing.T) {
	s := newTestServer(t, acceptingChecker())

	w := postForm(t, s, url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {"identityd-machine"},
		"client_secret": {"machine-secret"},
		"scope":         {"taskapi"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var result usecase.TokenResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken != "" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestClientCredentialsBadSecretIs401(t *testing.T) {
	s := newTestServer(t, acceptingChecker())

	w := postForm(t, s, url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {"identityd-machine"},
		"client_secret": {"wrong"},
		"scope":         {"taskapi"},
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	var body tokenErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "invalid_client" {
		t.Fatalf("error = %q, want invalid_client", body.Error)
	}
}

func TestRefreshGrantEndToEnd(t *testing.T) {
	s := newTestServer(t, acceptingChecker())

	w := postForm(t, s, url.Values{
		"grant_type": {"password"},
		"client_id":  {"web-client"},
		"username":   {"john@example.com"},
		"password":   {"password"},
		"scope":      {"taskapi offline_access"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("password grant status = %d: %s", w.Code, w.Body.String())
	}
	var first usecase.TokenResult
	if err := json.Unmarshal(w.Body.Bytes(), &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if first.RefreshToken == "" {
		t.Fatalf("expected refresh token")
	}

	w = postForm(t, s, url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {"web-client"},
		"refresh_token": {first.RefreshToken},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("refresh grant status = %d: %s", w.Code, w.Body.String())
	}
	var second usecase.TokenResult
	if err := json.Unmarshal(w.Body.Bytes(), &second); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if second.RefreshToken == "" || second.RefreshToken == first.RefreshToken {
		t.Fatalf("expected rotated refresh token")
	}
}

func TestMissingGrantTypeIsInvalidRequest(t *testing.T) {
	s := newTestServer(t, acceptingChecker())

	w := postForm(t, s, url.Values{"client_id": {"web-client"}})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var body tokenErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "invalid_request" {
		t.Fatalf("error = %q, want invalid_request", body.Error)
	}
}

func TestTokenEndpointRateLimited(t *testing.T) {
	base := newTestServer(t, rejectingChecker())
	cfg := base.cfg
	cfg.RateLimitRequests = 2
	cfg.RateLimitWindowSeconds = 60
	s := NewServerWithDeps(cfg, ServerDeps{
		Tokens:  base.tokens,
		Signer:  base.signer,
		Limiter: ratelimit.NewMemory(ratelimit.MemoryConfig{}),
		Logger:  base.logger,
	})

	form := url.Values{
		"grant_type": {"password"},
		"client_id":  {"web-client"},
		"username":   {"john@example.com"},
		"password":   {"wrong"},
	}
	for i := 0; i < 2; i++ {
		if w := postForm(t, s, form); w.Code != http.StatusBadRequest {
			t.Fatalf("request %d status = %d", i+1, w.Code)
		}
	}
	w := postForm(t, s, form)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After header")
	}
}

func TestHealthzEndpoint(t *testing.T) {
	s := newTestServer(t, acceptingChecker())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}
