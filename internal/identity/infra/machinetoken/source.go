// Package machinetoken holds the single cached service-to-service access
// token the authority presents when calling the resource service. The token
// is obtained through the authority's own client-credentials grant, located
// via its discovery document, and refreshed ahead of expiry with a safety
// margin. Concurrent callers observing a missing or expiring token share
// one in-flight refresh.
package machinetoken

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"taskman/internal/identity/domain"
)

const (
	defaultSafetyMargin = 60 * time.Second
	defaultFetchTimeout = 10 * time.Second
	discoveryPath       = "/.well-known/openid-configuration"
)

type Config struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	Scope        string

	SafetyMargin time.Duration
	FetchTimeout time.Duration

	HTTPClient *http.Client
	Logger     *slog.Logger
	Now        func() time.Time
}

type Source struct {
	issuerURL    string
	clientID     string
	clientSecret string
	scope        string

	safetyMargin time.Duration
	fetchTimeout time.Duration

	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time

	mu            sync.Mutex
	token         domain.MachineToken
	tokenEndpoint string
	inflight      *refresh
}

// refresh carries the result of one outbound fetch. Its fields are written
// once before done is closed and are immutable afterwards, so every waiter
// of the same refresh observes the same outcome.
type refresh struct {
	done  chan struct{}
	token domain.MachineToken
	err   error
}

func New(cfg Config) (*Source, error) {
	issuer := strings.TrimRight(strings.TrimSpace(cfg.IssuerURL), "/")
	if issuer == "" {
		return nil, errors.New("issuer url is required")
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("machine client credentials are required")
	}
	s := &Source{
		issuerURL:    issuer,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		scope:        cfg.Scope,
		safetyMargin: cfg.SafetyMargin,
		fetchTimeout: cfg.FetchTimeout,
		httpClient:   cfg.HTTPClient,
		logger:       cfg.Logger,
		now:          cfg.Now,
	}
	if s.safetyMargin <= 0 {
		s.safetyMargin = defaultSafetyMargin
	}
	if s.fetchTimeout <= 0 {
		s.fetchTimeout = defaultFetchTimeout
	}
	if s.httpClient == nil {
		s.httpClient = &http.Client{Timeout: s.fetchTimeout}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Token returns the cached machine token, refreshing it first when it is
// absent or inside the safety margin before expiry. At most one outbound
// refresh runs at a time; every caller that needed it receives that
// refresh's result. Cancelling a waiting caller abandons the wait only,
// never the refresh itself.
func (s *Source) Token(ctx context.Context) (domain.MachineToken, error) {
	s.mu.Lock()
	if s.token.Fresh(s.now(), s.safetyMargin) {
		token := s.token
		s.mu.Unlock()
		return token, nil
	}
	r := s.inflight
	if r == nil {
		r = &refresh{done: make(chan struct{})}
		s.inflight = r
		go s.runRefresh(r)
	}
	s.mu.Unlock()

	select {
	case <-r.done:
	case <-ctx.Done():
		return domain.MachineToken{}, ctx.Err()
	}
	if r.err != nil {
		return domain.MachineToken{}, fmt.Errorf("%w: %v", domain.ErrTokenRefreshFailed, r.err)
	}
	return r.token, nil
}

// runRefresh performs the outbound fetch under a detached bounded context
// so that it outlives any individual cancelled waiter. On failure the
// cached token is left untouched.
func (s *Source) runRefresh(r *refresh) {
	ctx, cancel := context.WithTimeout(context.Background(), s.fetchTimeout)
	defer cancel()

	token, err := s.fetch(ctx)

	s.mu.Lock()
	if err == nil {
		s.token = token
	}
	s.inflight = nil
	s.mu.Unlock()

	r.token = token
	r.err = err
	close(r.done)

	if err != nil {
		s.logger.Error("machine token refresh failed", "err", err)
	} else {
		s.logger.Debug("machine token refreshed", "expires_at", token.ExpiresAt)
	}
}

func (s *Source) fetch(ctx context.Context) (domain.MachineToken, error) {
	endpoint, err := s.resolveTokenEndpoint(ctx)
	if err != nil {
		return domain.MachineToken{}, err
	}

	form := url.Values{}
	form.Set("grant_type", domain.GrantClientCredentials)
	form.Set("client_id", s.clientID)
	form.Set("client_secret", s.clientSecret)
	if s.scope != "" {
		form.Set("scope", s.scope)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return domain.MachineToken{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return domain.MachineToken{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.MachineToken{}, fmt.Errorf("token endpoint returned %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
		Scope       string `json:"scope"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.MachineToken{}, fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return domain.MachineToken{}, errors.New("token response missing access_token")
	}
	if payload.ExpiresIn <= 0 {
		return domain.MachineToken{}, errors.New("token response missing expires_in")
	}
	return domain.MachineToken{
		AccessToken: payload.AccessToken,
		ExpiresAt:   s.now().Add(time.Duration(payload.ExpiresIn) * time.Second),
		Scope:       payload.Scope,
	}, nil
}

func (s *Source) resolveTokenEndpoint(ctx context.Context) (string, error) {
	s.mu.Lock()
	endpoint := s.tokenEndpoint
	s.mu.Unlock()
	if endpoint != "" {
		return endpoint, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.issuerURL+discoveryPath, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("discovery returned %d", resp.StatusCode)
	}
	var payload struct {
		TokenEndpoint string `json:"token_endpoint"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode discovery document: %w", err)
	}
	if payload.TokenEndpoint == "" {
		return "", errors.New("discovery document missing token_endpoint")
	}

	s.mu.Lock()
	s.tokenEndpoint = payload.TokenEndpoint
	s.mu.Unlock()
	return payload.TokenEndpoint, nil
}
