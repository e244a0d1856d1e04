package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"taskman/internal/identity/config"
	"taskman/internal/identity/domain"
	"taskman/internal/identity/infra/credstore"
	"taskman/internal/identity/infra/machinetoken"
	"taskman/internal/identity/infra/ratelimit"
	"taskman/internal/identity/infra/signing"
	"taskman/internal/identity/infra/tokenstore"
	"taskman/internal/identity/usecase"
)

type Server struct {
	cfg    config.Config
	r      *gin.Engine
	logger *slog.Logger

	tokens  *usecase.TokenService
	signer  *signing.Signer
	limiter domain.RateLimiter
}

type ServerDeps struct {
	Tokens  *usecase.TokenService
	Signer  *signing.Signer
	Limiter domain.RateLimiter
	Logger  *slog.Logger
}

// NewServer wires the full token authority: signer, machine token source,
// credential check client, client registry, grant flows and rate limiting.
func NewServer(cfg config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	signer, err := signing.New(signing.Config{
		PrivateKeyPEMBase64: cfg.SigningKeyPEMBase64,
		Issuer:              strings.TrimRight(cfg.IssuerURL, "/"),
		Audience:            cfg.Audience,
		TokenTTL:            cfg.AccessTokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("init signer: %w", err)
	}

	tokenSource, err := machinetoken.New(machinetoken.Config{
		IssuerURL:    cfg.IssuerURL,
		ClientID:     cfg.MachineClientID,
		ClientSecret: cfg.MachineClientSecret,
		Scope:        cfg.Audience,
		SafetyMargin: cfg.MachineTokenSafetyMargin,
		FetchTimeout: cfg.MachineTokenFetchTimeout,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init machine token source: %w", err)
	}

	checker, err := credstore.New(cfg.CredentialCheckURL, cfg.CredentialCheckTimeout, nil)
	if err != nil {
		return nil, fmt.Errorf("init credential check client: %w", err)
	}

	validator := usecase.NewCredentialValidator(tokenSource, checker, logger)
	tokens := usecase.NewTokenService(usecase.TokenServiceConfig{
		Clients:         defaultClients(cfg),
		Validator:       validator,
		Minter:          signer,
		RefreshTokens:   tokenstore.NewMemory(nil),
		RefreshTokenTTL: cfg.RefreshTokenTTL,
		Logger:          logger,
	})

	limiter, err := buildLimiter(cfg)
	if err != nil {
		return nil, err
	}

	return NewServerWithDeps(cfg, ServerDeps{
		Tokens:  tokens,
		Signer:  signer,
		Limiter: limiter,
		Logger:  logger,
	}), nil
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:     cfg,
		r:       r,
		logger:  deps.Logger,
		tokens:  deps.Tokens,
		signer:  deps.Signer,
		limiter: deps.Limiter,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.routes()
	return s
}

func (s *Server) Run() error {
	addr := s.cfg.HTTPAddr
	if addr == "" {
		addr = ":5001"
	}
	s.logger.Info("identityd listening", "addr", addr)
	return s.r.Run(addr)
}

// Handler exposes the router for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.r
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.r.GET("/.well-known/openid-configuration", s.handleDiscovery)
	s.r.GET("/.well-known/jwks.json", s.handleJWKS)
	s.r.POST("/token", s.rateLimitMiddleware(), s.handleToken)
}

// defaultClients mirrors the two statically registered consumers of the
// token endpoint: the public web client exchanging end-user passwords, and
// the authority's own confidential machine client.
func defaultClients(cfg config.Config) *domain.ClientRegistry {
	return domain.NewClientRegistry(
		domain.Client{
			ID:                 cfg.WebClientID,
			Name:               "Task Management Web",
			GrantTypes:         []string{domain.GrantPassword, domain.GrantRefreshToken},
			Scopes:             []string{"openid", "profile", "email", cfg.Audience},
			AllowOfflineAccess: true,
		},
		domain.Client{
			ID:         cfg.MachineClientID,
			Name:       "Identity Service Internal Client",
			Secret:     cfg.MachineClientSecret,
			GrantTypes: []string{domain.GrantClientCredentials},
			Scopes:     []string{cfg.Audience},
		},
	)
}

func buildLimiter(cfg config.Config) (domain.RateLimiter, error) {
	if cfg.RedisAddr != "" {
		limiter, err := ratelimit.NewRedis(ratelimit.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("init redis rate limiter: %w", err)
		}
		return limiter, nil
	}
	return ratelimit.NewMemory(ratelimit.MemoryConfig{}), nil
}

func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	limit := s.cfg.RateLimitRequests
	window := time.Duration(s.cfg.RateLimitWindowSeconds) * time.Second
	return func(c *gin.Context) {
		if s.limiter == nil || limit <= 0 {
			c.Next()
			return
		}
		decision, err := s.limiter.Allow(c.Request.Context(), "token:"+c.ClientIP(), limit, window)
		if err != nil {
			// Fail open: losing the limiter must not take logins down.
			s.logger.Error("rate limiter unavailable", "err", err)
			c.Next()
			return
		}
		if !decision.Allowed {
			c.Header("Retry-After", fmt.Sprintf("%d", int(time.Until(decision.ResetAt).Seconds())+1))
			writeTokenError(c, http.StatusTooManyRequests, "slow_down", "too many token requests")
			return
		}
		c.Next()
	}
}
