package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":5001"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// IssuerURL is carried in the iss claim and published by discovery.
	// The machine token cache also dials it to reach the token endpoint.
	IssuerURL string `env:"ISSUER_URL" envDefault:"http://localhost:5001"`
	Audience  string `env:"API_AUDIENCE" envDefault:"taskapi"`

	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"1h"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"720h"`

	// SigningKeyPEMBase64 is an optional base64-encoded PKCS#1/PKCS#8 RSA
	// private key PEM. When empty a key is generated at startup; tokens
	// then only survive as long as the process, which matches the
	// stateless core (verifiers pick the key up through jwks_uri).
	SigningKeyPEMBase64 string `env:"SIGNING_KEY_PEM_BASE64"`

	WebClientID string `env:"WEB_CLIENT_ID" envDefault:"web-client"`

	MachineClientID     string `env:"MACHINE_CLIENT_ID" envDefault:"identityd-machine"`
	MachineClientSecret string `env:"MACHINE_CLIENT_SECRET" envDefault:"dev-machine-secret"`

	CredentialCheckURL     string        `env:"CREDENTIAL_CHECK_URL" envDefault:"http://localhost:5002/v1/users/validate"`
	CredentialCheckTimeout time.Duration `env:"CREDENTIAL_CHECK_TIMEOUT" envDefault:"5s"`

	MachineTokenSafetyMargin time.Duration `env:"MACHINE_TOKEN_SAFETY_MARGIN" envDefault:"60s"`
	MachineTokenFetchTimeout time.Duration `env:"MACHINE_TOKEN_FETCH_TIMEOUT" envDefault:"10s"`

	RateLimitRequests      int `env:"RATE_LIMIT_REQUESTS" envDefault:"0"`
	RateLimitWindowSeconds int `env:"RATE_LIMIT_WINDOW_SECONDS" envDefault:"60"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
