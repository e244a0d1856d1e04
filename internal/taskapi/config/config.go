package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":5002"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	PostgresDSN string `env:"POSTGRES_DSN"`

	// IssuerURL is the token authority whose bearer tokens this service
	// trusts. Verification keys are discovered from it unless JWKSURL
	// pins them directly.
	IssuerURL      string `env:"ISSUER_URL" envDefault:"http://localhost:5001"`
	JWKSURL        string `env:"JWKS_URL"`
	Audience       string `env:"API_AUDIENCE" envDefault:"taskapi"`
	ClockSkewSecs  int    `env:"CLOCK_SKEW_SECONDS" envDefault:"60"`
	RequiredScope  string `env:"REQUIRED_SCOPE" envDefault:"taskapi"`

	// MachineClientID is the only client allowed to call the credential
	// check endpoint.
	MachineClientID string `env:"MACHINE_CLIENT_ID" envDefault:"identityd-machine"`

	SeedDemoData bool `env:"SEED_DEMO_DATA" envDefault:"false"`
}

func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
