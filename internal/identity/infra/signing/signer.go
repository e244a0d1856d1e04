// Package signing owns the authority's RSA signing key. It mints RS256
// access tokens and publishes the matching public key as a JWK set. Key
// material lives only in memory; verifiers rebuild their view of it from
// jwks_uri after a restart.
package signing

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"taskman/internal/identity/usecase"
)

const keyBits = 2048

type Config struct {
	// PrivateKeyPEMBase64 optionally supplies a base64-encoded PEM RSA
	// private key (PKCS#1 or PKCS#8). Empty generates a fresh key.
	PrivateKeyPEMBase64 string

	Issuer   string
	Audience string
	TokenTTL time.Duration

	Now func() time.Time
}

type Signer struct {
	key      *rsa.PrivateKey
	keyID    string
	issuer   string
	audience string
	tokenTTL time.Duration
	now      func() time.Time
}

func New(cfg Config) (*Signer, error) {
	if cfg.Issuer == "" {
		return nil, errors.New("issuer is required")
	}
	if cfg.Audience == "" {
		return nil, errors.New("audience is required")
	}
	key, err := loadOrGenerateKey(cfg.PrivateKeyPEMBase64)
	if err != nil {
		return nil, err
	}
	s := &Signer{
		key:      key,
		keyID:    keyIDFor(&key.PublicKey),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		tokenTTL: cfg.TokenTTL,
		now:      cfg.Now,
	}
	if s.tokenTTL <= 0 {
		s.tokenTTL = time.Hour
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Mint signs an access token for the claim set. Empty name/email claims
// are omitted (machine clients carry no identity claims).
func (s *Signer) Mint(claims usecase.AccessTokenClaims) (string, int64, error) {
	if claims.Subject == "" {
		return "", 0, errors.New("subject is required")
	}
	now := s.now().UTC()
	payload := jwt.MapClaims{
		"iss":       s.issuer,
		"sub":       claims.Subject,
		"aud":       s.audience,
		"iat":       now.Unix(),
		"exp":       now.Add(s.tokenTTL).Unix(),
		"jti":       uuid.NewString(),
		"client_id": claims.ClientID,
	}
	if claims.Scope != "" {
		payload["scope"] = claims.Scope
	}
	if claims.Name != "" {
		payload["name"] = claims.Name
	}
	if claims.Email != "" {
		payload["email"] = claims.Email
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, payload)
	token.Header["kid"] = s.keyID
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", 0, fmt.Errorf("sign access token: %w", err)
	}
	return signed, int64(s.tokenTTL.Seconds()), nil
}

// JWK is one published verification key.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWKS returns the public key set served at jwks_uri.
func (s *Signer) JWKS() JWKS {
	pub := &s.key.PublicKey
	e := big.NewInt(int64(pub.E))
	return JWKS{Keys: []JWK{{
		Kty: "RSA",
		Use: "sig",
		Alg: "RS256",
		Kid: s.keyID,
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(e.Bytes()),
	}}}
}

// KeyID returns the kid carried in minted token headers.
func (s *Signer) KeyID() string {
	return s.keyID
}

// PublicKey exposes the verification key for in-process tests.
func (s *Signer) PublicKey() *rsa.PublicKey {
	return &s.key.PublicKey
}

func loadOrGenerateKey(pemBase64 string) (*rsa.PrivateKey, error) {
	if pemBase64 == "" {
		key, err := rsa.GenerateKey(rand.Reader, keyBits)
		if err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
		return key, nil
	}
	raw, err := base64.StdEncoding.DecodeString(pemBase64)
	if err != nil {
		return nil, fmt.Errorf("decode signing key: %w", err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.New("signing key is not PEM encoded")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse signing key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("signing key is not RSA")
	}
	return key, nil
}

// keyIDFor derives a stable kid from the public modulus.
func keyIDFor(pub *rsa.PublicKey) string {
	sum := sha256.Sum256(pub.N.Bytes())
	return hex.EncodeToString(sum[:8])
}
