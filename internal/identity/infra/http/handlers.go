package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"taskman/internal/identity/domain"
	"taskman/internal/identity/usecase"
)

// discoveryDocument is the subset of OIDC provider metadata the two
// consumers need: the bridge locates token_endpoint, the resource service
// locates jwks_uri.
type discoveryDocument struct {
	Issuer                            string   `json:"issuer"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	JWKSURI                           string   `json:"jwks_uri"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	ScopesSupported                   []string `json:"scopes_supported"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported"`
}

type tokenErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func (s *Server) handleDiscovery(c *gin.Context) {
	issuer := strings.TrimRight(s.cfg.IssuerURL, "/")
	c.JSON(http.StatusOK, discoveryDocument{
		Issuer:        issuer,
		TokenEndpoint: issuer + "/token",
		JWKSURI:       issuer + "/.well-known/jwks.json",
		GrantTypesSupported: []string{
			domain.GrantPassword,
			domain.GrantClientCredentials,
			domain.GrantRefreshToken,
		},
		ScopesSupported:                   []string{"openid", "profile", "email", domain.ScopeOfflineAccess, s.cfg.Audience},
		TokenEndpointAuthMethodsSupported: []string{"client_secret_post", "none"},
	})
}

func (s *Server) handleJWKS(c *gin.Context) {
	c.JSON(http.StatusOK, s.signer.JWKS())
}

func (s *Server) handleToken(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		writeTokenError(c, http.StatusBadRequest, "invalid_request", "invalid form data")
		return
	}
	req := usecase.TokenRequest{
		GrantType:    c.PostForm("grant_type"),
		Username:     strings.TrimSpace(c.PostForm("username")),
		Password:     c.PostForm("password"),
		ClientID:     strings.TrimSpace(c.PostForm("client_id")),
		ClientSecret: c.PostForm("client_secret"),
		Scope:        strings.TrimSpace(c.PostForm("scope")),
		RefreshToken: strings.TrimSpace(c.PostForm("refresh_token")),
	}
	if req.GrantType == "" {
		writeTokenError(c, http.StatusBadRequest, "invalid_request", "grant_type is required")
		return
	}

	result, err := s.tokens.Grant(c.Request.Context(), req)
	if err != nil {
		writeGrantError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, result)
}

func writeGrantError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidClient):
		writeTokenError(c, http.StatusUnauthorized, "invalid_client", "client authentication failed")
	case errors.Is(err, domain.ErrUnsupportedGrant):
		writeTokenError(c, http.StatusBadRequest, "unsupported_grant_type", "grant type not allowed for this client")
	default:
		// Wrong password, unknown user, upstream outage: one message.
		writeTokenError(c, http.StatusBadRequest, "invalid_grant", "invalid credentials")
	}
}

func writeTokenError(c *gin.Context, status int, code, description string) {
	c.AbortWithStatusJSON(status, tokenErrorResponse{Error: code, ErrorDescription: description})
}
