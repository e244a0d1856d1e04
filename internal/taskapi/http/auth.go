package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"taskman/internal/taskapi/domain"
)

const principalContextKey = "principal"

// requireAuth verifies the bearer token and checks the API scope. The
// principal is stored on the context for handlers downstream.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.authenticator == nil {
			writeErrorCode(c, http.StatusInternalServerError, "AUTH_CONFIG_ERROR", "auth configuration error")
			return
		}
		token := extractBearerToken(c.GetHeader("Authorization"))
		if token == "" {
			writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
			return
		}
		principal, err := s.authenticator.Authenticate(c.Request.Context(), token)
		if err != nil {
			writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid bearer token")
			return
		}
		if s.cfg.RequiredScope != "" && !principal.HasScope(s.cfg.RequiredScope) {
			writeErrorCode(c, http.StatusForbidden, "FORBIDDEN", "insufficient scope")
			return
		}
		c.Set(principalContextKey, principal)
		c.Next()
	}
}

// requireMachineClient keeps the credential check endpoint off limits to
// end-user tokens.
func (s *Server) requireMachineClient() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := getPrincipal(c)
		if !ok || principal.ClientID != s.cfg.MachineClientID {
			writeErrorCode(c, http.StatusForbidden, "FORBIDDEN", "machine client required")
			return
		}
		c.Next()
	}
}

func extractBearerToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(value), "bearer ") {
		return ""
	}
	return strings.TrimSpace(value[len("bearer "):])
}

func getPrincipal(c *gin.Context) (domain.Principal, bool) {
	raw, ok := c.Get(principalContextKey)
	if !ok {
		return domain.Principal{}, false
	}
	principal, ok := raw.(domain.Principal)
	return principal, ok
}
