package domain

import "strings"

// Grant type identifiers accepted by the token endpoint.
const (
	GrantPassword          = "password"
	GrantClientCredentials = "client_credentials"
	GrantRefreshToken      = "refresh_token"
)

// ScopeOfflineAccess asks for a refresh token alongside the access token.
const ScopeOfflineAccess = "offline_access"

// Client is a registered consumer of the token endpoint.
type Client struct {
	ID     string
	Name   string
	Secret string

	GrantTypes         []string
	Scopes             []string
	AllowOfflineAccess bool
}

// Confidential reports whether the client authenticates with a secret.
func (c Client) Confidential() bool {
	return c.Secret != ""
}

// AllowsGrant reports whether the client may use the given grant type.
func (c Client) AllowsGrant(grantType string) bool {
	for _, g := range c.GrantTypes {
		if g == grantType {
			return true
		}
	}
	return false
}

// AllowsScope reports whether every requested scope is registered for the
// client. offline_access is additionally gated by AllowOfflineAccess.
func (c Client) AllowsScope(scope string) bool {
	for _, requested := range SplitScopes(scope) {
		if requested == ScopeOfflineAccess {
			if !c.AllowOfflineAccess {
				return false
			}
			continue
		}
		allowed := false
		for _, s := range c.Scopes {
			if s == requested {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}
	return true
}

// ClientRegistry holds the statically configured clients.
type ClientRegistry struct {
	clients map[string]Client
}

func NewClientRegistry(clients ...Client) *ClientRegistry {
	r := &ClientRegistry{clients: make(map[string]Client, len(clients))}
	for _, c := range clients {
		if c.ID == "" {
			continue
		}
		r.clients[c.ID] = c
	}
	return r
}

// Lookup returns the registered client for the id.
func (r *ClientRegistry) Lookup(id string) (Client, bool) {
	if r == nil || id == "" {
		return Client{}, false
	}
	c, ok := r.clients[id]
	return c, ok
}

// SplitScopes splits a space-delimited scope string into its values.
func SplitScopes(scope string) []string {
	return strings.Fields(scope)
}

// HasScope reports whether the space-delimited scope string contains value.
func HasScope(scope, value string) bool {
	for _, s := range SplitScopes(scope) {
		if s == value {
			return true
		}
	}
	return false
}
