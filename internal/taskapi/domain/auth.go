package domain

import "context"

// Principal is the identity extracted from a verified bearer token. The
// claim set is fixed; no other claims are consulted downstream.
type Principal struct {
	Subject  string
	Name     string
	Email    string
	ClientID string
	Scopes   []string
}

// HasScope reports whether the principal carries the scope.
func (p Principal) HasScope(scope string) bool {
	for _, s := range p.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Authenticator verifies a raw bearer token and yields the principal.
type Authenticator interface {
	Authenticate(ctx context.Context, bearerToken string) (Principal, error)
}
