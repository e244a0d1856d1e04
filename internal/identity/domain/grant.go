package domain

import "time"

// Grant is the outcome of a single login attempt. It is produced by the
// credential validation bridge and discarded once the token response has
// been written; it is never persisted.
type Grant struct {
	Valid       bool
	PrincipalID string
	Name        string
	Email       string

	// Reason is the end-user facing failure message. It never carries
	// upstream detail; timeouts and backend failures collapse into the
	// same generic text as a wrong password.
	Reason string
}

// DeniedGrant returns the uniform denial returned for every failed login
// attempt.
func DeniedGrant() Grant {
	return Grant{Valid: false, Reason: ErrInvalidCredentials.Error()}
}

// MachineToken is the service-to-service access token the authority uses
// to call the resource service. A single instance is owned by the token
// cache and replaced wholesale on refresh.
type MachineToken struct {
	AccessToken string
	ExpiresAt   time.Time
	Scope       string
}

// Fresh reports whether the token is still usable at the given instant,
// keeping the supplied safety margin ahead of expiry.
func (t MachineToken) Fresh(now time.Time, margin time.Duration) bool {
	if t.AccessToken == "" {
		return false
	}
	return now.Before(t.ExpiresAt.Add(-margin))
}

// CredentialResult is the decoded response of the resource service's
// credential check endpoint.
type CredentialResult struct {
	IsValid      bool   `json:"isValid"`
	UserID       string `json:"userId"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	ErrorMessage string `json:"errorMessage"`
}
