package domain

import "time"

// User is a registered principal of the resource service. The service owns
// the password hashes; the token authority never sees them.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	RegisteredAt time.Time
	Active       bool
}

// CredentialCheck is the response body of the credential check endpoint.
// A rejection carries no user identity and a single generic message.
type CredentialCheck struct {
	IsValid      bool   `json:"isValid"`
	UserID       string `json:"userId,omitempty"`
	Name         string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}
