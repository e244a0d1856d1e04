package domain

import "errors"

var (
	// ErrInvalidCredentials is the only failure the login surface ever
	// reports for a rejected password grant, regardless of cause.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUpstreamUnavailable covers transport failures, timeouts and 5xx
	// responses from the resource service's credential check endpoint.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrTokenRefreshFailed covers failures acquiring or refreshing the
	// service-to-service access token.
	ErrTokenRefreshFailed = errors.New("machine token refresh failed")

	ErrInvalidClient    = errors.New("invalid client")
	ErrInvalidGrant     = errors.New("invalid grant")
	ErrUnsupportedGrant = errors.New("unsupported grant type")
)
