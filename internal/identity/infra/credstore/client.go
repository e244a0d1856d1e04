// Package credstore calls the resource service's credential check endpoint
// on behalf of the authority, authenticated with the machine token.
package credstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"taskman/internal/identity/domain"
)

const defaultTimeout = 5 * time.Second

type Client struct {
	url        string
	timeout    time.Duration
	httpClient *http.Client
}

func New(url string, timeout time.Duration, httpClient *http.Client) (*Client, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("credential check url is required")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{url: url, timeout: timeout, httpClient: httpClient}, nil
}

type checkRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// Check submits the end-user credentials for verification. Transport
// failures, timeouts and non-2xx responses surface as ErrUpstreamUnavailable;
// a decoded response is returned as-is, including rejections.
func (c *Client) Check(ctx context.Context, machineToken, identifier, password string) (domain.CredentialResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(checkRequest{Identifier: identifier, Password: password})
	if err != nil {
		return domain.CredentialResult{}, fmt.Errorf("encode credential check request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return domain.CredentialResult{}, fmt.Errorf("build credential check request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+machineToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.CredentialResult{}, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.CredentialResult{}, fmt.Errorf("%w: credential check returned %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var result domain.CredentialResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return domain.CredentialResult{}, fmt.Errorf("%w: decode credential check response: %v", domain.ErrUpstreamUnavailable, err)
	}
	return result, nil
}
