package credstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"taskman/internal/identity/domain"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func newClient(t *testing.T, rt roundTripperFunc) *Client {
	t.Helper()
	c, err := New("http://taskapi.test/v1/users/validate", time.Second, &http.Client{Transport: rt})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestCheckSendsBearerAndBody(t *testing.T) {
	var gotAuth string
	var gotBody checkRequest
	c := newClient(t, func(req *http.Request) (*http.Response, error) {
		gotAuth = req.Header.Get("Authorization")
		if err := json.NewDecoder(req.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		return jsonResponse(http.StatusOK, `{"isValid":true,"userId":"U1","name":"John Doe","email":"john@example.com"}`), nil
	})

	result, err := c.Check(context.Background(), "machine-token", "john@example.com", "password")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if gotAuth != "Bearer machine-token" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if gotBody.Identifier != "john@example.com" || gotBody.Password != "password" {
		t.Fatalf("unexpected body: %+v", gotBody)
	}
	if !result.IsValid || result.UserID != "U1" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestCheckReturnsRejectionAsIs(t *testing.T) {
	c := newClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"isValid":false,"errorMessage":"invalid username or password"}`), nil
	})

	result, err := c.Check(context.Background(), "machine-token", "john@example.com", "wrong")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if result.IsValid || result.ErrorMessage == "" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestCheckTransportFailureIsUpstreamUnavailable(t *testing.T) {
	c := newClient(t, func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp: connection refused")
	})

	_, err := c.Check(context.Background(), "machine-token", "john@example.com", "password")
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("err = %v, want ErrUpstreamUnavailable", err)
	}
}

func TestCheckNon2xxIsUpstreamUnavailable(t *testing.T) {
	c := newClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusBadGateway, `{}`), nil
	})

	_, err := c.Check(context.Background(), "machine-token", "john@example.com", "password")
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("err = %v, want ErrUpstreamUnavailable", err)
	}
}

func TestCheckTimesOut(t *testing.T) {
	c := newClient(t, func(req *http.Request) (*http.Response, error) {
		<-req.Context().Done()
		return nil, req.Context().Err()
	})
	c.timeout = 20 * time.Millisecond

	_, err := c.Check(context.Background(), "machine-token", "john@example.com", "password")
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("err = %v, want ErrUpstreamUnavailable", err)
	}
}
