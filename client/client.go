// Package client is the HTTP transport for the storefront API. It owns
// the bearer header, the request timeout bound and the translation of
// failures into the error taxonomy the cart and session layers branch
// on.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// AuthHeader mirrors the server's legacy x-auth-token header.
const AuthHeader = "x-auth-token"

// defaultTimeout bounds every call; a hung request is a failure, never
// an indefinite wait.
const defaultTimeout = 10 * time.Second

// TokenSource supplies the current bearer token, empty when anonymous.
// The session manager is the usual implementation.
type TokenSource func() string

// User is the cached profile the API returns.
type User struct {
	ID      string `json:"_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
}

type Client struct {
	baseURL     string
	httpClient  *http.Client
	breaker     *gobreaker.CircuitBreaker[*http.Response]
	tokenSource TokenSource
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokenSource = ts
	}
}

func New(baseURL string, options ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range options {
		opt(c)
	}

	// The breaker only trips on transport failures; an HTTP error status
	// is a response, not an outage.
	c.breaker = gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name: "storefront-api",
	})

	return c
}

// SetTokenSource wires the token supplier after construction. The
// session manager and the client reference each other, so one side has
// to be attached late.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokenSource = ts
}

// Do performs one JSON round-trip. A non-nil out is filled from a 2xx
// body. Failures come back as *APIError.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokenSource != nil {
		if tok := c.tokenSource(); tok != "" {
			req.Header.Set(AuthHeader, tok)
		}
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		return c.httpClient.Do(req)
	})
	if err != nil {
		return &APIError{Kind: KindNetwork, cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var payload struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		_ = json.Unmarshal(data, &payload)
		if payload.Error == "" {
			payload.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{
			Kind:    kindForStatus(resp.StatusCode, payload.Code),
			Status:  resp.StatusCode,
			Code:    payload.Code,
			Message: payload.Error,
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
