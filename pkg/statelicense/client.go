// Package statelicense provides a client for state medical board license
// verification APIs. The endpoint is optional; an unconfigured client
// reports itself as such instead of failing.
package statelicense

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Client verifies state-issued medical license numbers.
type Client interface {
	// Verify checks a license number against the issuing state's board.
	Verify(ctx context.Context, licenseNumber, state string) (*Result, error)

	// Configured reports whether an endpoint and API key are set.
	Configured() bool
}

// Result is the normalized board response.
type Result struct {
	// Status is the board's status string, lower-cased
	// ("active", "expired", "revoked", "suspended", ...).
	Status string

	// Raw holds the full response payload for the outcome details.
	Raw map[string]any
}

// Option configures the client.
type Option func(*client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *client) {
		c.httpClient.Timeout = d
	}
}

type client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a state license client. Either argument may be empty,
// which leaves the client unconfigured.
func NewClient(endpoint, apiKey string, opts ...Option) Client {
	c := &client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured implements Client.
func (c *client) Configured() bool {
	return c.endpoint != "" && c.apiKey != ""
}

// Verify implements Client.
func (c *client) Verify(ctx context.Context, licenseNumber, state string) (*Result, error) {
	if !c.Configured() {
		return nil, eris.New("statelicense: endpoint not configured")
	}

	payload, err := json.Marshal(map[string]string{
		"license_number": licenseNumber,
		"state":          state,
	})
	if err != nil {
		return nil, eris.Wrap(err, "statelicense: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/verify", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "statelicense: build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "statelicense: verify request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("statelicense: board returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "statelicense: read body")
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, eris.Wrap(err, "statelicense: parse response")
	}

	status, _ := raw["status"].(string)
	return &Result{
		Status: strings.ToLower(status),
		Raw:    raw,
	}, nil
}
