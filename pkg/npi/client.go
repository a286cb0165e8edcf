// Package npi provides a client for the NPPES NPI Registry, the public
// national registry of medical provider identifiers.
package npi

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public NPPES registry endpoint.
	DefaultBaseURL = "https://npiregistry.cms.hhs.gov/api/"

	// apiVersion is the registry API version sent with every request.
	apiVersion = "2.1"
)

// Client looks up providers in the national registry.
type Client interface {
	// ByNumber searches the registry for an exact NPI number.
	ByNumber(ctx context.Context, number string) (*SearchResponse, error)

	// ByName searches the registry by provider first/last name and state,
	// returning up to limit candidate records.
	ByName(ctx context.Context, firstName, lastName, state string, limit int) (*SearchResponse, error)
}

// SearchResponse is the registry's JSON search result envelope.
type SearchResponse struct {
	ResultCount int      `json:"result_count"`
	Results     []Record `json:"results"`
}

// Record is a single provider record returned by the registry.
type Record struct {
	Number     int64      `json:"number"`
	Basic      Basic      `json:"basic"`
	Taxonomies []Taxonomy `json:"taxonomies"`
}

// Basic holds the provider's core attributes.
type Basic struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Credential string `json:"credential"`
	Status     string `json:"status"`
}

// Taxonomy is one specialty classification on a provider record.
type Taxonomy struct {
	Code    string `json:"code"`
	Desc    string `json:"desc"`
	State   string `json:"state"`
	Primary bool   `json:"primary"`
}

// Active reports whether the record's registry status is "A".
func (r Record) Active() bool {
	return r.Basic.Status == "A"
}

// Option configures the registry client.
type Option func(*client)

// WithBaseURL overrides the registry endpoint (used in tests).
func WithBaseURL(u string) Option {
	return func(c *client) {
		c.baseURL = u
	}
}

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

// WithRateLimit sets the requests-per-second limit for registry calls.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps))
	}
}

type client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a registry Client with the given options.
func NewClient(opts ...Option) Client {
	c := &client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(10, 10), // NPPES asks for modest request rates
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
