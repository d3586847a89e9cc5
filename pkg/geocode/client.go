// Package geocode looks up addresses against the Google Geocoding API and
// flattens the first match into derived output fields.
package geocode

import (
	"context"
	"net/http"
	"time"
)

// DefaultBaseURL is the Google Geocoding JSON endpoint.
const DefaultBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"

// Client geocodes single addresses.
type Client interface {
	// Geocode looks up one non-blank address. Failures are reported through
	// the Result, never as a Go error or panic.
	Geocode(ctx context.Context, address string) *Result
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithAPIKey sets the provider API key sent with every request.
func WithAPIKey(key string) Option {
	return func(g *geocoder) {
		g.apiKey = key
	}
}

// WithBaseURL overrides the geocoding endpoint.
func WithBaseURL(u string) Option {
	return func(g *geocoder) {
		if u != "" {
			g.baseURL = u
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout. A client passed with
// WithHTTPClient is copied, not replaced, so option order does not matter.
func WithTimeout(d time.Duration) Option {
	return func(g *geocoder) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithUnit sets the unit for viewport area estimates.
func WithUnit(u Unit) Option {
	return func(g *geocoder) {
		g.unit = u
	}
}

type geocoder struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	unit       Unit
	timeout    time.Duration
	now        func() time.Time
}

// NewClient creates a geocoding Client with the given options.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    DefaultBaseURL,
		unit:       Miles,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.timeout > 0 {
		hc := *g.httpClient
		hc.Timeout = g.timeout
		g.httpClient = &hc
	}
	return g
}
