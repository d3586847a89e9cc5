package geocode

import (
	"strconv"
	"time"

	"github.com/twpayne/go-geom"
)

// Kind classifies how a lookup ended.
type Kind int

// Lookup outcomes.
const (
	KindOK        Kind = iota // provider status OK with a usable result
	KindProvider              // provider answered with a non-OK status
	KindHTTP                  // non-2xx HTTP response
	KindTransport             // no HTTP response at all
	KindParse                 // 2xx response with an unusable body
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindProvider:
		return "provider"
	case KindHTTP:
		return "http"
	case KindTransport:
		return "transport"
	case KindParse:
		return "parse"
	default:
		return "unknown"
	}
}

// Status strings reported by the provider.
const (
	StatusOK          = "OK"
	StatusZeroResults = "ZERO_RESULTS"
)

// Result is the outcome of a single address lookup.
type Result struct {
	Address string
	Kind    Kind
	Status  string // provider status, empty unless a body was decoded
	Err     error  // *HTTPStatusError, *TransportError or *ParseError
	Body    string // raw response body for 2xx responses
	Elapsed time.Duration
	Match   *Match // nil unless Kind == KindOK
}

// Match holds the data extracted from the first provider result.
type Match struct {
	Location         *geom.Point // XY: lon, lat
	FormattedAddress string
	Viewport         *geom.Bounds // nil when the provider omitted it
	Area             float64
	Components       map[string]string // recognized component type -> long name
}

// Message is the diagnostic text written to the _msg field.
func (r *Result) Message() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	return r.Status
}

// Fields flattens the result into derived field suffix -> value. Suffixes
// missing from the map could not be resolved and keep their placeholder.
func (r *Result) Fields() map[string]string {
	out := map[string]string{
		SuffixTimeMS: formatMillis(r.Elapsed),
		SuffixMsg:    r.Message(),
	}
	if r.Body != "" {
		out[SuffixJSON] = r.Body
	}
	m := r.Match
	if m == nil {
		return out
	}

	if m.Location != nil {
		out[SuffixLat] = formatFloat(m.Location.Y())
		out[SuffixLon] = formatFloat(m.Location.X())
	}
	if m.FormattedAddress != "" {
		out[SuffixFormattedAddress] = m.FormattedAddress
	}
	if m.Viewport != nil {
		out[SuffixViewportNELat] = formatFloat(m.Viewport.Max(1))
		out[SuffixViewportNELon] = formatFloat(m.Viewport.Max(0))
		out[SuffixViewportSWLat] = formatFloat(m.Viewport.Min(1))
		out[SuffixViewportSWLon] = formatFloat(m.Viewport.Min(0))
		out[SuffixViewportArea] = formatFloat(m.Area)
	}
	for typ, name := range m.Components {
		out[typ] = name
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatMillis(d time.Duration) string {
	return strconv.FormatFloat(float64(d.Microseconds())/1000, 'f', 3, 64)
}
