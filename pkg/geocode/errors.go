package geocode

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
)

// HTTPStatusError is a non-2xx response from the provider.
type HTTPStatusError struct {
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	class := "Client"
	if e.StatusCode >= 500 {
		class = "Server"
	}
	return fmt.Sprintf("%d %s Error: %s", e.StatusCode, class, http.StatusText(e.StatusCode))
}

// TransportError is a request that never produced an HTTP response.
// Text is the error message with the API key removed.
type TransportError struct {
	Err  error
	Text string
}

func (e *TransportError) Error() string {
	return e.Text
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ParseError is a 2xx response whose body is not a usable geocoding envelope.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "invalid response: " + e.Reason
}

// IsTransient reports whether err looks like a temporary network or provider
// failure (timeouts, resets, DNS, 429 and 5xx responses). It is used to tag
// log entries; requests are never retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var se *HTTPStatusError
	if errors.As(err, &se) {
		return isTransientHTTPStatus(se.StatusCode)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

func isTransientHTTPStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// redact strips the API key, raw or query-escaped, from s.
func redact(s, key string) string {
	if key == "" {
		return s
	}
	s = strings.ReplaceAll(s, key, "REDACTED")
	return strings.ReplaceAll(s, url.QueryEscape(key), "REDACTED")
}
