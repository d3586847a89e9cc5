package geocode

import (
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// newTestGeocoder returns a geocoder pointed at srv with a fixed clock that
// advances by step on every call.
func newTestGeocoder(t *testing.T, srv *httptest.Server, step time.Duration) *geocoder {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	return &geocoder{
		httpClient: srv.Client(),
		baseURL:    srv.URL + "/maps/api/geocode/json",
		apiKey:     "test-key",
		unit:       Miles,
		now: func() time.Time {
			calls++
			return base.Add(time.Duration(calls) * step)
		},
	}
}
