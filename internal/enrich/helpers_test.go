package enrich

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/geocoding-cli/internal/record"
	"github.com/sells-group/geocoding-cli/pkg/geocode"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// fakeClient answers lookups from a table keyed by address. Unknown
// addresses resolve to a match whose formatted address echoes the input.
type fakeClient struct {
	delays   map[string]time.Duration
	failures map[string]geocode.Kind

	mu       sync.Mutex
	calls    []string
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeClient) Geocode(ctx context.Context, address string) *geocode.Result {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, address)
	f.mu.Unlock()

	if d := f.delays[address]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
		}
	}

	switch f.failures[address] {
	case geocode.KindTransport:
		return &geocode.Result{
			Address: address,
			Kind:    geocode.KindTransport,
			Err:     &geocode.TransportError{Err: errors.New("dial tcp: connection refused"), Text: "dial tcp: connection refused"},
			Elapsed: time.Millisecond,
		}
	case geocode.KindProvider:
		return &geocode.Result{Address: address, Kind: geocode.KindProvider, Status: "ZERO_RESULTS", Body: `{"status":"ZERO_RESULTS"}`}
	}

	return &geocode.Result{
		Address: address,
		Kind:    geocode.KindOK,
		Status:  "OK",
		Body:    `{"status":"OK"}`,
		Elapsed: 2 * time.Millisecond,
		Match: &geocode.Match{
			Location:         geom.NewPointFlat(geom.XY, []float64{-77.5, 38.25}),
			FormattedAddress: "formatted " + address,
			Components:       map[string]string{"country": "United States"},
		},
	}
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func feed(recs ...*record.Record) <-chan *record.Record {
	ch := make(chan *record.Record, len(recs))
	for _, r := range recs {
		ch <- r
	}
	close(ch)
	return ch
}

func newRecord(kv ...string) *record.Record {
	r := record.New()
	for i := 0; i+1 < len(kv); i += 2 {
		r.SetString(kv[i], kv[i+1])
	}
	return r
}

func collectAll(e *Enricher, in <-chan *record.Record) ([]*record.Record, *Stats, error) {
	var out []*record.Record
	st, err := e.Run(context.Background(), in, func(r *record.Record) error {
		out = append(out, r)
		return nil
	})
	return out, st, err
}
