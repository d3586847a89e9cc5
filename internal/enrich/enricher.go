// Package enrich geocodes the address fields of a record stream and writes
// the derived fields back onto each record, preserving input order.
package enrich

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geocoding-cli/internal/record"
	"github.com/sells-group/geocoding-cli/pkg/geocode"
)

// Config configures an Enricher.
type Config struct {
	Fields      []string // address fields to geocode
	Workers     int      // concurrent lookups
	Window      int      // records in flight; 0 means Workers
	Placeholder string   // value of derived fields that could not be resolved
}

// Enricher runs the geocoding stream.
type Enricher struct {
	client  geocode.Client
	merger  *Merger
	workers int
	window  int
}

// New validates cfg and returns an Enricher using client for lookups.
func New(client geocode.Client, cfg Config) (*Enricher, error) {
	if client == nil {
		return nil, eris.New("enrich: nil geocode client")
	}
	if cfg.Workers < 1 {
		return nil, eris.Errorf("enrich: workers must be >= 1, got %d", cfg.Workers)
	}
	if cfg.Window < 0 {
		return nil, eris.Errorf("enrich: window must be >= 0, got %d", cfg.Window)
	}
	merger := NewMerger(cfg.Fields, cfg.Placeholder)
	if len(merger.Fields()) == 0 {
		return nil, eris.New("enrich: at least one address field is required")
	}

	window := cfg.Window
	if window == 0 {
		window = cfg.Workers
	}
	return &Enricher{client: client, merger: merger, workers: cfg.Workers, window: window}, nil
}

// Columns returns the derived field names added to every record.
func (e *Enricher) Columns() []string {
	return e.merger.Columns()
}

// MultiColumns expands fields known to be multivalued with the derived
// fields that inherit their multiplicity.
func (e *Enricher) MultiColumns(fields []string) []string {
	var out []string
	for _, f := range fields {
		out = append(out, f)
		out = append(out, e.merger.ColumnsFor(f)...)
	}
	return out
}

// Stats summarizes a run.
type Stats struct {
	RunID   string
	Records int
	Lookups int
	ByKind  map[geocode.Kind]int
	Elapsed time.Duration
}

func (s *Stats) observe(results []*geocode.Result) {
	for _, r := range results {
		s.Lookups++
		s.ByKind[r.Kind]++
	}
}

// Run reads records from in until it is closed and calls emit for each
// enriched record, in input order and exactly once per input record. A
// failed lookup never fails the run; only an emit error or ctx cancellation does.
func (e *Enricher) Run(ctx context.Context, in <-chan *record.Record, emit func(*record.Record) error) (*Stats, error) {
	st := &Stats{
		RunID:  uuid.New().String(),
		ByKind: make(map[geocode.Kind]int),
	}
	log := zap.L().With(zap.String("run_id", st.RunID))
	log.Info("enrich: start",
		zap.Strings("fields", e.merger.Fields()),
		zap.Int("workers", e.workers),
		zap.Int("window", e.window),
	)

	start := time.Now()
	err := e.schedule(ctx, in, emit, st)
	st.Elapsed = time.Since(start)

	log.Info("enrich: complete",
		zap.Int("records", st.Records),
		zap.Int("lookups", st.Lookups),
		zap.Int("ok", st.ByKind[geocode.KindOK]),
		zap.Int("provider", st.ByKind[geocode.KindProvider]),
		zap.Int("http", st.ByKind[geocode.KindHTTP]),
		zap.Int("transport", st.ByKind[geocode.KindTransport]),
		zap.Int("parse", st.ByKind[geocode.KindParse]),
		zap.Duration("elapsed", st.Elapsed),
		zap.Error(err),
	)
	if err != nil {
		return st, eris.Wrap(err, "enrich: run")
	}
	return st, nil
}
