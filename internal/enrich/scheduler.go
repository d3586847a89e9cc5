package enrich

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/geocoding-cli/internal/record"
	"github.com/sells-group/geocoding-cli/pkg/geocode"
)

// job tracks one input record until all of its items are merged.
type job struct {
	seq     int
	rec     *record.Record
	pending int // items not yet merged; touched only by the collector after submission
}

type task struct {
	job  *job
	item Item
}

// outcome carries the results of one task back to the collector. An outcome
// with an empty field marks a record that needed no lookups.
type outcome struct {
	job     *job
	field   string
	results []*geocode.Result
}

// schedule fans each record's items out to a fixed pool of workers and emits
// records in input order once every item of a record has been merged.
//
// At most window records are in flight between submission and emission;
// the submitter blocks on the window, and completed records wait in an
// index-keyed buffer until all earlier records have been emitted.
func (e *Enricher) schedule(ctx context.Context, in <-chan *record.Record, emit func(*record.Record) error, st *Stats) error {
	eg, ctx := errgroup.WithContext(ctx)

	tasks := make(chan task, e.workers)
	outcomes := make(chan outcome, e.workers)
	window := make(chan struct{}, e.window)

	var producers sync.WaitGroup
	producers.Add(1 + e.workers)

	eg.Go(func() error {
		defer producers.Done()
		defer close(tasks)
		return e.submit(ctx, in, tasks, outcomes, window)
	})

	for range e.workers {
		eg.Go(func() error {
			defer producers.Done()
			return e.work(ctx, tasks, outcomes)
		})
	}

	eg.Go(func() error {
		producers.Wait()
		close(outcomes)
		return nil
	})

	eg.Go(func() error {
		return e.collect(ctx, outcomes, window, emit, st)
	})

	return eg.Wait()
}

func (e *Enricher) submit(ctx context.Context, in <-chan *record.Record, tasks chan<- task, outcomes chan<- outcome, window chan<- struct{}) error {
	for seq := 0; ; seq++ {
		var rec *record.Record
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r, ok := <-in:
			if !ok {
				return nil
			}
			rec = r
		}

		select {
		case window <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}

		items := e.merger.Prepare(rec)
		j := &job{seq: seq, rec: rec, pending: len(items)}

		if len(items) == 0 {
			select {
			case outcomes <- outcome{job: j}:
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		for _, it := range items {
			select {
			case tasks <- task{job: j, item: it}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (e *Enricher) work(ctx context.Context, tasks <-chan task, outcomes chan<- outcome) error {
	for t := range tasks {
		results := make([]*geocode.Result, len(t.item.Addresses))
		for i, addr := range t.item.Addresses {
			results[i] = e.client.Geocode(ctx, addr)
		}

		select {
		case outcomes <- outcome{job: t.job, field: t.item.Field, results: results}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (e *Enricher) collect(ctx context.Context, outcomes <-chan outcome, window <-chan struct{}, emit func(*record.Record) error, st *Stats) error {
	ready := make(map[int]*job)
	next := 0

	for {
		var o outcome
		select {
		case <-ctx.Done():
			return ctx.Err()
		case got, ok := <-outcomes:
			if !ok {
				if len(ready) > 0 {
					return eris.Errorf("enrich: %d records completed out of sequence at %d", len(ready), next)
				}
				return nil
			}
			o = got
		}

		if o.field != "" {
			e.merger.Apply(o.job.rec, o.field, o.results)
			o.job.pending--
			st.observe(o.results)
		}
		if o.job.pending > 0 {
			continue
		}
		ready[o.job.seq] = o.job

		for {
			j, ok := ready[next]
			if !ok {
				break
			}
			delete(ready, next)
			if err := emit(j.rec); err != nil {
				return eris.Wrap(err, "enrich: emit record")
			}
			st.Records++
			<-window
			next++
		}
	}
}
