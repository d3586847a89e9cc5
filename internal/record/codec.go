package record

import (
	"context"
	"io"

	"github.com/rotisserie/eris"
)

// Reader decodes records one at a time. Read returns io.EOF after the last record.
type Reader interface {
	Read() (*Record, error)
}

// Writer encodes records. Flush must be called once after the last Write.
type Writer interface {
	Write(r *Record) error
	Flush() error
}

// MultiFielder is implemented by readers whose schema marks fields as
// multivalued regardless of any single record.
type MultiFielder interface {
	MultiFields() []string
}

// MultiDeclarer is implemented by writers that must know multivalued fields
// before the first record.
type MultiDeclarer interface {
	DeclareMulti(fields ...string)
}

// Format names a record encoding.
type Format string

// Supported formats.
const (
	FormatCSV   Format = "csv"
	FormatJSONL Format = "jsonl"
	FormatXLSX  Format = "xlsx"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatJSONL, FormatXLSX:
		return Format(s), nil
	default:
		return "", eris.Errorf("record: unknown format %q (want csv, jsonl or xlsx)", s)
	}
}

// NewReader returns a Reader for the format.
func NewReader(f Format, r io.Reader, opts ReaderOptions) (Reader, error) {
	switch f {
	case FormatCSV:
		return NewCSVReader(r, opts)
	case FormatJSONL:
		return NewJSONReader(r), nil
	case FormatXLSX:
		return NewXLSXReader(r, opts.Sheet)
	default:
		return nil, eris.Errorf("record: unknown format %q", f)
	}
}

// NewWriter returns a Writer for the format.
func NewWriter(f Format, w io.Writer) (Writer, error) {
	switch f {
	case FormatCSV:
		return NewCSVWriter(w), nil
	case FormatJSONL:
		return NewJSONWriter(w), nil
	case FormatXLSX:
		return NewXLSXWriter(w), nil
	default:
		return nil, eris.Errorf("record: unknown format %q", f)
	}
}

// ReaderOptions configures decoding.
type ReaderOptions struct {
	Charset string // CSV only; empty means UTF-8
	Sheet   string // XLSX only; empty means the first sheet
}

// Stream reads records from r and sends them to a channel.
// Both channels are closed when reading completes; at most one error is sent.
func Stream(ctx context.Context, r Reader) (<-chan *Record, <-chan error) {
	recCh := make(chan *Record, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(recCh)
		defer close(errCh)

		for {
			rec, err := r.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- err
				return
			}

			select {
			case recCh <- rec:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "record: context cancelled")
				return
			}
		}
	}()

	return recCh, errCh
}
