package record

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
)

// mvPrefix marks a column holding the multivalue encoding of another column.
const mvPrefix = "__mv_"

// CSVReader decodes CSV with a header row. A "__mv_<field>" column carries
// the multivalue encoding ($a$;$b$) of <field>; it is folded into <field>
// rather than surfacing as a field of its own.
type CSVReader struct {
	r      *csv.Reader
	header []string
	mv     map[string]int // field -> index of its __mv_ column
}

// NewCSVReader reads the header row and returns a reader positioned at the first record.
func NewCSVReader(r io.Reader, opts ReaderOptions) (*CSVReader, error) {
	if opts.Charset != "" {
		enc, err := htmlindex.Get(opts.Charset)
		if err != nil {
			return nil, eris.Wrapf(err, "csv: unsupported charset %q", opts.Charset)
		}
		r = enc.NewDecoder().Reader(r)
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return &CSVReader{r: cr}, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "csv: read header")
	}

	mv := make(map[string]int)
	for i, h := range header {
		if strings.HasPrefix(h, mvPrefix) {
			mv[strings.TrimPrefix(h, mvPrefix)] = i
		}
	}
	return &CSVReader{r: cr, header: header, mv: mv}, nil
}

// Read implements Reader.
func (c *CSVReader) Read() (*Record, error) {
	if c.header == nil {
		return nil, io.EOF
	}
	row, err := c.r.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, eris.Wrap(err, "csv: read row")
	}

	rec := New()
	for i, name := range c.header {
		if strings.HasPrefix(name, mvPrefix) {
			continue
		}
		cell := cellAt(row, i)
		if j, ok := c.mv[name]; ok {
			if enc := cellAt(row, j); enc != "" {
				items, err := decodeMV(enc)
				if err != nil {
					return nil, eris.Wrapf(err, "csv: field %q", name)
				}
				rec.Set(name, Multi(items...))
				continue
			}
		}
		rec.SetString(name, cell)
	}
	return rec, nil
}

// MultiFields returns, in header order, the fields that have a __mv_ column.
func (c *CSVReader) MultiFields() []string {
	var out []string
	for _, name := range c.header {
		if _, ok := c.mv[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// CSVWriter encodes records as CSV. The header is taken from the first
// record. Declared fields, and fields that are multivalued in the first
// record, also get a __mv_ column.
type CSVWriter struct {
	w        *csv.Writer
	header   []string
	cols     map[string]bool
	mv       []string
	declared []string
}

// NewCSVWriter returns a CSVWriter on w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

// DeclareMulti reserves a __mv_ column for each field whatever the first
// record holds. It has no effect once the header is written.
func (c *CSVWriter) DeclareMulti(fields ...string) {
	if c.header != nil {
		return
	}
	c.declared = append(c.declared, fields...)
}

// Write implements Writer.
func (c *CSVWriter) Write(r *Record) error {
	if c.header == nil {
		if err := c.writeHeader(r); err != nil {
			return err
		}
	}

	for _, k := range r.Keys() {
		if !c.cols[k] {
			zap.L().Debug("csv: dropping field missing from header", zap.String("field", k))
		}
	}

	row := make([]string, 0, len(c.header)+len(c.mv))
	for _, k := range c.header {
		v, _ := r.Get(k)
		row = append(row, v.String())
	}
	for _, k := range c.mv {
		v, _ := r.Get(k)
		if v == nil || !v.Multi {
			row = append(row, "")
			continue
		}
		row = append(row, encodeMV(v.Items))
	}
	if err := c.w.Write(row); err != nil {
		return eris.Wrap(err, "csv: write row")
	}
	return nil
}

func (c *CSVWriter) writeHeader(r *Record) error {
	c.header = append([]string(nil), r.Keys()...)
	c.cols = make(map[string]bool, len(c.header))
	for _, k := range c.header {
		c.cols[k] = true
	}

	seen := make(map[string]bool)
	for _, k := range c.declared {
		if !seen[k] {
			seen[k] = true
			c.mv = append(c.mv, k)
		}
	}
	for _, k := range c.header {
		if v, _ := r.Get(k); v != nil && v.Multi && !seen[k] {
			seen[k] = true
			c.mv = append(c.mv, k)
		}
	}

	cols := append([]string(nil), c.header...)
	for _, k := range c.mv {
		cols = append(cols, mvPrefix+k)
	}
	return eris.Wrap(c.w.Write(cols), "csv: write header")
}

// Flush implements Writer.
func (c *CSVWriter) Flush() error {
	c.w.Flush()
	return eris.Wrap(c.w.Error(), "csv: flush")
}

// encodeMV renders items as $a$;$b$ with literal dollars doubled.
func encodeMV(items []string) string {
	var b strings.Builder
	for i, s := range items {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteByte('$')
		b.WriteString(strings.ReplaceAll(s, "$", "$$"))
		b.WriteByte('$')
	}
	return b.String()
}

// decodeMV parses the $a$;$b$ multivalue encoding.
func decodeMV(s string) ([]string, error) {
	var items []string
	i := 0
	for {
		if i >= len(s) || s[i] != '$' {
			return nil, eris.Errorf("multivalue: expected '$' at offset %d", i)
		}
		i++

		var b strings.Builder
		closed := false
		for i < len(s) {
			if s[i] == '$' {
				if i+1 < len(s) && s[i+1] == '$' {
					b.WriteByte('$')
					i += 2
					continue
				}
				i++
				closed = true
				break
			}
			b.WriteByte(s[i])
			i++
		}
		if !closed {
			return nil, eris.New("multivalue: unterminated item")
		}
		items = append(items, b.String())

		if i == len(s) {
			return items, nil
		}
		if s[i] != ';' {
			return nil, eris.Errorf("multivalue: expected ';' at offset %d", i)
		}
		i++
	}
}
