package record

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
)

// JSONReader decodes a stream of JSON objects (JSON Lines), keeping key order.
// Strings become single values, arrays become multivalues, and other scalars
// are kept in their JSON text form.
type JSONReader struct {
	dec *json.Decoder
}

// NewJSONReader returns a JSONReader on r.
func NewJSONReader(r io.Reader) *JSONReader {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return &JSONReader{dec: dec}
}

// Read implements Reader.
func (j *JSONReader) Read() (*Record, error) {
	tok, err := j.dec.Token()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, eris.Wrap(err, "jsonl: read")
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, eris.Errorf("jsonl: expected object, got %v", tok)
	}

	rec := New()
	for j.dec.More() {
		tok, err := j.dec.Token()
		if err != nil {
			return nil, eris.Wrap(err, "jsonl: read key")
		}
		key, ok := tok.(string)
		if !ok {
			return nil, eris.Errorf("jsonl: expected key, got %v", tok)
		}

		var raw json.RawMessage
		if err := j.dec.Decode(&raw); err != nil {
			return nil, eris.Wrapf(err, "jsonl: read value of %q", key)
		}
		v, err := decodeJSONValue(raw)
		if err != nil {
			return nil, eris.Wrapf(err, "jsonl: value of %q", key)
		}
		rec.Set(key, v)
	}
	if _, err := j.dec.Token(); err != nil {
		return nil, eris.Wrap(err, "jsonl: read object end")
	}
	return rec, nil
}

func decodeJSONValue(raw json.RawMessage) (*Value, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return nil, err
		}
		items := make([]string, 0, len(elems))
		for _, e := range elems {
			s, err := jsonScalar(e)
			if err != nil {
				return nil, err
			}
			items = append(items, s)
		}
		return Multi(items...), nil
	}
	s, err := jsonScalar(raw)
	if err != nil {
		return nil, err
	}
	return Single(s), nil
}

func jsonScalar(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	switch {
	case bytes.Equal(raw, []byte("null")):
		return "", nil
	case len(raw) > 0 && raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	default:
		// numbers, booleans and nested objects keep their JSON text
		return string(raw), nil
	}
}

// JSONWriter encodes records as JSON Lines with keys in record order.
type JSONWriter struct {
	w *bufio.Writer
}

// NewJSONWriter returns a JSONWriter on w.
func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{w: bufio.NewWriter(w)}
}

// Write implements Writer.
func (j *JSONWriter) Write(r *Record) error {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return eris.Wrap(err, "jsonl: marshal key")
		}
		buf.Write(kb)
		buf.WriteByte(':')

		v, _ := r.Get(k)
		var vb []byte
		switch {
		case v == nil:
			vb = []byte(`""`)
		case v.Multi:
			items := v.Items
			if items == nil {
				items = []string{}
			}
			vb, err = json.Marshal(items)
		default:
			vb, err = json.Marshal(v.String())
		}
		if err != nil {
			return eris.Wrapf(err, "jsonl: marshal %q", k)
		}
		buf.Write(vb)
	}
	buf.WriteString("}\n")

	_, err := j.w.Write(buf.Bytes())
	return eris.Wrap(err, "jsonl: write")
}

// Flush implements Writer.
func (j *JSONWriter) Flush() error {
	return eris.Wrap(j.w.Flush(), "jsonl: flush")
}
