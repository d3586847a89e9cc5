package record

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, r Reader) []*Record {
	t.Helper()
	var out []*Record
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, rec)
	}
}

func TestCSVReader_Basic(t *testing.T) {
	in := "id,address\n1,123 Main St\n2,\n"
	r, err := NewCSVReader(strings.NewReader(in), ReaderOptions{})
	require.NoError(t, err)

	recs := readAll(t, r)
	require.Len(t, recs, 2)
	assert.Equal(t, []string{"id", "address"}, recs[0].Keys())
	assert.Equal(t, "123 Main St", recs[0].Map()["address"])
	assert.Equal(t, "", recs[1].Map()["address"])

	v, _ := recs[0].Get("address")
	assert.False(t, v.Multi)
}

func TestCSVReader_MultiValue(t *testing.T) {
	in := "id,address,__mv_id,__mv_address\n" +
		"1,\"123 Main St\n456 Oak Ave\",,\"$123 Main St$;$456 Oak Ave$\"\n" +
		"2,single,,\n"
	r, err := NewCSVReader(strings.NewReader(in), ReaderOptions{})
	require.NoError(t, err)

	recs := readAll(t, r)
	require.Len(t, recs, 2)
	assert.Equal(t, []string{"id", "address"}, recs[0].Keys(), "__mv_ columns are folded")

	v, _ := recs[0].Get("address")
	assert.True(t, v.Multi)
	assert.Equal(t, []string{"123 Main St", "456 Oak Ave"}, v.Items)

	v, _ = recs[1].Get("address")
	assert.False(t, v.Multi)
	assert.Equal(t, "single", v.String())
}

func TestCSVReader_ShortRow(t *testing.T) {
	r, err := NewCSVReader(strings.NewReader("a,b,c\n1\n"), ReaderOptions{})
	require.NoError(t, err)
	recs := readAll(t, r)
	require.Len(t, recs, 1)
	assert.Equal(t, map[string]string{"a": "1", "b": "", "c": ""}, recs[0].Map())
}

func TestCSVReader_Empty(t *testing.T) {
	r, err := NewCSVReader(strings.NewReader(""), ReaderOptions{})
	require.NoError(t, err)
	assert.Empty(t, readAll(t, r))
}

func TestCSVReader_Charset(t *testing.T) {
	// "Zürich" in ISO-8859-1
	in := []byte("city\nZ\xfcrich\n")
	r, err := NewCSVReader(bytes.NewReader(in), ReaderOptions{Charset: "iso-8859-1"})
	require.NoError(t, err)
	recs := readAll(t, r)
	require.Len(t, recs, 1)
	assert.Equal(t, "Zürich", recs[0].Map()["city"])
}

func TestCSVReader_UnknownCharset(t *testing.T) {
	_, err := NewCSVReader(strings.NewReader("a\n"), ReaderOptions{Charset: "klingon"})
	assert.Error(t, err)
}

func TestCSVReader_BadMultiValue(t *testing.T) {
	r, err := NewCSVReader(strings.NewReader("a,__mv_a\nx,$x\n"), ReaderOptions{})
	require.NoError(t, err)
	_, err = r.Read()
	assert.Error(t, err)
}

func TestCSVWriter_RoundTrip(t *testing.T) {
	r1 := New()
	r1.SetString("id", "1")
	r1.Set("address", Multi("123 Main St", "4$5 Oak"))
	r1.Set("address_lat", Multi("1.5", "2.5"))
	r2 := New()
	r2.SetString("id", "2")
	r2.Set("address", Single("solo"))
	r2.Set("address_lat", Multi())

	var buf bytes.Buffer
	w := NewCSVWriter(&buf)
	require.NoError(t, w.Write(r1))
	require.NoError(t, w.Write(r2))
	require.NoError(t, w.Flush())

	lines := strings.SplitN(buf.String(), "\n", 2)
	assert.Equal(t, "id,address,address_lat,__mv_address,__mv_address_lat", lines[0])

	r, err := NewCSVReader(&buf, ReaderOptions{})
	require.NoError(t, err)
	recs := readAll(t, r)
	require.Len(t, recs, 2)

	v, _ := recs[0].Get("address")
	assert.Equal(t, []string{"123 Main St", "4$5 Oak"}, v.Items)
	assert.True(t, v.Multi)

	v, _ = recs[1].Get("address")
	assert.Equal(t, "solo", v.String())
	assert.False(t, v.Multi)

	v, _ = recs[1].Get("address_lat")
	assert.Equal(t, "", v.String())
}

func TestCSVWriter_DeclaredMultiAfterSingleRow(t *testing.T) {
	in := "id,addr,__mv_addr\n1,x,\n2,\"a\nb\",$a$;$b$\n"
	r, err := NewCSVReader(strings.NewReader(in), ReaderOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"addr"}, r.MultiFields())

	var buf bytes.Buffer
	w := NewCSVWriter(&buf)
	w.DeclareMulti(r.MultiFields()...)
	for _, rec := range readAll(t, r) {
		require.NoError(t, w.Write(rec))
	}
	require.NoError(t, w.Flush())
	assert.Equal(t, in, buf.String())

	back, err := NewCSVReader(&buf, ReaderOptions{})
	require.NoError(t, err)
	recs := readAll(t, back)
	require.Len(t, recs, 2)

	v, _ := recs[0].Get("addr")
	assert.False(t, v.Multi)
	assert.Equal(t, "x", v.String())

	v, _ = recs[1].Get("addr")
	assert.True(t, v.Multi)
	assert.Equal(t, []string{"a", "b"}, v.Items)
}

func TestCSVWriter_DeclareMultiIgnoredAfterHeader(t *testing.T) {
	var buf bytes.Buffer
	w := NewCSVWriter(&buf)
	require.NoError(t, w.Write(newTestRecord("a", "1")))
	w.DeclareMulti("a")
	require.NoError(t, w.Write(newTestRecord("a", "2")))
	require.NoError(t, w.Flush())
	assert.Equal(t, "a\n1\n2\n", buf.String())
}

func TestCSVWriter_MissingFields(t *testing.T) {
	r1 := New()
	r1.SetString("a", "1")
	r1.SetString("b", "x")
	r2 := New()
	r2.SetString("b", "2")
	r2.SetString("c", "3")

	var buf bytes.Buffer
	w := NewCSVWriter(&buf)
	require.NoError(t, w.Write(r1))
	require.NoError(t, w.Write(r2))
	require.NoError(t, w.Flush())
	assert.Equal(t, "a,b\n1,x\n,2\n", buf.String())
}

func TestMultiValueCodec(t *testing.T) {
	tests := []struct {
		items   []string
		encoded string
	}{
		{[]string{"a"}, "$a$"},
		{[]string{"a", "b"}, "$a$;$b$"},
		{[]string{"", "b"}, "$$;$b$"},
		{[]string{"$5", "a;b"}, "$$$5$;$a;b$"},
		{[]string{"x$"}, "$x$$$"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.encoded, encodeMV(tt.items))
		got, err := decodeMV(tt.encoded)
		require.NoError(t, err, tt.encoded)
		assert.Equal(t, tt.items, got, tt.encoded)
	}
}

func TestDecodeMV_Errors(t *testing.T) {
	for _, s := range []string{"a", "$a", "$a$b", "$a$;", "$a$;b"} {
		_, err := decodeMV(s)
		assert.Error(t, err, s)
	}
}

func newTestRecord(kv ...string) *Record {
	rec := New()
	for i := 0; i+1 < len(kv); i += 2 {
		rec.SetString(kv[i], kv[i+1])
	}
	return rec
}
