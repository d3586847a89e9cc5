package record

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func createTestXLSX(t *testing.T, sheet string, rows [][]string) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", sheet))
	for i, rowData := range rows {
		for j, v := range rowData {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestXLSXReader_Basic(t *testing.T) {
	buf := createTestXLSX(t, "Addresses", [][]string{
		{"id", "address"},
		{"1", "123 Main St"},
		{"2", ""},
	})

	r, err := NewXLSXReader(buf, "")
	require.NoError(t, err)
	recs := readAll(t, r)
	require.Len(t, recs, 2)
	assert.Equal(t, []string{"id", "address"}, recs[0].Keys())
	assert.Equal(t, map[string]string{"id": "1", "address": "123 Main St"}, recs[0].Map())
	assert.Equal(t, map[string]string{"id": "2", "address": ""}, recs[1].Map())
}

func TestXLSXReader_NamedSheet(t *testing.T) {
	buf := createTestXLSX(t, "Addresses", [][]string{{"a"}, {"1"}})

	_, err := NewXLSXReader(bytes.NewReader(buf.Bytes()), "Missing")
	assert.Error(t, err)

	r, err := NewXLSXReader(bytes.NewReader(buf.Bytes()), "Addresses")
	require.NoError(t, err)
	assert.Len(t, readAll(t, r), 1)
}

func TestXLSXWriter_RoundTrip(t *testing.T) {
	r1 := New()
	r1.SetString("id", "1")
	r1.Set("address", Multi("a", "b"))
	r2 := New()
	r2.SetString("id", "2")
	r2.SetString("address", "c")

	var buf bytes.Buffer
	w := NewXLSXWriter(&buf)
	require.NoError(t, w.Write(r1))
	require.NoError(t, w.Write(r2))
	require.NoError(t, w.Flush())

	r, err := NewXLSXReader(&buf, "results")
	require.NoError(t, err)
	recs := readAll(t, r)
	require.Len(t, recs, 2)
	assert.Equal(t, "a\nb", recs[0].Map()["address"])
	assert.Equal(t, "c", recs[1].Map()["address"])
}

func TestXLSXWriter_Empty(t *testing.T) {
	var buf bytes.Buffer
	w := NewXLSXWriter(&buf)
	require.NoError(t, w.Flush())

	r, err := NewXLSXReader(&buf, "")
	require.NoError(t, err)
	assert.Empty(t, readAll(t, r))
}
