package record

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "results"

// XLSXReader streams records from one worksheet; the first row is the header.
type XLSXReader struct {
	file   *excelize.File
	rows   *excelize.Rows
	header []string
}

// NewXLSXReader opens the workbook from r and selects the named sheet, or
// the first sheet when name is empty.
func NewXLSXReader(r io.Reader, name string) (*XLSXReader, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open workbook")
	}

	if name == "" {
		name = f.GetSheetName(0)
	}
	if idx, _ := f.GetSheetIndex(name); idx == -1 {
		_ = f.Close()
		return nil, eris.Errorf("xlsx: sheet %q not found", name)
	}

	rows, err := f.Rows(name)
	if err != nil {
		_ = f.Close()
		return nil, eris.Wrapf(err, "xlsx: open sheet %q", name)
	}

	x := &XLSXReader{file: f, rows: rows}
	if rows.Next() {
		header, err := rows.Columns()
		if err != nil {
			_ = x.close()
			return nil, eris.Wrap(err, "xlsx: read header")
		}
		x.header = header
	}
	return x, nil
}

// Read implements Reader. The workbook is closed once the sheet is exhausted.
func (x *XLSXReader) Read() (*Record, error) {
	if x.file == nil {
		return nil, io.EOF
	}
	if x.header == nil || !x.rows.Next() {
		if err := x.rows.Error(); err != nil {
			return nil, eris.Wrap(err, "xlsx: read row")
		}
		if err := x.close(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}

	cells, err := x.rows.Columns()
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: read row")
	}

	rec := New()
	for i, name := range x.header {
		rec.SetString(name, cellAt(cells, i))
	}
	return rec, nil
}

func (x *XLSXReader) close() error {
	if x.file == nil {
		return nil
	}
	_ = x.rows.Close()
	err := x.file.Close()
	x.file = nil
	return eris.Wrap(err, "xlsx: close workbook")
}

// XLSXWriter streams records into a single "results" sheet and writes the
// workbook on Flush. Multivalues are joined by newlines in one cell.
type XLSXWriter struct {
	w      io.Writer
	file   *excelize.File
	sw     *excelize.StreamWriter
	header []string
	row    int
}

// NewXLSXWriter returns an XLSXWriter on w.
func NewXLSXWriter(w io.Writer) *XLSXWriter {
	return &XLSXWriter{w: w, file: excelize.NewFile()}
}

// Write implements Writer.
func (x *XLSXWriter) Write(r *Record) error {
	if x.sw == nil {
		if err := x.open(); err != nil {
			return err
		}
		x.header = append([]string(nil), r.Keys()...)
		if err := x.addRow(x.header); err != nil {
			return err
		}
	}

	cells := make([]string, len(x.header))
	for i, k := range x.header {
		v, _ := r.Get(k)
		cells[i] = v.String()
	}
	return x.addRow(cells)
}

func (x *XLSXWriter) open() error {
	if err := x.file.SetSheetName(x.file.GetSheetName(0), xlsxSheet); err != nil {
		return eris.Wrap(err, "xlsx: name sheet")
	}
	sw, err := x.file.NewStreamWriter(xlsxSheet)
	if err != nil {
		return eris.Wrap(err, "xlsx: stream writer")
	}
	x.sw = sw
	return nil
}

func (x *XLSXWriter) addRow(cells []string) error {
	x.row++
	cell, err := excelize.CoordinatesToCellName(1, x.row)
	if err != nil {
		return eris.Wrap(err, "xlsx: cell name")
	}
	values := make([]interface{}, len(cells))
	for i, s := range cells {
		values[i] = s
	}
	return eris.Wrapf(x.sw.SetRow(cell, values), "xlsx: write row %d", x.row)
}

// Flush implements Writer.
func (x *XLSXWriter) Flush() error {
	if x.sw == nil {
		if err := x.open(); err != nil {
			return err
		}
	}
	if err := x.sw.Flush(); err != nil {
		return eris.Wrap(err, "xlsx: flush sheet")
	}
	if err := x.file.Write(x.w); err != nil {
		return eris.Wrap(err, "xlsx: write workbook")
	}
	return eris.Wrap(x.file.Close(), "xlsx: close workbook")
}
