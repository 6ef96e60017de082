// Package tabular reads batch uploads and writes job exports as CSV or XLSX.
package tabular

import (
	"bytes"
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/menu-scout/internal/model"
)

// Format is a tabular file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Table is a header plus rows. Every row has len(Columns) cells.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// FormatOf derives the format from a file name extension.
func FormatOf(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", model.NewKindError(model.InputError, "Invalid file type")
}

// Parse reads an upload, picking the decoder from the file name. Failures are
// InputErrors.
func Parse(filename string, r io.Reader) (*Table, error) {
	format, err := FormatOf(filename)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, model.WrapKind(model.InputError, eris.Wrap(err, "tabular: read upload"))
	}

	var records [][]string
	switch format {
	case FormatCSV:
		records, err = readCSV(data)
	case FormatXLSX:
		records, err = readXLSX(data)
	}
	if err != nil {
		return nil, model.WrapKind(model.InputError, err)
	}
	return build(records)
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	reader := csv.NewReader(bytes.NewReader(data))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "Invalid CSV format. Please ensure fields with commas are enclosed in quotes")
	}
	return records, nil
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open upload")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("xlsx: workbook has no sheets")
	}
	sheet := f.Sheets[0]
	records := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			cells[i] = cell.String()
		}
		records = append(records, cells)
	}
	return records, nil
}

// build trims headers, pads short rows and drops blank ones.
func build(records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, model.NewKindError(model.InputError, "file has no header row")
	}
	t := &Table{Columns: make([]string, len(records[0]))}
	for i, h := range records[0] {
		t.Columns[i] = strings.TrimSpace(h)
	}
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		row := make([]string, len(t.Columns))
		copy(row, rec)
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Entities converts rows to entities. The name and location columns are
// required.
func Entities(t *Table) ([]model.Entity, error) {
	var missing []string
	for _, col := range []string{model.ColumnName, model.ColumnLocation} {
		if !t.Has(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, model.NewKindError(model.InputError,
			"Missing columns: "+strings.Join(missing, ", "))
	}

	out := make([]model.Entity, len(t.Rows))
	for i, row := range t.Rows {
		fields := make([]model.Field, len(t.Columns))
		for j, col := range t.Columns {
			fields[j] = model.Field{Column: col, Value: row[j]}
		}
		e := model.Entity{Extra: fields}
		e.Name = strings.TrimSpace(e.Value(model.ColumnName))
		e.Location = strings.TrimSpace(e.Value(model.ColumnLocation))
		out[i] = e
	}
	return out, nil
}

// Has reports whether the table has the named column.
func (t *Table) Has(column string) bool {
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}
