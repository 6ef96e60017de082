package tabular

import (
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// ExportName is the download file name of a job export.
const ExportName = "swiggy_results"

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Write encodes t in format f.
func Write(w io.Writer, f Format, t *Table) error {
	if f == FormatXLSX {
		return WriteXLSX(w, t)
	}
	return WriteCSV(w, t)
}

// WriteCSV encodes t as CSV with a header row.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return eris.Wrap(err, "tabular: write csv header")
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return eris.Wrap(err, "tabular: write csv rows")
	}
	return nil
}

// WriteXLSX encodes t as a single-sheet workbook.
func WriteXLSX(w io.Writer, t *Table) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("results")
	if err != nil {
		return eris.Wrap(err, "tabular: add sheet")
	}
	addRow(sheet, t.Columns)
	for _, row := range t.Rows {
		addRow(sheet, row)
	}
	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "tabular: write xlsx")
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, cells []string) {
	row := sheet.AddRow()
	for _, v := range cells {
		row.AddCell().SetString(v)
	}
}
