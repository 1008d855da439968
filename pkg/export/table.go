package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Format selects the rendering of an export.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv; charset=utf-8"
}

var errNoColumns = errors.New("export requires at least one column")

// Column describes one table column. Width is in millimetres and only used for PDF.
type Column struct {
	Title string
	Width float64
}

// Table is a rendered-agnostic tabular export.
type Table struct {
	Title   string
	Columns []Column
	Rows    [][]string
}

// Render encodes the table in the requested format.
func Render(t Table, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return CSV(t)
	case FormatPDF:
		return PDF(t)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// CSV writes a header row followed by every table row.
func CSV(t Table) ([]byte, error) {
	if len(t.Columns) == 0 {
		return nil, errNoColumns
	}
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	header := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		header[i] = col.Title
	}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range t.Rows {
		if err := w.Write(neutralize(pad(row, len(t.Columns)))); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// PDF lays the table out on landscape A4 pages.
func PDF(t Table) ([]byte, error) {
	if len(t.Columns) == 0 {
		return nil, errNoColumns
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	widths := columnWidths(t.Columns, 277)
	header := func() {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for i, col := range t.Columns {
			pdf.CellFormat(widths[i], 7, tr(col.Title), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
	}
	pdf.SetHeaderFunc(func() {
		if t.Title != "" {
			pdf.SetFont("Arial", "B", 13)
			pdf.CellFormat(0, 9, tr(t.Title), "", 1, "L", false, 0, "")
		}
		header()
	})

	pdf.AddPage()
	for _, row := range t.Rows {
		for i, value := range pad(row, len(t.Columns)) {
			pdf.CellFormat(widths[i], 6, tr(truncate(value, widths[i])), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// columnWidths keeps explicit widths and splits the remaining space between the rest.
func columnWidths(cols []Column, total float64) []float64 {
	widths := make([]float64, len(cols))
	used, flexible := 0.0, 0
	for i, col := range cols {
		widths[i] = col.Width
		if col.Width > 0 {
			used += col.Width
		} else {
			flexible++
		}
	}
	if flexible == 0 {
		return widths
	}
	share := (total - used) / float64(flexible)
	if share < 10 {
		share = 10
	}
	for i := range widths {
		if widths[i] <= 0 {
			widths[i] = share
		}
	}
	return widths
}

// truncate shortens a cell so it roughly fits width millimetres at 8pt.
func truncate(value string, width float64) string {
	limit := int(width / 1.6)
	runes := []rune(value)
	if limit <= 3 || len(runes) <= limit {
		return value
	}
	return string(runes[:limit-3]) + "..."
}

// formulaPrefixes start a formula when a spreadsheet opens the CSV.
const formulaPrefixes = "=+-@\t\r"

// neutralize quotes cells a spreadsheet would evaluate. It returns a copy.
func neutralize(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		if cell != "" && strings.ContainsRune(formulaPrefixes, rune(cell[0])) {
			cell = "'" + cell
		}
		out[i] = cell
	}
	return out
}

func pad(row []string, n int) []string {
	if len(row) >= n {
		return row[:n]
	}
	out := make([]string, n)
	copy(out, row)
	return out
}
