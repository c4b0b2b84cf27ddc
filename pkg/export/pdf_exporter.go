package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders a Table into a paginated PDF with a title line, a
// shaded column header and one table row per record.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render lays the table out on A4 pages, repeating the column header after
// each page break.
func (e *PDFExporter) Render(table Table) ([]byte, error) {
	if len(table.Columns) == 0 {
		return nil, fmt.Errorf("pdf export requires at least one column")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(12, 15, 12)
	pdf.SetAutoPageBreak(true, 18)
	pdf.AddPage()

	if table.Title != "" {
		pdf.SetFont("Times", "B", 14)
		pdf.SetTextColor(30, 30, 30)
		pdf.CellFormat(0, 9, tr(table.Title), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	pageWidth, _ := pdf.GetPageSize()
	colWidth := (pageWidth - 24) / float64(len(table.Columns))

	header := func() {
		pdf.SetFont("Times", "B", 10)
		pdf.SetFillColor(214, 234, 248)
		for _, column := range table.Columns {
			pdf.CellFormat(colWidth, 8, tr(column), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
	}
	header()

	pdf.SetFont("Times", "", 9)
	_, pageHeight := pdf.GetPageSize()
	for i, row := range table.Rows {
		if len(row) != len(table.Columns) {
			return nil, fmt.Errorf("pdf row %d has %d cells, want %d", i, len(row), len(table.Columns))
		}
		if pdf.GetY() > pageHeight-25 {
			pdf.AddPage()
			header()
			pdf.SetFont("Times", "", 9)
		}
		for _, cell := range row {
			pdf.CellFormat(colWidth, 7, tr(cell), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if pdf.Err() {
		return nil, fmt.Errorf("render pdf: %v", pdf.Error())
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
