package certificate

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Data carries everything printed on a certificate. IssuedAt is the only
// time-dependent input; callers pin it so the same Data always renders to the
// same bytes.
type Data struct {
	FullName   string
	CourseName string
	StartDate  time.Time
	EndDate    time.Time
	Hours      int
	PIN        string
	IssuedAt   time.Time
}

// Builder renders completion certificates into single-page A4 PDFs.
type Builder struct {
	issuer     string
	signerName string
	copyright  string
}

// NewBuilder constructs a certificate builder with the static strings that
// appear on every document.
func NewBuilder(issuer, signerName, copyright string) *Builder {
	return &Builder{issuer: issuer, signerName: signerName, copyright: copyright}
}

const dateLayout = "2 January 2006"

// Render produces the certificate PDF. Rendering either completes fully or
// returns an error; partial documents are never emitted.
func (b *Builder) Render(data Data) ([]byte, error) {
	if data.FullName == "" || data.CourseName == "" {
		return nil, fmt.Errorf("certificate: recipient and course names are required")
	}
	if data.EndDate.Before(data.StartDate) {
		return nil, fmt.Errorf("certificate: end date precedes start date")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetCreationDate(data.IssuedAt)
	pdf.SetModificationDate(data.IssuedAt)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	b.drawLogo(pdf, tr, 105, 40, 14)

	pdf.SetY(62)
	pdf.SetFont("Times", "B", 26)
	pdf.SetTextColor(30, 30, 30)
	pdf.CellFormat(0, 12, "CERTIFICATE OF COMPLETION", "", 1, "C", false, 0, "")

	pdf.Ln(4)
	pdf.SetFont("Times", "", 12)
	pdf.CellFormat(0, 7, "This is to certify that", "", 1, "C", false, 0, "")

	pdf.Ln(3)
	pdf.SetFont("Times", "B", 20)
	pdf.CellFormat(0, 10, tr(data.FullName), "", 1, "C", false, 0, "")

	pdf.Ln(4)
	pdf.SetFont("Times", "", 12)
	body := fmt.Sprintf(
		"has successfully completed the course \"%s\", held from %s to %s, comprising a total of %d instructional hours.",
		data.CourseName,
		data.StartDate.Format(dateLayout),
		data.EndDate.Format(dateLayout),
		data.Hours,
	)
	pdf.MultiCell(0, 7, tr(body), "", "C", false)

	pdf.Ln(6)
	pdf.SetFont("Times", "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("National identification number: %s", data.PIN), "", 1, "C", false, 0, "")

	b.drawSignatureColumns(pdf, tr, data)
	b.drawFooterBand(pdf, tr)

	if pdf.Err() {
		return nil, fmt.Errorf("certificate: render failed: %v", pdf.Error())
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("certificate: output failed: %w", err)
	}
	return buf.Bytes(), nil
}

// drawLogo draws the issuer emblem as vector paths so no image resource is
// needed: a filled ring around an open book.
func (b *Builder) drawLogo(pdf *gofpdf.Fpdf, tr func(string) string, cx, cy, r float64) {
	pdf.SetFillColor(21, 67, 96)
	pdf.Circle(cx, cy, r, "F")
	pdf.SetFillColor(255, 255, 255)
	pdf.Circle(cx, cy, r-2.5, "F")

	pdf.SetDrawColor(21, 67, 96)
	pdf.SetFillColor(214, 234, 248)
	pdf.SetLineWidth(0.6)
	pdf.Polygon([]gofpdf.PointType{
		{X: cx - 8, Y: cy - 3},
		{X: cx, Y: cy - 6},
		{X: cx, Y: cy + 5},
		{X: cx - 8, Y: cy + 8},
	}, "FD")
	pdf.Polygon([]gofpdf.PointType{
		{X: cx + 8, Y: cy - 3},
		{X: cx, Y: cy - 6},
		{X: cx, Y: cy + 5},
		{X: cx + 8, Y: cy + 8},
	}, "FD")
	pdf.Line(cx, cy-6, cx, cy+5)

	pdf.SetFont("Times", "B", 8)
	pdf.SetTextColor(21, 67, 96)
	pdf.SetXY(cx-30, cy+r+2)
	pdf.CellFormat(60, 4, tr(b.issuer), "", 0, "C", false, 0, "")
}

// drawSignatureColumns lays out the three footer columns: signer, the static
// participant label, and the issuance date.
func (b *Builder) drawSignatureColumns(pdf *gofpdf.Fpdf, tr func(string) string, data Data) {
	const y = 225.0
	colWidth := 170.0 / 3

	pdf.SetDrawColor(120, 120, 120)
	pdf.SetTextColor(60, 60, 60)
	pdf.SetLineWidth(0.3)

	// Column 1: signer line.
	pdf.Line(20+8, y, 20+colWidth-8, y)
	pdf.SetXY(20, y+2)
	pdf.SetFont("Times", "", 10)
	pdf.CellFormat(colWidth, 5, tr(b.signerName), "", 0, "C", false, 0, "")

	// Column 2: static participant label with issuance year.
	pdf.SetXY(20+colWidth, y+2)
	pdf.CellFormat(colWidth, 5, fmt.Sprintf("PARTICIPANT / %d", data.IssuedAt.Year()), "", 0, "C", false, 0, "")

	// Column 3: issuance date.
	pdf.SetXY(20+2*colWidth, y+2)
	pdf.CellFormat(colWidth, 5, data.IssuedAt.Format(dateLayout), "", 0, "C", false, 0, "")
}

func (b *Builder) drawFooterBand(pdf *gofpdf.Fpdf, tr func(string) string) {
	pageWidth, pageHeight := pdf.GetPageSize()

	pdf.SetFillColor(21, 67, 96)
	pdf.Rect(0, pageHeight-16, pageWidth, 16, "F")

	pdf.SetFont("Times", "", 9)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetXY(0, pageHeight-11)
	pdf.CellFormat(pageWidth, 6, tr(fmt.Sprintf("© %s", b.copyright)), "", 0, "C", false, 0, "")
}
