package report

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/go-pdf/fpdf"
)

const (
	dateLayout     = "01/02/2006"
	dateTimeLayout = "01/02/2006 15:04:05"
	rowHeight      = 6.0
)

// Encode returns the report body as sent to clients.
func Encode(pdf []byte) string {
	return base64.StdEncoding.EncodeToString(pdf)
}

// document wraps fpdf with the few helpers both reports share.
type document struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newDocument(title string) *document {
	pdf := fpdf.New("L", "mm", "Letter", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)
	pdf.SetTitle(title, true)
	pdf.SetCreator("casper-backend", true)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont("Helvetica", "I", 7)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AddPage()

	return &document{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (d *document) title(text string) {
	d.pdf.SetFont("Helvetica", "B", 14)
	d.pdf.CellFormat(0, 9, d.tr(text), "", 1, "L", false, 0, "")
}

func (d *document) note(text string) {
	d.pdf.SetFont("Helvetica", "", 9)
	d.pdf.CellFormat(0, 5, d.tr(text), "", 1, "L", false, 0, "")
}

// contentWidth is the printable page width.
func (d *document) contentWidth() float64 {
	w, _ := d.pdf.GetPageSize()
	left, _, right, _ := d.pdf.GetMargins()
	return w - left - right
}

// needsBreak reports whether one more row would cross the bottom margin.
func (d *document) needsBreak() bool {
	_, h := d.pdf.GetPageSize()
	_, _, _, bottom := d.pdf.GetMargins()
	return d.pdf.GetY()+rowHeight > h-bottom-5
}

func (d *document) headerRow(cols []string, widths []float64) {
	d.pdf.SetFont("Helvetica", "B", 8)
	d.pdf.SetFillColor(220, 226, 235)
	for i, col := range cols {
		d.pdf.CellFormat(widths[i], rowHeight, d.fit(col, widths[i]), "1", 0, "C", true, 0, "")
	}
	d.pdf.Ln(-1)
	d.pdf.SetFont("Helvetica", "", 8)
}

func (d *document) row(cells []string, widths []float64, aligns []string) {
	for i, cell := range cells {
		d.pdf.CellFormat(widths[i], rowHeight, d.fit(cell, widths[i]), "1", 0, aligns[i], false, 0, "")
	}
	d.pdf.Ln(-1)
}

// fit translates s to the font code page and cuts it to the cell width.
func (d *document) fit(s string, width float64) string {
	s = d.tr(s)
	for len(s) > 0 && d.pdf.GetStringWidth(s) > width-2 {
		s = s[:len(s)-1]
	}
	return s
}

func (d *document) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf could not be rendered: %w", err)
	}
	return buf.Bytes(), nil
}
