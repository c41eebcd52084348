package report

import (
	"fmt"
	"sort"
	"time"

	"casper-backend/internal/models"
)

type Totals struct {
	Quantity         uint
	ExtendedQuantity uint
}

type Week struct {
	Start  time.Time
	End    time.Time
	Totals map[string]Totals // by buyer code, every buyer of the report present
}

type SummaryReport struct {
	Filename   string
	UploadedBy string
	UploadedAt time.Time
	Buyers     []string
	Weeks      []Week
}

// BuildSummaryReport lays the weekly summaries of a feed out as weeks x buyers.
// Summaries need their Buyer loaded.
func BuildSummaryReport(feed models.Feed, summaries []models.Summary) SummaryReport {
	r := SummaryReport{
		Filename:   feed.Filename,
		UploadedAt: feed.CreatedAt,
	}
	if feed.UploadedBy != nil {
		r.UploadedBy = feed.UploadedBy.FullName()
	}

	seen := map[string]bool{}
	for _, s := range summaries {
		if !seen[s.Buyer.Code] {
			seen[s.Buyer.Code] = true
			r.Buyers = append(r.Buyers, s.Buyer.Code)
		}
	}
	sort.Strings(r.Buyers)

	weeks := map[time.Time]*Week{}
	for _, s := range summaries {
		w, ok := weeks[s.StartDate]
		if !ok {
			w = &Week{Start: s.StartDate, End: s.EndDate(), Totals: make(map[string]Totals, len(r.Buyers))}
			for _, code := range r.Buyers {
				w.Totals[code] = Totals{}
			}
			weeks[s.StartDate] = w
		}
		t := w.Totals[s.Buyer.Code]
		t.Quantity += s.Quantity
		t.ExtendedQuantity += s.ExtendedQuantity
		w.Totals[s.Buyer.Code] = t
	}

	for _, w := range weeks {
		r.Weeks = append(r.Weeks, *w)
	}
	sort.Slice(r.Weeks, func(i, j int) bool { return r.Weeks[i].Start.Before(r.Weeks[j].Start) })
	return r
}

// GrandTotals sums every week per buyer.
func (r SummaryReport) GrandTotals() map[string]Totals {
	out := make(map[string]Totals, len(r.Buyers))
	for _, w := range r.Weeks {
		for code, t := range w.Totals {
			g := out[code]
			g.Quantity += t.Quantity
			g.ExtendedQuantity += t.ExtendedQuantity
			out[code] = g
		}
	}
	return out
}

// RenderSummaryPDF prints the report, upload time in loc.
func RenderSummaryPDF(r SummaryReport, loc *time.Location) ([]byte, error) {
	if loc == nil {
		loc = time.UTC
	}

	d := newDocument("Weekly Summary")
	d.title("Weekly Summary")
	if r.Filename != "" {
		d.note("Feed: " + r.Filename)
	}
	d.note("Uploaded by: " + r.UploadedBy)
	d.note("Uploaded at: " + r.UploadedAt.In(loc).Format(dateTimeLayout))
	d.pdf.Ln(3)

	if len(r.Weeks) == 0 {
		d.note("No summaries for this feed.")
		return d.bytes()
	}

	weekWidth := 42.0
	colWidth := (d.contentWidth() - weekWidth) / float64(2*len(r.Buyers))
	cols := []string{"Week"}
	widths := []float64{weekWidth}
	aligns := []string{"L"}
	for _, code := range r.Buyers {
		cols = append(cols, code+" Qty", code+" Ext")
		widths = append(widths, colWidth, colWidth)
		aligns = append(aligns, "R", "R")
	}

	d.headerRow(cols, widths)
	for _, w := range r.Weeks {
		if d.needsBreak() {
			d.pdf.AddPage()
			d.headerRow(cols, widths)
		}
		cells := []string{w.Start.Format(dateLayout) + " - " + w.End.Format(dateLayout)}
		for _, code := range r.Buyers {
			t := w.Totals[code]
			cells = append(cells, fmt.Sprint(t.Quantity), fmt.Sprint(t.ExtendedQuantity))
		}
		d.row(cells, widths, aligns)
	}

	grand := r.GrandTotals()
	cells := []string{"Total"}
	for _, code := range r.Buyers {
		cells = append(cells, fmt.Sprint(grand[code].Quantity), fmt.Sprint(grand[code].ExtendedQuantity))
	}
	d.pdf.SetFont("Helvetica", "B", 8)
	d.row(cells, widths, aligns)

	return d.bytes()
}
