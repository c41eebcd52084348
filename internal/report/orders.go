package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"casper-backend/internal/models"
)

var (
	orderColumns = []string{"Sales Order", "Purchase Order", "Item", "Rev", "Qty", "Ext Qty", "Unit", "Confirmed", "Buyer", "Planner", "Ship To", "Note"}
	orderWidths  = []float64{24, 28, 40, 10, 14, 14, 12, 22, 16, 16, 33, 30}
	orderAligns  = []string{"L", "L", "L", "C", "R", "R", "C", "C", "C", "C", "L", "L"}
)

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// describeFilters renders the query params used for the export, sorted by key.
func describeFilters(params map[string]string) string {
	if len(params) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}
	return strings.Join(parts, ", ")
}

// RenderOrdersPDF prints lines as a table, one row per line. Lines need Buyer and Planner loaded.
func RenderOrdersPDF(feed models.Feed, lines []models.Line, params map[string]string) ([]byte, error) {
	d := newDocument("Orders")
	d.title("Orders")
	d.note("Feed: " + feed.Filename)
	d.note("Filters: " + describeFilters(params))
	d.note(fmt.Sprintf("Lines: %d", len(lines)))
	d.pdf.Ln(3)

	d.headerRow(orderColumns, orderWidths)
	var qty, ext uint
	for _, l := range lines {
		if d.needsBreak() {
			d.pdf.AddPage()
			d.headerRow(orderColumns, orderWidths)
		}
		d.row([]string{
			l.SalesOrderNumber,
			l.PurchaseOrderNumber,
			l.ItemNumber,
			l.Revision,
			fmt.Sprint(l.Quantity),
			fmt.Sprint(l.ExtendedQuantity),
			l.Unit,
			formatDate(l.ConfirmedShipping),
			l.Buyer.Code,
			l.Planner.Code,
			deref(l.ShipToName),
			deref(l.Note),
		}, orderWidths, orderAligns)
		qty += l.Quantity
		ext += l.ExtendedQuantity
	}

	d.note(fmt.Sprintf("Total quantity: %d, total extended quantity: %d", qty, ext))
	return d.bytes()
}
