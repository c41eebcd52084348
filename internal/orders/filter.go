package orders

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// lineOrderColumns maps accepted order_by fields to SQL. Lines are always
// queried with their Buyer and Planner joined.
var lineOrderColumns = map[string]string{
	"id":                    "lines.id",
	"sales_order_number":    "lines.sales_order_number",
	"purchase_order_number": "lines.purchase_order_number",
	"confirmed_shipping":    "lines.confirmed_shipping",
	"item_number":           "lines.item_number",
	"note":                  "lines.note",
	"buyer__code":           `"Buyer".code`,
	"planner__code":         `"Planner".code`,
}

// LineFilter holds the order line query parameters. Zero values filter nothing.
type LineFilter struct {
	IDs                  []uint
	SalesOrderNumbers    []string
	PurchaseOrderNumbers []string
	ItemNumber           string // case-insensitive contains
	Note                 string // case-insensitive contains
	Buyers               []string
	Planners             []string
	ConfirmedLT          *time.Time
	ConfirmedLTE         *time.Time
	ConfirmedGT          *time.Time
	ConfirmedGTE         *time.Time
	OrderBy              []string // SQL order terms, already validated
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// epoch parses seconds since the epoch, nil when malformed.
func epoch(s string) *time.Time {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	sec := int64(f)
	t := time.Unix(sec, int64((f-float64(sec))*1e9)).UTC()
	return &t
}

func orderTerms(s string) []string {
	var terms []string
	for _, field := range splitList(s) {
		dir := "ASC"
		if strings.HasPrefix(field, "-") {
			dir = "DESC"
			field = field[1:]
		}
		// unknown fields are ignored
		if col, ok := lineOrderColumns[field]; ok {
			terms = append(terms, col+" "+dir)
		}
	}
	return terms
}

// ParseLineFilter reads the filter from query args. Only ids are strict, the
// epoch bounds and unknown order fields are dropped silently.
func ParseLineFilter(args map[string]string) (LineFilter, error) {
	f := LineFilter{
		SalesOrderNumbers:    splitList(args["sales_order_number"]),
		PurchaseOrderNumbers: splitList(args["purchase_order_number"]),
		ItemNumber:           strings.TrimSpace(args["item_number"]),
		Note:                 strings.TrimSpace(args["note"]),
		Buyers:               splitList(args["buyer"]),
		Planners:             splitList(args["planner"]),
		ConfirmedLT:          epoch(args["confirmed_shipping_lt"]),
		ConfirmedLTE:         epoch(args["confirmed_shipping_lte"]),
		ConfirmedGT:          epoch(args["confirmed_shipping_gt"]),
		ConfirmedGTE:         epoch(args["confirmed_shipping_gte"]),
		OrderBy:              orderTerms(args["order_by"]),
	}

	for _, raw := range splitList(args["id"]) {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return f, fmt.Errorf("id: %q is not a number", raw)
		}
		f.IDs = append(f.IDs, uint(id))
	}
	return f, nil
}

func contains(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// Apply joins buyer and planner and adds every set condition and the ordering.
func (f LineFilter) Apply(q *gorm.DB) *gorm.DB {
	q = q.Joins("Buyer").Joins("Planner")

	if len(f.IDs) > 0 {
		q = q.Where("lines.id IN ?", f.IDs)
	}
	if len(f.SalesOrderNumbers) > 0 {
		q = q.Where("lines.sales_order_number IN ?", f.SalesOrderNumbers)
	}
	if len(f.PurchaseOrderNumbers) > 0 {
		q = q.Where("lines.purchase_order_number IN ?", f.PurchaseOrderNumbers)
	}
	if f.ItemNumber != "" {
		q = q.Where("lines.item_number ILIKE ?", contains(f.ItemNumber))
	}
	if f.Note != "" {
		q = q.Where("lines.note ILIKE ?", contains(f.Note))
	}
	if len(f.Buyers) > 0 {
		q = q.Where(`"Buyer".code IN ?`, f.Buyers)
	}
	if len(f.Planners) > 0 {
		q = q.Where(`"Planner".code IN ?`, f.Planners)
	}
	if f.ConfirmedLT != nil {
		q = q.Where("lines.confirmed_shipping < ?", *f.ConfirmedLT)
	}
	if f.ConfirmedLTE != nil {
		q = q.Where("lines.confirmed_shipping <= ?", *f.ConfirmedLTE)
	}
	if f.ConfirmedGT != nil {
		q = q.Where("lines.confirmed_shipping > ?", *f.ConfirmedGT)
	}
	if f.ConfirmedGTE != nil {
		q = q.Where("lines.confirmed_shipping >= ?", *f.ConfirmedGTE)
	}

	for _, term := range f.OrderBy {
		q = q.Order(term)
	}
	// stable pages
	return q.Order("lines.id")
}
