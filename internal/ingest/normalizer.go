package ingest

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"casper-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	// SupportedSite is the only warehouse whose lines are imported.
	SupportedSite = "104-CA"
	// KitBuyerCode buys kits whose item number encodes a pack multiplier.
	KitBuyerCode = "ORT"
)

var errRequired = errors.New("value is required")

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04:05",
	"01/02/06",
	"1/2/06",
	"2006.01.02",
	"2006.01.02 15:04:05",
}

// References is the buyer/planner lookup snapshot of one import.
type References struct {
	Buyers   map[string]models.Buyer
	Planners map[string]models.Planner
}

func NewReferences(buyers []models.Buyer, planners []models.Planner) References {
	refs := References{
		Buyers:   make(map[string]models.Buyer, len(buyers)),
		Planners: make(map[string]models.Planner, len(planners)),
	}
	for _, b := range buyers {
		refs.Buyers[b.Code] = b
	}
	for _, p := range planners {
		refs.Planners[p.Code] = p
	}
	return refs
}

// Normalizer turns raw sheet rows into order lines.
type Normalizer struct {
	layout Layout
	refs   References
}

func NewNormalizer(layout Layout, refs References) *Normalizer {
	return &Normalizer{layout: layout, refs: refs}
}

// Normalize returns ErrSkipRow for rows of other sites or without a confirmed
// shipping date. Every other error is fatal for the whole feed.
func (n *Normalizer) Normalize(row Row) (*models.Line, error) {
	l := n.layout

	site := row.At(l.Site)
	confirmedCell := row.At(l.ConfirmedShipping)
	if site.IsNull() || site.Text != SupportedSite || confirmedCell.IsNull() {
		return nil, ErrSkipRow
	}

	confirmed, err := cellDate(confirmedCell, "confirmed_shipping")
	if err != nil {
		return nil, err
	}

	quantity, err := cellQuantity(row.At(l.Quantity), "quantity")
	if err != nil {
		return nil, err
	}

	itemNumber, err := requiredText(row.At(l.ItemNumber), "item_number")
	if err != nil {
		return nil, err
	}

	buyerCode := row.At(l.BuyerCode).Text
	buyer, ok := n.refs.Buyers[buyerCode]
	if row.At(l.BuyerCode).IsNull() || !ok {
		return nil, &UnresolvedReferenceError{Kind: ReferenceBuyer, Code: buyerCode}
	}

	// without an explicit planner the buyer code doubles as planner code
	plannerCode := buyerCode
	if pc := row.At(l.PlannerCode); !pc.IsNull() {
		plannerCode = pc.Text
	}
	planner, ok := n.refs.Planners[plannerCode]
	if !ok {
		return nil, &UnresolvedReferenceError{Kind: ReferencePlanner, Code: plannerCode}
	}

	unitPrice, err := cellDecimal(row.At(l.UnitPrice), "unit_price")
	if err != nil {
		return nil, err
	}
	netAmount, err := cellDecimal(row.At(l.NetAmount), "net_amount")
	if err != nil {
		return nil, err
	}

	line := &models.Line{
		ItemNumber:        itemNumber,
		Quantity:          quantity,
		ExtendedQuantity:  ExtendedQuantity(buyerCode, itemNumber, quantity),
		ConfirmedShipping: confirmed,
		Site:              site.Text,
		UnitPrice:         unitPrice,
		NetAmount:         netAmount,
		BuyerID:           buyer.ID,
		Buyer:             buyer,
		PlannerID:         planner.ID,
		Planner:           planner,
		Note:              optionalText(row.At(l.Note)),
		ShipToName:        optionalText(row.At(l.ShipToName)),
		CustomerReference: optionalText(row.At(l.CustomerReference)),
	}

	texts := []struct {
		dst    *string
		col    int
		column string
	}{
		{&line.SalesOrderNumber, l.SalesOrderNumber, "sales_order_number"},
		{&line.Revision, l.Revision, "revision"},
		{&line.Unit, l.Unit, "unit"},
		{&line.SalesTaker, l.SalesTaker, "sales_taker"},
		{&line.PurchaseOrderNumber, l.PurchaseOrderNumber, "purchase_order_number"},
	}
	for _, t := range texts {
		if *t.dst, err = requiredText(row.At(t.col), t.column); err != nil {
			return nil, err
		}
	}

	dates := []struct {
		dst    **time.Time
		col    int
		column string
	}{
		{&line.RequestedReceipt, l.RequestedReceipt, "requested_receipt"},
		{&line.RequestedShipping, l.RequestedShipping, "requested_shipping"},
		{&line.OriginalCommitDate, l.OriginalCommitDate, "original_commit_date"},
	}
	for _, d := range dates {
		if *d.dst, err = cellDate(row.At(d.col), d.column); err != nil {
			return nil, err
		}
	}

	if line.OriginalCreatedAt, err = cellTimestamp(row.At(l.CreatedAt), "created_at"); err != nil {
		return nil, err
	}
	if line.OriginalUpdatedAt, err = cellTimestamp(row.At(l.UpdatedAt), "updated_at"); err != nil {
		return nil, err
	}

	return line, nil
}

// ExtendedQuantity applies the kit multiplier. Only the kit buyer's item
// numbers are looked at; everything else keeps its quantity.
func ExtendedQuantity(buyerCode, itemNumber string, quantity uint) uint {
	if buyerCode != KitBuyerCode {
		return quantity
	}
	multiplier, err := MatchKitCode(itemNumber)
	if err != nil {
		return quantity
	}
	return quantity * uint(multiplier)
}

func requiredText(c Cell, column string) (string, error) {
	if c.IsNull() {
		return "", &MalformedCellError{Column: column, Err: errRequired}
	}
	return c.Text, nil
}

func optionalText(c Cell) *string {
	if c.IsNull() {
		return nil
	}
	s := c.Text
	return &s
}

// cellQuantity truncates a numeric cell ("30.0", 30.0) to a whole quantity.
func cellQuantity(c Cell, column string) (uint, error) {
	var f float64
	switch c.Kind {
	case CellNull:
		return 0, &MalformedCellError{Column: column, Err: errRequired}
	case CellNumber:
		f = c.Number
	default:
		v, err := strconv.ParseFloat(strings.TrimSpace(c.Text), 64)
		if err != nil {
			return 0, &MalformedCellError{Column: column, Value: c.Text, Err: err}
		}
		f = v
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > math.MaxInt32 {
		return 0, &MalformedCellError{Column: column, Value: c.Text, Err: errors.New("not a non-negative quantity")}
	}
	return uint(math.Floor(f)), nil
}

func cellDecimal(c Cell, column string) (decimal.Decimal, error) {
	if c.IsNull() {
		return decimal.Decimal{}, &MalformedCellError{Column: column, Err: errRequired}
	}
	d, err := decimal.NewFromString(strings.TrimSpace(c.Text))
	if err != nil {
		return decimal.Decimal{}, &MalformedCellError{Column: column, Value: c.Text, Err: err}
	}
	return d, nil
}

// cellDate reads a calendar date. Null cells give nil.
func cellDate(c Cell, column string) (*time.Time, error) {
	if c.IsNull() {
		return nil, nil
	}
	t, err := cellTime(c, column)
	if err != nil {
		return nil, err
	}
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &day, nil
}

func cellTimestamp(c Cell, column string) (time.Time, error) {
	if c.IsNull() {
		return time.Time{}, &MalformedCellError{Column: column, Err: errRequired}
	}
	return cellTime(c, column)
}

func cellTime(c Cell, column string) (time.Time, error) {
	switch c.Kind {
	case CellDate:
		return c.Date, nil
	case CellNumber:
		// workbook serial date
		t, err := excelize.ExcelDateToTime(c.Number, c.Date1904)
		if err != nil {
			return time.Time{}, &MalformedCellError{Column: column, Value: c.Text, Err: err}
		}
		return t, nil
	default:
		s := strings.TrimSpace(c.Text)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, &MalformedCellError{Column: column, Value: c.Text, Err: errors.New("unrecognized date")}
	}
}
