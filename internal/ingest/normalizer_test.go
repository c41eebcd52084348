package ingest

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeKitLine(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(LayoutV1, testRefs())
	line, err := n.Normalize(validRow(nil))
	require.NoError(t, err)

	assert.Equal(t, "SO-1001", line.SalesOrderNumber)
	assert.Equal(t, "EZC5E12Q06-01", line.ItemNumber)
	assert.Equal(t, uint(5), line.Quantity)
	assert.Equal(t, uint(30), line.ExtendedQuantity)
	assert.Equal(t, buyerORT.ID, line.BuyerID)
	// no planner cell: buyer code is used as planner code
	assert.Equal(t, plannerORT.ID, line.PlannerID)
	require.NotNil(t, line.ConfirmedShipping)
	assert.Equal(t, day("2021-03-17"), *line.ConfirmedShipping)
	assert.Nil(t, line.RequestedReceipt)
	assert.Nil(t, line.Note)
	assert.True(t, decimal.RequireFromString("12.35").Equal(line.UnitPrice))
	assert.True(t, decimal.RequireFromString("61.75").Equal(line.NetAmount))
}

func TestNormalizeSkipsRows(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(LayoutV1, testRefs())
	tests := map[string]map[int]Cell{
		"other site":            {LayoutV1.Site: StringCell("200-MX")},
		"no site":               {LayoutV1.Site: NullCell()},
		"no confirmed shipping": {LayoutV1.ConfirmedShipping: NullCell()},
		// unknown buyers on skipped rows do not matter
		"header row": {LayoutV1.Site: StringCell("Site"), LayoutV1.BuyerCode: StringCell("Buyer")},
	}
	for name, overrides := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := n.Normalize(validRow(overrides))
			assert.ErrorIs(t, err, ErrSkipRow)
		})
	}

	_, err := n.Normalize(Row{})
	assert.ErrorIs(t, err, ErrSkipRow)
}

func TestNormalizeQuantity(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(LayoutV1, testRefs())
	tests := []struct {
		cell Cell
		want uint
	}{
		{StringCell("30.0"), 30},
		{StringCell(" 7 "), 7},
		{NumberCell(4.9), 4},
		{NumberCell(0), 0},
	}
	for _, tt := range tests {
		line, err := n.Normalize(validRow(map[int]Cell{
			LayoutV1.Quantity:   tt.cell,
			LayoutV1.ItemNumber: StringCell("CAB-1000"),
		}))
		require.NoError(t, err)
		assert.Equal(t, tt.want, line.Quantity)
		assert.Equal(t, tt.want, line.ExtendedQuantity)
	}
}

func TestNormalizeOtherBuyerKeepsQuantity(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(LayoutV1, testRefs())
	line, err := n.Normalize(validRow(map[int]Cell{
		LayoutV1.BuyerCode:   StringCell("ABC"),
		LayoutV1.PlannerCode: StringCell("PLN"),
	}))
	require.NoError(t, err)
	assert.Equal(t, uint(5), line.ExtendedQuantity)
	assert.Equal(t, buyerABC.ID, line.BuyerID)
	assert.Equal(t, plannerPLN.ID, line.PlannerID)
}

func TestNormalizeUnresolvedReferences(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(LayoutV1, testRefs())

	_, err := n.Normalize(validRow(map[int]Cell{LayoutV1.BuyerCode: StringCell("ZZZ")}))
	var ref *UnresolvedReferenceError
	require.ErrorAs(t, err, &ref)
	assert.Equal(t, ReferenceBuyer, ref.Kind)
	assert.Equal(t, "ZZZ", ref.Code)

	_, err = n.Normalize(validRow(map[int]Cell{LayoutV1.BuyerCode: NullCell()}))
	require.ErrorAs(t, err, &ref)
	assert.Equal(t, ReferenceBuyer, ref.Kind)

	_, err = n.Normalize(validRow(map[int]Cell{LayoutV1.PlannerCode: StringCell("NOPE")}))
	require.ErrorAs(t, err, &ref)
	assert.Equal(t, ReferencePlanner, ref.Kind)
	assert.Equal(t, "NOPE", ref.Code)

	// ABC is a buyer but not a planner, so the fallback fails
	_, err = n.Normalize(validRow(map[int]Cell{LayoutV1.BuyerCode: StringCell("ABC")}))
	require.ErrorAs(t, err, &ref)
	assert.Equal(t, ReferencePlanner, ref.Kind)
	assert.Equal(t, "ABC", ref.Code)
}

func TestNormalizeMalformedCells(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(LayoutV1, testRefs())
	tests := map[string]struct {
		overrides map[int]Cell
		column    string
	}{
		"text quantity":      {map[int]Cell{LayoutV1.Quantity: StringCell("five")}, "quantity"},
		"negative quantity":  {map[int]Cell{LayoutV1.Quantity: NumberCell(-1)}, "quantity"},
		"missing quantity":   {map[int]Cell{LayoutV1.Quantity: NullCell()}, "quantity"},
		"text price":         {map[int]Cell{LayoutV1.UnitPrice: StringCell("n/a")}, "unit_price"},
		"missing net amount": {map[int]Cell{LayoutV1.NetAmount: NullCell()}, "net_amount"},
		"bad date":           {map[int]Cell{LayoutV1.ConfirmedShipping: StringCell("soon")}, "confirmed_shipping"},
		"missing sales order": {map[int]Cell{LayoutV1.SalesOrderNumber: NullCell()}, "sales_order_number"},
		"missing created at": {map[int]Cell{LayoutV1.CreatedAt: NullCell()}, "created_at"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := n.Normalize(validRow(tt.overrides))
			var cellErr *MalformedCellError
			require.ErrorAs(t, err, &cellErr)
			assert.Equal(t, tt.column, cellErr.Column)
			assert.NotErrorIs(t, err, ErrSkipRow)
		})
	}
}

func TestNormalizeDateCells(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(LayoutV1, testRefs())
	for name, cell := range map[string]Cell{
		"serial":   NumberCell(44272), // 2021-03-17
		"iso text": StringCell("2021-03-17"),
		"us text":  StringCell("03/17/2021"),
		"datetime": StringCell("2021-03-17 13:45:00"),
	} {
		t.Run(name, func(t *testing.T) {
			line, err := n.Normalize(validRow(map[int]Cell{LayoutV1.ConfirmedShipping: cell}))
			require.NoError(t, err)
			assert.Equal(t, day("2021-03-17"), *line.ConfirmedShipping)
		})
	}
}

func TestNormalizeDecimalIsExact(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(LayoutV1, testRefs())
	line, err := n.Normalize(validRow(map[int]Cell{
		LayoutV1.UnitPrice: StringCell("0.10"),
		LayoutV1.NetAmount: StringCell("0.30"),
	}))
	require.NoError(t, err)
	assert.Equal(t, "0.3", line.UnitPrice.Mul(decimal.NewFromInt(3)).String())
	assert.True(t, line.NetAmount.Equal(line.UnitPrice.Mul(decimal.NewFromInt(3))))
}

func TestLookupLayout(t *testing.T) {
	t.Parallel()

	l, err := LookupLayout("1")
	require.NoError(t, err)
	assert.Equal(t, LayoutV1, l)

	_, err = LookupLayout("0")
	assert.Error(t, err)
}
