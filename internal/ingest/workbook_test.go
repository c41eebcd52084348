package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// sheetRow returns a 25 column LayoutV1 row with the given values set.
func sheetRow(values map[int]interface{}) []interface{} {
	row := make([]interface{}, 25)
	for i, v := range values {
		row[i] = v
	}
	return row
}

func kitRowValues(buyer string, confirmed interface{}) map[int]interface{} {
	l := LayoutV1
	return map[int]interface{}{
		l.SalesOrderNumber:    "SO-1001",
		l.ItemNumber:          "EZC5E12Q06-01",
		l.Revision:            "A",
		l.Quantity:            5,
		l.Unit:                "pcs",
		l.ConfirmedShipping:   confirmed,
		l.Site:                SupportedSite,
		l.UnitPrice:           "12.35",
		l.NetAmount:           "61.75",
		l.BuyerCode:           buyer,
		l.SalesTaker:          "jdoe",
		l.PurchaseOrderNumber: "PO-77",
		l.CreatedAt:           time.Date(2021, 3, 1, 8, 0, 0, 0, time.UTC),
		l.UpdatedAt:           time.Date(2021, 3, 2, 8, 0, 0, 0, time.UTC),
	}
}

func buildWorkbook(t *testing.T, rows ...[]interface{}) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		for j, v := range row {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", cell, v))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestOpenWorkbookXLSX(t *testing.T) {
	t.Parallel()

	content := buildWorkbook(t,
		sheetRow(map[int]interface{}{0: "Sales Order", 11: "Site"}),
		sheetRow(kitRowValues("ORT", time.Date(2021, 3, 17, 0, 0, 0, 0, time.UTC))),
	)

	r, err := OpenWorkbook("feed.XLSX", content)
	require.NoError(t, err)
	defer r.Close()

	var rows []Row
	for r.Next() {
		rows = append(rows, r.Row())
	}
	require.NoError(t, r.Err())
	require.Len(t, rows, 2)

	assert.Equal(t, "Sales Order", rows[0].At(0).Text)
	assert.True(t, rows[0].At(1).IsNull())

	data := rows[1]
	assert.Equal(t, CellNumber, data.At(LayoutV1.Quantity).Kind)
	assert.Equal(t, float64(5), data.At(LayoutV1.Quantity).Number)
	assert.Equal(t, CellString, data.At(LayoutV1.Site).Kind)

	line, err := NewNormalizer(LayoutV1, testRefs()).Normalize(data)
	require.NoError(t, err)
	assert.Equal(t, day("2021-03-17"), *line.ConfirmedShipping)
	assert.Equal(t, uint(30), line.ExtendedQuantity)
	assert.Equal(t, 2021, line.OriginalCreatedAt.Year())
}

func TestOpenWorkbookMalformed(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"feed.xlsx", "feed.xls"} {
		_, err := OpenWorkbook(name, []byte("this is not a workbook"))
		assert.ErrorIs(t, err, ErrMalformedWorkbook, name)
	}

	_, err := OpenWorkbook("feed.csv", []byte("a,b"))
	assert.ErrorIs(t, err, ErrMalformedWorkbook)
}

func TestValidateFilename(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateFilename("orders.xlsx"))
	assert.NoError(t, ValidateFilename("Orders.XLS"))

	for _, name := range []string{"", "orders.csv", "orders", "orders.xlsx.pdf"} {
		var verr *ValidationError
		assert.ErrorAs(t, ValidateFilename(name), &verr, name)
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	assert.True(t, classify("").IsNull())
	assert.True(t, classify("   ").IsNull())
	assert.Equal(t, CellNumber, classify("30.0").Kind)
	assert.Equal(t, "30.0", classify("30.0").Text)
	assert.Equal(t, CellString, classify("104-CA").Kind)
}
