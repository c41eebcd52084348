package ingest

import (
	"time"

	"casper-backend/internal/models"
)

var (
	buyerORT   = models.Buyer{ID: 1, Code: "ORT", Name: "Ortiz"}
	buyerABC   = models.Buyer{ID: 2, Code: "ABC", Name: "Abbott"}
	plannerORT = models.Planner{ID: 10, Code: "ORT", Name: "Ortiz"}
	plannerPLN = models.Planner{ID: 11, Code: "PLN", Name: "Planning"}
)

func testRefs() References {
	return NewReferences(
		[]models.Buyer{buyerORT, buyerABC},
		[]models.Planner{plannerORT, plannerPLN},
	)
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// validRow builds a LayoutV1 row for ORT shipping on 2021-03-17.
func validRow(overrides map[int]Cell) Row {
	l := LayoutV1
	row := make(Row, 25)
	for i := range row {
		row[i] = NullCell()
	}
	row[l.SalesOrderNumber] = StringCell("SO-1001")
	row[l.ItemNumber] = StringCell("EZC5E12Q06-01")
	row[l.Revision] = StringCell("A")
	row[l.Quantity] = NumberCell(5)
	row[l.Unit] = StringCell("pcs")
	row[l.RequestedShipping] = DateCell(day("2021-03-16"))
	row[l.ConfirmedShipping] = DateCell(day("2021-03-17"))
	row[l.Site] = StringCell(SupportedSite)
	row[l.UnitPrice] = StringCell("12.35")
	row[l.NetAmount] = StringCell("61.75")
	row[l.BuyerCode] = StringCell("ORT")
	row[l.SalesTaker] = StringCell("jdoe")
	row[l.PurchaseOrderNumber] = StringCell("PO-77")
	row[l.CreatedAt] = DateCell(day("2021-03-01"))
	row[l.UpdatedAt] = DateCell(day("2021-03-02"))
	for i, c := range overrides {
		row[i] = c
	}
	return row
}
