package ingest

import "fmt"

// Layout maps line fields to zero-based column positions of the feed sheet.
// Column positions have moved between exports of the ERP report, so every
// known arrangement is kept as its own version.
type Layout struct {
	Version string

	SalesOrderNumber    int
	ItemNumber          int
	Revision            int
	Quantity            int
	Unit                int
	RequestedReceipt    int
	RequestedShipping   int
	ConfirmedShipping   int
	Note                int
	Site                int
	ShipToName          int
	UnitPrice           int
	NetAmount           int
	CustomerReference   int
	BuyerCode           int
	PlannerCode         int
	SalesTaker          int
	PurchaseOrderNumber int
	OriginalCommitDate  int
	CreatedAt           int
	UpdatedAt           int
}

// LayoutV1: sales order report with the 25 column export (A..Y)
var LayoutV1 = Layout{
	Version:             "1",
	SalesOrderNumber:    0,
	ItemNumber:          2,
	Revision:            4,
	Quantity:            5,
	Unit:                6,
	RequestedReceipt:    7,
	RequestedShipping:   8,
	ConfirmedShipping:   9,
	Note:                10,
	Site:                11,
	ShipToName:          12,
	UnitPrice:           15,
	NetAmount:           16,
	CustomerReference:   17,
	BuyerCode:           18,
	PlannerCode:         19,
	SalesTaker:          20,
	PurchaseOrderNumber: 21,
	OriginalCommitDate:  22,
	CreatedAt:           23,
	UpdatedAt:           24,
}

var layouts = map[string]Layout{
	LayoutV1.Version: LayoutV1,
}

func LookupLayout(version string) (Layout, error) {
	l, ok := layouts[version]
	if !ok {
		return Layout{}, fmt.Errorf("unknown feed layout version %q", version)
	}
	return l, nil
}
