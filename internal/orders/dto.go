package orders

import (
	"fmt"
	"time"

	"casper-backend/internal/models"
	"casper-backend/internal/users"
)

const dateLayout = "2006-01-02"

type BuyerResponse struct {
	ID   uint   `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

type PlannerResponse struct {
	ID   uint   `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

type FeedResponse struct {
	ID         uint                `json:"id"`
	File       string              `json:"file"`
	Filename   string              `json:"filename"`
	Checksum   string              `json:"checksum"`
	UploadedBy *users.UserResponse `json:"uploaded_by"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// LineShortResponse is the list form of a line.
type LineShortResponse struct {
	ID                  uint             `json:"id"`
	SalesOrderNumber    string           `json:"sales_order_number"`
	ItemNumber          string           `json:"item_number"`
	Revision            string           `json:"revision"`
	Quantity            uint             `json:"quantity"`
	ExtendedQuantity    uint             `json:"extended_quantity"`
	Unit                string           `json:"unit"`
	ConfirmedShipping   *string          `json:"confirmed_shipping"`
	Note                *string          `json:"note"`
	ShipToName          *string          `json:"ship_to_name"`
	UnitPrice           string           `json:"unit_price"`
	NetAmount           string           `json:"net_amount"`
	Buyer               *BuyerResponse   `json:"buyer"`
	Planner             *PlannerResponse `json:"planner"`
	PurchaseOrderNumber string           `json:"purchase_order_number"`
	OriginalCommitDate  *string          `json:"original_commit_date"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

type LineResponse struct {
	LineShortResponse
	FeedID            uint    `json:"feed"`
	RequestedReceipt  *string `json:"requested_receipt"`
	RequestedShipping *string `json:"requested_shipping"`
	Site              string  `json:"site"`
	CustomerReference *string `json:"customer_reference"`
	SalesTaker        string  `json:"sales_taker"`
}

type SummaryResponse struct {
	ID               uint           `json:"id"`
	Buyer            *BuyerResponse `json:"buyer"`
	StartDate        string         `json:"start_date"`
	EndDate          string         `json:"end_date"`
	Quantity         uint           `json:"quantity"`
	ExtendedQuantity uint           `json:"extended_quantity"`
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

// FileURL is where the stored workbook of a feed can be downloaded.
func FileURL(feedID uint) string {
	return fmt.Sprintf("/api/feeds/%d/file", feedID)
}

func NewBuyerResponse(b models.Buyer) *BuyerResponse {
	if b.ID == 0 {
		return nil
	}
	return &BuyerResponse{ID: b.ID, Code: b.Code, Name: b.Name}
}

func NewPlannerResponse(p models.Planner) *PlannerResponse {
	if p.ID == 0 {
		return nil
	}
	return &PlannerResponse{ID: p.ID, Code: p.Code, Name: p.Name}
}

func NewFeedResponse(f models.Feed) FeedResponse {
	resp := FeedResponse{
		ID:        f.ID,
		File:      FileURL(f.ID),
		Filename:  f.Filename,
		Checksum:  f.Checksum,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
	if f.UploadedBy != nil {
		u := users.NewUserResponse(*f.UploadedBy, nil)
		resp.UploadedBy = &u
	}
	return resp
}

func NewLineShortResponse(l models.Line) LineShortResponse {
	return LineShortResponse{
		ID:                  l.ID,
		SalesOrderNumber:    l.SalesOrderNumber,
		ItemNumber:          l.ItemNumber,
		Revision:            l.Revision,
		Quantity:            l.Quantity,
		ExtendedQuantity:    l.ExtendedQuantity,
		Unit:                l.Unit,
		ConfirmedShipping:   formatDate(l.ConfirmedShipping),
		Note:                l.Note,
		ShipToName:          l.ShipToName,
		UnitPrice:           l.UnitPrice.StringFixed(2),
		NetAmount:           l.NetAmount.StringFixed(2),
		Buyer:               NewBuyerResponse(l.Buyer),
		Planner:             NewPlannerResponse(l.Planner),
		PurchaseOrderNumber: l.PurchaseOrderNumber,
		OriginalCommitDate:  formatDate(l.OriginalCommitDate),
		CreatedAt:           l.OriginalCreatedAt,
		UpdatedAt:           l.OriginalUpdatedAt,
	}
}

func NewLineResponse(l models.Line) LineResponse {
	return LineResponse{
		LineShortResponse: NewLineShortResponse(l),
		FeedID:            l.FeedID,
		RequestedReceipt:  formatDate(l.RequestedReceipt),
		RequestedShipping: formatDate(l.RequestedShipping),
		Site:              l.Site,
		CustomerReference: l.CustomerReference,
		SalesTaker:        l.SalesTaker,
	}
}

func NewSummaryResponse(s models.Summary) SummaryResponse {
	return SummaryResponse{
		ID:               s.ID,
		Buyer:            NewBuyerResponse(s.Buyer),
		StartDate:        s.StartDate.Format(dateLayout),
		EndDate:          s.EndDate().Format(dateLayout),
		Quantity:         s.Quantity,
		ExtendedQuantity: s.ExtendedQuantity,
	}
}
