package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Line: one order line extracted from a feed row, never updated after import
type Line struct {
	ID                  uint   `gorm:"primaryKey"`
	FeedID              uint   `gorm:"index;not null"`
	SalesOrderNumber    string `gorm:"size:16;index;not null"`
	PurchaseOrderNumber string `gorm:"size:64;not null"`
	ItemNumber          string `gorm:"size:32;not null"`
	Revision            string `gorm:"size:8;not null"`
	Quantity            uint   `gorm:"not null"`
	ExtendedQuantity    uint   `gorm:"not null"` // >= Quantity
	Unit                string `gorm:"size:8;not null;default:pcs"`

	RequestedReceipt  *time.Time `gorm:"type:date"`
	RequestedShipping *time.Time `gorm:"type:date"`
	ConfirmedShipping *time.Time `gorm:"type:date;index"`

	Note              *string
	Site              string          `gorm:"size:16;not null;default:104-CA"`
	ShipToName        *string         `gorm:"size:128"`
	UnitPrice         decimal.Decimal `gorm:"type:numeric(8,2);not null"`
	NetAmount         decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	CustomerReference *string         `gorm:"size:128"`

	BuyerID   uint `gorm:"index;not null"`
	Buyer     Buyer
	PlannerID uint `gorm:"index;not null"`
	Planner   Planner

	SalesTaker         string     `gorm:"size:64;not null"`
	OriginalCommitDate *time.Time `gorm:"type:date"`
	// timestamps as recorded in the source system, not by this service
	OriginalCreatedAt time.Time `gorm:"not null"`
	OriginalUpdatedAt time.Time `gorm:"not null"`
}
