package models

import "time"

// Summary: weekly quantity totals of one buyer within one feed
type Summary struct {
	ID               uint      `gorm:"primaryKey"`
	FeedID           uint      `gorm:"not null;uniqueIndex:idx_summary_feed_buyer_week"`
	BuyerID          uint      `gorm:"not null;uniqueIndex:idx_summary_feed_buyer_week"`
	Buyer            Buyer     `gorm:"constraint:OnDelete:CASCADE"`
	StartDate        time.Time `gorm:"type:date;not null;uniqueIndex:idx_summary_feed_buyer_week"` // always a Monday
	Quantity         uint      `gorm:"not null;default:0"`
	ExtendedQuantity uint      `gorm:"not null;default:0"`
}

func (s Summary) EndDate() time.Time {
	return s.StartDate.AddDate(0, 0, 6)
}
