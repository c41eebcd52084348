package models

import "time"

// Feed: one uploaded order-line workbook
type Feed struct {
	ID           uint   `gorm:"primaryKey"`
	File         string `gorm:"size:512;not null"` // storage key, feeds/<uuid>/<filename>
	Filename     string `gorm:"size:255;not null"`
	Checksum     string `gorm:"size:32"` // md5 of the stored file
	UploadedByID *uint  `gorm:"index"`
	UploadedBy   *User  `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Lines     []Line    `gorm:"foreignKey:FeedID;constraint:OnDelete:CASCADE"`
	Summaries []Summary `gorm:"foreignKey:FeedID;constraint:OnDelete:CASCADE"`
}
