package models

type Buyer struct {
	ID   uint   `gorm:"primaryKey"`
	Code string `gorm:"size:16;uniqueIndex;not null"`
	Name string `gorm:"size:64"`
}
