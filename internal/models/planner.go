package models

type Planner struct {
	ID   uint   `gorm:"primaryKey"`
	Code string `gorm:"size:16;uniqueIndex;not null"`
	Name string `gorm:"size:64"`
}
