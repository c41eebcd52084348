package models

import "time"

type User struct {
	ID           uint   `gorm:"primaryKey"`
	Email        string `gorm:"size:128;uniqueIndex;not null"`
	FirstName    string `gorm:"size:64;not null"`
	LastName     string `gorm:"size:64;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	// New sign-ups stay inactive until an admin approves them.
	IsActive    bool `gorm:"not null;default:false"`
	IsAdmin     bool `gorm:"not null;default:false"`
	IsSuperuser bool `gorm:"not null;default:false"`
	LastLogin   *time.Time
	LastLoginIP string    `gorm:"size:45"`
	DateJoined  time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time
}

func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// IsStaff: every admin is staff
func (u User) IsStaff() bool {
	return u.IsAdmin
}
