package database

import (
	"log"

	"casper-backend/internal/config"
	"casper-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	var err error

	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}

	if err := Migrate(DB); err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}

	log.Println("Database connected, migrations applied.")
}

// Migrate creates or updates every table. Lookup tables come before the rows that reference them.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Buyer{},
		&models.Planner{},
		&models.Feed{},
		&models.Line{},
		&models.Summary{},
		&models.AuditLog{},
	)
}
