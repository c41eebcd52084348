package main

import (
	"flag"
	"log"
	"os"

	"casper-backend/internal/database"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	path := flag.String("file", "seed.yaml", "seed fixture (YAML)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using the environment")
	}

	data, err := os.ReadFile(*path)
	if err != nil {
		log.Fatalf("Reading %s: %v", *path, err)
	}
	fixture, err := ParseFixture(data)
	if err != nil {
		log.Fatal(err)
	}

	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		log.Fatal("DATABASE_DSN is not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}

	if err := fixture.Apply(db); err != nil {
		log.Fatalf("Seed failed: %v", err)
	}
	log.Printf("Seed done: %d buyers, %d planners, admin=%t",
		len(fixture.Buyers), len(fixture.Planners), fixture.Admin != nil)
}
