package ingest

import (
	"context"
	"fmt"

	"casper-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store runs a feed import inside one database transaction.
type Store interface {
	Transaction(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the write side used while a transaction is open. Nothing written
// through it is visible to other readers before fn returns nil.
type Tx interface {
	CreateFeed(feed *models.Feed) error
	LoadReferences() (References, error)
	CreateLine(line *models.Line) error
	CreateSummaries(summaries []models.Summary) error
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&gormTx{db: db})
	})
}

type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) CreateFeed(feed *models.Feed) error {
	if err := t.db.Omit(clause.Associations).Create(feed).Error; err != nil {
		return fmt.Errorf("feed could not be saved: %w", err)
	}
	return nil
}

func (t *gormTx) LoadReferences() (References, error) {
	var buyers []models.Buyer
	if err := t.db.Find(&buyers).Error; err != nil {
		return References{}, fmt.Errorf("buyers could not be loaded: %w", err)
	}
	var planners []models.Planner
	if err := t.db.Find(&planners).Error; err != nil {
		return References{}, fmt.Errorf("planners could not be loaded: %w", err)
	}
	return NewReferences(buyers, planners), nil
}

func (t *gormTx) CreateLine(line *models.Line) error {
	// buyer and planner are lookup rows, never written from here
	if err := t.db.Omit(clause.Associations).Create(line).Error; err != nil {
		return fmt.Errorf("line could not be saved: %w", err)
	}
	return nil
}

func (t *gormTx) CreateSummaries(summaries []models.Summary) error {
	if len(summaries) == 0 {
		return nil
	}
	if err := t.db.Omit(clause.Associations).Create(&summaries).Error; err != nil {
		return fmt.Errorf("summaries could not be saved: %w", err)
	}
	return nil
}
