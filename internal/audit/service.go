package audit

import (
	"encoding/json"
	"fmt"

	"casper-backend/internal/database"
	"casper-backend/internal/models"
)

type LogOptions struct {
	UserID      uint
	UserEmail   string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// snapshot encodes v for a jsonb column, "null" when v is nil or not encodable.
func snapshot(v any) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func NewLog(opts LogOptions) models.AuditLog {
	return models.AuditLog{
		UserID:      opts.UserID,
		UserEmail:   opts.UserEmail,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  snapshot(opts.Before),
		AfterData:   snapshot(opts.After),
	}
}

func WriteLog(opts LogOptions) error {
	entry := NewLog(opts)
	if err := database.DB.Create(&entry).Error; err != nil {
		return fmt.Errorf("audit log could not be saved: %w", err)
	}
	return nil
}
