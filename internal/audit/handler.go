package audit

import (
	"errors"
	"strconv"

	"casper-backend/internal/config"
	"casper-backend/internal/database"
	"casper-backend/internal/models"
	"casper-backend/internal/pagination"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AuditLogResponse struct {
	ID          uint               `json:"id"`
	CreatedAt   string             `json:"created_at"`
	UserID      uint               `json:"user_id"`
	UserEmail   string             `json:"user_email"`
	EntityType  string             `json:"entity_type"`
	EntityID    uint               `json:"entity_id"`
	Action      models.AuditAction `json:"action"`
	Description string             `json:"description"`
}

func toResponse(l models.AuditLog) AuditLogResponse {
	return AuditLogResponse{
		ID:          l.ID,
		CreatedAt:   l.CreatedAt.Format("2006-01-02 15:04:05"),
		UserID:      l.UserID,
		UserEmail:   l.UserEmail,
		EntityType:  l.EntityType,
		EntityID:    l.EntityID,
		Action:      l.Action,
		Description: l.Description,
	}
}

func positiveID(s string) (uint, bool) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// applyFilters narrows q by the optional user_id, entity_type, entity_id and action query params.
func applyFilters(c *fiber.Ctx, q *gorm.DB) *gorm.DB {
	if uid, ok := positiveID(c.Query("user_id")); ok {
		q = q.Where("user_id = ?", uid)
	}
	if entityType := c.Query("entity_type"); entityType != "" {
		q = q.Where("entity_type = ?", entityType)
	}
	if eid, ok := positiveID(c.Query("entity_id")); ok {
		q = q.Where("entity_id = ?", eid)
	}
	if action := c.Query("action"); action != "" {
		q = q.Where("action = ?", action)
	}
	return q
}

// GET /api/audit-logs?entity_type=feed&entity_id=1&user_id=2
func ListAuditLogsHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := pagination.Parse(c, cfg.PageSize)
		if err != nil {
			return err
		}

		dbq := applyFilters(c, database.DB.Model(&models.AuditLog{})).Order("created_at DESC, id DESC")

		var logs []models.AuditLog
		meta, err := pagination.Find(c, dbq, p, &logs)
		if err != nil {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return err
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Audit logs could not be listed")
		}

		resp := make([]AuditLogResponse, 0, len(logs))
		for _, l := range logs {
			resp = append(resp, toResponse(l))
		}
		return c.JSON(pagination.NewPage(meta, resp))
	}
}
