package orders

import (
	"casper-backend/internal/config"
	"casper-backend/internal/database"
	"casper-backend/internal/models"
	"casper-backend/internal/pagination"
	"casper-backend/internal/report"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// linesQuery scopes lines to the feed of the route, if the route has one, and applies the query filters.
func linesQuery(c *fiber.Ctx) (*gorm.DB, *models.Feed, error) {
	f, err := ParseLineFilter(c.Queries())
	if err != nil {
		return nil, nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	dbq := database.DB.Model(&models.Line{})
	var feed *models.Feed
	if c.Params("feed_id") != "" {
		if feed, err = feedFromParam(c, "feed_id"); err != nil {
			return nil, nil, err
		}
		dbq = dbq.Where("lines.feed_id = ?", feed.ID)
	}
	return f.Apply(dbq), feed, nil
}

// GET /api/orders
// GET /api/feeds/:feed_id/orders
func ListOrdersHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := pagination.Parse(c, cfg.PageSize)
		if err != nil {
			return err
		}

		dbq, _, err := linesQuery(c)
		if err != nil {
			return err
		}

		var lines []models.Line
		meta, err := pagination.Find(c, dbq, p, &lines)
		if err != nil {
			return queryError(err, "Orders could not be listed")
		}

		resp := make([]LineShortResponse, 0, len(lines))
		for _, l := range lines {
			resp = append(resp, NewLineShortResponse(l))
		}
		return c.JSON(pagination.NewPage(meta, resp))
	}
}

// GET /api/orders/:id
// GET /api/feeds/:feed_id/orders/:id
func GetOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c, "id")
		if err != nil {
			return err
		}

		dbq := database.DB.Joins("Buyer").Joins("Planner")
		if c.Params("feed_id") != "" {
			feed, err := feedFromParam(c, "feed_id")
			if err != nil {
				return err
			}
			dbq = dbq.Where("lines.feed_id = ?", feed.ID)
		}

		var line models.Line
		if err := dbq.Where("lines.id = ?", id).First(&line).Error; err != nil {
			return notFoundOr(err, "Order could not be loaded")
		}
		return c.JSON(NewLineResponse(line))
	}
}

// GET /api/feeds/:feed_id/orders/export
func ExportOrdersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq, feed, err := linesQuery(c)
		if err != nil {
			return err
		}
		if feed == nil {
			return fiber.NewError(fiber.StatusNotFound, "Not found.")
		}

		var lines []models.Line
		if err := dbq.Find(&lines).Error; err != nil {
			return queryError(err, "Orders could not be loaded")
		}

		pdf, err := report.RenderOrdersPDF(*feed, lines, c.Queries())
		if err != nil {
			return queryError(err, "Orders export could not be created")
		}
		return c.JSON(fiber.Map{"report": report.Encode(pdf)})
	}
}
