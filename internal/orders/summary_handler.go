package orders

import (
	"time"

	"casper-backend/internal/config"
	"casper-backend/internal/database"
	"casper-backend/internal/models"
	"casper-backend/internal/pagination"
	"casper-backend/internal/report"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func summariesQuery(feedID uint) *gorm.DB {
	return database.DB.Model(&models.Summary{}).
		Joins("Buyer").
		Where("summaries.feed_id = ?", feedID).
		Order(`summaries.start_date, "Buyer".code`)
}

// GET /api/feeds/:feed_id/summary
func ListSummariesHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := pagination.Parse(c, cfg.PageSize)
		if err != nil {
			return err
		}
		feed, err := feedFromParam(c, "feed_id")
		if err != nil {
			return err
		}

		var summaries []models.Summary
		meta, err := pagination.Find(c, summariesQuery(feed.ID), p, &summaries)
		if err != nil {
			return queryError(err, "Summaries could not be listed")
		}

		resp := make([]SummaryResponse, 0, len(summaries))
		for _, s := range summaries {
			resp = append(resp, NewSummaryResponse(s))
		}
		return c.JSON(pagination.NewPage(meta, resp))
	}
}

// GET /api/feeds/:feed_id/summary/:id
func GetSummaryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		feed, err := feedFromParam(c, "feed_id")
		if err != nil {
			return err
		}
		id, err := idParam(c, "id")
		if err != nil {
			return err
		}

		var s models.Summary
		if err := summariesQuery(feed.ID).Where("summaries.id = ?", id).First(&s).Error; err != nil {
			return notFoundOr(err, "Summary could not be loaded")
		}
		return c.JSON(NewSummaryResponse(s))
	}
}

// GET /api/feeds/:feed_id/summary/export
// The rendered report is cached per feed until the feed is deleted or the entry expires.
func ExportSummaryHandler(exports *report.ExportCache, loc *time.Location) fiber.Handler {
	return func(c *fiber.Ctx) error {
		feed, err := feedFromParam(c, "feed_id")
		if err != nil {
			return err
		}

		encoded, err := exports.GetOrBuild(feed.ID, func() (string, error) {
			var summaries []models.Summary
			if err := summariesQuery(feed.ID).Find(&summaries).Error; err != nil {
				return "", err
			}
			pdf, err := report.RenderSummaryPDF(report.BuildSummaryReport(*feed, summaries), loc)
			if err != nil {
				return "", err
			}
			return report.Encode(pdf), nil
		})
		if err != nil {
			return queryError(err, "Summary export could not be created")
		}
		return c.JSON(fiber.Map{"report": encoded})
	}
}
