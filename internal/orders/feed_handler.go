package orders

import (
	"errors"
	"io"
	"log"
	"mime/multipart"
	"strings"

	"casper-backend/internal/audit"
	"casper-backend/internal/auth"
	"casper-backend/internal/config"
	"casper-backend/internal/database"
	"casper-backend/internal/ingest"
	"casper-backend/internal/models"
	"casper-backend/internal/pagination"
	"casper-backend/internal/report"
	"casper-backend/internal/storage"

	"github.com/gofiber/fiber/v2"
)

var feedOrderColumns = map[string]string{
	"id":         "feeds.id",
	"filename":   "feeds.filename",
	"created_at": "feeds.created_at",
	"updated_at": "feeds.updated_at",
}

// feedOrder turns order_by into SQL, newest first by default.
func feedOrder(s string) string {
	var terms []string
	for _, field := range splitList(s) {
		dir := "ASC"
		if strings.HasPrefix(field, "-") {
			dir = "DESC"
			field = field[1:]
		}
		if col, ok := feedOrderColumns[field]; ok {
			terms = append(terms, col+" "+dir)
		}
	}
	if len(terms) == 0 {
		return "feeds.id DESC"
	}
	return strings.Join(terms, ", ")
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// uploadError maps an import failure to the upload response contract.
func uploadError(c *fiber.Ctx, err error) error {
	var verr *ingest.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": verr.Message})
	case errors.Is(err, ingest.ErrMalformedWorkbook):
		return c.Status(fiber.StatusBadRequest).JSON("Invalid File!")
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "The following exception occurred: " + err.Error(),
		})
	}
}

// GET /api/feeds?order_by=-created_at
func ListFeedsHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := pagination.Parse(c, cfg.PageSize)
		if err != nil {
			return err
		}

		dbq := database.DB.Model(&models.Feed{}).Order(feedOrder(c.Query("order_by")))

		var feeds []models.Feed
		meta, err := pagination.Find(c, dbq, p, &feeds, "UploadedBy")
		if err != nil {
			return queryError(err, "Feeds could not be listed")
		}

		resp := make([]FeedResponse, 0, len(feeds))
		for _, f := range feeds {
			resp = append(resp, NewFeedResponse(f))
		}
		return c.JSON(pagination.NewPage(meta, resp))
	}
}

// GET /api/feeds/:id
func GetFeedHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		feed, err := feedFromParam(c, "id")
		if err != nil {
			return err
		}
		return c.JSON(NewFeedResponse(*feed))
	}
}

// GET /api/feeds/:id/file
func DownloadFeedFileHandler(files storage.FileStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		feed, err := feedFromParam(c, "id")
		if err != nil {
			return err
		}

		rc, err := files.Open(feed.File)
		if err != nil {
			log.Printf("Stored file %s of feed %d could not be opened: %v", feed.File, feed.ID, err)
			return fiber.NewError(fiber.StatusNotFound, "File not found")
		}

		c.Attachment(feed.Filename)
		// fasthttp closes the stream once sent
		return c.SendStream(rc)
	}
}

// POST /api/feeds/upload (multipart: file, optional filename)
func UploadFeedHandler(im *ingest.Importer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil || fh == nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"detail": "A file is required!"})
		}

		filename := strings.TrimSpace(c.FormValue("filename"))
		if filename == "" {
			filename = fh.Filename
		}

		content, err := readFormFile(fh)
		if err != nil {
			return uploadError(c, err)
		}

		up := ingest.Upload{Filename: filename, Content: content}
		if uid, ok := auth.CurrentUserID(c); ok {
			up.UploadedBy = &models.User{ID: uid, Email: auth.CurrentEmail(c)}
		}

		res, err := im.Import(c.UserContext(), up)
		if err != nil {
			return uploadError(c, err)
		}

		feed := *res.Feed
		if err := database.DB.Preload("UploadedBy").First(&feed, res.Feed.ID).Error; err != nil {
			log.Printf("Feed %d reload failed: %v", res.Feed.ID, err)
		}

		if up.UploadedBy != nil {
			if err := audit.WriteLog(audit.LogOptions{
				UserID:      up.UploadedBy.ID,
				UserEmail:   up.UploadedBy.Email,
				EntityType:  "feed",
				EntityID:    feed.ID,
				Action:      models.AuditActionCreate,
				Description: "Feed uploaded: " + feed.Filename,
				After: fiber.Map{
					"rows":      res.Rows,
					"lines":     res.Lines,
					"skipped":   res.Skipped,
					"summaries": res.Summaries,
				},
			}); err != nil {
				log.Printf("[WARN] %v", err)
			}
		}

		return c.Status(fiber.StatusCreated).JSON(NewFeedResponse(feed))
	}
}

// DELETE /api/feeds/:id
func DeleteFeedHandler(files storage.FileStore, exports *report.ExportCache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		feed, err := feedFromParam(c, "id")
		if err != nil {
			return err
		}

		// lines and summaries go with the feed (ON DELETE CASCADE)
		if err := database.DB.Delete(&models.Feed{}, feed.ID).Error; err != nil {
			return queryError(err, "Feed could not be deleted")
		}

		exports.Invalidate(feed.ID)
		if err := files.Remove(feed.File); err != nil {
			log.Printf("Stored file %s could not be removed: %v", feed.File, err)
		}

		uid, _ := auth.CurrentUserID(c)
		if err := audit.WriteLog(audit.LogOptions{
			UserID:      uid,
			UserEmail:   auth.CurrentEmail(c),
			EntityType:  "feed",
			EntityID:    feed.ID,
			Action:      models.AuditActionDelete,
			Description: "Feed deleted: " + feed.Filename,
			Before:      NewFeedResponse(*feed),
		}); err != nil {
			log.Printf("[WARN] %v", err)
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GET /api/feeds/:id/buyers
func FeedBuyersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		feed, err := feedFromParam(c, "id")
		if err != nil {
			return err
		}

		var buyers []models.Buyer
		err = database.DB.
			Where("id IN (?)", database.DB.Model(&models.Line{}).Distinct("buyer_id").Where("feed_id = ?", feed.ID)).
			Order("code").
			Find(&buyers).Error
		if err != nil {
			return queryError(err, "Buyers could not be listed")
		}

		resp := make([]*BuyerResponse, 0, len(buyers))
		for _, b := range buyers {
			resp = append(resp, NewBuyerResponse(b))
		}
		return c.JSON(resp)
	}
}

// GET /api/feeds/:id/planners
func FeedPlannersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		feed, err := feedFromParam(c, "id")
		if err != nil {
			return err
		}

		var planners []models.Planner
		err = database.DB.
			Where("id IN (?)", database.DB.Model(&models.Line{}).Distinct("planner_id").Where("feed_id = ?", feed.ID)).
			Order("code").
			Find(&planners).Error
		if err != nil {
			return queryError(err, "Planners could not be listed")
		}

		resp := make([]*PlannerResponse, 0, len(planners))
		for _, p := range planners {
			resp = append(resp, NewPlannerResponse(p))
		}
		return c.JSON(resp)
	}
}
