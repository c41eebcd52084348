package main

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"
	_ "time/tzdata"

	"casper-backend/internal/audit"
	"casper-backend/internal/auth"
	"casper-backend/internal/config"
	"casper-backend/internal/database"
	"casper-backend/internal/ingest"
	"casper-backend/internal/orders"
	"casper-backend/internal/report"
	"casper-backend/internal/storage"
	"casper-backend/internal/users"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// feed workbooks are a few MB at most, fiber's default of 4MB is too tight
const uploadLimit = 32 * 1024 * 1024

func main() {
	cfg := config.Load()
	database.Init(cfg)

	layout, err := ingest.LookupLayout(cfg.FeedLayout)
	if err != nil {
		log.Fatalf("Feed layout: %v", err)
	}

	loc, err := time.LoadLocation(cfg.ReportTimezone)
	if err != nil {
		log.Printf("[WARN] REPORT_TIMEZONE=%q is unknown, reports use UTC", cfg.ReportTimezone)
		loc = time.UTC
	}

	var files storage.FileStore
	switch cfg.StorageBackend {
	case "s3":
		s3Store, err := storage.NewS3Store(context.Background(), cfg.S3Bucket, cfg.S3Region, cfg.S3Prefix)
		if err != nil {
			log.Fatalf("S3 storage: %v", err)
		}
		files = s3Store
		log.Printf("Feed files are stored in s3://%s/%s", cfg.S3Bucket, cfg.S3Prefix)
	default:
		files = storage.NewLocalStore(cfg.MediaRoot)
	}
	importer := ingest.NewImporter(ingest.NewGormStore(database.DB), files, layout)

	exports := report.NewExportCache(cfg.ExportCacheTTL)
	sweeper, err := exports.StartSweeper(cfg.ExportCacheSweep, loc)
	if err != nil {
		log.Fatalf("Export cache sweeper: %v", err)
	}
	defer sweeper.Stop()

	app := fiber.New(fiber.Config{
		BodyLimit: uploadLimit,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var e *fiber.Error
			if errors.As(err, &e) {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			log.Println("Unexpected error:", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Unexpected server error",
			})
		},
	})

	app.Use(recover.New())
	app.Use(logger.New())

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PATCH,DELETE,OPTIONS",
	}))

	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})

	api := app.Group("/api")

	// Public
	api.Post("/token", auth.ObtainTokenHandler(cfg))
	api.Post("/token/refresh", auth.RefreshTokenHandler(cfg))
	api.Post("/token/verify", auth.VerifyTokenHandler(cfg))
	api.Post("/users", users.SignUpHandler(cfg))
	api.Post("/users/check-email", users.CheckEmailHandler())

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	// Users
	protected.Get("/users", users.ListUsersHandler(cfg))
	protected.Get("/users/:id", users.GetUserHandler())
	protected.Patch("/users/:id", users.UpdateUserHandler(cfg))
	protected.Delete("/users/:id", users.DeleteUserHandler())
	protected.Post("/users/:id/approve", auth.RequireAdmin(), users.ApproveUserHandler())

	// Feeds
	protected.Get("/feeds", orders.ListFeedsHandler(cfg))
	protected.Post("/feeds/upload", orders.UploadFeedHandler(importer))
	protected.Get("/feeds/:id", orders.GetFeedHandler())
	protected.Delete("/feeds/:id", auth.RequireAdmin(), orders.DeleteFeedHandler(files, exports))
	protected.Get("/feeds/:id/file", orders.DownloadFeedFileHandler(files))
	protected.Get("/feeds/:id/buyers", orders.FeedBuyersHandler())
	protected.Get("/feeds/:id/planners", orders.FeedPlannersHandler())

	// Orders, export before :id
	protected.Get("/orders", orders.ListOrdersHandler(cfg))
	protected.Get("/orders/:id", orders.GetOrderHandler())
	protected.Get("/feeds/:feed_id/orders", orders.ListOrdersHandler(cfg))
	protected.Get("/feeds/:feed_id/orders/export", orders.ExportOrdersHandler())
	protected.Get("/feeds/:feed_id/orders/:id", orders.GetOrderHandler())

	// Weekly summaries
	protected.Get("/feeds/:feed_id/summary", orders.ListSummariesHandler(cfg))
	protected.Get("/feeds/:feed_id/summary/export", orders.ExportSummaryHandler(exports, loc))
	protected.Get("/feeds/:feed_id/summary/:id", orders.GetSummaryHandler())

	// Reference data
	protected.Get("/buyers", orders.ListBuyersHandler(cfg))
	protected.Get("/buyers/:id", orders.GetBuyerHandler())
	protected.Get("/planners", orders.ListPlannersHandler(cfg))
	protected.Get("/planners/:id", orders.GetPlannerHandler())

	// Audit logs
	protected.Get("/audit-logs", auth.RequireAdmin(), audit.ListAuditLogsHandler(cfg))

	log.Println("Server listening on port:", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}
