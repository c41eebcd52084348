package orders

import (
	"errors"
	"log"
	"strconv"
	"strings"

	"casper-backend/internal/database"
	"casper-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func idParam(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid "+strings.ReplaceAll(name, "_", " "))
	}
	return uint(id), nil
}

// queryError keeps fiber errors such as "Invalid page." and hides database errors.
func queryError(err error, msg string) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return err
	}
	log.Printf("%s: %v", msg, err)
	return fiber.NewError(fiber.StatusInternalServerError, msg)
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "Not found.")
	}
	return queryError(err, msg)
}

// feedFromParam loads the feed named by the route param, 404 when missing.
func feedFromParam(c *fiber.Ctx, name string) (*models.Feed, error) {
	id, err := idParam(c, name)
	if err != nil {
		return nil, err
	}
	var feed models.Feed
	if err := database.DB.Preload("UploadedBy").First(&feed, id).Error; err != nil {
		return nil, notFoundOr(err, "Feed could not be loaded")
	}
	return &feed, nil
}
