package orders

import (
	"casper-backend/internal/config"
	"casper-backend/internal/database"
	"casper-backend/internal/models"
	"casper-backend/internal/pagination"

	"github.com/gofiber/fiber/v2"
)

// GET /api/buyers
func ListBuyersHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := pagination.Parse(c, cfg.PageSize)
		if err != nil {
			return err
		}

		var buyers []models.Buyer
		meta, err := pagination.Find(c, database.DB.Model(&models.Buyer{}).Order("code"), p, &buyers)
		if err != nil {
			return queryError(err, "Buyers could not be listed")
		}

		resp := make([]*BuyerResponse, 0, len(buyers))
		for _, b := range buyers {
			resp = append(resp, NewBuyerResponse(b))
		}
		return c.JSON(pagination.NewPage(meta, resp))
	}
}

// GET /api/buyers/:id
func GetBuyerHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c, "id")
		if err != nil {
			return err
		}
		var b models.Buyer
		if err := database.DB.First(&b, id).Error; err != nil {
			return notFoundOr(err, "Buyer could not be loaded")
		}
		return c.JSON(NewBuyerResponse(b))
	}
}

// GET /api/planners
func ListPlannersHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := pagination.Parse(c, cfg.PageSize)
		if err != nil {
			return err
		}

		var planners []models.Planner
		meta, err := pagination.Find(c, database.DB.Model(&models.Planner{}).Order("code"), p, &planners)
		if err != nil {
			return queryError(err, "Planners could not be listed")
		}

		resp := make([]*PlannerResponse, 0, len(planners))
		for _, pl := range planners {
			resp = append(resp, NewPlannerResponse(pl))
		}
		return c.JSON(pagination.NewPage(meta, resp))
	}
}

// GET /api/planners/:id
func GetPlannerHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c, "id")
		if err != nil {
			return err
		}
		var pl models.Planner
		if err := database.DB.First(&pl, id).Error; err != nil {
			return notFoundOr(err, "Planner could not be loaded")
		}
		return c.JSON(NewPlannerResponse(pl))
	}
}
