package users

import (
	"errors"
	"fmt"
	"log"
	"strconv"

	"casper-backend/internal/audit"
	"casper-backend/internal/auth"
	"casper-backend/internal/config"
	"casper-backend/internal/database"
	"casper-backend/internal/models"
	"casper-backend/internal/pagination"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const pendingRequestsShown = 5

type CheckEmailRequest struct {
	Email *string `json:"email"`
}

// pendingRequests: oldest sign-ups still waiting for approval
func pendingRequests() ([]models.User, error) {
	var pending []models.User
	err := database.DB.
		Where("is_active = ? AND is_admin = ?", false, false).
		Order("date_joined, id").
		Limit(pendingRequestsShown).
		Find(&pending).Error
	return pending, err
}

func respond(u models.User) (UserResponse, error) {
	if !u.IsAdmin {
		return NewUserResponse(u, nil), nil
	}
	pending, err := pendingRequests()
	if err != nil {
		return UserResponse{}, err
	}
	return NewUserResponse(u, pending), nil
}

func userParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid user ID")
	}
	return uint(id), nil
}

// visibleUser loads :id if the caller may see it, 404 otherwise.
func visibleUser(c *fiber.Ctx) (*models.User, error) {
	id, err := userParam(c)
	if err != nil {
		return nil, err
	}
	actorID, _ := auth.CurrentUserID(c)
	if !canView(actorID, auth.IsAdmin(c), id) {
		return nil, fiber.NewError(fiber.StatusNotFound, "Not found.")
	}

	var user models.User
	if err := database.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Not found.")
		}
		return nil, fiber.NewError(fiber.StatusInternalServerError, "User could not be loaded")
	}
	return &user, nil
}

func writeAudit(c *fiber.Ctx, opts audit.LogOptions) {
	if opts.UserID == 0 {
		opts.UserID, _ = auth.CurrentUserID(c)
		opts.UserEmail = auth.CurrentEmail(c)
	}
	if err := audit.WriteLog(opts); err != nil {
		log.Printf("[WARN] %v", err)
	}
}

// POST /api/users
func SignUpHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body SignUpRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := validateSignUp(&body, cfg.AllowedEmailDomain); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var count int64
		database.DB.Model(&models.User{}).Where("email = ?", body.Email).Count(&count)
		if count > 0 {
			return fiber.NewError(fiber.StatusBadRequest, "user with this email already exists.")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Password could not be hashed")
		}

		user := models.User{
			Email:        body.Email,
			FirstName:    body.FirstName,
			LastName:     body.LastName,
			PasswordHash: string(hash),
			IsActive:     false,
		}
		if err := database.DB.Create(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "User could not be created")
		}

		resp := NewUserResponse(user, nil)
		writeAudit(c, audit.LogOptions{
			UserID:      user.ID,
			UserEmail:   user.Email,
			EntityType:  "user",
			EntityID:    user.ID,
			Action:      models.AuditActionCreate,
			Description: "Sign-up pending approval: " + user.Email,
			After:       resp,
		})

		return c.Status(fiber.StatusCreated).JSON(resp)
	}
}

// POST /api/users/check-email
func CheckEmailHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CheckEmailRequest
		if err := c.BodyParser(&body); err != nil || body.Email == nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "email is required!"})
		}

		email := *body.Email
		if !ValidEmail(email) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"email": fmt.Sprintf("Email '%s' is not valid!", email),
			})
		}

		var count int64
		if err := database.DB.Model(&models.User{}).Where("email = ?", normalizeEmail(email)).Count(&count).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Email could not be checked")
		}

		return c.JSON(fiber.Map{"email": email, "exists": count > 0})
	}
}

// GET /api/users
func ListUsersHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := pagination.Parse(c, cfg.PageSize)
		if err != nil {
			return err
		}

		dbq := database.DB.Model(&models.User{}).Order("id")
		if !auth.IsAdmin(c) {
			actorID, _ := auth.CurrentUserID(c)
			dbq = dbq.Where("id = ?", actorID)
		}

		var list []models.User
		meta, err := pagination.Find(c, dbq, p, &list)
		if err != nil {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return err
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Users could not be listed")
		}

		var pending []models.User
		for _, u := range list {
			if u.IsAdmin {
				if pending, err = pendingRequests(); err != nil {
					return fiber.NewError(fiber.StatusInternalServerError, "Pending requests could not be loaded")
				}
				break
			}
		}

		resp := make([]UserResponse, 0, len(list))
		for _, u := range list {
			resp = append(resp, NewUserResponse(u, pending))
		}
		return c.JSON(pagination.NewPage(meta, resp))
	}
}

// GET /api/users/:id
func GetUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := visibleUser(c)
		if err != nil {
			return err
		}
		resp, err := respond(*user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Pending requests could not be loaded")
		}
		return c.JSON(resp)
	}
}

// PATCH /api/users/:id
func UpdateUserHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := visibleUser(c)
		if err != nil {
			return err
		}

		var body UpdateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		before := NewUserResponse(*user, nil)
		if err := applyUpdate(user, &body, cfg.AllowedEmailDomain); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if user.Email != before.Email {
			var count int64
			database.DB.Model(&models.User{}).Where("email = ? AND id <> ?", user.Email, user.ID).Count(&count)
			if count > 0 {
				return fiber.NewError(fiber.StatusBadRequest, "user with this email already exists.")
			}
		}

		if err := database.DB.Save(user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "User could not be updated")
		}

		writeAudit(c, audit.LogOptions{
			EntityType:  "user",
			EntityID:    user.ID,
			Action:      models.AuditActionUpdate,
			Description: "User updated: " + user.Email,
			Before:      before,
			After:       NewUserResponse(*user, nil),
		})

		resp, err := respond(*user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Pending requests could not be loaded")
		}
		return c.JSON(resp)
	}
}

// DELETE /api/users/:id
func DeleteUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !auth.IsAdmin(c) {
			return fiber.NewError(fiber.StatusMethodNotAllowed, `Method "DELETE" not allowed.`)
		}

		user, err := visibleUser(c)
		if err != nil {
			return err
		}

		if err := database.DB.Delete(&models.User{}, user.ID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "User could not be deleted")
		}

		writeAudit(c, audit.LogOptions{
			EntityType:  "user",
			EntityID:    user.ID,
			Action:      models.AuditActionDelete,
			Description: "User deleted: " + user.Email,
			Before:      NewUserResponse(*user, nil),
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/users/:id/approve
func ApproveUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := visibleUser(c)
		if err != nil {
			return err
		}

		if !user.IsActive {
			if err := database.DB.Model(user).Update("is_active", true).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "User could not be approved")
			}
			user.IsActive = true

			writeAudit(c, audit.LogOptions{
				EntityType:  "user",
				EntityID:    user.ID,
				Action:      models.AuditActionApprove,
				Description: "User approved: " + user.Email,
				Before:      fiber.Map{"is_active": false},
				After:       fiber.Map{"is_active": true},
			})
		}

		resp, err := respond(*user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Pending requests could not be loaded")
		}
		return c.JSON(resp)
	}
}
