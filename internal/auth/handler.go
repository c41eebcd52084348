package auth

import (
	"errors"
	"log"
	"strings"
	"time"

	"casper-backend/internal/config"
	"casper-backend/internal/database"
	"casper-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type ObtainTokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshTokenRequest struct {
	Refresh string `json:"refresh"`
}

type VerifyTokenRequest struct {
	Token string `json:"token"`
}

const noActiveAccount = "No active account found with the given credentials"

// POST /api/token
func ObtainTokenHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ObtainTokenRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))
		if body.Email == "" || body.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "email and password are required")
		}

		var user models.User
		if err := database.DB.Where("email = ?", body.Email).First(&user).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				log.Printf("Login lookup failed for %s: %v", body.Email, err)
			}
			return fiber.NewError(fiber.StatusUnauthorized, noActiveAccount)
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, noActiveAccount)
		}
		// pending sign-ups cannot log in until approved
		if !user.IsActive {
			return fiber.NewError(fiber.StatusUnauthorized, noActiveAccount)
		}

		pair, err := GeneratePair(cfg, &user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Token could not be created")
		}

		now := time.Now()
		if err := database.DB.Model(&user).Updates(map[string]interface{}{
			"last_login":    now,
			"last_login_ip": c.IP(),
		}).Error; err != nil {
			log.Printf("Last login of user %d could not be saved: %v", user.ID, err)
		}

		return c.JSON(pair)
	}
}

// POST /api/token/refresh
func RefreshTokenHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RefreshTokenRequest
		if err := c.BodyParser(&body); err != nil || body.Refresh == "" {
			return fiber.NewError(fiber.StatusBadRequest, "refresh is required")
		}

		claims, err := ParseToken(cfg.JWTSecret, body.Refresh, RefreshToken)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Token is invalid or expired")
		}

		var user models.User
		if err := database.DB.First(&user, claims.UserID).Error; err != nil || !user.IsActive {
			return fiber.NewError(fiber.StatusUnauthorized, noActiveAccount)
		}

		access, err := GenerateToken(cfg, &user, AccessToken)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Token could not be created")
		}

		resp := fiber.Map{"access": access}
		if cfg.RotateRefreshTokens {
			refresh, err := GenerateToken(cfg, &user, RefreshToken)
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Token could not be created")
			}
			resp["refresh"] = refresh
		}
		return c.JSON(resp)
	}
}

// POST /api/token/verify
func VerifyTokenHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body VerifyTokenRequest
		if err := c.BodyParser(&body); err != nil || body.Token == "" {
			return fiber.NewError(fiber.StatusBadRequest, "token is required")
		}

		if _, err := ParseToken(cfg.JWTSecret, body.Token, ""); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Token is invalid or expired")
		}
		return c.JSON(fiber.Map{})
	}
}
