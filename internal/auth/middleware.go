package auth

import (
	"strings"

	"casper-backend/internal/config"

	"github.com/gofiber/fiber/v2"
)

const (
	CtxUserIDKey  = "user_id"
	CtxEmailKey   = "user_email"
	CtxIsAdminKey = "is_admin"
)

func bearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "Authentication credentials were not provided.")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "Authorization header must be 'Bearer <token>'")
	}
	return parts[1], nil
}

// JWTMiddleware accepts access tokens only.
func JWTMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr, err := bearerToken(c)
		if err != nil {
			return err
		}

		claims, err := ParseToken(cfg.JWTSecret, tokenStr, AccessToken)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Given token not valid for any token type")
		}

		c.Locals(CtxUserIDKey, claims.UserID)
		c.Locals(CtxEmailKey, claims.Email)
		c.Locals(CtxIsAdminKey, claims.IsAdmin)

		return c.Next()
	}
}

func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !IsAdmin(c) {
			return fiber.NewError(fiber.StatusForbidden, "You do not have permission to perform this action.")
		}
		return c.Next()
	}
}

// CurrentUserID: id of the authenticated user, false on public routes
func CurrentUserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(CtxUserIDKey).(uint)
	return id, ok && id > 0
}

func CurrentEmail(c *fiber.Ctx) string {
	email, _ := c.Locals(CtxEmailKey).(string)
	return email
}

func IsAdmin(c *fiber.Ctx) bool {
	admin, _ := c.Locals(CtxIsAdminKey).(bool)
	return admin
}
