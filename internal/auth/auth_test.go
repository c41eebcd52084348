package auth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"casper-backend/internal/config"
	"casper-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:            "0123456789abcdef0123456789abcdef",
		AccessTokenLifetime:  time.Hour,
		RefreshTokenLifetime: 24 * time.Hour,
		RotateRefreshTokens:  true,
	}
}

var (
	ana   = &models.User{ID: 3, Email: "ana@belf.com", IsActive: true}
	admin = &models.User{ID: 1, Email: "root@belf.com", IsActive: true, IsAdmin: true}
)

func TestTokenRoundTrip(t *testing.T) {
	cfg := testConfig()

	pair, err := GeneratePair(cfg, admin)
	require.NoError(t, err)
	assert.NotEqual(t, pair.Access, pair.Refresh)

	claims, err := ParseToken(cfg.JWTSecret, pair.Access, AccessToken)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, claims.UserID)
	assert.Equal(t, "1", claims.Subject)
	assert.True(t, claims.IsAdmin)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)

	refresh, err := ParseToken(cfg.JWTSecret, pair.Refresh, RefreshToken)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), refresh.ExpiresAt.Time, time.Minute)
	assert.NotEqual(t, claims.ID, refresh.ID)
}

func TestParseTokenRejects(t *testing.T) {
	cfg := testConfig()
	pair, err := GeneratePair(cfg, ana)
	require.NoError(t, err)

	_, err = ParseToken(cfg.JWTSecret, pair.Refresh, AccessToken)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	_, err = ParseToken("another-secret-another-secret-xx", pair.Access, AccessToken)
	assert.Error(t, err)

	_, err = ParseToken(cfg.JWTSecret, "not.a.token", "")
	assert.Error(t, err)

	expired := testConfig()
	expired.AccessTokenLifetime = -time.Minute
	old, err := GenerateToken(expired, ana, AccessToken)
	require.NoError(t, err)
	_, err = ParseToken(cfg.JWTSecret, old, AccessToken)
	assert.Error(t, err)
}

func protectedApp(cfg *config.Config) *fiber.App {
	app := fiber.New()
	app.Get("/me", JWTMiddleware(cfg), func(c *fiber.Ctx) error {
		id, _ := CurrentUserID(c)
		return c.JSON(fiber.Map{"id": id, "email": CurrentEmail(c), "admin": IsAdmin(c)})
	})
	app.Get("/admin", JWTMiddleware(cfg), RequireAdmin(), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	app.Post("/verify", VerifyTokenHandler(cfg))
	return app
}

func get(t *testing.T, app *fiber.App, path, authHeader string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestJWTMiddleware(t *testing.T) {
	cfg := testConfig()
	app := protectedApp(cfg)
	pair, err := GeneratePair(cfg, ana)
	require.NoError(t, err)

	status, _ := get(t, app, "/me", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = get(t, app, "/me", "Token "+pair.Access)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = get(t, app, "/me", "Bearer "+pair.Refresh)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, body := get(t, app, "/me", "Bearer "+pair.Access)
	assert.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"id":3,"email":"ana@belf.com","admin":false}`, body)
}

func TestRequireAdmin(t *testing.T) {
	cfg := testConfig()
	app := protectedApp(cfg)

	user, err := GenerateToken(cfg, ana, AccessToken)
	require.NoError(t, err)
	status, _ := get(t, app, "/admin", "Bearer "+user)
	assert.Equal(t, fiber.StatusForbidden, status)

	root, err := GenerateToken(cfg, admin, AccessToken)
	require.NoError(t, err)
	status, body := get(t, app, "/admin", "Bearer "+root)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", body)
}

func TestVerifyTokenHandler(t *testing.T) {
	cfg := testConfig()
	app := protectedApp(cfg)
	refresh, err := GenerateToken(cfg, ana, RefreshToken)
	require.NoError(t, err)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"refresh token is accepted", `{"token":"` + refresh + `"}`, fiber.StatusOK},
		{"garbage", `{"token":"abc"}`, fiber.StatusUnauthorized},
		{"missing", `{}`, fiber.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/verify", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}
