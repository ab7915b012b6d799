package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/config"
)

func signed(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func newApp(cfg *config.Config) *fiber.App {
	app := fiber.New()
	app.Get("/me", JWTProtected(cfg), SessionRequired(), func(c *fiber.Ctx) error {
		sess, err := GetSession(c)
		if err != nil {
			return err
		}
		return c.SendString(sess.Username)
	})
	return app
}

func TestSessionFromToken(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "s3cret"}}
	app := newApp(cfg)

	tok := signed(t, "s3cret", jwt.MapClaims{
		"sub":      "9b2f7a54-1c3e-4d2a-9f0e-2a6b8f1d3c4e",
		"username": "ana",
		"exp":      time.Now().Add(time.Minute).Unix(),
	})
	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestSessionRejectsMissingUsername(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "s3cret"}}
	app := newApp(cfg)

	tok := signed(t, "s3cret", jwt.MapClaims{
		"sub": "9b2f7a54-1c3e-4d2a-9f0e-2a6b8f1d3c4e",
		"exp": time.Now().Add(time.Minute).Unix(),
	})
	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "s3cret"}}
	app := newApp(cfg)

	tok := signed(t, "other", jwt.MapClaims{"sub": "x", "username": "ana"})
	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
