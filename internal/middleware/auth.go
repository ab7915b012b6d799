package middleware

import (
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/config"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/dto"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/session"
)

const sessionKey = "session"

func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: []byte(cfg.JWT.Secret)},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Unauthorized: invalid or expired token",
			})
		},
	})
}

// SessionRequired resolves the JWT claims into a session.Session. It must run
// after JWTProtected.
func SessionRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := session.FromFiber(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Unauthorized",
			})
		}
		c.Locals(sessionKey, sess)
		return c.Next()
	}
}

// GetSession returns the session stored by SessionRequired.
func GetSession(c *fiber.Ctx) (session.Session, error) {
	sess, ok := c.Locals(sessionKey).(session.Session)
	if !ok || !sess.Valid() {
		return session.Session{}, session.ErrNoSession
	}
	return sess, nil
}
