// Package session carries the authenticated user through a request.
package session

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrNoSession = errors.New("no authenticated user")

// Session identifies who is acting. It is passed explicitly to every
// operation that needs a current user.
type Session struct {
	UserID   uuid.UUID
	Username string
}

func New(userID uuid.UUID, username string) Session {
	return Session{UserID: userID, Username: username}
}

func (s Session) Valid() bool { return s.Username != "" }

// FromFiber reads the session from the JWT claims stored by the auth middleware.
func FromFiber(c *fiber.Ctx) (Session, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return Session{}, ErrNoSession
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Session{}, errors.New("invalid claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return Session{}, errors.New("missing sub claim")
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return Session{}, err
	}
	username, ok := claims["username"].(string)
	if !ok || username == "" {
		return Session{}, errors.New("missing username claim")
	}
	return New(id, username), nil
}
