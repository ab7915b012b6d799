package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/dto"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/services"
)

type AuthHandler struct {
	authService *services.AuthService
	filter      *services.ContentFilter
}

func NewAuthHandler(authService *services.AuthService, filter *services.ContentFilter) *AuthHandler {
	return &AuthHandler{authService: authService, filter: filter}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := dto.Validate(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}
	if err := h.filter.CheckFields(map[string]string{"username": req.Username, "name": req.Name}, "username", "name"); err != nil {
		return fail(c, fiber.StatusUnprocessableEntity, err.Error())
	}

	resp, err := h.authService.Register(c.UserContext(), &req)
	if err != nil {
		if errors.Is(err, services.ErrUsernameTaken) {
			return fail(c, fiber.StatusConflict, err.Error())
		}
		return serverError(c, fiber.StatusInternalServerError, "Failed to register", err)
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := dto.Validate(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	resp, err := h.authService.Login(c.UserContext(), &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return fail(c, fiber.StatusUnauthorized, err.Error())
		}
		return serverError(c, fiber.StatusInternalServerError, "Internal server error", err)
	}

	return c.JSON(resp)
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := dto.Validate(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	resp, err := h.authService.Refresh(c.UserContext(), &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidToken) {
			return fail(c, fiber.StatusUnauthorized, err.Error())
		}
		return serverError(c, fiber.StatusInternalServerError, "Internal server error", err)
	}

	return c.JSON(resp)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req dto.LogoutRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := dto.Validate(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.authService.Logout(c.UserContext(), &req); err != nil {
		return serverError(c, fiber.StatusInternalServerError, "Failed to logout", err)
	}

	return c.JSON(dto.MessageResponse{Message: "Logged out successfully"})
}

// DeleteAccount removes the caller's credentials, profile, moods and follow
// graph.
func (h *AuthHandler) DeleteAccount(c *fiber.Ctx) error {
	sess, err := middleware.GetSession(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req dto.DeleteAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if err := h.authService.DeleteAccount(c.UserContext(), sess.UserID, req.Password); err != nil {
		switch {
		case errors.Is(err, services.ErrPasswordRequired):
			return fail(c, fiber.StatusBadRequest, "Password is required")
		case errors.Is(err, services.ErrInvalidCredentials):
			return fail(c, fiber.StatusUnauthorized, "Incorrect password. Please try again.")
		case errors.Is(err, services.ErrUserNotFound):
			return fail(c, fiber.StatusNotFound, "User not found")
		}
		return serverError(c, fiber.StatusInternalServerError, "Failed to delete account", err)
	}

	return c.JSON(dto.MessageResponse{Message: "Account deleted successfully"})
}
