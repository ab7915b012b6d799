package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/dto"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/services"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/users"
)

type UserHandler struct {
	directory *users.Directory
	filter    *services.ContentFilter
}

func NewUserHandler(directory *users.Directory, filter *services.ContentFilter) *UserHandler {
	return &UserHandler{directory: directory, filter: filter}
}

// Search handles GET /api/users?q=... The caller is left out of the result.
func (h *UserHandler) Search(c *fiber.Ctx) error {
	sess, err := middleware.GetSession(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	found, err := h.directory.Search(c.UserContext(), c.Query("q"), sess.Username)
	if err != nil {
		return serverError(c, fiber.StatusInternalServerError, "User search failed", err)
	}
	return c.JSON(dto.UserSearchResponse{Users: found, Count: len(found)})
}

func (h *UserHandler) Get(c *fiber.Ctx) error {
	u, err := h.directory.Get(c.UserContext(), c.Params("username"))
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return fail(c, fiber.StatusNotFound, "User not found")
		}
		return serverError(c, fiber.StatusInternalServerError, "Failed to load user", err)
	}
	return c.JSON(u)
}

func (h *UserHandler) Me(c *fiber.Ctx) error {
	sess, err := middleware.GetSession(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	u, err := h.directory.Get(c.UserContext(), sess.Username)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return fail(c, fiber.StatusNotFound, "User not found")
		}
		return serverError(c, fiber.StatusInternalServerError, "Failed to load user", err)
	}
	return c.JSON(u)
}

// Rename changes the caller's display name.
func (h *UserHandler) Rename(c *fiber.Ctx) error {
	sess, err := middleware.GetSession(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	var req dto.RenameRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := dto.Validate(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}
	if reason := h.filter.Check(req.Name); reason != "" {
		return fail(c, fiber.StatusUnprocessableEntity, (&services.RejectionError{Field: "name", Reason: reason}).Error())
	}

	u, err := h.directory.UpdateName(c.UserContext(), sess.Username, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrUserNotFound):
			return fail(c, fiber.StatusNotFound, "User not found")
		case errors.Is(err, users.ErrInvalidUsername):
			return fail(c, fiber.StatusBadRequest, "name is required")
		}
		return serverError(c, fiber.StatusInternalServerError, "Failed to rename user", err)
	}
	return c.JSON(u)
}
