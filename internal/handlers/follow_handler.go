package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/dto"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/follow"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/users"
)

type FollowHandler struct {
	graph *follow.Graph
}

func NewFollowHandler(graph *follow.Graph) *FollowHandler {
	return &FollowHandler{graph: graph}
}

// Request asks to follow the user named in the body.
func (h *FollowHandler) Request(c *fiber.Ctx) error {
	sess, err := middleware.GetSession(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	var req dto.FollowRequestBody
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := dto.Validate(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.graph.CreateFollowRequest(c.UserContext(), sess.Username, req.Username); err != nil {
		return h.graphError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.MessageResponse{Message: "Follow request sent"})
}

// Requests lists who is waiting for the caller's answer.
func (h *FollowHandler) Requests(c *fiber.Ctx) error {
	return h.list(c, h.graph.FollowRequests)
}

func (h *FollowHandler) Followers(c *fiber.Ctx) error {
	return h.list(c, h.graph.Followers)
}

func (h *FollowHandler) Followings(c *fiber.Ctx) error {
	return h.list(c, h.graph.Followings)
}

func (h *FollowHandler) Accept(c *fiber.Ctx) error {
	return h.handle(c, true)
}

func (h *FollowHandler) Deny(c *fiber.Ctx) error {
	return h.handle(c, false)
}

func (h *FollowHandler) Unfollow(c *fiber.Ctx) error {
	sess, err := middleware.GetSession(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	if err := h.graph.Unfollow(c.UserContext(), sess.Username, c.Params("username")); err != nil {
		return h.graphError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Unfollowed"})
}

func (h *FollowHandler) RemoveFollower(c *fiber.Ctx) error {
	sess, err := middleware.GetSession(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	if err := h.graph.RemoveFollower(c.UserContext(), sess.Username, c.Params("username")); err != nil {
		return h.graphError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Follower removed"})
}

// handle answers a pending request. Answering a request that was never made
// is a 404, so nobody can be made to follow the caller.
func (h *FollowHandler) handle(c *fiber.Ctx, accept bool) error {
	sess, err := middleware.GetSession(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	requester := c.Params("username")
	if !users.ValidUsername(requester) {
		return fail(c, fiber.StatusBadRequest, users.ErrInvalidUsername.Error())
	}

	pending, err := h.graph.HasRequested(c.UserContext(), requester, sess.Username)
	if err != nil {
		return h.graphError(c, err)
	}
	if !pending {
		return fail(c, fiber.StatusNotFound, "No pending follow request")
	}
	if err := h.graph.HandleFollowRequest(c.UserContext(), sess.Username, requester, accept); err != nil {
		return h.graphError(c, err)
	}

	msg := "Follow request denied"
	if accept {
		msg = "Follow request accepted"
	}
	return c.JSON(dto.MessageResponse{Message: msg})
}

func (h *FollowHandler) list(c *fiber.Ctx, fetch func(ctx context.Context, username string) ([]string, error)) error {
	sess, err := middleware.GetSession(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	names, err := fetch(c.UserContext(), sess.Username)
	if err != nil {
		return h.graphError(c, err)
	}
	return c.JSON(dto.NewUsernamesResponse(names))
}

func (h *FollowHandler) graphError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, follow.ErrSelfFollow), errors.Is(err, follow.ErrInvalidUsername):
		return fail(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, follow.ErrAlreadyFollowing):
		return fail(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, follow.ErrUnknownUser):
		return fail(c, fiber.StatusNotFound, "User not found")
	}
	return serverError(c, fiber.StatusInternalServerError, "Follow graph unavailable", err)
}
