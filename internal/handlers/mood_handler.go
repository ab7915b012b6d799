package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/dto"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/geocell"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/mood"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/moodlist"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/services"
)

const listTimeout = 10 * time.Second

// MoodHandler serves one-shot reads and writes over the live mood lists.
// Every request opens a list, waits for its first delivery and closes it.
type MoodHandler struct {
	factory *moodlist.Factory
	filter  *services.ContentFilter
	now     func() time.Time
}

func NewMoodHandler(factory *moodlist.Factory, filter *services.ContentFilter) *MoodHandler {
	return &MoodHandler{factory: factory, filter: filter, now: time.Now}
}

// List handles GET /api/moods?view=...&state=...&reason=...&lat=...&lon=...
func (h *MoodHandler) List(c *fiber.Ctx) error {
	var req dto.MoodListQuery
	if err := c.QueryParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid query parameters")
	}
	if err := dto.Validate(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}
	q, err := buildQuery(&req)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	return h.withList(c, q, func(_ context.Context, list *moodlist.Engine) error {
		moods := list.MoodEvents()
		return c.JSON(dto.MoodListResponse{
			View:  q.Type().String(),
			Count: len(moods),
			Moods: moods,
		})
	})
}

func (h *MoodHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateMoodRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := dto.Validate(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}
	state, err := mood.ParseEmotionalState(req.EmotionalState)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}
	cell, err := req.Cell()
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}
	if err := h.screen(req.Trigger, req.SocialSituation); err != nil {
		return fail(c, fiber.StatusUnprocessableEntity, err.Error())
	}

	ts := h.now().UTC()
	if req.Timestamp != nil {
		ts = req.Timestamp.UTC()
	}
	ev := &mood.MoodEvent{
		EmotionalState:  state,
		Timestamp:       ts,
		Trigger:         req.Trigger,
		SocialSituation: req.SocialSituation,
		Location:        cell,
		Picture:         req.Picture,
		Visibility:      mood.Visibility(req.Visibility),
	}

	return h.withList(c, moodlist.PersonalModifiable{}, func(ctx context.Context, list *moodlist.Engine) error {
		added, err := list.Add(ctx, ev)
		if err != nil {
			return h.moodError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(added)
	})
}

func (h *MoodHandler) Update(c *fiber.Ctx) error {
	id := c.Params("id")
	var req dto.UpdateMoodRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := dto.Validate(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}
	changes, err := toChanges(&req)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}
	if changes.Empty() {
		return fail(c, fiber.StatusBadRequest, "No changes given")
	}
	if err := h.screen(deref(req.Trigger), deref(req.SocialSituation)); err != nil {
		return fail(c, fiber.StatusUnprocessableEntity, err.Error())
	}

	return h.withList(c, moodlist.PersonalModifiable{}, func(ctx context.Context, list *moodlist.Engine) error {
		edited, err := list.Edit(ctx, &mood.MoodEvent{ID: id}, changes)
		if err != nil {
			return h.moodError(c, err)
		}
		return c.JSON(edited)
	})
}

func (h *MoodHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")

	return h.withList(c, moodlist.PersonalModifiable{}, func(ctx context.Context, list *moodlist.Engine) error {
		if !contains(list.MoodEvents(), id) {
			return fail(c, fiber.StatusNotFound, "Mood not found")
		}
		if err := list.Delete(ctx, &mood.MoodEvent{ID: id}); err != nil {
			return h.moodError(c, err)
		}
		return c.JSON(dto.MessageResponse{Message: "Mood deleted"})
	})
}

// withList opens q for the caller, waits for the first delivery and runs fn
// against the resolved list.
func (h *MoodHandler) withList(c *fiber.Ctx, q moodlist.Query, fn func(ctx context.Context, list *moodlist.Engine) error) error {
	sess, err := middleware.GetSession(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), listTimeout)
	defer cancel()

	list, err := h.factory.Open(ctx, sess, q)
	if err != nil {
		return h.moodError(c, err)
	}
	defer list.Close()

	if err := list.Await(ctx); err != nil {
		return h.moodError(c, err)
	}
	return fn(ctx, list)
}

func (h *MoodHandler) screen(trigger, situation string) error {
	return h.filter.CheckFields(map[string]string{
		mood.FieldTrigger:         trigger,
		mood.FieldSocialSituation: situation,
	}, mood.FieldTrigger, mood.FieldSocialSituation)
}

func (h *MoodHandler) moodError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, moodlist.ErrNotInList):
		return fail(c, fiber.StatusNotFound, "Mood not found")
	case moodlist.IsConfigurationError(err), errors.Is(err, mood.ErrInvalidEvent):
		return fail(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, mood.ErrIntegrity):
		return serverError(c, fiber.StatusInternalServerError, "Stored mood data is malformed", err)
	case errors.Is(err, moodlist.ErrConsistencyViolation):
		return serverError(c, fiber.StatusInternalServerError, "Recent mood could not be updated", err)
	case errors.Is(err, context.DeadlineExceeded):
		return serverError(c, fiber.StatusGatewayTimeout, "Mood list timed out", err)
	case errors.Is(err, moodlist.ErrStore):
		return serverError(c, fiber.StatusServiceUnavailable, "Mood store unavailable", err)
	}
	return serverError(c, fiber.StatusInternalServerError, "Internal server error", err)
}

func buildQuery(req *dto.MoodListQuery) (moodlist.Query, error) {
	t, err := moodlist.ParseQueryType(req.View)
	if err != nil {
		return nil, err
	}

	var state mood.EmotionalState
	if t == moodlist.QueryPersonalByState || t == moodlist.QueryFollowingByState {
		if state, err = mood.ParseEmotionalState(req.State); err != nil {
			return nil, fmt.Errorf("%w: %w", moodlist.ErrInvalidQuery, err)
		}
	}

	switch t {
	case moodlist.QueryPersonalModifiable:
		return moodlist.PersonalModifiable{}, nil
	case moodlist.QueryPersonalRecent:
		return moodlist.PersonalRecent{}, nil
	case moodlist.QueryPersonalByState:
		return moodlist.PersonalByState{State: state}, nil
	case moodlist.QueryPersonalByReason:
		return moodlist.PersonalByReason{Reason: req.Reason}, nil
	case moodlist.QueryFollowing:
		return moodlist.Following{}, nil
	case moodlist.QueryFollowingRecent:
		return moodlist.FollowingRecent{}, nil
	case moodlist.QueryFollowingByState:
		return moodlist.FollowingByState{State: state}, nil
	case moodlist.QueryFollowingByReason:
		return moodlist.FollowingByReason{Reason: req.Reason}, nil
	case moodlist.QueryMapPersonal:
		return moodlist.MapPersonal{}, nil
	case moodlist.QueryMapFollowing:
		return moodlist.MapFollowing{}, nil
	case moodlist.QueryMapClose:
		cell, err := req.Cell()
		if err != nil {
			return nil, err
		}
		if cell == "" {
			return nil, fmt.Errorf("%w: lat and lon are required for %s", moodlist.ErrInvalidQuery, t)
		}
		return moodlist.MapClose{Center: cell}, nil
	}
	return nil, fmt.Errorf("%w: %s", moodlist.ErrInvalidQuery, t)
}

func toChanges(req *dto.UpdateMoodRequest) (mood.Changes, error) {
	ch := mood.Changes{
		Trigger:         req.Trigger,
		SocialSituation: req.SocialSituation,
		Picture:         req.Picture,
		Timestamp:       req.Timestamp,
	}
	if req.EmotionalState != nil {
		state, err := mood.ParseEmotionalState(*req.EmotionalState)
		if err != nil {
			return mood.Changes{}, err
		}
		ch.EmotionalState = &state
	}

	cell, err := req.Cell()
	if err != nil {
		return mood.Changes{}, err
	}
	switch {
	case req.ClearLocation && cell != "":
		return mood.Changes{}, errors.New("clear_location conflicts with latitude and longitude")
	case req.ClearLocation:
		var none geocell.Cell
		ch.Location = &none
	case cell != "":
		ch.Location = &cell
	}
	return ch, nil
}

func contains(list []*mood.MoodEvent, id string) bool {
	for _, ev := range list {
		if ev.ID == id {
			return true
		}
	}
	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
