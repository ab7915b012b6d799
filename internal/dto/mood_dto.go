package dto

import (
	"errors"
	"time"

	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/geocell"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/mood"
)

var ErrPartialLocation = errors.New("latitude and longitude must be given together")

// CreateMoodRequest is the body of POST /api/moods. Latitude and longitude
// are given together or not at all.
type CreateMoodRequest struct {
	EmotionalState  string     `json:"emotional_state" validate:"required"`
	Timestamp       *time.Time `json:"timestamp,omitempty"`
	Trigger         string     `json:"trigger" validate:"omitempty,max=200"`
	SocialSituation string     `json:"social_situation" validate:"omitempty,max=100"`
	Latitude        *float64   `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude       *float64   `json:"longitude,omitempty" validate:"omitempty,longitude"`
	Picture         string     `json:"picture" validate:"omitempty,max=512"`
	Visibility      string     `json:"visibility" validate:"omitempty,oneof=public private"`
}

// UpdateMoodRequest is the body of PATCH /api/moods/:id. Absent fields are
// left alone; ClearLocation drops the location.
type UpdateMoodRequest struct {
	EmotionalState  *string    `json:"emotional_state,omitempty"`
	Timestamp       *time.Time `json:"timestamp,omitempty"`
	Trigger         *string    `json:"trigger,omitempty" validate:"omitempty,max=200"`
	SocialSituation *string    `json:"social_situation,omitempty" validate:"omitempty,max=100"`
	Latitude        *float64   `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude       *float64   `json:"longitude,omitempty" validate:"omitempty,longitude"`
	ClearLocation   bool       `json:"clear_location,omitempty"`
	Picture         *string    `json:"picture,omitempty" validate:"omitempty,max=512"`
}

// MoodListQuery holds the query string of GET /api/moods.
type MoodListQuery struct {
	View      string   `query:"view" validate:"required"`
	State     string   `query:"state"`
	Reason    string   `query:"reason" validate:"omitempty,max=100"`
	Latitude  *float64 `query:"lat" validate:"omitempty,latitude"`
	Longitude *float64 `query:"lon" validate:"omitempty,longitude"`
}

type MoodListResponse struct {
	View  string            `json:"view"`
	Count int               `json:"count"`
	Moods []*mood.MoodEvent `json:"moods"`
}

// Cell returns the geocell of the given coordinates, or "" when none were
// given.
func (r *CreateMoodRequest) Cell() (geocell.Cell, error) {
	return cell(r.Latitude, r.Longitude)
}

func (r *UpdateMoodRequest) Cell() (geocell.Cell, error) {
	return cell(r.Latitude, r.Longitude)
}

func (q *MoodListQuery) Cell() (geocell.Cell, error) {
	return cell(q.Latitude, q.Longitude)
}

func cell(lat, lon *float64) (geocell.Cell, error) {
	switch {
	case lat == nil && lon == nil:
		return "", nil
	case lat == nil || lon == nil:
		return "", ErrPartialLocation
	}
	return geocell.Encode(*lat, *lon), nil
}
