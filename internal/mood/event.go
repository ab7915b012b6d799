// Package mood holds the mood event record, its storage shapes, and the rules
// that decide whether a stored record may be admitted into a list.
package mood

import (
	"errors"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/geocell"
)

// Stored field names.
const (
	FieldID              = "id"
	FieldEmotionalState  = "emotional_state"
	FieldTimestamp       = "timestamp"
	FieldTrigger         = "trigger"
	FieldSocialSituation = "social_situation"
	FieldLocation        = "location"
	FieldPicture         = "picture"
	FieldVisibility      = "visibility"
	FieldUsername        = "username"
	FieldMoodID          = "mood_id"
)

// MoodEvent is a single journaled emotional record. Two events are the same
// event when their IDs match, whatever their other fields hold.
type MoodEvent struct {
	ID              string         `json:"id"`
	EmotionalState  EmotionalState `json:"emotional_state"`
	Timestamp       time.Time      `json:"timestamp"`
	Trigger         string         `json:"trigger,omitempty"`
	SocialSituation string         `json:"social_situation,omitempty"`
	Location        geocell.Cell   `json:"location,omitempty"`
	Picture         string         `json:"picture,omitempty"`
	Username        string         `json:"username,omitempty"`
	Visibility      Visibility     `json:"visibility,omitempty"`
}

// SameAs reports identity by ID. Events without an ID are never the same.
func (e *MoodEvent) SameAs(other *MoodEvent) bool {
	if e == nil || other == nil || e.ID == "" {
		return false
	}
	return e.ID == other.ID
}

// HasLocation reports whether a location was attached.
func (e *MoodEvent) HasLocation() bool { return e.Location != "" }

// Clone returns a copy safe to hand out of a list.
func (e *MoodEvent) Clone() *MoodEvent {
	c := *e
	return &c
}

// PersonalData is the form written under the author's own collection. The
// owner is implied by the path, so username is never included.
func (e *MoodEvent) PersonalData() map[string]any {
	d := map[string]any{
		FieldID:             e.ID,
		FieldEmotionalState: e.EmotionalState.Code(),
		FieldTimestamp:      e.Timestamp.UTC(),
	}
	if e.Trigger != "" {
		d[FieldTrigger] = e.Trigger
	}
	if e.SocialSituation != "" {
		d[FieldSocialSituation] = e.SocialSituation
	}
	if e.Location != "" {
		d[FieldLocation] = string(e.Location)
	}
	if e.Picture != "" {
		d[FieldPicture] = e.Picture
	}
	if e.Visibility != "" {
		d[FieldVisibility] = string(e.Visibility)
	}
	return d
}

// RecentData is the form written to the most-recent projection for username.
func (e *MoodEvent) RecentData(username string) map[string]any {
	d := e.PersonalData()
	d[FieldUsername] = username
	d[FieldMoodID] = e.ID
	return d
}

// FromPersonalData reads a record from a personal collection. owner is stamped
// on the result since personal records do not carry it.
func FromPersonalData(d map[string]any, owner string) (*MoodEvent, error) {
	if err := ValidatePersonal(d); err != nil {
		return nil, err
	}
	e, err := decode(d, ShapePersonal)
	if err != nil {
		return nil, err
	}
	e.Username = owner
	return e, nil
}

// FromRecentData reads a record from the most-recent projection.
func FromRecentData(d map[string]any) (*MoodEvent, error) {
	if err := ValidateRecent(d); err != nil {
		return nil, err
	}
	e, err := decode(d, ShapeRecent)
	if err != nil {
		return nil, err
	}
	e.Username = d[FieldUsername].(string)
	return e, nil
}

// RecentMoodID returns the event a projection record points at.
func RecentMoodID(d map[string]any) string {
	if id, ok := d[FieldMoodID].(string); ok && id != "" {
		return id
	}
	id, _ := d[FieldID].(string)
	return id
}

func decode(d map[string]any, shape Shape) (*MoodEvent, error) {
	code, _ := asInt64(d[FieldEmotionalState])
	state, err := EmotionalStateFromCode(code)
	if err != nil {
		return nil, &IntegrityError{Shape: shape, Field: FieldEmotionalState, Reason: err.Error()}
	}

	e := &MoodEvent{
		ID:             d[FieldID].(string),
		EmotionalState: state,
		Timestamp:      d[FieldTimestamp].(time.Time),
	}

	optional := []struct {
		field string
		dst   *string
	}{
		{FieldTrigger, &e.Trigger},
		{FieldSocialSituation, &e.SocialSituation},
		{FieldPicture, &e.Picture},
	}
	for _, o := range optional {
		s, err := optionalString(d, o.field, shape)
		if err != nil {
			return nil, err
		}
		*o.dst = s
	}

	loc, err := optionalString(d, FieldLocation, shape)
	if err != nil {
		return nil, err
	}
	if loc != "" && !geocell.Cell(loc).Valid() {
		return nil, &IntegrityError{Shape: shape, Field: FieldLocation, Reason: "not a geocell"}
	}
	e.Location = geocell.Cell(loc)

	vis, err := optionalString(d, FieldVisibility, shape)
	if err != nil {
		return nil, err
	}
	e.Visibility = Visibility(vis)

	return e, nil
}

func optionalString(d map[string]any, field string, shape Shape) (string, error) {
	v, ok := d[field]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", &IntegrityError{Shape: shape, Field: field, Reason: fmt.Sprintf("expected string, got %T", v)}
	}
	return s, nil
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	default:
		return 0, false
	}
}

// ErrInvalidEvent is returned for events that cannot be written at all.
var ErrInvalidEvent = errors.New("invalid mood event")
