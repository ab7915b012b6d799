package mood

import (
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/geocell"
)

// Changes lists the fields an edit may touch. Nil fields are left alone; an
// empty string clears an optional text field or the location.
type Changes struct {
	EmotionalState  *EmotionalState `json:"emotional_state,omitempty"`
	Trigger         *string         `json:"trigger,omitempty"`
	SocialSituation *string         `json:"social_situation,omitempty"`
	Location        *geocell.Cell   `json:"location,omitempty"`
	Picture         *string         `json:"picture,omitempty"`
	Timestamp       *time.Time      `json:"timestamp,omitempty"`
}

// Empty reports whether no field is set.
func (c Changes) Empty() bool {
	return c.EmotionalState == nil && c.Trigger == nil && c.SocialSituation == nil &&
		c.Location == nil && c.Picture == nil && c.Timestamp == nil
}

// Validate rejects values an event may not hold.
func (c Changes) Validate() error {
	if c.EmotionalState != nil && !c.EmotionalState.Valid() {
		return fmt.Errorf("%w: emotional state %d", ErrInvalidEvent, int(*c.EmotionalState))
	}
	if c.Timestamp != nil && c.Timestamp.IsZero() {
		return fmt.Errorf("%w: zero timestamp", ErrInvalidEvent)
	}
	if c.Location != nil && *c.Location != "" && !c.Location.Valid() {
		return fmt.Errorf("%w: location %q is not a geocell", ErrInvalidEvent, *c.Location)
	}
	return nil
}

// Apply writes the set fields onto e.
func (c Changes) Apply(e *MoodEvent) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.EmotionalState != nil {
		e.EmotionalState = *c.EmotionalState
	}
	if c.Trigger != nil {
		e.Trigger = *c.Trigger
	}
	if c.SocialSituation != nil {
		e.SocialSituation = *c.SocialSituation
	}
	if c.Location != nil {
		e.Location = *c.Location
	}
	if c.Picture != nil {
		e.Picture = *c.Picture
	}
	if c.Timestamp != nil {
		e.Timestamp = c.Timestamp.UTC()
	}
	return nil
}
