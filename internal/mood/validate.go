package mood

import (
	"errors"
	"fmt"
	"time"
)

// Shape names the destination a record is validated for.
type Shape string

const (
	ShapePersonal Shape = "personal"
	ShapeRecent   Shape = "recent"
)

// ErrIntegrity is matched by every IntegrityError.
var ErrIntegrity = errors.New("mood record integrity violation")

// IntegrityError reports a stored record that is missing a required typed
// field. It is never recoverable: a list refresh that meets one fails whole.
type IntegrityError struct {
	Shape  Shape
	Field  string
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s record: field %q: %s", e.Shape, e.Field, e.Reason)
}

func (e *IntegrityError) Unwrap() error { return ErrIntegrity }

// ValidatePersonal checks the personal shape: typed timestamp, numeric
// emotional state code, and string id. The owner comes from the path, so a
// username field is rejected.
func ValidatePersonal(d map[string]any) error {
	if err := validateCommon(d, ShapePersonal); err != nil {
		return err
	}
	if _, ok := d[FieldUsername]; ok {
		return &IntegrityError{Shape: ShapePersonal, Field: FieldUsername, Reason: "not allowed on personal records"}
	}
	return nil
}

// ValidateRecent checks the recent shape: the personal fields plus a string
// username.
func ValidateRecent(d map[string]any) error {
	if err := validateCommon(d, ShapeRecent); err != nil {
		return err
	}
	if err := requireString(d, FieldUsername, ShapeRecent); err != nil {
		return err
	}
	if v, ok := d[FieldMoodID]; ok {
		if _, isString := v.(string); !isString {
			return &IntegrityError{Shape: ShapeRecent, Field: FieldMoodID, Reason: fmt.Sprintf("expected string, got %T", v)}
		}
	}
	return nil
}

func validateCommon(d map[string]any, shape Shape) error {
	if d == nil {
		return &IntegrityError{Shape: shape, Field: "", Reason: "record is empty"}
	}

	ts, ok := d[FieldTimestamp]
	if !ok || ts == nil {
		return &IntegrityError{Shape: shape, Field: FieldTimestamp, Reason: "missing"}
	}
	if t, isTime := ts.(time.Time); !isTime || t.IsZero() {
		return &IntegrityError{Shape: shape, Field: FieldTimestamp, Reason: fmt.Sprintf("expected timestamp, got %T", ts)}
	}

	state, ok := d[FieldEmotionalState]
	if !ok || state == nil {
		return &IntegrityError{Shape: shape, Field: FieldEmotionalState, Reason: "missing"}
	}
	if _, isInt := asInt64(state); !isInt {
		return &IntegrityError{Shape: shape, Field: FieldEmotionalState, Reason: fmt.Sprintf("expected numeric code, got %T", state)}
	}

	return requireString(d, FieldID, shape)
}

func requireString(d map[string]any, field string, shape Shape) error {
	v, ok := d[field]
	if !ok || v == nil {
		return &IntegrityError{Shape: shape, Field: field, Reason: "missing"}
	}
	s, isString := v.(string)
	if !isString {
		return &IntegrityError{Shape: shape, Field: field, Reason: fmt.Sprintf("expected string, got %T", v)}
	}
	if s == "" {
		return &IntegrityError{Shape: shape, Field: field, Reason: "empty"}
	}
	return nil
}
