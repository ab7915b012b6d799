package moodlist

import (
	"fmt"
	"strings"

	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/geocell"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/mood"
)

// QueryType names one of the list views.
type QueryType int

const (
	QueryPersonalModifiable QueryType = iota
	QueryPersonalRecent
	QueryPersonalByState
	QueryPersonalByReason
	QueryFollowing
	QueryFollowingRecent
	QueryFollowingByState
	QueryFollowingByReason
	QueryMapPersonal
	QueryMapFollowing
	QueryMapClose
)

var queryTypeNames = [...]string{
	QueryPersonalModifiable: "personal-modifiable",
	QueryPersonalRecent:     "personal-recent",
	QueryPersonalByState:    "personal-by-state",
	QueryPersonalByReason:   "personal-by-reason",
	QueryFollowing:          "following",
	QueryFollowingRecent:    "following-recent",
	QueryFollowingByState:   "following-by-state",
	QueryFollowingByReason:  "following-by-reason",
	QueryMapPersonal:        "map-personal",
	QueryMapFollowing:       "map-following",
	QueryMapClose:           "map-close",
}

func (t QueryType) String() string {
	if t < 0 || int(t) >= len(queryTypeNames) {
		return fmt.Sprintf("QueryType(%d)", int(t))
	}
	return queryTypeNames[t]
}

// ParseQueryType accepts the names produced by String.
func ParseQueryType(s string) (QueryType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range queryTypeNames {
		if name == s {
			return QueryType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown query type %q", ErrInvalidQuery, s)
}

// Personal reports whether the view reads the owner's own journal.
func (t QueryType) Personal() bool {
	switch t {
	case QueryPersonalModifiable, QueryPersonalRecent, QueryPersonalByState,
		QueryPersonalByReason, QueryMapPersonal:
		return true
	}
	return false
}

// FollowDependent reports whether the view is restricted to the followed users.
func (t QueryType) FollowDependent() bool {
	switch t {
	case QueryFollowing, QueryFollowingRecent, QueryFollowingByState,
		QueryFollowingByReason, QueryMapFollowing:
		return true
	}
	return false
}

// Query is a view with its typed filter. The concrete types below are the
// only implementations.
type Query interface {
	Type() QueryType
	validate() error
}

type (
	PersonalModifiable struct{}
	PersonalRecent     struct{}
	PersonalByState    struct{ State mood.EmotionalState }
	PersonalByReason   struct{ Reason string }
	Following          struct{}
	FollowingRecent    struct{}
	FollowingByState   struct{ State mood.EmotionalState }
	FollowingByReason  struct{ Reason string }
	MapPersonal        struct{}
	MapFollowing       struct{}
	// MapClose searches the projection around Center.
	MapClose struct{ Center geocell.Cell }
)

func (PersonalModifiable) Type() QueryType { return QueryPersonalModifiable }
func (PersonalRecent) Type() QueryType     { return QueryPersonalRecent }
func (PersonalByState) Type() QueryType    { return QueryPersonalByState }
func (PersonalByReason) Type() QueryType   { return QueryPersonalByReason }
func (Following) Type() QueryType          { return QueryFollowing }
func (FollowingRecent) Type() QueryType    { return QueryFollowingRecent }
func (FollowingByState) Type() QueryType   { return QueryFollowingByState }
func (FollowingByReason) Type() QueryType  { return QueryFollowingByReason }
func (MapPersonal) Type() QueryType        { return QueryMapPersonal }
func (MapFollowing) Type() QueryType       { return QueryMapFollowing }
func (MapClose) Type() QueryType           { return QueryMapClose }

func (PersonalModifiable) validate() error { return nil }
func (PersonalRecent) validate() error     { return nil }
func (Following) validate() error          { return nil }
func (FollowingRecent) validate() error    { return nil }
func (MapPersonal) validate() error        { return nil }
func (MapFollowing) validate() error       { return nil }

func (q PersonalByState) validate() error  { return validateState(q.State) }
func (q FollowingByState) validate() error { return validateState(q.State) }

func (q PersonalByReason) validate() error  { return validateReason(q.Reason) }
func (q FollowingByReason) validate() error { return validateReason(q.Reason) }

func (q MapClose) validate() error {
	if !q.Center.Valid() {
		return fmt.Errorf("%w: map center %q is not a geocell", ErrInvalidQuery, q.Center)
	}
	return nil
}

func validateState(s mood.EmotionalState) error {
	if !s.Valid() {
		return fmt.Errorf("%w: emotional state %d", ErrInvalidQuery, int(s))
	}
	return nil
}

func validateReason(r string) error {
	if strings.TrimSpace(r) == "" {
		return fmt.Errorf("%w: empty reason", ErrInvalidQuery)
	}
	return nil
}
