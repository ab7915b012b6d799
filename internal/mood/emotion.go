package mood

import (
	"fmt"
	"strings"
)

// EmotionalState is one of the eight mood categories. The numeric value is the
// storage code and must never be renumbered.
type EmotionalState int

const (
	Anger EmotionalState = iota
	Confusion
	Disgust
	Fear
	Happiness
	Sadness
	Shame
	Surprise
)

var emotionalStateNames = [...]string{
	Anger:     "ANGER",
	Confusion: "CONFUSION",
	Disgust:   "DISGUST",
	Fear:      "FEAR",
	Happiness: "HAPPINESS",
	Sadness:   "SADNESS",
	Shame:     "SHAME",
	Surprise:  "SURPRISE",
}

// EmotionalStates lists every state in code order.
func EmotionalStates() []EmotionalState {
	states := make([]EmotionalState, len(emotionalStateNames))
	for i := range emotionalStateNames {
		states[i] = EmotionalState(i)
	}
	return states
}

func (s EmotionalState) Valid() bool {
	return s >= Anger && int(s) < len(emotionalStateNames)
}

// Code returns the stored numeric code.
func (s EmotionalState) Code() int64 { return int64(s) }

func (s EmotionalState) String() string {
	if !s.Valid() {
		return fmt.Sprintf("EmotionalState(%d)", int(s))
	}
	return emotionalStateNames[s]
}

// EmotionalStateFromCode maps a stored code back to its state.
func EmotionalStateFromCode(code int64) (EmotionalState, error) {
	s := EmotionalState(code)
	if code < 0 || !s.Valid() {
		return 0, fmt.Errorf("unknown emotional state code %d", code)
	}
	return s, nil
}

// ParseEmotionalState accepts a state name in any case.
func ParseEmotionalState(name string) (EmotionalState, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for i, n := range emotionalStateNames {
		if n == upper {
			return EmotionalState(i), nil
		}
	}
	return 0, fmt.Errorf("unknown emotional state %q", name)
}

func (s EmotionalState) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid emotional state %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *EmotionalState) UnmarshalText(text []byte) error {
	parsed, err := ParseEmotionalState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Social situations offered by clients. Stored as free text; not enforced.
const (
	SituationAlone    = "alone"
	SituationOneOther = "with one other person"
	SituationSeveral  = "with two to several people"
	SituationCrowd    = "with a crowd"
)

// SocialSituations is the suggested vocabulary.
var SocialSituations = []string{SituationAlone, SituationOneOther, SituationSeveral, SituationCrowd}

// Visibility is advisory; feeds do not filter on it.
type Visibility string

const (
	Public  Visibility = "public"
	Private Visibility = "private"
)
