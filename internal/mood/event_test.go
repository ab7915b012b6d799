package mood

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/geocell"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent() *MoodEvent {
	return &MoodEvent{
		ID:              "mood-1",
		EmotionalState:  Happiness,
		Timestamp:       time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		Trigger:         "coffee",
		SocialSituation: SituationOneOther,
		Location:        geocell.Encode(53.52, -113.52),
		Picture:         "pictures/mood-1.jpg",
		Visibility:      Public,
	}
}

func TestEmotionalStateCodes(t *testing.T) {
	states := EmotionalStates()
	require.Len(t, states, 8)
	for i, s := range states {
		assert.Equal(t, int64(i), s.Code())
		back, err := EmotionalStateFromCode(s.Code())
		require.NoError(t, err)
		assert.Equal(t, s, back)
	}

	_, err := EmotionalStateFromCode(8)
	assert.Error(t, err)
	_, err = EmotionalStateFromCode(-1)
	assert.Error(t, err)
}

func TestParseEmotionalState(t *testing.T) {
	s, err := ParseEmotionalState(" fear ")
	require.NoError(t, err)
	assert.Equal(t, Fear, s)

	_, err = ParseEmotionalState("boredom")
	assert.Error(t, err)
}

func TestEmotionalStateJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		S EmotionalState `json:"s"`
	}{Shame})
	require.NoError(t, err)
	assert.JSONEq(t, `{"s":"SHAME"}`, string(b))

	var out struct {
		S EmotionalState `json:"s"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"s":"surprise"}`), &out))
	assert.Equal(t, Surprise, out.S)
}

func TestPersonalDataOmitsUsername(t *testing.T) {
	e := sampleEvent()
	e.Username = "test"

	d := e.PersonalData()
	_, hasUsername := d[FieldUsername]
	assert.False(t, hasUsername)
	require.NoError(t, ValidatePersonal(d))
	assert.Error(t, ValidateRecent(d))
}

func TestRecentDataCarriesUsername(t *testing.T) {
	d := sampleEvent().RecentData("test")
	require.NoError(t, ValidateRecent(d))
	assert.Equal(t, "test", d[FieldUsername])
	assert.Equal(t, "mood-1", RecentMoodID(d))
}

func TestPersonalRoundTrip(t *testing.T) {
	e := sampleEvent()
	back, err := FromPersonalData(e.PersonalData(), "test")
	require.NoError(t, err)

	assert.True(t, back.SameAs(e))
	assert.Equal(t, e.EmotionalState, back.EmotionalState)
	assert.True(t, e.Timestamp.Equal(back.Timestamp))
	assert.Equal(t, e.Trigger, back.Trigger)
	assert.Equal(t, e.SocialSituation, back.SocialSituation)
	assert.Equal(t, e.Location, back.Location)
	assert.Equal(t, "test", back.Username)
}

func TestOptionalFieldsOmitted(t *testing.T) {
	e := &MoodEvent{ID: "x", EmotionalState: Anger, Timestamp: time.Now()}
	d := e.PersonalData()
	for _, f := range []string{FieldTrigger, FieldSocialSituation, FieldLocation, FieldPicture} {
		_, ok := d[f]
		assert.False(t, ok, f)
	}
	back, err := FromPersonalData(d, "u")
	require.NoError(t, err)
	assert.False(t, back.HasLocation())
}

func TestValidateRejectsMalformed(t *testing.T) {
	base := func() map[string]any { return sampleEvent().RecentData("test") }

	cases := []struct {
		name  string
		edit  func(map[string]any)
		field string
	}{
		{"missing timestamp", func(d map[string]any) { delete(d, FieldTimestamp) }, FieldTimestamp},
		{"string timestamp", func(d map[string]any) { d[FieldTimestamp] = "yesterday" }, FieldTimestamp},
		{"missing state", func(d map[string]any) { delete(d, FieldEmotionalState) }, FieldEmotionalState},
		{"string state", func(d map[string]any) { d[FieldEmotionalState] = "FEAR" }, FieldEmotionalState},
		{"numeric id", func(d map[string]any) { d[FieldID] = int64(4) }, FieldID},
		{"missing username", func(d map[string]any) { delete(d, FieldUsername) }, FieldUsername},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := base()
			tc.edit(d)
			err := ValidateRecent(d)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrIntegrity))

			var ie *IntegrityError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, tc.field, ie.Field)
		})
	}
}

func TestValidatePersonalRejectsUsername(t *testing.T) {
	d := sampleEvent().PersonalData()
	require.NoError(t, ValidatePersonal(d))

	d[FieldUsername] = "test"
	err := ValidatePersonal(d)
	var ie *IntegrityError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, ShapePersonal, ie.Shape)
	assert.Equal(t, FieldUsername, ie.Field)

	_, err = FromPersonalData(d, "test")
	assert.ErrorIs(t, err, ErrIntegrity)
}

func TestFromDataRejectsUnknownStateCode(t *testing.T) {
	d := sampleEvent().PersonalData()
	d[FieldEmotionalState] = int64(42)
	_, err := FromPersonalData(d, "test")
	assert.ErrorIs(t, err, ErrIntegrity)
}

func TestFromDataRejectsWrongOptionalType(t *testing.T) {
	d := sampleEvent().PersonalData()
	d[FieldTrigger] = int64(3)
	_, err := FromPersonalData(d, "test")
	assert.ErrorIs(t, err, ErrIntegrity)
}

func TestChangesApply(t *testing.T) {
	e := sampleEvent()
	fear := Fear
	empty := ""
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, Changes{EmotionalState: &fear, Trigger: &empty, Timestamp: &ts}.Apply(e))
	assert.Equal(t, Fear, e.EmotionalState)
	assert.Empty(t, e.Trigger)
	assert.True(t, ts.Equal(e.Timestamp))
	assert.Equal(t, SituationOneOther, e.SocialSituation, "untouched")

	bad := EmotionalState(99)
	assert.ErrorIs(t, Changes{EmotionalState: &bad}.Apply(e), ErrInvalidEvent)
	assert.True(t, Changes{}.Empty())
}

func TestSameAs(t *testing.T) {
	a := sampleEvent()
	b := &MoodEvent{ID: a.ID, EmotionalState: Sadness}
	assert.True(t, a.SameAs(b))
	assert.False(t, (&MoodEvent{}).SameAs(&MoodEvent{}))
}
