package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentFilterCheck(t *testing.T) {
	f := NewContentFilter()
	cases := []struct {
		text string
		want string
	}{
		{"", ""},
		{"missed the bus again", ""},
		{"classic assessment day", ""},
		{"this is bullshit", "inappropriate_language"},
		{"see www.example.com now", "url_not_allowed"},
		{"mail me at a@b.io", "contact_info_not_allowed"},
		{"call 555-123-4567", "contact_info_not_allowed"},
		{"whyyyy", "spam_detected"},
		{"what?!!!!", "spam_detected"},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			assert.Equal(t, tc.want, f.Check(tc.text))
		})
	}
}

func TestCheckFieldsReportsFirstRejection(t *testing.T) {
	f := NewContentFilter()
	err := f.CheckFields(map[string]string{
		"trigger":          "fine",
		"social_situation": "scam call",
	}, "trigger", "social_situation")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrContentRejected))

	var rej *RejectionError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "social_situation", rej.Field)
	assert.Equal(t, "inappropriate_language", rej.Reason)

	assert.NoError(t, f.CheckFields(map[string]string{"trigger": "work"}, "trigger", "picture"))
}
