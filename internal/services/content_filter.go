package services

import (
	"errors"
	"regexp"
	"strings"
)

// ErrContentRejected is wrapped by RejectionError.
var ErrContentRejected = errors.New("content rejected")

var BannedWords = []string{
	"fuck", "fucking", "fucker", "shit", "shitty", "bullshit",
	"asshole", "bastard", "bitch", "cunt",
	"nigger", "nigga", "chink", "spic", "kike", "faggot", "fag",
	"retard", "retarded", "tranny",
	"porn", "porno", "nude", "nudes",
	"spam", "scam", "scammer", "phishing", "malware",
}

var rejectionMessages = map[string]string{
	"inappropriate_language":   "Your text contains inappropriate language.",
	"url_not_allowed":          "URLs and web links are not allowed.",
	"contact_info_not_allowed": "Contact information is not allowed.",
	"spam_detected":            "Your text appears to be spam.",
}

// RejectionError names the rule a piece of user text broke.
type RejectionError struct {
	Field  string
	Reason string
}

func (e *RejectionError) Error() string {
	msg, ok := rejectionMessages[e.Reason]
	if !ok {
		msg = "Your text does not meet our content guidelines."
	}
	if e.Field == "" {
		return msg
	}
	return e.Field + ": " + msg
}

func (e *RejectionError) Unwrap() error { return ErrContentRejected }

// ContentFilter screens free text users attach to moods and profiles:
// triggers, social situations and display names.
type ContentFilter struct {
	bannedWordRegexps   []*regexp.Regexp
	urlPattern          *regexp.Regexp
	emailPattern        *regexp.Regexp
	phonePattern        *regexp.Regexp
	repeatedCharPattern *regexp.Regexp
}

func NewContentFilter() *ContentFilter {
	f := &ContentFilter{
		bannedWordRegexps: make([]*regexp.Regexp, 0, len(BannedWords)),
	}
	for _, word := range BannedWords {
		f.bannedWordRegexps = append(f.bannedWordRegexps, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(word)+`\b`))
	}
	f.urlPattern = regexp.MustCompile(`(?i)(https?://\S+|www\.\S+\.\S+)`)
	f.emailPattern = regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	f.phonePattern = regexp.MustCompile(`\d{3}[-.\s]?\d{3}[-.\s]?\d{4}|\(\d{3}\)\s*\d{3}[-.\s]?\d{4}`)
	f.repeatedCharPattern = regexp.MustCompile(`!{4,}|\?{4,}|\.{4,}`)
	return f
}

// Check returns "" when text is acceptable, otherwise the rejection reason.
func (f *ContentFilter) Check(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	for _, re := range f.bannedWordRegexps {
		if re.MatchString(text) {
			return "inappropriate_language"
		}
	}
	if f.urlPattern.MatchString(text) {
		return "url_not_allowed"
	}
	if f.emailPattern.MatchString(text) || f.phonePattern.MatchString(text) {
		return "contact_info_not_allowed"
	}
	if f.repeatedCharPattern.MatchString(text) || hasLongRun(text, 4) {
		return "spam_detected"
	}
	return ""
}

// CheckFields screens named values in order and reports the first rejection.
func (f *ContentFilter) CheckFields(fields map[string]string, order ...string) error {
	for _, name := range order {
		if reason := f.Check(fields[name]); reason != "" {
			return &RejectionError{Field: name, Reason: reason}
		}
	}
	return nil
}

// hasLongRun reports a letter repeated n or more times in a row, ignoring case.
func hasLongRun(text string, n int) bool {
	var prev rune
	run := 0
	for _, r := range strings.ToLower(text) {
		if r == prev && r >= 'a' && r <= 'z' {
			run++
			if run >= n {
				return true
			}
			continue
		}
		prev, run = r, 1
	}
	return false
}
