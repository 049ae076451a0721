package phone

import (
	"regexp"
	"strings"
)

var kenyanPattern = regexp.MustCompile(`^(?:\+254|0)(?:7|1)\d{8}$`)

// Valid reports whether s is a Kenyan mobile number in local (07XXXXXXXX,
// 01XXXXXXXX) or international (+2547..., +2541...) form.
func Valid(s string) bool {
	return kenyanPattern.MatchString(strings.TrimSpace(s))
}

// Normalize converts a local number to its +254 form. Numbers already in
// international form are returned trimmed.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0") {
		return "+254" + s[1:]
	}
	return s
}
