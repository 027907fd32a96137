// Package bulk parses attribute flags and colon-delimited bulk-add files.
package bulk

import "strings"

// ParseBool coerces a textual field to a boolean using a closed token set:
// an empty value is false, "True" and "False" (any case) are literal, and
// every other non-empty value is true.
func ParseBool(s string) bool {
	switch {
	case s == "":
		return false
	case strings.EqualFold(s, "true"):
		return true
	case strings.EqualFold(s, "false"):
		return false
	default:
		return true
	}
}

// literalBool reports whether s is one of the literal boolean tokens.
func literalBool(s string) (value bool, ok bool) {
	switch {
	case strings.EqualFold(s, "true"):
		return true, true
	case strings.EqualFold(s, "false"):
		return false, true
	}
	return false, false
}
