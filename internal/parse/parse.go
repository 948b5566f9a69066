package parse

import (
	"fmt"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
)

var (
	idRe    = regexp.MustCompile(`^\s*(\d+)\s*$`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// ID parses a positive faculty id from a path segment or message field.
func ID(raw string) (int64, error) {
	m := idRe.FindStringSubmatch(raw)
	if m == nil {
		return 0, fmt.Errorf("invalid id: %q", raw)
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id: %q", raw)
	}
	return id, nil
}

// Email normalizes an address for storage and lookup: surrounding space is
// trimmed and the address is lower-cased. Display names ("Ada <ada@x>") are
// rejected.
func Email(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", fmt.Errorf("email is required")
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || addr.Name != "" {
		return "", fmt.Errorf("invalid email: %q", raw)
	}
	return s, nil
}

// Text collapses runs of whitespace and trims the result.
func Text(raw string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(raw, " "))
}

// Limit parses an optional positive page size, falling back to def and
// capping at max.
func Limit(raw string, def, max int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
