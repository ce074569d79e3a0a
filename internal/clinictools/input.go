package clinictools

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	maxEmailLength = 254
	minNameLength  = 2
	maxNameLength  = 100
	maxTextLength  = 500
)

var (
	emailPattern   = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	namePattern    = regexp.MustCompile(`^[a-zA-Z\s\-'.]+$`)
	controlPattern = regexp.MustCompile("[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]")
)

// normalizeEmail trims and lowercases an address and checks its shape.
func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case email == "":
		return "", errors.New("email is required")
	case len(email) > maxEmailLength:
		return "", errors.New("email is too long")
	case !emailPattern.MatchString(email):
		return "", fmt.Errorf("%q is not a valid email address", raw)
	}
	return email, nil
}

// normalizeName checks a person's name: letters, spaces, hyphens,
// apostrophes and dots only.
func normalizeName(raw, field string) (string, error) {
	name := strings.TrimSpace(raw)
	switch {
	case name == "":
		return "", fmt.Errorf("%s is required", field)
	case len(name) < minNameLength:
		return "", fmt.Errorf("%s must be at least %d characters", field, minNameLength)
	case len(name) > maxNameLength:
		return "", fmt.Errorf("%s must be less than %d characters", field, maxNameLength)
	case !namePattern.MatchString(name):
		return "", fmt.Errorf("%s contains invalid characters", field)
	}
	return name, nil
}

// sanitizeText strips control characters and escapes angle brackets in
// free text such as symptoms.
func sanitizeText(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if len(text) > maxTextLength {
		return "", fmt.Errorf("text exceeds maximum length of %d", maxTextLength)
	}
	text = controlPattern.ReplaceAllString(text, "")
	text = strings.NewReplacer("<", "&lt;", ">", "&gt;").Replace(text)
	return text, nil
}
