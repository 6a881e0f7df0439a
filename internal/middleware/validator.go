package middleware

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/bryanwahyu/neurolint/internal/domain/shared"
)

// Input validation and sanitization utilities

// ValidateID checks a path id is a uuid.
func ValidateID(id string) error {
	if id == "" {
		return shared.Invalid("id", "id cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return shared.Invalid("id", "invalid id format")
	}
	return nil
}

// QueryInt parses an optional integer query value.
func QueryInt(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, shared.Invalid("", "invalid integer: "+raw)
	}
	return n, nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}
