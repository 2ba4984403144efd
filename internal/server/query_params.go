package server

import (
	"errors"
	"strconv"
	"strings"
)

const maxListLimit = 500

var errInvalidLimit = errors.New("invalid_limit")

// parseOptionalInt returns nil for an empty value and caps at maxListLimit.
func parseOptionalInt(value string) (*int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil || parsed <= 0 {
		return nil, errInvalidLimit
	}
	if parsed > maxListLimit {
		parsed = maxListLimit
	}
	return &parsed, nil
}
