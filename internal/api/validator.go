package api

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// Limit bounds for list endpoints.
const (
	DefaultLimit = 20
	MaxLimit     = 500
)

// Validator checks request parameters.
type Validator struct {
	positionIDRegex *regexp.Regexp
}

var (
	validatorInstance *Validator
	validatorOnce     sync.Once
)

// GetValidator returns the singleton validator instance.
func GetValidator() *Validator {
	validatorOnce.Do(func() {
		validatorInstance = &Validator{
			positionIDRegex: regexp.MustCompile(`^[0-9a-f]{64}$`),
		}
	})
	return validatorInstance
}

// ValidateLimit parses a limit query value. Empty means DefaultLimit;
// values above MaxLimit are clamped.
func (v *Validator) ValidateLimit(limitStr string) (int, error) {
	limitStr = sanitizeInput(limitStr)
	if limitStr == "" {
		return DefaultLimit, nil
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		return 0, errors.New("limit must be a valid number")
	}
	if limit < 1 {
		return 0, errors.New("limit must be positive")
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return limit, nil
}

// ValidatePositionID checks a hex sha256 position ID.
func (v *Validator) ValidatePositionID(id string) (string, error) {
	id = strings.ToLower(sanitizeInput(id))
	if id == "" {
		return "", errors.New("position id is required")
	}
	if !v.positionIDRegex.MatchString(id) {
		return "", errors.New("position id must be 64 hex characters")
	}
	return id, nil
}

// sanitizeInput trims whitespace, drops control characters and caps the length.
func sanitizeInput(input string) string {
	input = strings.TrimSpace(input)
	input = strings.Map(func(r rune) rune {
		if r < 32 {
			return -1
		}
		return r
	}, input)
	if len(input) > 100 {
		input = input[:100]
	}
	return input
}
