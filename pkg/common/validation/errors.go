package validation

import (
	"errors"
	"strings"
)

// Error carries every violation found in a submission. Nothing is persisted
// when one is returned.
type Error struct {
	Violations []string
}

func (e Error) Error() string {
	if len(e.Violations) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

func New(violations ...string) error {
	return Error{Violations: violations}
}

func IsValidationError(err error) bool {
	var ve Error
	return errors.As(err, &ve)
}

// Violations returns the list carried by err, or nil when err is not a validation error.
func Violations(err error) []string {
	var ve Error
	if errors.As(err, &ve) {
		return ve.Violations
	}
	return nil
}
