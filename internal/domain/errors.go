package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when a requested status change is not in
// the transition table.
var ErrInvalidTransition = errors.New("illegal status transition")

// ValidationError marks caller mistakes (missing fields, bad enum values,
// out-of-range indexes). Handlers surface these as 400s and never retry.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

// Invalid builds a ValidationError.
func Invalid(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}
