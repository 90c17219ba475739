package schedule

import (
	"errors"
	"fmt"
)

// ErrEmptyResult is the EmptyResultWarning: the input was readable but produced
// zero blocks. Callers report it as a warning, not a failure.
var ErrEmptyResult = errors.New("no valid schedule blocks found")

// ValidationError reports malformed user input (a bad time, a missing field).
// Its message is meant to be shown to the user as-is.
type ValidationError struct {
	Field string // offending field or "line N"; may be empty
	Value string
	Msg   string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Field != "" && e.Value != "":
		return fmt.Sprintf("%s: %s (%q)", e.Field, e.Msg, e.Value)
	case e.Field != "":
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	case e.Value != "":
		return fmt.Sprintf("%s (%q)", e.Msg, e.Value)
	default:
		return e.Msg
	}
}

func invalid(field, value, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Value: value, Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsWarning reports whether err only carries a warning (see ErrEmptyResult).
func IsWarning(err error) bool {
	return errors.Is(err, ErrEmptyResult)
}
