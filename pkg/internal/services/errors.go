package services

import (
	"errors"
	"fmt"
)

var (
	ErrFormNotFound     = errors.New("that form could not be found")
	ErrFormExists       = errors.New("a form with that name already exists")
	ErrPermissionDenied = errors.New("you do not have permission to take this form")
	ErrNotCreator       = errors.New("only the creator of the form can finish it")
)

// ValidationError is malformed user input. It is shown back to the user and
// never reported to operators.
type ValidationError struct {
	Field  string
	Reason string
}

func (v *ValidationError) Error() string {
	if v.Field == "" {
		return v.Reason
	}
	return fmt.Sprintf("%s: %s", v.Field, v.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsUserError reports whether err should be shown to the user as is
// instead of being reported as an internal failure.
func IsUserError(err error) bool {
	var validation *ValidationError
	return errors.As(err, &validation) ||
		errors.Is(err, ErrFormNotFound) ||
		errors.Is(err, ErrFormExists) ||
		errors.Is(err, ErrPermissionDenied) ||
		errors.Is(err, ErrNotCreator)
}
