package pricing

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidWaitTime     = errors.New("wait time must be between zero minutes and one day")
	ErrUnknownTier         = errors.New("unknown service tier")
	ErrUnknownJurisdiction = errors.New("no tax rate configured for jurisdiction")
)

// ValidationError ties a rejected input field to the sentinel describing why.
type ValidationError struct {
	Field string
	Value any
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v (got %v)", e.Field, e.Err, e.Value)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field string, value any, err error) error {
	return &ValidationError{Field: field, Value: value, Err: err}
}
