package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Simplici0/skipq/internal/pricing"
)

// Error carries field-level messages suitable for showing next to form inputs.
type Error struct {
	Errors map[string]string `json:"errors"`
}

// Error implements the error interface. Fields are sorted so messages are stable.
func (v *Error) Error() string {
	fields := make([]string, 0, len(v.Errors))
	for field := range v.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	messages := make([]string, 0, len(fields))
	for _, field := range fields {
		messages = append(messages, fmt.Sprintf("%s: %s", field, v.Errors[field]))
	}
	return strings.Join(messages, "; ")
}

// Add records a message for field, replacing any earlier one.
func (v *Error) Add(field, message string) {
	if v.Errors == nil {
		v.Errors = make(map[string]string)
	}
	v.Errors[field] = message
}

func (v *Error) HasErrors() bool {
	return len(v.Errors) > 0
}

// FromValidator converts validator.ValidationErrors into an *Error keyed by JSON field name.
func FromValidator(errs validator.ValidationErrors) *Error {
	out := &Error{}
	for _, err := range errs {
		out.Add(err.Field(), message(err))
	}
	return out
}

// FromPricing converts a rejected fare input into an *Error. ok is false for
// errors that are not input validation failures.
func FromPricing(err error) (*Error, bool) {
	var verr *pricing.ValidationError
	if !errors.As(err, &verr) {
		return nil, false
	}

	out := &Error{}
	switch {
	case errors.Is(err, pricing.ErrInvalidWaitTime):
		out.Add(verr.Field, fmt.Sprintf("wait time must be between 0 and %d minutes", pricing.MaxWaitMinutes))
	case errors.Is(err, pricing.ErrUnknownTier):
		out.Add(verr.Field, "service tier must be one of: hold-share, hold-switch")
	case errors.Is(err, pricing.ErrUnknownJurisdiction):
		out.Add(verr.Field, fmt.Sprintf("no tax rate is configured for %v", verr.Value))
	default:
		out.Add(verr.Field, verr.Err.Error())
	}
	return out, true
}

func message(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, param)
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "service_tier":
		return fmt.Sprintf("%s must be a valid service tier (hold-share, hold-switch)", field)
	case "dive":
		return fmt.Sprintf("%s contains an invalid entry", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
