package domain

import "fmt"

// InvalidDateError is returned by the resolver for malformed or out-of-range calendar input.
type InvalidDateError struct {
	Input  string
	Reason string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid date %q: %s", e.Input, e.Reason)
}

func invalidDate(input, reason string) error {
	return &InvalidDateError{Input: input, Reason: reason}
}

// ValidationError reports a negative or otherwise unusable numeric input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalidField(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
