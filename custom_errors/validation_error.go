package custom_errors

import (
	"errors"
	"fmt"
)

// ValidationError collects every problem found while validating an input
// so callers can report them together instead of one at a time.
type ValidationError struct {
	Errors []error `json:"errors"`
}

func (c *ValidationError) Add(err error) {
	if err == nil {
		return
	}
	c.Errors = append(c.Errors, err)
}

func (c *ValidationError) HasError() bool {
	return len(c.Errors) > 0
}

func (c *ValidationError) Error() string {
	if len(c.Errors) == 0 {
		return ""
	}
	return fmt.Sprintf("%v", errors.Join(c.Errors...))
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (c *ValidationError) Unwrap() []error {
	return c.Errors
}

// Is reports every ValidationError as a validation domain error.
func (c *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
