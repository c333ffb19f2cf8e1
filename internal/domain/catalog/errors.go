// internal/domain/catalog/errors.go
package catalog

import (
	"errors"
	"fmt"
)

var ErrShoeNotFound = errors.New("shoe not found")

// ValidationError reports a rejected catalog field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Code returns the machine-readable error code
func (e *ValidationError) Code() string {
	return "ValidationError"
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
