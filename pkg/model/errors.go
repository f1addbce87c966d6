package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned by managers when no record matches a lookup.
	ErrNotFound = errors.New("model: record not found")
	// ErrImproperlyConfigured reports wiring mistakes that cannot be fixed at
	// request time, such as a list view without a model or queryset.
	ErrImproperlyConfigured = errors.New("model: improperly configured")
)

// Improperly wraps ErrImproperlyConfigured with a formatted reason.
func Improperly(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrImproperlyConfigured, fmt.Sprintf(format, args...))
}

// NonFieldErrors keys messages that do not belong to a single field.
const NonFieldErrors = "__all__"

// ValidationError carries field-keyed messages raised while saving. Views map
// it back onto the submitted forms instead of failing the request.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field string, messages ...string) *ValidationError {
	return &ValidationError{Fields: map[string][]string{field: messages}}
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "model: validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+strings.Join(e.Fields[key], "; "))
	}
	return "model: validation failed: " + strings.Join(parts, ", ")
}
