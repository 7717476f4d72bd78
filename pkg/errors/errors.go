// Package errors provides structured error types for attnviz.
// Errors carry a stable code, a category, key-value context and optional
// remediation suggestions for the shell and HTTP surfaces.
package errors

import (
	"fmt"
	"sort"
	"strings"
)

// Category classifies errors for consistent handling and display.
type Category string

const (
	CategoryComputation Category = "computation" // Matrix algebra contract violations
	CategoryValidation  Category = "validation"  // Rejected state transitions
	CategoryConfig      Category = "config"      // Configuration loading/parsing errors
	CategoryCommand     Category = "command"     // Shell command errors
	CategoryIO          Category = "io"          // File/IO errors
	CategoryInternal    Category = "internal"    // Internal/unexpected errors
)

// AttnError is a structured error with context and suggestions.
// It implements the error interface and supports error wrapping.
type AttnError struct {
	// Code is a unique identifier for this error type (e.g., "DIMENSION_MISMATCH")
	Code string

	// Category classifies this error for consistent handling
	Category Category

	// Message is the primary error message describing what went wrong
	Message string

	// Context provides additional key-value details about the error
	Context map[string]string

	// Cause is the underlying error that triggered this error
	Cause error

	// Suggestions are actionable remediation steps for the user
	Suggestions []string
}

// Error implements the error interface.
func (e *AttnError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain inspection.
func (e *AttnError) Unwrap() error {
	return e.Cause
}

// Is reports whether e matches target for errors.Is() checks.
// Two AttnErrors match if they have the same Code.
func (e *AttnError) Is(target error) bool {
	if t, ok := target.(*AttnError); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a new AttnError with the given code, category, and message.
func New(code string, category Category, message string) *AttnError {
	return &AttnError{
		Code:     code,
		Category: category,
		Message:  message,
		Context:  make(map[string]string),
	}
}

// Newf creates a new AttnError with a formatted message.
func Newf(code string, category Category, format string, args ...interface{}) *AttnError {
	return New(code, category, fmt.Sprintf(format, args...))
}

// WithContext adds a context key-value pair and returns the error for chaining.
func (e *AttnError) WithContext(key, value string) *AttnError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// WithCause wraps an underlying error and returns the error for chaining.
func (e *AttnError) WithCause(cause error) *AttnError {
	e.Cause = cause
	return e
}

// WithSuggestion adds a remediation suggestion and returns the error for chaining.
func (e *AttnError) WithSuggestion(suggestion string) *AttnError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// ContextString returns the context entries as sorted key="value" pairs.
func (e *AttnError) ContextString() string {
	if len(e.Context) == 0 {
		return ""
	}
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", k, e.Context[k]))
	}
	return strings.Join(parts, ", ")
}

// Wrap wraps an existing error with an AttnError.
func Wrap(err error, code string, category Category, message string) *AttnError {
	return New(code, category, message).WithCause(err)
}

// AsAttnError attempts to convert an error to an AttnError, following wrap chains.
func AsAttnError(err error) (*AttnError, bool) {
	for err != nil {
		if ae, ok := err.(*AttnError); ok {
			return ae, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}

// IsCode checks if an error is an AttnError with the given code.
func IsCode(err error, code string) bool {
	if ae, ok := AsAttnError(err); ok {
		return ae.Code == code
	}
	return false
}

// IsCategory checks if an error is an AttnError with the given category.
func IsCategory(err error, category Category) bool {
	if ae, ok := AsAttnError(err); ok {
		return ae.Category == category
	}
	return false
}
