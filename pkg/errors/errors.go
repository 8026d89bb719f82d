// Package errors defines the error types shared across the GNDC bot services.
package errors

import (
	"errors"
	"fmt"
)

// ErrNotFound: requested record does not exist (or has expired).
var ErrNotFound = errors.New("not found")

// ErrLoggedOut: the WhatsApp session was revoked; reconnecting is pointless.
var ErrLoggedOut = errors.New("session logged out")

// APIError: failure while calling an external HTTP API (website, imgflip, shortener...)
type APIError struct {
	Operation  string // API operation being performed
	StatusCode int    // HTTP status code (0 for network errors)
	Err        error  // cause
}

func (e APIError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("api error operation=%s status=%d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("api error operation=%s status=%d: %v", e.Operation, e.StatusCode, e.Err)
}

func (e APIError) Unwrap() error { return e.Err }

// NewAPIError: creates an API error.
func NewAPIError(operation string, statusCode int, cause error) *APIError {
	return &APIError{
		Operation:  operation,
		StatusCode: statusCode,
		Err:        cause,
	}
}

// CacheError: failure of a key-value store operation.
type CacheError struct {
	Operation string // get, set, delete, scan...
	Key       string
	Err       error
}

func (e CacheError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("cache error operation=%s key=%s", e.Operation, e.Key)
	}
	return fmt.Sprintf("cache error operation=%s key=%s: %v", e.Operation, e.Key, e.Err)
}

func (e CacheError) Unwrap() error { return e.Err }

// NewCacheError: creates a cache error.
func NewCacheError(operation, key string, cause error) *CacheError {
	return &CacheError{
		Operation: operation,
		Key:       key,
		Err:       cause,
	}
}

// ValidationError: input or generated payload failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("validation error field=%s: %s", e.Field, e.Message)
}

// NewValidationError: creates a validation error.
func NewValidationError(message, field string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// ServiceError: internal service logic error.
type ServiceError struct {
	Service   string
	Operation string
	Err       error
}

func (e ServiceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("service error service=%s operation=%s", e.Service, e.Operation)
	}
	return fmt.Sprintf("service error service=%s operation=%s: %v", e.Service, e.Operation, e.Err)
}

func (e ServiceError) Unwrap() error { return e.Err }

// NewServiceError: creates a service error.
func NewServiceError(service, operation string, cause error) *ServiceError {
	return &ServiceError{
		Service:   service,
		Operation: operation,
		Err:       cause,
	}
}

// GenerationError: a content generator backend failed or returned unusable output.
type GenerationError struct {
	Backend string // openai, gemini
	Tool    string // create_quiz, create_meme, or empty for plain text
	Err     error
}

func (e GenerationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("generation error backend=%s tool=%s", e.Backend, e.Tool)
	}
	return fmt.Sprintf("generation error backend=%s tool=%s: %v", e.Backend, e.Tool, e.Err)
}

func (e GenerationError) Unwrap() error { return e.Err }

// NewGenerationError: creates a generation error.
func NewGenerationError(backend, tool string, cause error) *GenerationError {
	return &GenerationError{
		Backend: backend,
		Tool:    tool,
		Err:     cause,
	}
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
