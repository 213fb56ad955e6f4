package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions
var (
	// ErrNotFound is returned when a requested entity does not exist
	ErrNotFound = errors.New("not found")

	// ErrPostNotFound is returned when a post is not found
	ErrPostNotFound = errors.New("post not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrCapacityExceeded is returned when a bounded expansion would exceed its cap
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrConflict is returned when an operation collides with one already in progress
	ErrConflict = errors.New("conflict")
)

// PostNotFoundError represents a post not found error with context
type PostNotFoundError struct {
	PostID int64
}

func (e *PostNotFoundError) Error() string {
	return fmt.Sprintf("post with ID '%d' not found", e.PostID)
}

func (e *PostNotFoundError) Is(target error) bool {
	return target == ErrPostNotFound || target == ErrNotFound
}

// NewPostNotFoundError creates a new PostNotFoundError
func NewPostNotFoundError(postID int64) *PostNotFoundError {
	return &PostNotFoundError{PostID: postID}
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// WildcardCapacityError is returned when a wildcard matches more tags than allowed
type WildcardCapacityError struct {
	Pattern string
	Cap     int
}

func (e *WildcardCapacityError) Error() string {
	return fmt.Sprintf("wildcard '%s' matches more than %d tags; use a more specific pattern", e.Pattern, e.Cap)
}

func (e *WildcardCapacityError) Is(target error) bool {
	return target == ErrCapacityExceeded
}

// NewWildcardCapacityError creates a new WildcardCapacityError
func NewWildcardCapacityError(pattern string, cap int) *WildcardCapacityError {
	return &WildcardCapacityError{Pattern: pattern, Cap: cap}
}

// ConflictError represents an operation rejected because another one is active
type ConflictError struct {
	Operation string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s is already running", e.Operation)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// NewConflictError creates a new ConflictError
func NewConflictError(operation string) *ConflictError {
	return &ConflictError{Operation: operation}
}
