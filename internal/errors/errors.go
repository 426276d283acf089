package errors

import (
	"errors"
	"fmt"
	"time"
)

/**
 * Custom error types for the Annotation Worker
 *
 * Design Pattern: Factory Pattern for error creation
 * SOLID Principle: Single Responsibility (each error type has one purpose)
 */

// ErrorCode enum for structured error handling
type ErrorCode string

const (
	// Input errors
	ErrorInvalidInput ErrorCode = "INVALID_INPUT"
	ErrorNotFound     ErrorCode = "NOT_FOUND"

	// Pipeline errors
	ErrorUpstreamFailed ErrorCode = "UPSTREAM_FAILED"
	ErrorEmptyResult    ErrorCode = "EMPTY_RESULT"
	ErrorStaleTimeout   ErrorCode = "STALE_TIMEOUT"
)

// AnnotationError represents a structured annotation pipeline error
type AnnotationError struct {
	Code       ErrorCode
	Message    string
	DocumentID string
	Timestamp  time.Time
	Details    map[string]interface{}
	Cause      error
}

func (e *AnnotationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AnnotationError) Unwrap() error {
	return e.Cause
}

// Factory functions for common errors

func NewInvalidInputError(documentID string, reason string) *AnnotationError {
	return &AnnotationError{
		Code:       ErrorInvalidInput,
		Message:    fmt.Sprintf("Invalid input: %s", reason),
		DocumentID: documentID,
		Timestamp:  time.Now(),
	}
}

func NewNotFoundError(documentID string, what string) *AnnotationError {
	return &AnnotationError{
		Code:       ErrorNotFound,
		Message:    fmt.Sprintf("Not found: %s", what),
		DocumentID: documentID,
		Timestamp:  time.Now(),
		Details: map[string]interface{}{
			"missing": what,
		},
	}
}

func NewUpstreamFailedError(documentID string, upstream string, cause error) *AnnotationError {
	return &AnnotationError{
		Code:       ErrorUpstreamFailed,
		Message:    fmt.Sprintf("Upstream call failed: %s", upstream),
		DocumentID: documentID,
		Timestamp:  time.Now(),
		Details: map[string]interface{}{
			"upstream": upstream,
		},
		Cause: cause,
	}
}

func NewEmptyResultError(documentID string, annotationType string) *AnnotationError {
	return &AnnotationError{
		Code:       ErrorEmptyResult,
		Message:    fmt.Sprintf("Annotation produced no content: %s", annotationType),
		DocumentID: documentID,
		Timestamp:  time.Now(),
		Details: map[string]interface{}{
			"annotation_type": annotationType,
		},
	}
}

func NewStaleTimeoutError(documentID string, age time.Duration) *AnnotationError {
	return &AnnotationError{
		Code:       ErrorStaleTimeout,
		Message:    fmt.Sprintf("Annotation stale after %v", age),
		DocumentID: documentID,
		Timestamp:  time.Now(),
		Details: map[string]interface{}{
			"age": age.String(),
		},
	}
}

// IsEmptyResult reports whether err carries the EMPTY_RESULT code
func IsEmptyResult(err error) bool {
	var ae *AnnotationError
	return errors.As(err, &ae) && ae.Code == ErrorEmptyResult
}

// ToMap converts error to map for database storage
func (e *AnnotationError) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"error_code": string(e.Code),
		"message":    e.Message,
		"timestamp":  e.Timestamp,
	}

	for k, v := range e.Details {
		result[k] = v
	}

	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}

	return result
}
