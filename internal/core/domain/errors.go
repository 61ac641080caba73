package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAnalysisNotFound = errors.New("analysis not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrTemporary        = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// ConfigurationError reports an invalid setting detected at startup.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrInvalidInput }

type ModelCallKind string

const (
	ModelCallAuth      ModelCallKind = "auth"
	ModelCallRejected  ModelCallKind = "rejected"
	ModelCallExhausted ModelCallKind = "exhausted"
)

// ModelCallError is a terminal failure of the completion backend for one request.
type ModelCallError struct {
	Kind     ModelCallKind
	Attempts int
	Err      error
}

func (e *ModelCallError) Error() string {
	return fmt.Sprintf("model call %s after %d attempt(s): %v", e.Kind, e.Attempts, e.Err)
}

func (e *ModelCallError) Unwrap() []error { return []error{ErrTemporary, e.Err} }

// ParseError means no valid finding structure could be recovered from a
// chunk's model output.
type ParseError struct {
	ChunkIndex int
	Err        error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse findings for chunk %d: %v", e.ChunkIndex, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ExtractionError carries a user-safe Reason next to the underlying cause.
type ExtractionError struct {
	Filename string
	Reason   string
	Err      error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("extract %q: %s", e.Filename, e.Reason)
	}
	return fmt.Sprintf("extract %q: %s: %v", e.Filename, e.Reason, e.Err)
}

func (e *ExtractionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidInput}
	}
	return []error{ErrInvalidInput, e.Err}
}
