// Package util provides logging, error types and address helpers shared by
// every newtsim package.
package util

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrValidationFailed   = errors.New("validation failed")
	ErrInvalidReference   = errors.New("invalid topology reference")
	ErrTopologyLocked     = errors.New("topology locked by another writer")
	ErrBackendUnavailable = errors.New("execution backend unavailable")
	ErrPoolExhausted      = errors.New("address pool exhausted")
	ErrPermissionDenied   = errors.New("permission denied")
)

// ReferenceError describes a cable endpoint or next hop that does not
// resolve to an existing device or port.
type ReferenceError struct {
	Kind   string // "cable", "route", "peer"
	Ref    string // the identifier as written, e.g. "r1:GE0/0/9"
	Reason string
}

func (e *ReferenceError) Error() string {
	msg := fmt.Sprintf("%s reference %q", e.Kind, e.Ref)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *ReferenceError) Unwrap() error {
	return ErrInvalidReference
}

// NewReferenceError creates a reference error
func NewReferenceError(kind, ref, reason string) *ReferenceError {
	return &ReferenceError{Kind: kind, Ref: ref, Reason: reason}
}

// ValidationError represents one or more validation failures
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "validation failed: " + e.Errors[0]
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NewValidationError creates a validation error from messages
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Errors: messages}
}

// ValidationBuilder accumulates validation errors
type ValidationBuilder struct {
	errors []string
}

// Add adds an error message if condition is false
func (v *ValidationBuilder) Add(condition bool, message string) *ValidationBuilder {
	if !condition {
		v.errors = append(v.errors, message)
	}
	return v
}

// AddErrorf adds a formatted error message
func (v *ValidationBuilder) AddErrorf(format string, args ...interface{}) *ValidationBuilder {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
	return v
}

// HasErrors returns true if there are validation errors
func (v *ValidationBuilder) HasErrors() bool {
	return len(v.errors) > 0
}

// Build returns the validation error or nil if no errors
func (v *ValidationBuilder) Build() error {
	if len(v.errors) == 0 {
		return nil
	}
	return NewValidationError(v.errors...)
}

// LockedError reports the holder of a topology writer lock.
type LockedError struct {
	Topology string
	Holder   string
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("topology %s is locked by %s", e.Topology, e.Holder)
}

func (e *LockedError) Unwrap() error {
	return ErrTopologyLocked
}
