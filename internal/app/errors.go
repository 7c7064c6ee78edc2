package app

import (
	"errors"
	"fmt"
)

// Sentinel errors for application lifecycle.
var (
	// ErrAlreadyRunning is returned when Run is called on a running application.
	ErrAlreadyRunning = errors.New("application already running")

	// ErrClosed is returned when Run is called after Close.
	ErrClosed = errors.New("application closed")

	// ErrNoAIKey is returned when the rebuild pipeline is requested without
	// an API key.
	ErrNoAIKey = errors.New("ai api key not configured")

	// ErrNoAuthSecret is returned when tokens are requested without a secret.
	ErrNoAuthSecret = errors.New("auth secret not configured")
)

// OperationError represents an error that occurred during a specific operation.
type OperationError struct {
	Op      string // Operation name (e.g., "open store", "listen")
	Target  string // Target of the operation (e.g., DSN, address)
	Context string // Additional context
	Err     error  // Underlying error
}

// NewOperationError creates a new OperationError.
func NewOperationError(op, target string, err error) *OperationError {
	return &OperationError{
		Op:     op,
		Target: target,
		Err:    err,
	}
}

// WithContext adds context to the error.
func (e *OperationError) WithContext(ctx string) *OperationError {
	if e == nil {
		return nil
	}
	e.Context = ctx
	return e
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	if e == nil {
		return ""
	}

	msg := e.Op
	if e.Target != "" {
		msg = fmt.Sprintf("%s %s", e.Op, e.Target)
	}
	if e.Context != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Context)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ComponentError reports a component that failed to start or stop.
type ComponentError struct {
	Component string
	Action    string
	Err       error
}

// NewComponentError creates a new ComponentError.
func NewComponentError(component, action string, err error) *ComponentError {
	return &ComponentError{Component: component, Action: action, Err: err}
}

// Error implements the error interface.
func (e *ComponentError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s failed", e.Component, e.Action)
	}
	return fmt.Sprintf("%s: %s failed: %v", e.Component, e.Action, e.Err)
}

// Unwrap returns the underlying error.
func (e *ComponentError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
