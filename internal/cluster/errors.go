package cluster

import (
	"errors"
	"fmt"
)

// ValidationError is a request that was rejected before any cluster call:
// a malformed name, a missing required field, an invalid JSON patch, an
// unparseable timestamp.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return e.Message
}

// NewValidationError creates a ValidationError for the given field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError checks if an error is a validation failure
// Uses errors.As to handle wrapped errors
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// CallError is a cluster API call that failed, carrying enough context
// (operation, kind, namespace/name, underlying message) for the caller to
// act on it.
type CallError struct {
	Op        string
	Kind      string
	Namespace string
	Name      string
	Err       error
}

func (e *CallError) Error() string {
	target := e.Kind
	switch {
	case e.Namespace != "" && e.Name != "":
		target = fmt.Sprintf("%s %s/%s", e.Kind, e.Namespace, e.Name)
	case e.Name != "":
		target = fmt.Sprintf("%s %s", e.Kind, e.Name)
	case e.Namespace != "":
		target = fmt.Sprintf("%s in %s", e.Kind, e.Namespace)
	}
	return fmt.Sprintf("cluster %s %s failed: %v", e.Op, target, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// NewCallError wraps a failed cluster call with operation and target context
func NewCallError(op, kind, namespace, name string, err error) *CallError {
	return &CallError{Op: op, Kind: kind, Namespace: namespace, Name: name, Err: err}
}

// IsCallError checks if an error is a failed cluster call
func IsCallError(err error) bool {
	var cerr *CallError
	return errors.As(err, &cerr)
}
