package services

import (
	"errors"
	"fmt"
)

// ErrNotFound signals an absent course structure or progress record. Callers
// degrade gracefully instead of failing the request.
var ErrNotFound = errors.New("not found")

// ValidationError rejects a malformed event before it reaches the log.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
	}
	return "validation failed: " + e.Reason
}

// TransientDependencyError wraps a failure of an external collaborator
// (course structure provider). Already-persisted counters are never rolled
// back because of one.
type TransientDependencyError struct {
	Dependency string
	Err        error
}

func (e *TransientDependencyError) Error() string {
	return fmt.Sprintf("dependency %s unavailable: %v", e.Dependency, e.Err)
}

func (e *TransientDependencyError) Unwrap() error {
	return e.Err
}
