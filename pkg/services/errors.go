// Package services provides the business operations behind the HTTP surface:
// rule CRUD with save-time validation and scheduler reconciliation, manual run
// triggering and run history.
package services

import (
	"errors"
	"fmt"
)

// Business logic errors. These indicate client errors (4xx responses).
var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrRuleNameRequired    = errors.New("rule name is required")
	ErrDefinitionRequired  = errors.New("rule must have a workflow definition")
	ErrDanglingEdge        = errors.New("edge references a node that does not exist")
	ErrDuplicateNodeID     = errors.New("node ids must be unique within a workflow")
	ErrCyclicWorkflow      = errors.New("workflow graph contains a cycle")
	ErrInvalidNodeConfig   = errors.New("invalid node configuration")
	ErrRuleDisabled        = errors.New("rule is disabled")
	ErrTenantMismatch      = errors.New("rule belongs to a different tenant")
	ErrInvalidRunListLimit = errors.New("run list limit must be between 1 and 200")
)

// ServiceError wraps service-level errors with operation context.
type ServiceError struct {
	Op      string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error should map to HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrRuleNameRequired) ||
		errors.Is(err, ErrDefinitionRequired) ||
		errors.Is(err, ErrDanglingEdge) ||
		errors.Is(err, ErrDuplicateNodeID) ||
		errors.Is(err, ErrCyclicWorkflow) ||
		errors.Is(err, ErrInvalidNodeConfig) ||
		errors.Is(err, ErrRuleDisabled) ||
		errors.Is(err, ErrTenantMismatch) ||
		errors.Is(err, ErrInvalidRunListLimit)
}

// NewValidationError creates a validation error with context.
func NewValidationError(op, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Message: message,
		Err:     err,
	}
}
