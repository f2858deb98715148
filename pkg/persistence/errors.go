package persistence

import "errors"

// Standard persistence error types that all implementations should use.
var (
	// ErrTenantNotFound indicates a tenant was not found by the given identifier.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrRuleNotFound indicates an automation rule was not found by the given identifier.
	ErrRuleNotFound = errors.New("automation rule not found")

	// ErrRunNotFound indicates an automation run was not found by the given identifier.
	ErrRunNotFound = errors.New("automation run not found")
)

// IsTenantNotFound checks if an error indicates a tenant was not found.
func IsTenantNotFound(err error) bool {
	return errors.Is(err, ErrTenantNotFound)
}

// IsRuleNotFound checks if an error indicates a rule was not found.
func IsRuleNotFound(err error) bool {
	return errors.Is(err, ErrRuleNotFound)
}

// IsRunNotFound checks if an error indicates a run was not found.
func IsRunNotFound(err error) bool {
	return errors.Is(err, ErrRunNotFound)
}
