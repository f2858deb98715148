// Package protocol defines the contracts between the workflow engine and
// action executors.
package protocol

import (
	"context"

	"github.com/relaycrm/relay/pkg/models"
)

// Executor performs one action node's side effect. It returns a partial
// context update (typically a single key such as crm_result) that the engine
// merges into the run's execution context, or a descriptive error that halts
// the run. Executors must tolerate re-invocation: re-runs are a supported
// user action and at-most-once semantics are not guaranteed.
type Executor interface {
	Execute(ctx context.Context, execCtx *models.ExecutionContext, tenant *models.Tenant) (map[string]any, error)
}

// ExecutorFactory creates executors for one node type from a node's resolved
// configuration. Factories are registered once at startup; Create is called
// per dispatch with the template-resolved config of the node being executed.
type ExecutorFactory interface {
	// ID returns the node type tag this factory serves, e.g. "action_crm".
	ID() string

	// Create builds an executor from resolved node configuration.
	Create(config map[string]any) (Executor, error)

	// Schema returns the JSON schema describing the node configuration,
	// used for save-time validation.
	Schema() map[string]any
}
