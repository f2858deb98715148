// Package registry maps node type tags to action executor factories.
package registry

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/xeipuuv/gojsonschema"

	"github.com/relaycrm/relay/pkg/protocol"
)

// Registry is the dispatch table for action node types. Factories are
// registered at startup; the workflow executor creates a fresh executor per
// dispatched node from its resolved configuration.
type Registry struct {
	logger    *slog.Logger
	factories map[string]protocol.ExecutorFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		factories: make(map[string]protocol.ExecutorFactory),
	}
}

// Register adds an executor factory, replacing any previous registration for
// the same node type.
func (r *Registry) Register(factory protocol.ExecutorFactory) {
	r.factories[factory.ID()] = factory
}

// Registered reports whether a node type has an executor factory.
func (r *Registry) Registered(nodeType string) bool {
	_, ok := r.factories[nodeType]

	return ok
}

// Create builds an executor for the node type from resolved configuration.
func (r *Registry) Create(nodeType string, config map[string]any) (protocol.Executor, error) {
	factory, ok := r.factories[nodeType]
	if !ok {
		return nil, fmt.Errorf("node type %q not registered", nodeType)
	}

	return factory.Create(config)
}

// ValidateConfig checks a node's raw configuration against the factory's JSON
// schema. Node types without a registered factory pass validation; the
// executor skips them at run time.
func (r *Registry) ValidateConfig(nodeType string, config map[string]any) error {
	factory, ok := r.factories[nodeType]
	if !ok {
		return nil
	}

	schemaJSON, err := json.Marshal(factory.Schema())
	if err != nil {
		return fmt.Errorf("failed to marshal schema for %s: %w", nodeType, err)
	}

	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return fmt.Errorf("failed to validate config for %s: %w", nodeType, err)
	}

	if !result.Valid() {
		detail := ""
		for _, desc := range result.Errors() {
			if detail != "" {
				detail += "; "
			}

			detail += desc.String()
		}

		return fmt.Errorf("invalid %s configuration: %s", nodeType, detail)
	}

	return nil
}
