// Package workflow drives rule execution: ordering the node graph, dispatching
// action executors and recording run rows around each attempt.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/otelhelper"
	"github.com/relaycrm/relay/pkg/registry"
	"github.com/relaycrm/relay/pkg/template"
)

// CyclicWorkflowError reports nodes that never reached zero in-degree, either
// part of a cycle or downstream of one. Executing such a graph would silently
// skip those nodes, so the run fails instead.
type CyclicWorkflowError struct {
	NodeIDs []string
}

func (e *CyclicWorkflowError) Error() string {
	return fmt.Sprintf("workflow contains a cycle: nodes %s never become executable", strings.Join(e.NodeIDs, ", "))
}

// Executor runs one workflow graph to completion: topological order, template
// resolution against the accumulating context, sequential dispatch through the
// action registry.
type Executor struct {
	logger   *slog.Logger
	registry *registry.Registry
	tracer   trace.Tracer
}

func NewExecutor(logger *slog.Logger, registry *registry.Registry, tracer trace.Tracer) *Executor {
	return &Executor{
		logger:   logger.With("module", "workflow_executor"),
		registry: registry,
		tracer:   tracer,
	}
}

// Execute runs the definition with the given trigger payload and returns the
// final execution context. Execution is strictly sequential in topological
// order so later nodes can reference earlier outputs through templates. Any
// action failure halts the run; already-applied side effects stay applied.
func (e *Executor) Execute(
	ctx context.Context,
	rule *models.AutomationRule,
	tenant *models.Tenant,
	triggerData map[string]any,
) (*models.ExecutionContext, error) {
	logger := e.logger.With("rule_id", rule.ID, "tenant_id", tenant.ID)

	execCtx := models.NewExecutionContext(rule.ID, tenant.ID, triggerData)

	definition := rule.Definition
	if definition == nil || len(definition.Nodes) == 0 {
		logger.Info("Workflow has no nodes to execute")

		// Bare context: the trigger payload only, no tenant key.
		delete(execCtx.Data, models.ContextKeyTenant)

		return execCtx, nil
	}

	order, err := TopologicalOrder(definition)
	if err != nil {
		return execCtx, err
	}

	for _, nodeID := range order {
		node := definition.NodeByID(nodeID)
		if node == nil {
			continue
		}

		if node.IsTrigger() {
			// Triggers only seed the context, which is already done.
			continue
		}

		if !e.registry.Registered(node.Type) {
			logger.Warn("Unknown node type, skipping", "node_id", node.ID, "node_type", node.Type)

			continue
		}

		err := e.executeNode(ctx, logger, node, execCtx, tenant)
		if err != nil {
			return execCtx, err
		}
	}

	logger.Info("Completed workflow execution", "steps", len(execCtx.Steps))

	return execCtx, nil
}

func (e *Executor) executeNode(
	ctx context.Context,
	logger *slog.Logger,
	node *models.WorkflowNode,
	execCtx *models.ExecutionContext,
	tenant *models.Tenant,
) error {
	nodeCtx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.node",
		attribute.String(otelhelper.RuleIDKey, execCtx.RuleID),
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeTypeKey, node.Type),
	)
	defer span.End()

	logger.Info("Executing node", "node_id", node.ID, "node_type", node.Type)

	step := &models.StepTrace{
		NodeID:    node.ID,
		Type:      node.Type,
		StartedAt: time.Now().UTC(),
	}

	output, err := e.dispatch(nodeCtx, node, execCtx, tenant)

	step.FinishedAt = time.Now().UTC()
	step.DurationMs = step.FinishedAt.Sub(step.StartedAt).Milliseconds()

	if err != nil {
		step.Error = err.Error()
		execCtx.AddStep(step)
		otelhelper.SetError(span, err)
		logger.Error("Node execution failed", "node_id", node.ID, "error", err)

		return fmt.Errorf("node %s failed: %w", node.ID, err)
	}

	for key, value := range output {
		step.OutputKey = key
		step.Output = value
	}

	execCtx.Merge(output)
	execCtx.AddStep(step)

	return nil
}

func (e *Executor) dispatch(
	ctx context.Context,
	node *models.WorkflowNode,
	execCtx *models.ExecutionContext,
	tenant *models.Tenant,
) (map[string]any, error) {
	// Resolve against the current context so the node sees earlier outputs.
	resolved := template.ResolveConfig(node.Data, execCtx.Data)

	executor, err := e.registry.Create(node.Type, resolved)
	if err != nil {
		return nil, err
	}

	return executor.Execute(ctx, execCtx, tenant)
}

// TopologicalOrder computes the execution order for a definition via Kahn's
// algorithm. Ties are broken by node insertion order, which keeps trigger
// nodes first and makes the order deterministic for a fixed graph. Edges
// referencing unknown node ids are ignored. A graph whose nodes cannot all be
// ordered returns a CyclicWorkflowError naming the stuck nodes.
func TopologicalOrder(definition *models.WorkflowDefinition) ([]string, error) {
	known := make(map[string]bool, len(definition.Nodes))
	position := make(map[string]int, len(definition.Nodes))

	for i, node := range definition.Nodes {
		known[node.ID] = true
		position[node.ID] = i
	}

	inDegree := make(map[string]int, len(definition.Nodes))
	adjacency := make(map[string][]string, len(definition.Nodes))

	for _, node := range definition.Nodes {
		inDegree[node.ID] = 0
	}

	for _, edge := range definition.Edges {
		if !known[edge.Source] || !known[edge.Target] {
			continue
		}

		adjacency[edge.Source] = append(adjacency[edge.Source], edge.Target)
		inDegree[edge.Target]++
	}

	queue := make([]string, 0, len(definition.Nodes))
	for _, node := range definition.Nodes {
		if inDegree[node.ID] == 0 {
			queue = append(queue, node.ID)
		}
	}

	order := make([]string, 0, len(definition.Nodes))

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		order = append(order, current)

		ready := make([]string, 0, len(adjacency[current]))

		for _, next := range adjacency[current] {
			inDegree[next]--
			if inDegree[next] == 0 {
				ready = append(ready, next)
			}
		}

		// Newly ready nodes join the queue in insertion order.
		sort.Slice(ready, func(i, j int) bool {
			return position[ready[i]] < position[ready[j]]
		})

		queue = append(queue, ready...)
	}

	if len(order) < len(definition.Nodes) {
		stuck := make([]string, 0, len(definition.Nodes)-len(order))

		for _, node := range definition.Nodes {
			if inDegree[node.ID] > 0 {
				stuck = append(stuck, node.ID)
			}
		}

		return nil, &CyclicWorkflowError{NodeIDs: stuck}
	}

	return order, nil
}
