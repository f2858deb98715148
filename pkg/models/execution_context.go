package models

// Context keys with a stable meaning across all runs. Action executors add
// one further key each (ai_result, crm_result, ...). Two nodes of the same
// action type in one graph overwrite the shared key; outputs are not
// namespaced per node.
const (
	ContextKeyTriggerData = "trigger_data"
	ContextKeyTenant      = "sales_id"
	ContextKeySteps       = "_steps"
)

// ExecutionContext is the in-memory key-value state threaded through one run.
// It is never shared between concurrent runs.
type ExecutionContext struct {
	RuleID   string
	TenantID string
	Data     map[string]any
	Steps    []*StepTrace
}

// NewExecutionContext seeds a context with the trigger payload and the tenant
// identifier.
func NewExecutionContext(ruleID, tenantID string, triggerData map[string]any) *ExecutionContext {
	if triggerData == nil {
		triggerData = make(map[string]any)
	}

	return &ExecutionContext{
		RuleID:   ruleID,
		TenantID: tenantID,
		Data: map[string]any{
			ContextKeyTriggerData: triggerData,
			ContextKeyTenant:      tenantID,
		},
	}
}

// Merge applies a partial context update produced by an action executor.
// Existing keys are overwritten.
func (c *ExecutionContext) Merge(update map[string]any) {
	for key, value := range update {
		c.Data[key] = value
	}
}

// AddStep appends a step trace entry.
func (c *ExecutionContext) AddStep(step *StepTrace) {
	c.Steps = append(c.Steps, step)
}

// Snapshot returns the run-result representation: all context data plus the
// step trace under "_steps". This shape is consumed by the run-history UI and
// must stay stable.
func (c *ExecutionContext) Snapshot() map[string]any {
	snapshot := make(map[string]any, len(c.Data)+1)
	for key, value := range c.Data {
		snapshot[key] = value
	}

	snapshot[ContextKeySteps] = c.Steps

	return snapshot
}
