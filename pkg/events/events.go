// Package events defines the job payloads and queue names exchanged through
// the job queue.
package events

// QueueAutomationRuns carries run jobs: one message per execution attempt.
const QueueAutomationRuns = "relay.automation.runs"

// ScheduleName returns the deterministic cron registration name for a rule.
// Using the rule id makes reconciliation idempotent: re-registering replaces
// the previous registration instead of stacking a second one.
func ScheduleName(ruleID string) string {
	return "rule-schedule-" + ruleID
}

// RunJob requests one execution of a rule's workflow. Event-triggered jobs
// carry the domain event payload as TriggerData; cron and manual runs carry
// an empty payload.
type RunJob struct {
	RuleID      string         `json:"rule_id"`
	TenantID    string         `json:"tenant_id"`
	TriggerData map[string]any `json:"trigger_data,omitempty"`
}
