package models

import "time"

// RunStatus is the lifecycle state of an automation run.
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusError   RunStatus = "error"
)

// AutomationRun is the persisted audit record of one execution attempt.
// It is inserted with status running before any node executes and finalized
// exactly once to success or error. The engine never deletes runs.
type AutomationRun struct {
	ID         string         `json:"id"`
	RuleID     string         `json:"rule_id"`
	TenantID   string         `json:"tenant_id"`
	Status     RunStatus      `json:"status"`
	Result     map[string]any `json:"result,omitempty"`
	Error      *string        `json:"error,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
}

// StepTrace records one executed node inside a run result, appended under the
// "_steps" key of the result snapshot. The run-history UI depends on this
// shape.
type StepTrace struct {
	NodeID     string    `json:"nodeId"`
	Type       string    `json:"type"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	DurationMs int64     `json:"durationMs"`
	OutputKey  string    `json:"outputKey,omitempty"`
	Output     any       `json:"output,omitempty"`
	Error      string    `json:"error,omitempty"`
}
