package models

import "time"

// AutomationRule is a persisted, tenant-owned workflow with its trigger
// configuration. Any change to Enabled or Definition requires a scheduler
// reconcile for the rule's cron registration.
type AutomationRule struct {
	ID            string              `json:"id"`
	TenantID      string              `json:"tenant_id"           validate:"required"`
	Name          string              `json:"name"                validate:"required,min=3"`
	Enabled       bool                `json:"enabled"`
	Definition    *WorkflowDefinition `json:"workflow_definition" validate:"required"`
	LastRunAt     *time.Time          `json:"last_run_at,omitempty"`
	LastRunStatus RunStatus           `json:"last_run_status,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}
