package web

import "github.com/relaycrm/relay/pkg/models"

// CreateRuleRequest is the payload for creating an automation rule.
type CreateRuleRequest struct {
	Name       string                     `json:"name"                validate:"required,min=3"`
	Enabled    bool                       `json:"enabled"`
	Definition *models.WorkflowDefinition `json:"workflow_definition" validate:"required"`
}

// UpdateRuleRequest is the payload for partially updating a rule. Nil fields
// keep the stored value.
type UpdateRuleRequest struct {
	Name       *string                    `json:"name,omitempty"    validate:"omitempty,min=3"`
	Enabled    *bool                      `json:"enabled,omitempty"`
	Definition *models.WorkflowDefinition `json:"workflow_definition,omitempty"`
}

// TriggerRunRequest is the payload for the manual "run now" endpoint.
type TriggerRunRequest struct {
	RuleID string `json:"ruleId" validate:"required"`
}

// FireEventRequest is the payload domain services post when a record changes,
// e.g. {"event": "deal.created", "payload": {...}}.
type FireEventRequest struct {
	Event   string         `json:"event"   validate:"required"`
	Payload map[string]any `json:"payload"`
}
