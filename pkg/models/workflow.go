// Package models defines the core domain models for the automation engine.
package models

// Node type tags understood by the engine. Action tags map to registered
// executors; trigger tags only seed the execution context.
const (
	NodeTypeTriggerEvent    = "trigger_event"
	NodeTypeTriggerSchedule = "trigger_schedule"

	NodeTypeActionEmail     = "action_email"
	NodeTypeActionAI        = "action_ai"
	NodeTypeActionWebSearch = "action_web_search"
	NodeTypeActionCRM       = "action_crm"
	NodeTypeActionSlack     = "action_slack"
	NodeTypeActionGmail     = "action_gmail"
	NodeTypeActionAIAgent   = "action_ai_agent"
)

// Position is editor-facing placement data. The engine never reads it but the
// persisted JSON shape must round-trip it unchanged.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// WorkflowNode is one node of a rule's workflow graph.
type WorkflowNode struct {
	ID       string         `json:"id"       validate:"required"`
	Type     string         `json:"type"     validate:"required"`
	Position Position       `json:"position"`
	Data     map[string]any `json:"data"`
}

// IsTrigger reports whether the node is a trigger node.
func (n *WorkflowNode) IsTrigger() bool {
	return n.Type == NodeTypeTriggerEvent || n.Type == NodeTypeTriggerSchedule
}

// WorkflowEdge orders execution: target runs after source and may read values
// source produced.
type WorkflowEdge struct {
	ID     string `json:"id"`
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}

// WorkflowDefinition is the node/edge graph embedded inside an automation
// rule. It is a value object, persisted as a single JSONB column.
type WorkflowDefinition struct {
	Nodes []*WorkflowNode `json:"nodes"`
	Edges []*WorkflowEdge `json:"edges"`
}

// NodeByID returns the node with the given id, or nil.
func (d *WorkflowDefinition) NodeByID(id string) *WorkflowNode {
	for _, node := range d.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

// ScheduleNode returns the first trigger_schedule node, or nil. Additional
// schedule-trigger nodes in the same graph are not honored.
func (d *WorkflowDefinition) ScheduleNode() *WorkflowNode {
	for _, node := range d.Nodes {
		if node.Type == NodeTypeTriggerSchedule {
			return node
		}
	}

	return nil
}

// CronExpression returns the cron field of the first schedule-trigger node.
// The second return is false when the graph has no schedule trigger or the
// node carries no cron expression.
func (d *WorkflowDefinition) CronExpression() (string, bool) {
	node := d.ScheduleNode()
	if node == nil {
		return "", false
	}

	expr, ok := node.Data["cron"].(string)
	if !ok || expr == "" {
		return "", false
	}

	return expr, true
}

// MatchesEvent reports whether any trigger_event node carries the given event
// name. Matching is an exact string comparison, e.g. "deal.created".
func (d *WorkflowDefinition) MatchesEvent(eventName string) bool {
	for _, node := range d.Nodes {
		if node.Type != NodeTypeTriggerEvent {
			continue
		}

		if event, ok := node.Data["event"].(string); ok && event == eventName {
			return true
		}
	}

	return false
}
