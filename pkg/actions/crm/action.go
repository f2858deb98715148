// Package crm provides the CRM record mutation action executor. One node type
// covers tasks, contacts, deals and notes; the config's action field selects
// the sub-operation.
package crm

import (
	"context"
	"errors"
	"fmt"

	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/protocol"
)

// Sub-operations accepted in the node config's action field.
const (
	OpCreateTask    = "create_task"
	OpUpdateTask    = "update_task"
	OpCreateContact = "create_contact"
	OpUpdateContact = "update_contact"
	OpCreateDeal    = "create_deal"
	OpUpdateDeal    = "update_deal"
	OpCreateNote    = "create_note"
)

// ErrActionRequired is returned when the node config has no action field.
var ErrActionRequired = errors.New("action_crm requires an action")

// Action applies one CRM mutation and stores the resulting record under
// crm_result.
type Action struct {
	Op     string
	Config map[string]any
	client Client
}

// Factory creates action_crm executors.
type Factory struct {
	client Client
}

func NewFactory(client Client) *Factory {
	return &Factory{client: client}
}

func (f *Factory) ID() string {
	return models.NodeTypeActionCRM
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action": map[string]any{
				"type": "string",
				"enum": []string{
					OpCreateTask, OpUpdateTask,
					OpCreateContact, OpUpdateContact,
					OpCreateDeal, OpUpdateDeal,
					OpCreateNote,
				},
			},
			"params": map[string]any{
				"type": "object",
			},
		},
		"required": []string{"action"},
	}
}

func (f *Factory) Create(config map[string]any) (protocol.Executor, error) {
	op, _ := config["action"].(string)
	if op == "" {
		return nil, ErrActionRequired
	}

	return &Action{Op: op, Config: config, client: f.client}, nil
}

func (a *Action) Execute(ctx context.Context, _ *models.ExecutionContext, tenant *models.Tenant) (map[string]any, error) {
	record, err := a.dispatch(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}

	return map[string]any{"crm_result": record}, nil
}

func (a *Action) dispatch(ctx context.Context, tenantID string) (map[string]any, error) {
	switch a.Op {
	case OpCreateTask:
		contactID := a.stringField("contactId")
		if contactID == "" {
			return nil, errors.New("create_task requires a contactId")
		}

		return a.client.CreateRecord(ctx, tenantID, "tasks", a.fields())
	case OpUpdateTask:
		taskID := a.stringField("taskId")
		if taskID == "" {
			return nil, errors.New("update_task requires a taskId")
		}

		return a.client.UpdateRecord(ctx, tenantID, "tasks", taskID, a.fields())
	case OpCreateContact:
		if a.stringField("name") == "" {
			return nil, errors.New("create_contact requires a name")
		}

		return a.client.CreateRecord(ctx, tenantID, "contacts", a.fields())
	case OpUpdateContact:
		contactID := a.stringField("contactId")
		if contactID == "" {
			return nil, errors.New("update_contact requires a contactId")
		}

		return a.client.UpdateRecord(ctx, tenantID, "contacts", contactID, a.fields())
	case OpCreateDeal:
		if a.stringField("name") == "" {
			return nil, errors.New("create_deal requires a name")
		}

		return a.client.CreateRecord(ctx, tenantID, "deals", a.fields())
	case OpUpdateDeal:
		dealID := a.stringField("dealId")
		if dealID == "" {
			return nil, errors.New("update_deal requires a dealId")
		}

		return a.client.UpdateRecord(ctx, tenantID, "deals", dealID, a.fields())
	case OpCreateNote:
		return a.client.CreateRecord(ctx, tenantID, "notes", a.fields())
	default:
		return nil, fmt.Errorf("unknown crm action: %s", a.Op)
	}
}

func (a *Action) stringField(key string) string {
	value, _ := a.fields()[key].(string)

	return value
}

// fields returns the record fields for the mutation. Configs may nest them
// under a params object or place them next to the action selector; identifier
// fields stay in, the backend uses them for record linkage.
func (a *Action) fields() map[string]any {
	if params, ok := a.Config["params"].(map[string]any); ok {
		return params
	}

	fields := make(map[string]any, len(a.Config))

	for key, value := range a.Config {
		if key == "action" {
			continue
		}

		fields[key] = value
	}

	return fields
}
