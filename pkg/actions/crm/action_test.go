package crm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaycrm/relay/pkg/models"
)

type fakeClient struct {
	created    []map[string]any
	updated    []map[string]any
	recordType string
	recordID   string
	tenantID   string
	nextRecord map[string]any
}

func (c *fakeClient) CreateRecord(_ context.Context, tenantID, recordType string, fields map[string]any) (map[string]any, error) {
	c.tenantID = tenantID
	c.recordType = recordType
	c.created = append(c.created, fields)

	return c.nextRecord, nil
}

func (c *fakeClient) UpdateRecord(_ context.Context, tenantID, recordType, recordID string, fields map[string]any) (map[string]any, error) {
	c.tenantID = tenantID
	c.recordType = recordType
	c.recordID = recordID
	c.updated = append(c.updated, fields)

	return c.nextRecord, nil
}

func execute(t *testing.T, client Client, config map[string]any) (map[string]any, error) {
	t.Helper()

	factory := NewFactory(client)

	action, err := factory.Create(config)
	require.NoError(t, err)

	return action.Execute(context.Background(), nil, &models.Tenant{ID: "tenant-1"})
}

func TestCreateTask(t *testing.T) {
	client := &fakeClient{nextRecord: map[string]any{"id": "task-1"}}

	output, err := execute(t, client, map[string]any{
		"action":    OpCreateTask,
		"contactId": "42",
		"text":      "Follow up",
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"id": "task-1"}, output["crm_result"])
	assert.Equal(t, "tasks", client.recordType)
	assert.Equal(t, "tenant-1", client.tenantID)
	require.Len(t, client.created, 1)
	assert.Equal(t, "42", client.created[0]["contactId"])
	assert.Equal(t, "Follow up", client.created[0]["text"])
	assert.NotContains(t, client.created[0], "action")
}

func TestCreateTaskWithNestedParams(t *testing.T) {
	client := &fakeClient{nextRecord: map[string]any{"id": "task-2"}}

	output, err := execute(t, client, map[string]any{
		"action": OpCreateTask,
		"params": map[string]any{
			"contactId": "42",
			"text":      "Follow up",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"id": "task-2"}, output["crm_result"])
	require.Len(t, client.created, 1)
	assert.Equal(t, map[string]any{"contactId": "42", "text": "Follow up"}, client.created[0])
}

func TestCreateTaskRequiresContactID(t *testing.T) {
	client := &fakeClient{}

	_, err := execute(t, client, map[string]any{
		"action": OpCreateTask,
		"text":   "Follow up",
	})
	require.Error(t, err)
	assert.EqualError(t, err, "create_task requires a contactId")
	assert.Empty(t, client.created)
}

func TestUpdateOperationsRequireIdentifiers(t *testing.T) {
	cases := []struct {
		op      string
		missing string
	}{
		{OpUpdateTask, "taskId"},
		{OpUpdateContact, "contactId"},
		{OpUpdateDeal, "dealId"},
	}

	for _, tc := range cases {
		t.Run(tc.op, func(t *testing.T) {
			client := &fakeClient{}

			_, err := execute(t, client, map[string]any{"action": tc.op})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.missing)
		})
	}
}

func TestUpdateDeal(t *testing.T) {
	client := &fakeClient{nextRecord: map[string]any{"id": "deal-7", "stage": "won"}}

	output, err := execute(t, client, map[string]any{
		"action": OpUpdateDeal,
		"dealId": "deal-7",
		"stage":  "won",
	})
	require.NoError(t, err)

	assert.Equal(t, "deals", client.recordType)
	assert.Equal(t, "deal-7", client.recordID)
	assert.Equal(t, map[string]any{"id": "deal-7", "stage": "won"}, output["crm_result"])
}

func TestCreateContactRequiresName(t *testing.T) {
	client := &fakeClient{}

	_, err := execute(t, client, map[string]any{"action": OpCreateContact})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name")
}

func TestCreateNoteHasNoRequiredFields(t *testing.T) {
	client := &fakeClient{nextRecord: map[string]any{"id": "note-1"}}

	output, err := execute(t, client, map[string]any{
		"action":  OpCreateNote,
		"content": "called them",
	})
	require.NoError(t, err)
	assert.Equal(t, "notes", client.recordType)
	assert.Equal(t, map[string]any{"id": "note-1"}, output["crm_result"])
}

func TestUnknownAction(t *testing.T) {
	client := &fakeClient{}

	_, err := execute(t, client, map[string]any{"action": "archive_task"})
	require.Error(t, err)
	assert.EqualError(t, err, "unknown crm action: archive_task")
}

func TestFactoryRequiresAction(t *testing.T) {
	factory := NewFactory(&fakeClient{})

	_, err := factory.Create(map[string]any{})
	assert.ErrorIs(t, err, ErrActionRequired)
}

func TestFactoryID(t *testing.T) {
	assert.Equal(t, models.NodeTypeActionCRM, NewFactory(&fakeClient{}).ID())
}
