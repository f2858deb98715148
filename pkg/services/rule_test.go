package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaycrm/relay/pkg/actions/ai"
	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/persistence/memory"
	"github.com/relaycrm/relay/pkg/registry"
)

type recordingReconciler struct {
	ruleIDs []string
}

func (r *recordingReconciler) ReconcileRule(_ context.Context, ruleID string) error {
	r.ruleIDs = append(r.ruleIDs, ruleID)

	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRuleService(t *testing.T) (*Rule, *memory.Persistence, *recordingReconciler) {
	t.Helper()

	store := memory.NewPersistence()
	reconciler := &recordingReconciler{}

	reg := registry.NewRegistry(testLogger())
	reg.Register(ai.NewFactory(ai.NewClient("http://localhost")))

	return NewRule(testLogger(), store, reg, reconciler), store, reconciler
}

func validRule() *models.AutomationRule {
	return &models.AutomationRule{
		TenantID: "tenant-1",
		Name:     "follow up",
		Enabled:  true,
		Definition: &models.WorkflowDefinition{
			Nodes: []*models.WorkflowNode{
				{ID: "t", Type: models.NodeTypeTriggerEvent, Data: map[string]any{"event": "deal.created"}},
				{ID: "a", Type: models.NodeTypeActionAI, Data: map[string]any{"prompt": "summarize"}},
			},
			Edges: []*models.WorkflowEdge{
				{ID: "e1", Source: "t", Target: "a"},
			},
		},
	}
}

func TestCreateRule(t *testing.T) {
	service, store, reconciler := newRuleService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, validRule())
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	stored, err := store.RuleByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "follow up", stored.Name)

	assert.Equal(t, []string{created.ID}, reconciler.ruleIDs)
}

func TestCreateRuleValidation(t *testing.T) {
	service, _, reconciler := newRuleService(t)
	ctx := context.Background()

	t.Run("short name", func(t *testing.T) {
		rule := validRule()
		rule.Name = "ab"

		_, err := service.Create(ctx, rule)
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("missing definition", func(t *testing.T) {
		rule := validRule()
		rule.Definition = nil

		_, err := service.Create(ctx, rule)
		assert.Error(t, err)
	})

	t.Run("duplicate node id", func(t *testing.T) {
		rule := validRule()
		rule.Definition.Nodes = append(rule.Definition.Nodes, &models.WorkflowNode{
			ID: "a", Type: models.NodeTypeActionAI, Data: map[string]any{"prompt": "again"},
		})

		_, err := service.Create(ctx, rule)
		assert.ErrorIs(t, err, ErrDuplicateNodeID)
	})

	t.Run("dangling edge", func(t *testing.T) {
		rule := validRule()
		rule.Definition.Edges = append(rule.Definition.Edges, &models.WorkflowEdge{
			ID: "e2", Source: "a", Target: "ghost",
		})

		_, err := service.Create(ctx, rule)
		assert.ErrorIs(t, err, ErrDanglingEdge)
	})

	t.Run("cyclic graph", func(t *testing.T) {
		rule := validRule()
		rule.Definition.Edges = append(rule.Definition.Edges, &models.WorkflowEdge{
			ID: "e2", Source: "a", Target: "t",
		})

		_, err := service.Create(ctx, rule)
		assert.ErrorIs(t, err, ErrCyclicWorkflow)
	})

	t.Run("invalid node config", func(t *testing.T) {
		rule := validRule()
		rule.Definition.Nodes[1].Data = map[string]any{}

		_, err := service.Create(ctx, rule)
		assert.ErrorIs(t, err, ErrInvalidNodeConfig)
	})

	// No invalid rule reached the reconciler.
	assert.Empty(t, reconciler.ruleIDs)
}

func TestUpdateRule(t *testing.T) {
	service, _, reconciler := newRuleService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, validRule())
	require.NoError(t, err)

	created.Name = "follow up v2"
	created.Enabled = false

	updated, err := service.Update(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, "follow up v2", updated.Name)
	assert.False(t, updated.Enabled)

	// Create and update both reconcile.
	assert.Equal(t, []string{created.ID, created.ID}, reconciler.ruleIDs)
}

func TestUpdateRuleTenantMismatch(t *testing.T) {
	service, _, _ := newRuleService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, validRule())
	require.NoError(t, err)

	created.TenantID = "tenant-2"

	_, err = service.Update(ctx, created)
	assert.ErrorIs(t, err, ErrTenantMismatch)
}

func TestDeleteRuleReconciles(t *testing.T) {
	service, store, reconciler := newRuleService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, validRule())
	require.NoError(t, err)

	require.NoError(t, service.Delete(ctx, "tenant-1", created.ID))

	_, err = store.RuleByID(ctx, created.ID)
	assert.ErrorIs(t, err, ErrRuleNotFound)

	assert.Equal(t, []string{created.ID, created.ID}, reconciler.ruleIDs)
}

func TestGetRuleScopedToTenant(t *testing.T) {
	service, _, _ := newRuleService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, validRule())
	require.NoError(t, err)

	_, err = service.Get(ctx, "tenant-2", created.ID)
	assert.ErrorIs(t, err, ErrRuleNotFound)

	rule, err := service.Get(ctx, "tenant-1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, rule.ID)
}
