package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaycrm/relay/pkg/actions/ai"
	"github.com/relaycrm/relay/pkg/dispatcher"
	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/persistence/memory"
	"github.com/relaycrm/relay/pkg/queue"
	"github.com/relaycrm/relay/pkg/registry"
	"github.com/relaycrm/relay/pkg/services"
)

type nullQueue struct {
	enqueued int
}

func (q *nullQueue) Enqueue(_ context.Context, _ string, _ any) error {
	q.enqueued++

	return nil
}

func (q *nullQueue) Schedule(_ context.Context, _, _, _ string, _ any) error { return nil }
func (q *nullQueue) Unschedule(_ context.Context, _ string) error            { return nil }

func (q *nullQueue) RegisterWorker(_ context.Context, _ string, _ queue.WorkerOptions, _ queue.Handler) error {
	return nil
}

func (q *nullQueue) Close() error { return nil }

type noopReconciler struct{}

func (noopReconciler) ReconcileRule(_ context.Context, _ string) error { return nil }

func newTestApp(t *testing.T) (*fiber.App, *memory.Persistence, *nullQueue) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewPersistence()
	q := &nullQueue{}

	reg := registry.NewRegistry(logger)
	reg.Register(ai.NewFactory(ai.NewClient("http://localhost")))

	ruleService := services.NewRule(logger, store, reg, noopReconciler{})
	runService := services.NewRun(logger, store, q)
	eventDispatcher := dispatcher.NewDispatcher(logger, store, q)

	handlers := NewAPIHandlers(ruleService, runService, eventDispatcher, validator.New(validator.WithRequiredStructEnabled()))

	app := fiber.New()
	handlers.RegisterRoutes(app)

	return app, store, q
}

func doJSON(t *testing.T, app *fiber.App, method, path, tenantID string, body any) *http.Response {
	t.Helper()

	var reader io.Reader

	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if tenantID != "" {
		req.Header.Set(TenantHeader, tenantID)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()

	defer func() {
		_ = resp.Body.Close()
	}()

	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func ruleBody() map[string]any {
	return map[string]any{
		"name":    "follow up",
		"enabled": true,
		"workflow_definition": map[string]any{
			"nodes": []any{
				map[string]any{"id": "t", "type": "trigger_event", "data": map[string]any{"event": "deal.created"}},
				map[string]any{"id": "a", "type": "action_ai", "data": map[string]any{"prompt": "summarize"}},
			},
			"edges": []any{
				map[string]any{"id": "e1", "source": "t", "target": "a"},
			},
		},
	}
}

func TestCreateAndGetRule(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/api/automation-rules", "tenant-1", ruleBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.AutomationRule

	decodeBody(t, resp, &created)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "tenant-1", created.TenantID)

	resp = doJSON(t, app, http.MethodGet, "/api/automation-rules/"+created.ID, "tenant-1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Another tenant cannot see the rule.
	resp = doJSON(t, app, http.MethodGet, "/api/automation-rules/"+created.ID, "tenant-2", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateRuleRejectsCycle(t *testing.T) {
	app, _, _ := newTestApp(t)

	body := ruleBody()
	definition := body["workflow_definition"].(map[string]any)
	definition["edges"] = []any{
		map[string]any{"id": "e1", "source": "t", "target": "a"},
		map[string]any{"id": "e2", "source": "a", "target": "t"},
	}

	resp := doJSON(t, app, http.MethodPost, "/api/automation-rules", "tenant-1", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTenantHeaderRequired(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp := doJSON(t, app, http.MethodGet, "/api/automation-rules", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTriggerRun(t *testing.T) {
	app, store, q := newTestApp(t)

	rule := &models.AutomationRule{
		ID: "r1", TenantID: "tenant-1", Name: "follow up", Enabled: true,
		Definition: &models.WorkflowDefinition{},
	}
	require.NoError(t, store.SaveRule(context.Background(), rule))

	resp := doJSON(t, app, http.MethodPost, "/api/automation-runs/trigger", "tenant-1", map[string]any{"ruleId": "r1"})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, 1, q.enqueued)

	resp = doJSON(t, app, http.MethodPost, "/api/automation-runs/trigger", "tenant-1", map[string]any{"ruleId": "missing"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListRuns(t *testing.T) {
	app, store, _ := newTestApp(t)

	rule := &models.AutomationRule{
		ID: "r1", TenantID: "tenant-1", Name: "follow up", Enabled: true,
		Definition: &models.WorkflowDefinition{},
	}
	require.NoError(t, store.SaveRule(context.Background(), rule))
	require.NoError(t, store.CreateRun(context.Background(), &models.AutomationRun{
		ID: "run1", RuleID: "r1", TenantID: "tenant-1",
		Status: models.RunStatusSuccess, StartedAt: time.Now().UTC(),
	}))

	resp := doJSON(t, app, http.MethodGet, "/api/automation-runs?ruleId=r1&limit=10", "tenant-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Runs []*models.AutomationRun `json:"runs"`
	}

	decodeBody(t, resp, &payload)
	require.Len(t, payload.Runs, 1)
	assert.Equal(t, "run1", payload.Runs[0].ID)

	resp = doJSON(t, app, http.MethodGet, "/api/automation-runs", "tenant-1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFireEvent(t *testing.T) {
	app, store, q := newTestApp(t)

	rule := &models.AutomationRule{
		ID: "r1", TenantID: "tenant-1", Name: "on deal", Enabled: true,
		Definition: &models.WorkflowDefinition{
			Nodes: []*models.WorkflowNode{
				{ID: "t", Type: models.NodeTypeTriggerEvent, Data: map[string]any{"event": "deal.created"}},
			},
		},
	}
	require.NoError(t, store.SaveRule(context.Background(), rule))

	resp := doJSON(t, app, http.MethodPost, "/api/automation-events", "tenant-1", map[string]any{
		"event":   "deal.created",
		"payload": map[string]any{"deal_id": "d1"},
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var result struct {
		Matches int `json:"matches"`
	}

	decodeBody(t, resp, &result)
	assert.Equal(t, 1, result.Matches)
	assert.Equal(t, 1, q.enqueued)

	resp = doJSON(t, app, http.MethodPost, "/api/automation-events", "tenant-1", map[string]any{
		"event": "deal.updated",
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, 1, q.enqueued)
}
