package registry

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/protocol"
)

type stubFactory struct {
	id     string
	schema map[string]any
}

func (f *stubFactory) ID() string { return f.id }

func (f *stubFactory) Schema() map[string]any { return f.schema }

func (f *stubFactory) Create(_ map[string]any) (protocol.Executor, error) {
	return &stubExecutor{}, nil
}

type stubExecutor struct{}

func (e *stubExecutor) Execute(_ context.Context, _ *models.ExecutionContext, _ *models.Tenant) (map[string]any, error) {
	return map[string]any{"stub_result": true}, nil
}

func newTestRegistry() *Registry {
	return NewRegistry(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRegisterAndCreate(t *testing.T) {
	reg := newTestRegistry()
	reg.Register(&stubFactory{id: "action_stub", schema: map[string]any{"type": "object"}})

	assert.True(t, reg.Registered("action_stub"))
	assert.False(t, reg.Registered("action_other"))

	executor, err := reg.Create("action_stub", map[string]any{})
	require.NoError(t, err)
	require.NotNil(t, executor)

	_, err = reg.Create("action_other", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestValidateConfig(t *testing.T) {
	reg := newTestRegistry()
	reg.Register(&stubFactory{
		id: "action_stub",
		schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"prompt": map[string]any{"type": "string"},
			},
			"required": []string{"prompt"},
		},
	})

	t.Run("valid config passes", func(t *testing.T) {
		err := reg.ValidateConfig("action_stub", map[string]any{"prompt": "hello"})
		assert.NoError(t, err)
	})

	t.Run("missing required field fails", func(t *testing.T) {
		err := reg.ValidateConfig("action_stub", map[string]any{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "prompt")
	})

	t.Run("wrong type fails", func(t *testing.T) {
		err := reg.ValidateConfig("action_stub", map[string]any{"prompt": float64(1)})
		assert.Error(t, err)
	})

	t.Run("unregistered type passes", func(t *testing.T) {
		err := reg.ValidateConfig("action_unknown", map[string]any{"anything": true})
		assert.NoError(t, err)
	})
}
