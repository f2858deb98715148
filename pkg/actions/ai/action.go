// Package ai provides the chat-completion action executor.
package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/protocol"
)

const defaultModel = "gpt-4o-mini"

var (
	// ErrPromptRequired is returned when the node config has no prompt.
	ErrPromptRequired = errors.New("action_ai requires a prompt")
	// ErrMissingCredential is returned when the tenant has no AI API key.
	ErrMissingCredential = errors.New("tenant has no ai_api_key credential")
)

// Action sends the configured prompt to the chat-completion API and stores
// the answer under ai_result.
type Action struct {
	Prompt string
	Model  string
	client *Client
}

// Factory creates action_ai executors.
type Factory struct {
	client *Client
}

func NewFactory(client *Client) *Factory {
	return &Factory{client: client}
}

func (f *Factory) ID() string {
	return models.NodeTypeActionAI
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"prompt": map[string]any{
				"type":        "string",
				"description": "Prompt sent to the chat-completion API; supports {{path}} placeholders",
			},
			"model": map[string]any{
				"type":        "string",
				"description": "Model identifier, defaults to " + defaultModel,
			},
		},
		"required": []string{"prompt"},
	}
}

func (f *Factory) Create(config map[string]any) (protocol.Executor, error) {
	prompt, _ := config["prompt"].(string)
	if prompt == "" {
		return nil, ErrPromptRequired
	}

	model, _ := config["model"].(string)
	if model == "" {
		model = defaultModel
	}

	return &Action{Prompt: prompt, Model: model, client: f.client}, nil
}

func (a *Action) Execute(ctx context.Context, _ *models.ExecutionContext, tenant *models.Tenant) (map[string]any, error) {
	apiKey := tenant.Credential(models.CredentialAIAPIKey)
	if apiKey == "" {
		return nil, ErrMissingCredential
	}

	answer, err := a.client.Complete(ctx, apiKey, a.Model, []Message{
		{Role: "user", Content: a.Prompt},
	})
	if err != nil {
		return nil, fmt.Errorf("ai completion failed: %w", err)
	}

	return map[string]any{"ai_result": answer}, nil
}
