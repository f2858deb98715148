// Package agent provides the multi-step AI agent action executor. Unlike
// action_ai's single completion, the agent iterates: each turn the model either
// continues reasoning or emits a final answer, and intermediate turns are fed
// back into the conversation.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/relaycrm/relay/pkg/actions/ai"
	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/protocol"
)

const (
	defaultModel         = "gpt-4o-mini"
	defaultMaxIterations = 5

	finalMarker = "FINAL:"

	systemPrompt = "You are an automation agent working on a CRM task. " +
		"Work step by step. When you have the final answer, reply with a " +
		"single line starting with FINAL: followed by the answer. " +
		"Otherwise describe your next reasoning step."
)

var (
	// ErrGoalRequired is returned when the node config has no goal.
	ErrGoalRequired = errors.New("action_ai_agent requires a goal")
	// ErrMissingCredential is returned when the tenant has no AI API key.
	ErrMissingCredential = errors.New("tenant has no ai_api_key credential")
)

// Action runs the agent loop and stores the answer and its intermediate turns
// under ai_agent_result.
type Action struct {
	Goal          string
	Model         string
	MaxIterations int
	client        *ai.Client
}

// Factory creates action_ai_agent executors.
type Factory struct {
	client *ai.Client
}

func NewFactory(client *ai.Client) *Factory {
	return &Factory{client: client}
}

func (f *Factory) ID() string {
	return models.NodeTypeActionAIAgent
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"goal": map[string]any{
				"type":        "string",
				"description": "Task for the agent; supports {{path}} placeholders",
			},
			"model": map[string]any{"type": "string"},
			"maxIterations": map[string]any{
				"type":    "integer",
				"minimum": 1,
				"maximum": 10,
			},
		},
		"required": []string{"goal"},
	}
}

func (f *Factory) Create(config map[string]any) (protocol.Executor, error) {
	goal, _ := config["goal"].(string)
	if goal == "" {
		return nil, ErrGoalRequired
	}

	model, _ := config["model"].(string)
	if model == "" {
		model = defaultModel
	}

	maxIterations := defaultMaxIterations
	if raw, ok := config["maxIterations"].(float64); ok && raw > 0 {
		maxIterations = int(raw)
	}

	return &Action{
		Goal:          goal,
		Model:         model,
		MaxIterations: maxIterations,
		client:        f.client,
	}, nil
}

func (a *Action) Execute(ctx context.Context, _ *models.ExecutionContext, tenant *models.Tenant) (map[string]any, error) {
	apiKey := tenant.Credential(models.CredentialAIAPIKey)
	if apiKey == "" {
		return nil, ErrMissingCredential
	}

	messages := []ai.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: a.Goal},
	}

	turns := make([]string, 0, a.MaxIterations)
	answer := ""

	for i := 0; i < a.MaxIterations; i++ {
		reply, err := a.client.Complete(ctx, apiKey, a.Model, messages)
		if err != nil {
			return nil, fmt.Errorf("agent iteration %d failed: %w", i+1, err)
		}

		turns = append(turns, reply)

		trimmed := strings.TrimSpace(reply)
		if strings.HasPrefix(trimmed, finalMarker) {
			answer = strings.TrimSpace(strings.TrimPrefix(trimmed, finalMarker))

			break
		}

		messages = append(messages,
			ai.Message{Role: "assistant", Content: reply},
			ai.Message{Role: "user", Content: "Continue, or answer with FINAL: when done."},
		)
	}

	// No FINAL marker within the budget: take the last turn as the answer.
	if answer == "" && len(turns) > 0 {
		answer = strings.TrimSpace(turns[len(turns)-1])
	}

	return map[string]any{
		"ai_agent_result": map[string]any{
			"answer":     answer,
			"iterations": len(turns),
			"turns":      turns,
		},
	}, nil
}
