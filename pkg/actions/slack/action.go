// Package slack provides the Slack message action executor.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/protocol"
)

const (
	defaultTimeoutSeconds = 30
	defaultBaseURL        = "https://slack.com/api"
)

var (
	// ErrChannelRequired is returned when the node config has no channel.
	ErrChannelRequired = errors.New("action_slack requires a channel")
	// ErrMessageRequired is returned when the node config has no message.
	ErrMessageRequired = errors.New("action_slack requires a message")
	// ErrMissingCredential is returned when the tenant has no Slack token.
	ErrMissingCredential = errors.New("tenant has no slack_token credential")
)

// Action posts one message via chat.postMessage and stores the API response
// under slack_result.
type Action struct {
	Channel string
	Message string

	baseURL string
	client  *http.Client
}

// Factory creates action_slack executors.
type Factory struct {
	baseURL string
	client  *http.Client
}

func NewFactory(baseURL string) *Factory {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Factory{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultTimeoutSeconds * time.Second},
	}
}

func (f *Factory) ID() string {
	return models.NodeTypeActionSlack
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"channel": map[string]any{"type": "string"},
			"message": map[string]any{"type": "string"},
		},
		"required": []string{"channel", "message"},
	}
}

func (f *Factory) Create(config map[string]any) (protocol.Executor, error) {
	channel, _ := config["channel"].(string)
	if channel == "" {
		return nil, ErrChannelRequired
	}

	message, _ := config["message"].(string)
	if message == "" {
		return nil, ErrMessageRequired
	}

	return &Action{
		Channel: channel,
		Message: message,
		baseURL: f.baseURL,
		client:  f.client,
	}, nil
}

func (a *Action) Execute(ctx context.Context, _ *models.ExecutionContext, tenant *models.Tenant) (map[string]any, error) {
	token := tenant.Credential(models.CredentialSlackToken)
	if token == "" {
		return nil, ErrMissingCredential
	}

	payload, err := json.Marshal(map[string]any{
		"channel": a.Channel,
		"text":    a.Message,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat.postMessage", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build slack request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("slack request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return nil, fmt.Errorf("slack API returned status %d: %s", resp.StatusCode, string(detail))
	}

	var result struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
		TS    string `json:"ts"`
	}

	err = json.NewDecoder(resp.Body).Decode(&result)
	if err != nil {
		return nil, fmt.Errorf("failed to decode slack response: %w", err)
	}

	// Slack reports failures in the body with a 200 status.
	if !result.OK {
		return nil, fmt.Errorf("slack API error: %s", result.Error)
	}

	return map[string]any{
		"slack_result": map[string]any{
			"ok":      true,
			"channel": a.Channel,
			"ts":      result.TS,
		},
	}, nil
}
