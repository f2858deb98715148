// Package email provides the transactional email action executor.
package email

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

const defaultTimeoutSeconds = 30

var (
	// ErrRecipientRequired is returned when the node config has no recipient.
	ErrRecipientRequired = errors.New("action_email requires a to address")
	// ErrMissingCredential is returned when the tenant has no email API key.
	ErrMissingCredential = errors.New("tenant has no email_api_key credential")
)

// Action sends one email through the configured delivery API and stores the
// provider response under email_result.
type Action struct {
	To      string
	Subject string
	Body    string

	baseURL string
	client  *http.Client
}

// Factory creates action_email executors.
type Factory struct {
	baseURL string
	client  *http.Client
}

func NewFactory(baseURL string) *Factory {
	return &Factory{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultTimeoutSeconds * time.Second},
	}
}

func (f *Factory) ID() string {
	return models.NodeTypeActionEmail
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"to":      map[string]any{"type": "string"},
			"subject": map[string]any{"type": "string"},
			"body":    map[string]any{"type": "string"},
		},
		"required": []string{"to"},
	}
}

func (f *Factory) Create(config map[string]any) (protocol.Executor, error) {
	to, _ := config["to"].(string)
	if to == "" {
		return nil, ErrRecipientRequired
	}

	subject, _ := config["subject"].(string)
	body, _ := config["body"].(string)

	return &Action{
		To:      to,
		Subject: subject,
		Body:    body,
		baseURL: f.baseURL,
		client:  f.client,
	}, nil
}

func (a *Action) Execute(ctx context.Context, _ *models.ExecutionContext, tenant *models.Tenant) (map[string]any, error) {
	apiKey := tenant.Credential(models.CredentialEmailAPIKey)
	if apiKey == "" {
		return nil, ErrMissingCredential
	}

	payload, err := json.Marshal(map[string]any{
		"to":      a.To,
		"subject": a.Subject,
		"body":    a.Body,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build email request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("email send failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return nil, fmt.Errorf("email API returned status %d: %s", resp.StatusCode, string(detail))
	}

	var result map[string]any

	err = json.NewDecoder(resp.Body).Decode(&result)
	if err != nil {
		return nil, fmt.Errorf("failed to decode email response: %w", err)
	}

	return map[string]any{"email_result": result}, nil
}
