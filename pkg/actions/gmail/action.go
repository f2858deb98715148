// Package gmail provides the Gmail action executor. The operation field
// selects between reading recent messages and sending one.
package gmail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/protocol"
)

const (
	defaultTimeoutSeconds = 30
	defaultReadLimit      = 10

	// OperationRead lists recent messages matching the optional query.
	OperationRead = "read"
	// OperationSend sends one message.
	OperationSend = "send"
)

var (
	// ErrOperationRequired is returned when the node config has no operation.
	ErrOperationRequired = errors.New("action_gmail requires an operation")
	// ErrMissingCredential is returned when the tenant has no Gmail token.
	ErrMissingCredential = errors.New("tenant has no gmail_token credential")
)

// Action reads or sends mail through the Gmail gateway. Reads produce
// gmail_messages, sends produce gmail_result.
type Action struct {
	Operation string
	Config    map[string]any

	baseURL string
	client  *http.Client
}

// Factory creates action_gmail executors.
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
	return models.NodeTypeActionGmail
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"operation": map[string]any{
				"type": "string",
				"enum": []string{OperationRead, OperationSend},
			},
			"query":   map[string]any{"type": "string"},
			"limit":   map[string]any{"type": "integer", "minimum": 1, "maximum": 50},
			"to":      map[string]any{"type": "string"},
			"subject": map[string]any{"type": "string"},
			"body":    map[string]any{"type": "string"},
		},
		"required": []string{"operation"},
	}
}

func (f *Factory) Create(config map[string]any) (protocol.Executor, error) {
	operation, _ := config["operation"].(string)

	switch operation {
	case OperationRead, OperationSend:
	case "":
		return nil, ErrOperationRequired
	default:
		return nil, fmt.Errorf("unknown gmail operation: %s", operation)
	}

	return &Action{
		Operation: operation,
		Config:    config,
		baseURL:   f.baseURL,
		client:    f.client,
	}, nil
}

func (a *Action) Execute(ctx context.Context, _ *models.ExecutionContext, tenant *models.Tenant) (map[string]any, error) {
	token := tenant.Credential(models.CredentialGmailToken)
	if token == "" {
		return nil, ErrMissingCredential
	}

	if a.Operation == OperationRead {
		return a.read(ctx, token)
	}

	return a.send(ctx, token)
}

func (a *Action) read(ctx context.Context, token string) (map[string]any, error) {
	limit := defaultReadLimit
	if raw, ok := a.Config["limit"].(float64); ok && raw > 0 {
		limit = int(raw)
	}

	query := url.Values{}
	query.Set("maxResults", strconv.Itoa(limit))

	if q, _ := a.Config["query"].(string); q != "" {
		query.Set("q", q)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/v1/messages?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build gmail request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)

	var payload struct {
		Messages []map[string]any `json:"messages"`
	}

	err = a.do(req, &payload)
	if err != nil {
		return nil, err
	}

	return map[string]any{"gmail_messages": payload.Messages}, nil
}

func (a *Action) send(ctx context.Context, token string) (map[string]any, error) {
	to, _ := a.Config["to"].(string)
	if to == "" {
		return nil, errors.New("gmail send requires a to address")
	}

	subject, _ := a.Config["subject"].(string)
	body, _ := a.Config["body"].(string)

	payload, err := json.Marshal(map[string]any{
		"to":      to,
		"subject": subject,
		"body":    body,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gmail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/messages/send", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build gmail request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	var result map[string]any

	err = a.do(req, &result)
	if err != nil {
		return nil, err
	}

	return map[string]any{"gmail_result": result}, nil
}

func (a *Action) do(req *http.Request, out any) error {
	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("gmail request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return fmt.Errorf("gmail API returned status %d: %s", resp.StatusCode, string(detail))
	}

	err = json.NewDecoder(resp.Body).Decode(out)
	if err != nil {
		return fmt.Errorf("failed to decode gmail response: %w", err)
	}

	return nil
}
