// Package websearch provides the web search action executor.
package websearch

import (
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
	defaultResultLimit    = 5
)

var (
	// ErrQueryRequired is returned when the node config has no query.
	ErrQueryRequired = errors.New("action_web_search requires a query")
	// ErrMissingCredential is returned when the tenant has no search API key.
	ErrMissingCredential = errors.New("tenant has no search_api_key credential")
)

// Action queries the search API and stores the result list under web_results.
type Action struct {
	Query string
	Limit int

	baseURL string
	client  *http.Client
}

// Factory creates action_web_search executors.
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
	return models.NodeTypeActionWebSearch
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string"},
			"limit": map[string]any{"type": "integer", "minimum": 1, "maximum": 20},
		},
		"required": []string{"query"},
	}
}

func (f *Factory) Create(config map[string]any) (protocol.Executor, error) {
	query, _ := config["query"].(string)
	if query == "" {
		return nil, ErrQueryRequired
	}

	limit := defaultResultLimit
	if raw, ok := config["limit"].(float64); ok && raw > 0 {
		limit = int(raw)
	}

	return &Action{
		Query:   query,
		Limit:   limit,
		baseURL: f.baseURL,
		client:  f.client,
	}, nil
}

func (a *Action) Execute(ctx context.Context, _ *models.ExecutionContext, tenant *models.Tenant) (map[string]any, error) {
	apiKey := tenant.Credential(models.CredentialSearchAPIKey)
	if apiKey == "" {
		return nil, ErrMissingCredential
	}

	query := url.Values{}
	query.Set("q", a.Query)
	query.Set("limit", strconv.Itoa(a.Limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/v1/search?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web search failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return nil, fmt.Errorf("search API returned status %d: %s", resp.StatusCode, string(detail))
	}

	var payload struct {
		Results []map[string]any `json:"results"`
	}

	err = json.NewDecoder(resp.Body).Decode(&payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	return map[string]any{"web_results": payload.Results}, nil
}
