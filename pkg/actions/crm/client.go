package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeoutSeconds = 30

// Client writes records into the CRM backend. The workflow executor dispatches
// through this interface so tests can substitute an in-memory fake.
type Client interface {
	CreateRecord(ctx context.Context, tenantID, recordType string, fields map[string]any) (map[string]any, error)
	UpdateRecord(ctx context.Context, tenantID, recordType, recordID string, fields map[string]any) (map[string]any, error)
}

// HTTPClient talks to the CRM records API over HTTP.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultTimeoutSeconds * time.Second},
	}
}

func (c *HTTPClient) CreateRecord(ctx context.Context, tenantID, recordType string, fields map[string]any) (map[string]any, error) {
	endpoint := fmt.Sprintf("%s/v1/tenants/%s/%s", c.baseURL, tenantID, recordType)

	return c.send(ctx, http.MethodPost, endpoint, fields)
}

func (c *HTTPClient) UpdateRecord(ctx context.Context, tenantID, recordType, recordID string, fields map[string]any) (map[string]any, error) {
	endpoint := fmt.Sprintf("%s/v1/tenants/%s/%s/%s", c.baseURL, tenantID, recordType, recordID)

	return c.send(ctx, http.MethodPatch, endpoint, fields)
}

func (c *HTTPClient) send(ctx context.Context, method, endpoint string, fields map[string]any) (map[string]any, error) {
	body, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal crm payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build crm request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("crm request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return nil, fmt.Errorf("crm API returned status %d: %s", resp.StatusCode, string(detail))
	}

	var record map[string]any

	err = json.NewDecoder(resp.Body).Decode(&record)
	if err != nil {
		return nil, fmt.Errorf("failed to decode crm response: %w", err)
	}

	return record, nil
}
