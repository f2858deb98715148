package models

import "time"

// Credential keys looked up by action executors.
const (
	CredentialAIAPIKey     = "ai_api_key"
	CredentialSearchAPIKey = "search_api_key"
	CredentialEmailAPIKey  = "email_api_key"
	CredentialSlackToken   = "slack_token"
	CredentialGmailToken   = "gmail_token"
)

// Tenant is the account that owns rules, runs and integration credentials.
type Tenant struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"        validate:"required"`
	Credentials map[string]string `json:"credentials"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Credential returns the named integration credential, or "".
func (t *Tenant) Credential(key string) string {
	if t.Credentials == nil {
		return ""
	}

	return t.Credentials[key]
}
