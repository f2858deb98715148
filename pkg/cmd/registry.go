package cmd

import (
	"log/slog"
	"os"

	"github.com/relaycrm/relay/pkg/actions/agent"
	"github.com/relaycrm/relay/pkg/actions/ai"
	"github.com/relaycrm/relay/pkg/actions/crm"
	"github.com/relaycrm/relay/pkg/actions/email"
	"github.com/relaycrm/relay/pkg/actions/gmail"
	"github.com/relaycrm/relay/pkg/actions/slack"
	"github.com/relaycrm/relay/pkg/actions/websearch"
	"github.com/relaycrm/relay/pkg/registry"
)

// NewRegistry builds the action registry with every native executor. External
// API base URLs come from the environment so local development can point them
// at stubs.
func NewRegistry(logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(logger)

	aiClient := ai.NewClient(envOr("AI_API_URL", "https://api.openai.com"))

	reg.Register(ai.NewFactory(aiClient))
	reg.Register(agent.NewFactory(aiClient))
	reg.Register(email.NewFactory(envOr("EMAIL_API_URL", "https://api.resend.com")))
	reg.Register(websearch.NewFactory(envOr("SEARCH_API_URL", "https://api.search.brave.com")))
	reg.Register(crm.NewFactory(crm.NewHTTPClient(envOr("CRM_API_URL", "http://localhost:3000"))))
	reg.Register(slack.NewFactory(os.Getenv("SLACK_API_URL")))
	reg.Register(gmail.NewFactory(envOr("GMAIL_API_URL", "https://gmail.googleapis.com")))

	return reg
}

func envOr(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	return value
}
