// Package cmd provides common initialization functions for the relay
// binaries.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/relaycrm/relay/pkg/persistence"
	"github.com/relaycrm/relay/pkg/persistence/memory"
	"github.com/relaycrm/relay/pkg/persistence/postgresql"
)

// NewPersistence creates a persistence layer from a database URL. Postgres
// URLs get the real store with migrations applied; anything else falls back to
// the in-memory store for local development.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parseProvider(databaseURL) {
	case "postgres", "postgresql":
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	default:
		return memory.NewPersistence(), nil
	}
}

func parseProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return ""
	}

	return provider
}
