// Package dispatcher matches live domain events against enabled rules and
// enqueues one run job per match.
package dispatcher

import (
	"context"
	"log/slog"

	"github.com/relaycrm/relay/pkg/events"
	"github.com/relaycrm/relay/pkg/persistence"
	"github.com/relaycrm/relay/pkg/queue"
)

// Dispatcher is the fireEvent entry point. Callers publish domain mutations
// like "deal.created" here; the dispatcher never propagates failures back, so
// the originating CRUD operation cannot fail because automation dispatch did.
type Dispatcher struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	queue       queue.Queue
}

func NewDispatcher(logger *slog.Logger, persistence persistence.Persistence, queue queue.Queue) *Dispatcher {
	return &Dispatcher{
		logger:      logger.With("module", "dispatcher"),
		persistence: persistence,
		queue:       queue,
	}
}

// FireEvent enqueues a run job for every enabled rule of the tenant whose
// event trigger matches eventName exactly. Returns the number of jobs
// enqueued; errors are logged and swallowed.
func (d *Dispatcher) FireEvent(ctx context.Context, eventName string, payload map[string]any, tenantID string) int {
	logger := d.logger.With("event", eventName, "tenant_id", tenantID)

	rules, err := d.persistence.EnabledRules(ctx, tenantID)
	if err != nil {
		logger.Error("Failed to load rules for event dispatch", "error", err)

		return 0
	}

	enqueued := 0

	for _, rule := range rules {
		if rule.Definition == nil || !rule.Definition.MatchesEvent(eventName) {
			continue
		}

		job := events.RunJob{
			RuleID:      rule.ID,
			TenantID:    tenantID,
			TriggerData: payload,
		}

		err := d.queue.Enqueue(ctx, events.QueueAutomationRuns, job)
		if err != nil {
			logger.Error("Failed to enqueue run job", "rule_id", rule.ID, "error", err)

			continue
		}

		enqueued++
	}

	if enqueued > 0 {
		logger.Info("Dispatched event to rules", "matches", enqueued)
	}

	return enqueued
}
