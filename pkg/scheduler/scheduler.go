// Package scheduler keeps job-queue cron registrations in sync with the
// schedule triggers of enabled rules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/relaycrm/relay/pkg/events"
	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/persistence"
	"github.com/relaycrm/relay/pkg/queue"
)

// Scheduler owns the cron registration state machine, keyed by rule id. Every
// fire enqueues a run job with an empty trigger payload onto the shared run
// queue.
type Scheduler struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	queue       queue.Queue
}

func NewScheduler(logger *slog.Logger, persistence persistence.Persistence, queue queue.Queue) *Scheduler {
	return &Scheduler{
		logger:      logger.With("module", "scheduler"),
		persistence: persistence,
		queue:       queue,
	}
}

// Start registers schedules for every enabled rule with a cron trigger.
// Registration failures are logged per rule and do not abort startup; the
// affected rule simply has no active schedule until the next reconcile.
func (s *Scheduler) Start(ctx context.Context) error {
	rules, err := s.persistence.AllEnabledRules(ctx)
	if err != nil {
		return fmt.Errorf("failed to load enabled rules: %w", err)
	}

	registered := 0

	for _, rule := range rules {
		cronExpr, ok := s.cronFor(rule)
		if !ok {
			continue
		}

		err := s.register(ctx, rule, cronExpr)
		if err != nil {
			s.logger.Error("Failed to register schedule", "rule_id", rule.ID, "cron", cronExpr, "error", err)

			continue
		}

		registered++
	}

	s.logger.Info("Scheduler started", "rules", len(rules), "schedules", registered)

	return nil
}

// ReconcileRule re-syncs one rule's schedule after any create, edit, enable,
// disable or delete. It unregisters first and re-registers only when the rule
// still exists, is enabled and has a cron trigger, so redundant calls are
// safe.
func (s *Scheduler) ReconcileRule(ctx context.Context, ruleID string) error {
	err := s.queue.Unschedule(ctx, events.ScheduleName(ruleID))
	if err != nil {
		s.logger.Error("Failed to unregister schedule", "rule_id", ruleID, "error", err)
	}

	rule, err := s.persistence.RuleByID(ctx, ruleID)
	if err != nil {
		if persistence.IsRuleNotFound(err) {
			// Deleted rule: the unschedule above is the cleanup.
			return nil
		}

		return fmt.Errorf("failed to load rule %s: %w", ruleID, err)
	}

	if !rule.Enabled {
		return nil
	}

	cronExpr, ok := s.cronFor(rule)
	if !ok {
		return nil
	}

	err = s.register(ctx, rule, cronExpr)
	if err != nil {
		s.logger.Error("Failed to register schedule", "rule_id", rule.ID, "cron", cronExpr, "error", err)
	}

	return nil
}

func (s *Scheduler) register(ctx context.Context, rule *models.AutomationRule, cronExpr string) error {
	job := events.RunJob{
		RuleID:   rule.ID,
		TenantID: rule.TenantID,
	}

	return s.queue.Schedule(ctx, events.ScheduleName(rule.ID), cronExpr, events.QueueAutomationRuns, job)
}

func (s *Scheduler) cronFor(rule *models.AutomationRule) (string, bool) {
	if rule.Definition == nil {
		return "", false
	}

	return rule.Definition.CronExpression()
}
