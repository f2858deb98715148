package services

import (
	"context"
	"log/slog"

	"github.com/relaycrm/relay/pkg/events"
	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/persistence"
	"github.com/relaycrm/relay/pkg/queue"
)

const (
	defaultRunListLimit = 50
	maxRunListLimit     = 200
)

// Run implements the run-facing operations: manual "run now" triggering and
// run history for the UI.
type Run struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	queue       queue.Queue
}

func NewRun(logger *slog.Logger, p persistence.Persistence, q queue.Queue) *Run {
	return &Run{
		logger:      logger.With("module", "run_service"),
		persistence: p,
		queue:       q,
	}
}

// Trigger enqueues an immediate run for a rule with an empty trigger payload.
// Re-running is a supported user action; executors are not guaranteed
// at-most-once, so a re-run repeats their side effects.
func (s *Run) Trigger(ctx context.Context, tenantID, ruleID string) error {
	rule, err := s.persistence.RuleByID(ctx, ruleID)
	if err != nil {
		return err
	}

	if rule.TenantID != tenantID {
		return ErrRuleNotFound
	}

	if !rule.Enabled {
		return NewValidationError("TriggerRun", "rule "+ruleID+" is disabled", ErrRuleDisabled)
	}

	job := events.RunJob{
		RuleID:   rule.ID,
		TenantID: rule.TenantID,
	}

	err = s.queue.Enqueue(ctx, events.QueueAutomationRuns, job)
	if err != nil {
		return err
	}

	s.logger.Info("Enqueued manual run", "rule_id", ruleID, "tenant_id", tenantID)

	return nil
}

// List returns runs for a rule, newest first.
func (s *Run) List(ctx context.Context, tenantID, ruleID string, limit int) ([]*models.AutomationRun, error) {
	if limit == 0 {
		limit = defaultRunListLimit
	}

	if limit < 0 || limit > maxRunListLimit {
		return nil, NewValidationError("ListRuns", "limit out of range", ErrInvalidRunListLimit)
	}

	rule, err := s.persistence.RuleByID(ctx, ruleID)
	if err != nil {
		return nil, err
	}

	if rule.TenantID != tenantID {
		return nil, ErrRuleNotFound
	}

	return s.persistence.RunsByRule(ctx, ruleID, limit)
}

// Get returns one run, checking tenant ownership.
func (s *Run) Get(ctx context.Context, tenantID, runID string) (*models.AutomationRun, error) {
	run, err := s.persistence.RunByID(ctx, runID)
	if err != nil {
		return nil, err
	}

	if run.TenantID != tenantID {
		return nil, persistence.ErrRunNotFound
	}

	return run, nil
}
