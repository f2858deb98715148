package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/persistence"
	"github.com/relaycrm/relay/pkg/registry"
	"github.com/relaycrm/relay/pkg/workflow"
)

// ErrRuleNotFound is returned when a rule is not found.
var ErrRuleNotFound = persistence.ErrRuleNotFound

// Reconciler re-syncs a rule's cron registration after a change. The
// scheduler implements it; tests substitute a recorder.
type Reconciler interface {
	ReconcileRule(ctx context.Context, ruleID string) error
}

// Rule implements automation rule CRUD. Every write validates the workflow
// graph first and reconciles the rule's schedule afterwards, so the queue
// state never drifts from the persisted rule.
type Rule struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	reconciler  Reconciler
	validator   *validator.Validate
}

func NewRule(logger *slog.Logger, p persistence.Persistence, reg *registry.Registry, reconciler Reconciler) *Rule {
	return &Rule{
		logger:      logger.With("module", "rule_service"),
		persistence: p,
		registry:    reg,
		reconciler:  reconciler,
		validator:   validator.New(),
	}
}

// HealthCheck checks the health of the persistence layer.
func (s *Rule) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := s.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// List returns all rules of a tenant.
func (s *Rule) List(ctx context.Context, tenantID string) ([]*models.AutomationRule, error) {
	if tenantID == "" {
		return nil, NewValidationError("ListRules", "tenant id is required", ErrInvalidRequest)
	}

	return s.persistence.Rules(ctx, tenantID)
}

// Get returns one rule, checking tenant ownership.
func (s *Rule) Get(ctx context.Context, tenantID, ruleID string) (*models.AutomationRule, error) {
	rule, err := s.persistence.RuleByID(ctx, ruleID)
	if err != nil {
		return nil, err
	}

	if rule.TenantID != tenantID {
		return nil, ErrRuleNotFound
	}

	return rule, nil
}

// Create validates and persists a new rule, then registers its schedule.
func (s *Rule) Create(ctx context.Context, rule *models.AutomationRule) (*models.AutomationRule, error) {
	err := s.validate(rule)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate rule id: %w", err)
	}

	now := time.Now().UTC()
	rule.ID = id.String()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	err = s.persistence.SaveRule(ctx, rule)
	if err != nil {
		return nil, fmt.Errorf("failed to save rule: %w", err)
	}

	s.reconcile(ctx, rule.ID)

	return rule, nil
}

// Update validates and persists changes to an existing rule, then reconciles
// its schedule. Tenant ownership is enforced against the stored row.
func (s *Rule) Update(ctx context.Context, rule *models.AutomationRule) (*models.AutomationRule, error) {
	existing, err := s.persistence.RuleByID(ctx, rule.ID)
	if err != nil {
		return nil, err
	}

	if existing.TenantID != rule.TenantID {
		return nil, NewValidationError("UpdateRule", "rule belongs to a different tenant", ErrTenantMismatch)
	}

	err = s.validate(rule)
	if err != nil {
		return nil, err
	}

	rule.CreatedAt = existing.CreatedAt
	rule.LastRunAt = existing.LastRunAt
	rule.LastRunStatus = existing.LastRunStatus
	rule.UpdatedAt = time.Now().UTC()

	err = s.persistence.SaveRule(ctx, rule)
	if err != nil {
		return nil, fmt.Errorf("failed to save rule: %w", err)
	}

	s.reconcile(ctx, rule.ID)

	return rule, nil
}

// Delete removes a rule and unregisters its schedule.
func (s *Rule) Delete(ctx context.Context, tenantID, ruleID string) error {
	rule, err := s.persistence.RuleByID(ctx, ruleID)
	if err != nil {
		return err
	}

	if rule.TenantID != tenantID {
		return ErrRuleNotFound
	}

	err = s.persistence.DeleteRule(ctx, ruleID)
	if err != nil {
		return err
	}

	s.reconcile(ctx, ruleID)

	return nil
}

// validate checks the rule struct, graph integrity and per-node configuration
// before any write. Cyclic graphs are rejected here rather than discovered at
// run time.
func (s *Rule) validate(rule *models.AutomationRule) error {
	err := s.validator.Struct(rule)
	if err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return fmt.Errorf("failed to validate rule: %w", err)
		}

		return NewValidationError("ValidateRule", err.Error(), ErrInvalidRequest)
	}

	definition := rule.Definition
	if definition == nil {
		return NewValidationError("ValidateRule", "workflow definition is required", ErrDefinitionRequired)
	}

	seen := make(map[string]bool, len(definition.Nodes))
	for _, node := range definition.Nodes {
		if seen[node.ID] {
			return NewValidationError("ValidateRule", "duplicate node id "+node.ID, ErrDuplicateNodeID)
		}

		seen[node.ID] = true
	}

	for _, edge := range definition.Edges {
		if !seen[edge.Source] {
			return NewValidationError("ValidateRule", "edge source "+edge.Source+" does not exist", ErrDanglingEdge)
		}

		if !seen[edge.Target] {
			return NewValidationError("ValidateRule", "edge target "+edge.Target+" does not exist", ErrDanglingEdge)
		}
	}

	_, err = workflow.TopologicalOrder(definition)
	if err != nil {
		return NewValidationError("ValidateRule", err.Error(), ErrCyclicWorkflow)
	}

	for _, node := range definition.Nodes {
		err := s.registry.ValidateConfig(node.Type, node.Data)
		if err != nil {
			return NewValidationError("ValidateRule", err.Error(), ErrInvalidNodeConfig)
		}
	}

	return nil
}

func (s *Rule) reconcile(ctx context.Context, ruleID string) {
	if s.reconciler == nil {
		return
	}

	err := s.reconciler.ReconcileRule(ctx, ruleID)
	if err != nil {
		s.logger.Error("Failed to reconcile rule schedule", "rule_id", ruleID, "error", err)
	}
}
