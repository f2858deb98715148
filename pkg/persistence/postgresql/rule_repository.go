package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/persistence"
)

// RuleRepository handles automation rule database operations.
type RuleRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRuleRepository creates a new rule repository.
func NewRuleRepository(db *sql.DB, logger *slog.Logger) *RuleRepository {
	return &RuleRepository{db: db, logger: logger}
}

const ruleColumns = `
	id
  , tenant_id
  , name
  , enabled
  , definition
  , last_run_at
  , last_run_status
  , created_at
  , updated_at
`

// List returns a tenant's rules, newest first, optionally filtered to
// enabled ones.
func (r *RuleRepository) List(ctx context.Context, tenantID string, enabledOnly bool) ([]*models.AutomationRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM automation_rules WHERE tenant_id = $1`
	if enabledOnly {
		query += ` AND enabled = true`
	}

	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query automation rules: %w", err)
	}

	return r.collectRules(ctx, rows)
}

// ListAllEnabled returns every enabled rule across all tenants. Used by the
// scheduler at startup to reconcile cron registrations.
func (r *RuleRepository) ListAllEnabled(ctx context.Context) ([]*models.AutomationRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM automation_rules WHERE enabled = true ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query enabled automation rules: %w", err)
	}

	return r.collectRules(ctx, rows)
}

// GetByID returns a rule by its ID.
func (r *RuleRepository) GetByID(ctx context.Context, id string) (*models.AutomationRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM automation_rules WHERE id = $1`

	rule, err := r.scanRule(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrRuleNotFound
		}

		return nil, fmt.Errorf("failed to scan automation rule: %w", err)
	}

	return rule, nil
}

// Save inserts or updates a rule.
func (r *RuleRepository) Save(ctx context.Context, rule *models.AutomationRule) error {
	now := time.Now().UTC()

	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}

	rule.UpdatedAt = now

	if rule.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate rule ID: %w", err)
		}

		rule.ID = id.String()
	}

	definitionJSON, err := json.Marshal(rule.Definition)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow definition: %w", err)
	}

	var lastRunStatus *string
	if rule.LastRunStatus != "" {
		status := string(rule.LastRunStatus)
		lastRunStatus = &status
	}

	query := `
		INSERT INTO automation_rules (id, tenant_id, name, enabled, definition,
			last_run_at, last_run_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			enabled = EXCLUDED.enabled,
			definition = EXCLUDED.definition,
			last_run_at = EXCLUDED.last_run_at,
			last_run_status = EXCLUDED.last_run_status,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		rule.ID,
		rule.TenantID,
		rule.Name,
		rule.Enabled,
		definitionJSON,
		rule.LastRunAt,
		lastRunStatus,
		rule.CreatedAt,
		rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save automation rule: %w", err)
	}

	return nil
}

// Delete removes a rule. Runs are removed by the ON DELETE CASCADE on
// automation_runs; the caller is responsible for unscheduling the rule's cron
// registration.
func (r *RuleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM automation_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete automation rule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return persistence.ErrRuleNotFound
	}

	return nil
}

func (r *RuleRepository) collectRules(ctx context.Context, rows *sql.Rows) ([]*models.AutomationRule, error) {
	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	rules := make([]*models.AutomationRule, 0)

	for rows.Next() {
		rule, err := r.scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan automation rule: %w", err)
		}

		rules = append(rules, rule)
	}

	err := rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating automation rules: %w", err)
	}

	return rules, nil
}

func (r *RuleRepository) scanRule(scanner interface {
	Scan(dest ...any) error
}) (*models.AutomationRule, error) {
	var (
		rule           models.AutomationRule
		definitionJSON []byte
		lastRunStatus  sql.NullString
	)

	err := scanner.Scan(
		&rule.ID,
		&rule.TenantID,
		&rule.Name,
		&rule.Enabled,
		&definitionJSON,
		&rule.LastRunAt,
		&lastRunStatus,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if definitionJSON != nil {
		err := json.Unmarshal(definitionJSON, &rule.Definition)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal workflow definition: %w", err)
		}
	}

	if lastRunStatus.Valid {
		rule.LastRunStatus = models.RunStatus(lastRunStatus.String)
	}

	return &rule, nil
}
