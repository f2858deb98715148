package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/persistence"
)

const defaultRunListLimit = 50

// RunRepository handles automation run database operations.
type RunRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRunRepository creates a new run repository.
func NewRunRepository(db *sql.DB, logger *slog.Logger) *RunRepository {
	return &RunRepository{db: db, logger: logger}
}

// Create inserts a new run row. Runs are always created in the running state
// before any workflow node executes.
func (r *RunRepository) Create(ctx context.Context, run *models.AutomationRun) error {
	if run.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate run ID: %w", err)
		}

		run.ID = id.String()
	}

	resultJSON, err := marshalRunResult(run)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO automation_runs (id, rule_id, tenant_id, status, result, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(ctx, query,
		run.ID,
		run.RuleID,
		run.TenantID,
		run.Status,
		resultJSON,
		run.Error,
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create automation run: %w", err)
	}

	return nil
}

// Update finalizes a run row with its terminal status, result and error.
func (r *RunRepository) Update(ctx context.Context, run *models.AutomationRun) error {
	resultJSON, err := marshalRunResult(run)
	if err != nil {
		return err
	}

	query := `
		UPDATE automation_runs
		SET status = $2, result = $3, error = $4, finished_at = $5
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.Status,
		resultJSON,
		run.Error,
		run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update automation run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return persistence.ErrRunNotFound
	}

	return nil
}

// GetByID returns a run by its ID.
func (r *RunRepository) GetByID(ctx context.Context, id string) (*models.AutomationRun, error) {
	query := `
		SELECT id, rule_id, tenant_id, status, result, error, started_at, finished_at
		FROM automation_runs
		WHERE id = $1
	`

	run, err := r.scanRun(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrRunNotFound
		}

		return nil, fmt.Errorf("failed to scan automation run: %w", err)
	}

	return run, nil
}

// ListByRule returns a rule's runs, newest first.
func (r *RunRepository) ListByRule(ctx context.Context, ruleID string, limit int) ([]*models.AutomationRun, error) {
	if limit <= 0 {
		limit = defaultRunListLimit
	}

	query := `
		SELECT id, rule_id, tenant_id, status, result, error, started_at, finished_at
		FROM automation_runs
		WHERE rule_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, ruleID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query automation runs: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	runs := make([]*models.AutomationRun, 0)

	for rows.Next() {
		run, err := r.scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan automation run: %w", err)
		}

		runs = append(runs, run)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating automation runs: %w", err)
	}

	return runs, nil
}

func (r *RunRepository) scanRun(scanner interface {
	Scan(dest ...any) error
}) (*models.AutomationRun, error) {
	var (
		run        models.AutomationRun
		resultJSON []byte
	)

	err := scanner.Scan(
		&run.ID,
		&run.RuleID,
		&run.TenantID,
		&run.Status,
		&resultJSON,
		&run.Error,
		&run.StartedAt,
		&run.FinishedAt,
	)
	if err != nil {
		return nil, err
	}

	if resultJSON != nil {
		err := json.Unmarshal(resultJSON, &run.Result)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal run result: %w", err)
		}
	}

	return &run, nil
}

func marshalRunResult(run *models.AutomationRun) ([]byte, error) {
	if run.Result == nil {
		return nil, nil
	}

	resultJSON, err := json.Marshal(run.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run result: %w", err)
	}

	return resultJSON, nil
}
