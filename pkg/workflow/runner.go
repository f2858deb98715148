package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/otelhelper"
	"github.com/relaycrm/relay/pkg/persistence"
)

// DefaultRunTimeout bounds one run so a hung external API cannot hold a
// worker slot indefinitely.
const DefaultRunTimeout = 5 * time.Minute

// Runner wraps the executor with run bookkeeping: it opens a run row before
// any node executes and finalizes it exactly once to success or error. No run
// row means no execution; side effects always leave an audit trail.
type Runner struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	executor    *Executor
	tracer      trace.Tracer
	timeout     time.Duration
}

func NewRunner(
	logger *slog.Logger,
	persistence persistence.Persistence,
	executor *Executor,
	tracer trace.Tracer,
	timeout time.Duration,
) *Runner {
	if timeout <= 0 {
		timeout = DefaultRunTimeout
	}

	return &Runner{
		logger:      logger.With("module", "workflow_runner"),
		persistence: persistence,
		executor:    executor,
		tracer:      tracer,
		timeout:     timeout,
	}
}

// Run executes one rule for a tenant and returns the finalized run record.
// Business failures (a node erroring, a missing rule) are recorded on the run
// row and do not return an error; only the inability to create the run row
// does, so the queue redelivers the job.
func (r *Runner) Run(ctx context.Context, ruleID, tenantID string, triggerData map[string]any) (*models.AutomationRun, error) {
	runCtx, span := otelhelper.StartSpan(ctx, r.tracer, "workflow.run",
		attribute.String(otelhelper.RuleIDKey, ruleID),
		attribute.String(otelhelper.TenantIDKey, tenantID),
	)
	defer span.End()

	logger := r.logger.With("rule_id", ruleID, "tenant_id", tenantID)

	runID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate run id: %w", err)
	}

	run := &models.AutomationRun{
		ID:        runID.String(),
		RuleID:    ruleID,
		TenantID:  tenantID,
		Status:    models.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}

	err = r.persistence.CreateRun(runCtx, run)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to create run for rule %s: %w", ruleID, err)
	}

	span.SetAttributes(attribute.String(otelhelper.RunIDKey, run.ID))
	logger = logger.With("run_id", run.ID)
	logger.Info("Starting automation run")

	execCtx, execErr := r.execute(runCtx, ruleID, tenantID, triggerData)

	if execErr != nil {
		r.finalizeError(runCtx, logger, run, execCtx, execErr)
		otelhelper.SetError(span, execErr)

		return run, nil
	}

	r.finalizeSuccess(runCtx, logger, run, execCtx)

	return run, nil
}

func (r *Runner) execute(ctx context.Context, ruleID, tenantID string, triggerData map[string]any) (*models.ExecutionContext, error) {
	execCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rule, err := r.persistence.RuleByID(execCtx, ruleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rule %s: %w", ruleID, err)
	}

	if rule.TenantID != tenantID {
		return nil, fmt.Errorf("rule %s does not belong to tenant %s", ruleID, tenantID)
	}

	tenant, err := r.persistence.TenantByID(execCtx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant %s: %w", tenantID, err)
	}

	return r.executor.Execute(execCtx, rule, tenant, triggerData)
}

func (r *Runner) finalizeSuccess(ctx context.Context, logger *slog.Logger, run *models.AutomationRun, execCtx *models.ExecutionContext) {
	now := time.Now().UTC()

	run.Status = models.RunStatusSuccess
	run.Result = execCtx.Snapshot()
	run.FinishedAt = &now

	err := r.persistence.UpdateRun(ctx, run)
	if err != nil {
		logger.Error("Failed to finalize run", "error", err)
	}

	r.touchRule(ctx, logger, run.RuleID, now)

	logger.Info("Automation run succeeded", "duration", now.Sub(run.StartedAt))
}

func (r *Runner) finalizeError(ctx context.Context, logger *slog.Logger, run *models.AutomationRun, execCtx *models.ExecutionContext, execErr error) {
	now := time.Now().UTC()
	message := execErr.Error()

	run.Status = models.RunStatusError
	run.Error = &message
	run.FinishedAt = &now

	if execCtx != nil {
		run.Result = execCtx.Snapshot()
	}

	err := r.persistence.UpdateRun(ctx, run)
	if err != nil {
		logger.Error("Failed to finalize run", "error", err)
	}

	logger.Error("Automation run failed", "error", execErr)
}

// touchRule stamps lastRunAt and lastRunStatus on the owning rule. Only the
// success path calls it; failed runs leave lastRunAt untouched.
func (r *Runner) touchRule(ctx context.Context, logger *slog.Logger, ruleID string, ranAt time.Time) {
	rule, err := r.persistence.RuleByID(ctx, ruleID)
	if err != nil {
		logger.Error("Failed to load rule for lastRunAt update", "error", err)

		return
	}

	rule.LastRunAt = &ranAt
	rule.LastRunStatus = models.RunStatusSuccess

	err = r.persistence.SaveRule(ctx, rule)
	if err != nil {
		logger.Error("Failed to update rule lastRunAt", "error", err)
	}
}
