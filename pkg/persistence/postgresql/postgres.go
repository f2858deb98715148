// Package postgresql provides the PostgreSQL persistence implementation for
// tenants, automation rules and automation runs.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	// Registers the postgres driver.
	_ "github.com/lib/pq"

	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db         *sql.DB
	logger     *slog.Logger
	tenantRepo *TenantRepository
	ruleRepo   *RuleRepository
	runRepo    *RunRepository
}

// NewPersistence connects, runs migrations and returns the persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:         database,
		logger:     logger,
		tenantRepo: NewTenantRepository(database, logger),
		ruleRepo:   NewRuleRepository(database, logger),
		runRepo:    NewRunRepository(database, logger),
	}, nil
}

// Close closes the database connection.
func (p *Persistence) Close(ctx context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) TenantByID(ctx context.Context, id string) (*models.Tenant, error) {
	return p.tenantRepo.GetByID(ctx, id)
}

func (p *Persistence) SaveTenant(ctx context.Context, tenant *models.Tenant) error {
	return p.tenantRepo.Save(ctx, tenant)
}

func (p *Persistence) Rules(ctx context.Context, tenantID string) ([]*models.AutomationRule, error) {
	return p.ruleRepo.List(ctx, tenantID, false)
}

func (p *Persistence) EnabledRules(ctx context.Context, tenantID string) ([]*models.AutomationRule, error) {
	return p.ruleRepo.List(ctx, tenantID, true)
}

func (p *Persistence) AllEnabledRules(ctx context.Context) ([]*models.AutomationRule, error) {
	return p.ruleRepo.ListAllEnabled(ctx)
}

func (p *Persistence) RuleByID(ctx context.Context, id string) (*models.AutomationRule, error) {
	return p.ruleRepo.GetByID(ctx, id)
}

func (p *Persistence) SaveRule(ctx context.Context, rule *models.AutomationRule) error {
	return p.ruleRepo.Save(ctx, rule)
}

func (p *Persistence) DeleteRule(ctx context.Context, id string) error {
	return p.ruleRepo.Delete(ctx, id)
}

func (p *Persistence) CreateRun(ctx context.Context, run *models.AutomationRun) error {
	return p.runRepo.Create(ctx, run)
}

func (p *Persistence) UpdateRun(ctx context.Context, run *models.AutomationRun) error {
	return p.runRepo.Update(ctx, run)
}

func (p *Persistence) RunByID(ctx context.Context, id string) (*models.AutomationRun, error) {
	return p.runRepo.GetByID(ctx, id)
}

func (p *Persistence) RunsByRule(ctx context.Context, ruleID string, limit int) ([]*models.AutomationRun, error) {
	return p.runRepo.ListByRule(ctx, ruleID, limit)
}
