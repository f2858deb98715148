// Package persistence provides the data storage abstraction for tenants,
// automation rules and automation runs.
package persistence

import (
	"context"

	"github.com/relaycrm/relay/pkg/models"
)

type Persistence interface {
	TenantByID(ctx context.Context, id string) (*models.Tenant, error)
	SaveTenant(ctx context.Context, tenant *models.Tenant) error

	Rules(ctx context.Context, tenantID string) ([]*models.AutomationRule, error)
	EnabledRules(ctx context.Context, tenantID string) ([]*models.AutomationRule, error)
	AllEnabledRules(ctx context.Context) ([]*models.AutomationRule, error)
	RuleByID(ctx context.Context, id string) (*models.AutomationRule, error)
	SaveRule(ctx context.Context, rule *models.AutomationRule) error
	DeleteRule(ctx context.Context, id string) error

	CreateRun(ctx context.Context, run *models.AutomationRun) error
	UpdateRun(ctx context.Context, run *models.AutomationRun) error
	RunByID(ctx context.Context, id string) (*models.AutomationRun, error)
	RunsByRule(ctx context.Context, ruleID string, limit int) ([]*models.AutomationRun, error)

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
