// Package memory provides an in-memory persistence implementation for tests
// and local development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/persistence"
)

// Persistence keeps all rows in process memory. Safe for concurrent use.
type Persistence struct {
	mu      sync.RWMutex
	tenants map[string]*models.Tenant
	rules   map[string]*models.AutomationRule
	runs    map[string]*models.AutomationRun
}

// NewPersistence creates an empty in-memory persistence layer.
func NewPersistence() *Persistence {
	return &Persistence{
		tenants: make(map[string]*models.Tenant),
		rules:   make(map[string]*models.AutomationRule),
		runs:    make(map[string]*models.AutomationRun),
	}
}

func (p *Persistence) TenantByID(_ context.Context, id string) (*models.Tenant, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	tenant, ok := p.tenants[id]
	if !ok {
		return nil, persistence.ErrTenantNotFound
	}

	copied := *tenant

	return &copied, nil
}

func (p *Persistence) SaveTenant(_ context.Context, tenant *models.Tenant) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now().UTC()

	if tenant.ID == "" {
		tenant.ID = uuid.New().String()
	}

	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = now
	}

	tenant.UpdatedAt = now

	copied := *tenant
	p.tenants[tenant.ID] = &copied

	return nil
}

func (p *Persistence) Rules(_ context.Context, tenantID string) ([]*models.AutomationRule, error) {
	return p.listRules(func(rule *models.AutomationRule) bool {
		return rule.TenantID == tenantID
	}), nil
}

func (p *Persistence) EnabledRules(_ context.Context, tenantID string) ([]*models.AutomationRule, error) {
	return p.listRules(func(rule *models.AutomationRule) bool {
		return rule.TenantID == tenantID && rule.Enabled
	}), nil
}

func (p *Persistence) AllEnabledRules(_ context.Context) ([]*models.AutomationRule, error) {
	return p.listRules(func(rule *models.AutomationRule) bool {
		return rule.Enabled
	}), nil
}

func (p *Persistence) RuleByID(_ context.Context, id string) (*models.AutomationRule, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	rule, ok := p.rules[id]
	if !ok {
		return nil, persistence.ErrRuleNotFound
	}

	copied := *rule

	return &copied, nil
}

func (p *Persistence) SaveRule(_ context.Context, rule *models.AutomationRule) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now().UTC()

	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}

	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}

	rule.UpdatedAt = now

	copied := *rule
	p.rules[rule.ID] = &copied

	return nil
}

func (p *Persistence) DeleteRule(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.rules[id]; !ok {
		return persistence.ErrRuleNotFound
	}

	delete(p.rules, id)

	for runID, run := range p.runs {
		if run.RuleID == id {
			delete(p.runs, runID)
		}
	}

	return nil
}

func (p *Persistence) CreateRun(_ context.Context, run *models.AutomationRun) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	copied := *run
	p.runs[run.ID] = &copied

	return nil
}

func (p *Persistence) UpdateRun(_ context.Context, run *models.AutomationRun) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.runs[run.ID]; !ok {
		return persistence.ErrRunNotFound
	}

	copied := *run
	p.runs[run.ID] = &copied

	return nil
}

func (p *Persistence) RunByID(_ context.Context, id string) (*models.AutomationRun, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	run, ok := p.runs[id]
	if !ok {
		return nil, persistence.ErrRunNotFound
	}

	copied := *run

	return &copied, nil
}

func (p *Persistence) RunsByRule(_ context.Context, ruleID string, limit int) ([]*models.AutomationRun, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	runs := make([]*models.AutomationRun, 0)

	for _, run := range p.runs {
		if run.RuleID == ruleID {
			copied := *run
			runs = append(runs, &copied)
		}
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})

	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}

	return runs, nil
}

func (p *Persistence) HealthCheck(_ context.Context) error {
	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}

func (p *Persistence) listRules(match func(*models.AutomationRule) bool) []*models.AutomationRule {
	p.mu.RLock()
	defer p.mu.RUnlock()

	rules := make([]*models.AutomationRule, 0)

	for _, rule := range p.rules {
		if match(rule) {
			copied := *rule
			rules = append(rules, &copied)
		}
	}

	sort.Slice(rules, func(i, j int) bool {
		return rules[i].CreatedAt.Before(rules[j].CreatedAt)
	})

	return rules
}
