package postgresql

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/persistence"
)

func newRuleRepo(t *testing.T) (*RuleRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewRuleRepository(db, logger), mock
}

func ruleRows(t *testing.T, rules ...*models.AutomationRule) *sqlmock.Rows {
	t.Helper()

	rows := sqlmock.NewRows([]string{
		"id", "tenant_id", "name", "enabled", "definition",
		"last_run_at", "last_run_status", "created_at", "updated_at",
	})

	for _, rule := range rules {
		definitionJSON, err := json.Marshal(rule.Definition)
		require.NoError(t, err)

		var status any
		if rule.LastRunStatus != "" {
			status = string(rule.LastRunStatus)
		}

		rows.AddRow(rule.ID, rule.TenantID, rule.Name, rule.Enabled, definitionJSON,
			rule.LastRunAt, status, rule.CreatedAt, rule.UpdatedAt)
	}

	return rows
}

func sampleRule() *models.AutomationRule {
	now := time.Now().UTC()

	return &models.AutomationRule{
		ID:       "0190f9b2-0000-7000-8000-000000000001",
		TenantID: "tenant-1",
		Name:     "follow up",
		Enabled:  true,
		Definition: &models.WorkflowDefinition{
			Nodes: []*models.WorkflowNode{
				{ID: "t", Type: models.NodeTypeTriggerEvent, Data: map[string]any{"event": "deal.created"}},
			},
		},
		LastRunStatus: models.RunStatusSuccess,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestRuleRepositoryGetByID(t *testing.T) {
	repo, mock := newRuleRepo(t)
	rule := sampleRule()

	mock.ExpectQuery(`SELECT .+ FROM automation_rules WHERE id = \$1`).
		WithArgs(rule.ID).
		WillReturnRows(ruleRows(t, rule))

	loaded, err := repo.GetByID(context.Background(), rule.ID)
	require.NoError(t, err)
	assert.Equal(t, rule.Name, loaded.Name)
	assert.Equal(t, models.RunStatusSuccess, loaded.LastRunStatus)
	require.NotNil(t, loaded.Definition)
	require.Len(t, loaded.Definition.Nodes, 1)
	assert.Equal(t, "deal.created", loaded.Definition.Nodes[0].Data["event"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRuleRepositoryGetByIDNotFound(t *testing.T) {
	repo, mock := newRuleRepo(t)

	mock.ExpectQuery(`SELECT .+ FROM automation_rules WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(ruleRows(t))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, persistence.ErrRuleNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRuleRepositoryListEnabledOnly(t *testing.T) {
	repo, mock := newRuleRepo(t)
	rule := sampleRule()

	mock.ExpectQuery(`SELECT .+ FROM automation_rules WHERE tenant_id = \$1 AND enabled = true ORDER BY created_at DESC`).
		WithArgs("tenant-1").
		WillReturnRows(ruleRows(t, rule))

	rules, err := repo.List(context.Background(), "tenant-1", true)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, rule.ID, rules[0].ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRuleRepositorySaveGeneratesID(t *testing.T) {
	repo, mock := newRuleRepo(t)

	rule := sampleRule()
	rule.ID = ""
	rule.CreatedAt = time.Time{}

	mock.ExpectExec(`INSERT INTO automation_rules`).
		WithArgs(sqlmock.AnyArg(), rule.TenantID, rule.Name, rule.Enabled,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Save(context.Background(), rule))
	assert.NotEmpty(t, rule.ID)
	assert.False(t, rule.CreatedAt.IsZero())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRuleRepositoryDelete(t *testing.T) {
	repo, mock := newRuleRepo(t)

	mock.ExpectExec(`DELETE FROM automation_rules WHERE id = \$1`).
		WithArgs("r1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "r1"))

	mock.ExpectExec(`DELETE FROM automation_rules WHERE id = \$1`).
		WithArgs("r2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "r2"), persistence.ErrRuleNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
