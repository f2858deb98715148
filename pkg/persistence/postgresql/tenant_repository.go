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

// TenantRepository handles tenant-related database operations.
type TenantRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTenantRepository creates a new tenant repository.
func NewTenantRepository(db *sql.DB, logger *slog.Logger) *TenantRepository {
	return &TenantRepository{db: db, logger: logger}
}

// GetByID returns a tenant by its ID.
func (r *TenantRepository) GetByID(ctx context.Context, id string) (*models.Tenant, error) {
	query := `
		SELECT id, name, credentials, created_at, updated_at
		FROM tenants
		WHERE id = $1
	`

	var (
		tenant          models.Tenant
		credentialsJSON []byte
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&tenant.ID,
		&tenant.Name,
		&credentialsJSON,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrTenantNotFound
		}

		return nil, fmt.Errorf("failed to scan tenant: %w", err)
	}

	if credentialsJSON != nil {
		err := json.Unmarshal(credentialsJSON, &tenant.Credentials)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal tenant credentials: %w", err)
		}
	}

	return &tenant, nil
}

// Save inserts or updates a tenant.
func (r *TenantRepository) Save(ctx context.Context, tenant *models.Tenant) error {
	now := time.Now().UTC()

	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = now
	}

	tenant.UpdatedAt = now

	if tenant.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate tenant ID: %w", err)
		}

		tenant.ID = id.String()
	}

	credentialsJSON, err := json.Marshal(tenant.Credentials)
	if err != nil {
		return fmt.Errorf("failed to marshal tenant credentials: %w", err)
	}

	query := `
		INSERT INTO tenants (id, name, credentials, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			credentials = EXCLUDED.credentials,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		tenant.ID,
		tenant.Name,
		credentialsJSON,
		tenant.CreatedAt,
		tenant.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save tenant: %w", err)
	}

	return nil
}
