package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dripiq/dripiq-lead-services/models"
	"github.com/google/uuid"
)

// CreateIntegration records a connected provider for a tenant. The credential
// itself is stored in Secrets Manager by the caller, never here.
func (l *LeadsDB) CreateIntegration(tenantID uuid.UUID, provider string) (*models.Integration, error) {
	tx, err := l.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %w", err)
	}

	integrationID := uuid.New()
	createdAt := time.Now().UTC()

	err = l.execQuery(tx, `
		INSERT INTO integrations (id, tenant_id, provider, created_at)
		VALUES ($1, $2, $3, $4)`,
		integrationID, tenantID, provider, createdAt)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("error inserting integration: %w", err)
	}

	if err := l.CommitTransaction(tx); err != nil {
		return nil, fmt.Errorf("error committing transaction: %w", err)
	}

	integration := models.Integration{
		ID:        integrationID,
		TenantID:  tenantID,
		Provider:  provider,
		CreatedAt: createdAt,
	}

	return &integration, nil
}

// GetIntegrations retrieves all connected providers of a tenant.
func (db *LeadsDB) GetIntegrations(tenantID uuid.UUID) ([]models.Integration, error) {
	query := `SELECT id, tenant_id, provider, created_at FROM integrations WHERE tenant_id = $1 ORDER BY provider`
	rows, err := db.DB.Query(query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("error retrieving integrations: %w", err)
	}
	defer rows.Close()

	var integrations []models.Integration
	for rows.Next() {
		var in models.Integration
		if err := rows.Scan(&in.ID, &in.TenantID, &in.Provider, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning integration: %w", err)
		}
		integrations = append(integrations, in)
	}
	return integrations, nil
}

// CheckIntegrationExists checks if a tenant already connected a provider.
func (db *LeadsDB) CheckIntegrationExists(tenantID uuid.UUID, provider string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM integrations WHERE tenant_id = $1 AND provider = $2)`
	var exists bool
	err := db.DB.QueryRow(query, tenantID, provider).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking integration existence: %w", err)
	}
	return exists, nil
}

// DeleteIntegration removes a connected provider and returns its name so the
// caller can clear the stored credential. Returns empty when the tenant has
// no integration with that ID.
func (l *LeadsDB) DeleteIntegration(tenantID, integrationID uuid.UUID) (string, error) {
	tx, err := l.DB.Begin()
	if err != nil {
		return "", fmt.Errorf("error starting transaction: %w", err)
	}

	row := tx.QueryRow(`DELETE FROM integrations WHERE tenant_id = $1 AND id = $2 RETURNING provider`, tenantID, integrationID)

	var provider string
	if err := row.Scan(&provider); err != nil {
		tx.Rollback()
		if err == sql.ErrNoRows {
			return "", nil
		}

		return "", fmt.Errorf("error deleting integration: %w", err)
	}

	if err := l.CommitTransaction(tx); err != nil {
		return "", fmt.Errorf("error committing transaction: %w", err)
	}

	return provider, nil
}
