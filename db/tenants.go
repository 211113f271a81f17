package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dripiq/dripiq-lead-services/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// GetTenant retrieves the organization profile for a tenant.
func (db *LeadsDB) GetTenant(tenantID uuid.UUID) (*models.Tenant, error) {
	query := `SELECT id, name, website, summary, products, services, differentiators, brand_colors, logo_url, sync_status, last_synced_at, created_at FROM tenants WHERE id = $1`
	row := db.DB.QueryRow(query, tenantID)

	var t models.Tenant
	if err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Website,
		&t.Summary,
		pq.Array(&t.Products),
		pq.Array(&t.Services),
		pq.Array(&t.Differentiators),
		pq.Array(&t.BrandColors),
		&t.LogoURL,
		&t.SyncStatus,
		&t.LastSyncedAt,
		&t.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			// Tenant does not exist, return nil tenant and nil error
			return nil, nil
		}

		return nil, fmt.Errorf("error scanning tenant: %w", err)
	}

	return &t, nil
}

// UpdateTenant updates the editable fields of the organization profile and
// returns the stored row.
func (l *LeadsDB) UpdateTenant(tenantID uuid.UUID, req models.TenantUpdateRequest) (*models.Tenant, error) {
	tx, err := l.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %w", err)
	}

	err = l.execQuery(tx, `
		UPDATE tenants
		SET name = $1, website = $2, summary = $3, products = $4, services = $5, differentiators = $6, brand_colors = $7
		WHERE id = $8`,
		req.Name, req.Website, req.Summary,
		pq.Array(req.Products), pq.Array(req.Services),
		pq.Array(req.Differentiators), pq.Array(req.BrandColors), tenantID)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("error updating tenant: %w", err)
	}

	if err := l.CommitTransaction(tx); err != nil {
		return nil, fmt.Errorf("error committing transaction: %w", err)
	}

	return l.GetTenant(tenantID)
}

// MarkTenantSyncQueued starts a transaction marking the tenant's sync as
// queued. The caller publishes the sync request and then commits, so a failed
// publish leaves the status untouched. Returns false when the tenant does not
// exist.
func (l *LeadsDB) MarkTenantSyncQueued(tenantID uuid.UUID) (*sql.Tx, bool, error) {
	tx, err := l.DB.Begin()
	if err != nil {
		return nil, false, fmt.Errorf("error starting transaction: %w", err)
	}

	result, err := tx.Exec(`UPDATE tenants SET sync_status = 'queued' WHERE id = $1`, tenantID)
	if err != nil {
		tx.Rollback()
		return nil, false, fmt.Errorf("error marking tenant syncing: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		tx.Rollback()
		return nil, false, fmt.Errorf("error checking affected rows: %w", err)
	}
	if rows == 0 {
		tx.Rollback()
		return nil, false, nil
	}

	return tx, true, nil
}

// ApplyTenantAnalysis stores the analysis results reported back for a tenant
// and returns its sync status to idle.
func (l *LeadsDB) ApplyTenantAnalysis(result models.SyncResult) error {
	tx, err := l.DB.Begin()
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}

	err = l.execQuery(tx, `
		UPDATE tenants
		SET summary = $1, products = $2, services = $3, differentiators = $4, brand_colors = $5,
		    logo_url = CASE WHEN $6 <> '' THEN $6 ELSE logo_url END,
		    sync_status = 'idle', last_synced_at = $7
		WHERE id = $8`,
		result.Summary, pq.Array(result.Products), pq.Array(result.Services),
		pq.Array(result.Differentiators), pq.Array(result.BrandColors),
		result.LogoURL, time.Now().UTC(), result.TenantID)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("error applying tenant analysis: %w", err)
	}

	if err := l.CommitTransaction(tx); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}

	return nil
}

// SetTenantSyncStatus sets only the sync status, used when a sync fails.
func (l *LeadsDB) SetTenantSyncStatus(tenantID uuid.UUID, status string) error {
	tx, err := l.DB.Begin()
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}

	err = l.execQuery(tx, `UPDATE tenants SET sync_status = $1 WHERE id = $2`, status, tenantID)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("error updating tenant sync status: %w", err)
	}

	if err := l.CommitTransaction(tx); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}

	return nil
}

// SetTenantLogo stores the public URL of an uploaded logo.
func (l *LeadsDB) SetTenantLogo(tenantID uuid.UUID, logoURL string) error {
	tx, err := l.DB.Begin()
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}

	err = l.execQuery(tx, `UPDATE tenants SET logo_url = $1 WHERE id = $2`, logoURL, tenantID)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("error updating tenant logo: %w", err)
	}

	if err := l.CommitTransaction(tx); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}

	return nil
}
