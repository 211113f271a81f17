package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dripiq/dripiq-lead-services/models"
	"github.com/google/uuid"
)

// CreateSenderIdentity inserts a new sender identity in pending state.
func (l *LeadsDB) CreateSenderIdentity(tenantID uuid.UUID, req models.SenderIdentityRequest, domain string) (*models.SenderIdentity, error) {
	tx, err := l.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %w", err)
	}

	identityID := uuid.New()
	createdAt := time.Now().UTC()

	err = l.execQuery(tx, `
		INSERT INTO sender_identities (id, tenant_id, from_email, from_name, domain, validation_status, created_at)
		VALUES ($1, $2, $3, $4, $5, 'pending', $6)`,
		identityID, tenantID, req.FromEmail, req.FromName, domain, createdAt)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("error inserting sender identity: %w", err)
	}

	if err := l.CommitTransaction(tx); err != nil {
		return nil, fmt.Errorf("error committing transaction: %w", err)
	}

	identity := models.SenderIdentity{
		ID:               identityID,
		TenantID:         tenantID,
		FromEmail:        req.FromEmail,
		FromName:         req.FromName,
		Domain:           domain,
		ValidationStatus: "pending",
		CreatedAt:        createdAt,
	}

	return &identity, nil
}

// GetSenderIdentities retrieves all sender identities of a tenant.
func (db *LeadsDB) GetSenderIdentities(tenantID uuid.UUID) ([]models.SenderIdentity, error) {
	query := `SELECT id, tenant_id, from_email, from_name, domain, validation_status, created_at FROM sender_identities WHERE tenant_id = $1 ORDER BY created_at`
	rows, err := db.DB.Query(query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("error retrieving sender identities: %w", err)
	}
	defer rows.Close()

	var identities []models.SenderIdentity
	for rows.Next() {
		var si models.SenderIdentity
		if err := rows.Scan(&si.ID, &si.TenantID, &si.FromEmail, &si.FromName, &si.Domain, &si.ValidationStatus, &si.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning sender identity: %w", err)
		}
		identities = append(identities, si)
	}
	return identities, nil
}

// GetSenderIdentity retrieves a single sender identity within a tenant.
func (db *LeadsDB) GetSenderIdentity(tenantID, identityID uuid.UUID) (*models.SenderIdentity, error) {
	query := `SELECT id, tenant_id, from_email, from_name, domain, validation_status, created_at FROM sender_identities WHERE tenant_id = $1 AND id = $2`
	row := db.DB.QueryRow(query, tenantID, identityID)

	var si models.SenderIdentity
	if err := row.Scan(&si.ID, &si.TenantID, &si.FromEmail, &si.FromName, &si.Domain, &si.ValidationStatus, &si.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, fmt.Errorf("error scanning sender identity: %w", err)
	}

	return &si, nil
}

// GetSenderIdentityByEmail retrieves a sender identity by from address within
// a tenant. Used to detect duplicates before registering.
func (db *LeadsDB) GetSenderIdentityByEmail(tenantID uuid.UUID, fromEmail string) (*models.SenderIdentity, error) {
	query := `SELECT id, tenant_id, from_email, from_name, domain, validation_status, created_at FROM sender_identities WHERE tenant_id = $1 AND from_email = $2`
	row := db.DB.QueryRow(query, tenantID, fromEmail)

	var si models.SenderIdentity
	if err := row.Scan(&si.ID, &si.TenantID, &si.FromEmail, &si.FromName, &si.Domain, &si.ValidationStatus, &si.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, fmt.Errorf("error scanning sender identity: %w", err)
	}

	return &si, nil
}

// UpdateSenderValidationStatus stores the latest verification state reported
// for a sender identity.
func (l *LeadsDB) UpdateSenderValidationStatus(tenantID, identityID uuid.UUID, status string) error {
	tx, err := l.DB.Begin()
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}

	err = l.execQuery(tx, `UPDATE sender_identities SET validation_status = $1 WHERE tenant_id = $2 AND id = $3`, status, tenantID, identityID)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("error updating validation status: %w", err)
	}

	if err := l.CommitTransaction(tx); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}

	return nil
}

// DeleteSenderIdentity removes a sender identity. Returns false when the
// tenant has no identity with that ID.
func (l *LeadsDB) DeleteSenderIdentity(tenantID, identityID uuid.UUID) (bool, error) {
	tx, err := l.DB.Begin()
	if err != nil {
		return false, fmt.Errorf("error starting transaction: %w", err)
	}

	result, err := tx.Exec(`DELETE FROM sender_identities WHERE tenant_id = $1 AND id = $2`, tenantID, identityID)
	if err != nil {
		tx.Rollback()
		return false, fmt.Errorf("error deleting sender identity: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		tx.Rollback()
		return false, fmt.Errorf("error checking affected rows: %w", err)
	}
	if rows == 0 {
		tx.Rollback()
		return false, nil
	}

	if err := l.CommitTransaction(tx); err != nil {
		return false, fmt.Errorf("error committing transaction: %w", err)
	}

	return true, nil
}
