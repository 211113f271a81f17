package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dripiq/dripiq-lead-services/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ListLeads retrieves one page of the tenant's leads, newest first, with
// their contacts attached. A non-empty search filters on name or URL.
func (db *LeadsDB) ListLeads(tenantID uuid.UUID, search string, page, limit int) ([]models.Lead, error) {
	query := `
		SELECT id, tenant_id, name, url, status, summary, products, services, differentiators, brand_colors, logo_url, vendor_fit, last_synced_at, created_by, created_at
		FROM leads
		WHERE tenant_id = $1 AND ($2 = '' OR name ILIKE '%' || $2 || '%' OR url ILIKE '%' || $2 || '%')
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`
	rows, err := db.DB.Query(query, tenantID, search, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("error retrieving leads: %w", err)
	}
	defer rows.Close()

	var leads []models.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *lead)
	}

	return db.attachLeadContacts(leads)
}

// CountLeads returns the number of leads matching the same filter ListLeads
// applies.
func (db *LeadsDB) CountLeads(tenantID uuid.UUID, search string) (int, error) {
	query := `
		SELECT COUNT(*) FROM leads
		WHERE tenant_id = $1 AND ($2 = '' OR name ILIKE '%' || $2 || '%' OR url ILIKE '%' || $2 || '%')`
	var count int
	err := db.DB.QueryRow(query, tenantID, search).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting leads: %w", err)
	}
	return count, nil
}

// GetLead retrieves a single lead within a tenant, with contacts.
func (db *LeadsDB) GetLead(tenantID, leadID uuid.UUID) (*models.Lead, error) {
	query := `
		SELECT id, tenant_id, name, url, status, summary, products, services, differentiators, brand_colors, logo_url, vendor_fit, last_synced_at, created_by, created_at
		FROM leads
		WHERE tenant_id = $1 AND id = $2`
	row := db.DB.QueryRow(query, tenantID, leadID)

	lead, err := scanLead(row)
	if err != nil {
		if err == sql.ErrNoRows {
			// Lead does not exist, return nil lead and nil error
			return nil, nil
		}

		return nil, err
	}

	leads, err := db.attachLeadContacts([]models.Lead{*lead})
	if err != nil {
		return nil, err
	}

	return &leads[0], nil
}

// CreateLead starts a transaction inserting a new lead already marked as
// syncing. The caller publishes the sync request and then commits, so a
// failed publish leaves no half-created lead behind.
func (l *LeadsDB) CreateLead(tenantID uuid.UUID, req models.LeadRequest, createdBy *uuid.UUID) (*sql.Tx, *models.Lead, error) {
	tx, err := l.DB.Begin()
	if err != nil {
		return nil, nil, fmt.Errorf("error starting transaction: %w", err)
	}

	leadID := uuid.New()
	createdAt := time.Now().UTC()

	err = l.execQuery(tx, `
		INSERT INTO leads (id, tenant_id, name, url, status, created_by, created_at)
		VALUES ($1, $2, $3, $4, 'syncing', $5, $6)`,
		leadID, tenantID, req.Name, req.URL, createdBy, createdAt)
	if err != nil {
		tx.Rollback()
		return nil, nil, fmt.Errorf("error inserting lead: %w", err)
	}

	lead := models.Lead{
		ID:              leadID,
		TenantID:        tenantID,
		Name:            req.Name,
		URL:             req.URL,
		Status:          "syncing",
		Products:        []string{},
		Services:        []string{},
		Differentiators: []string{},
		BrandColors:     []string{},
		Contacts:        []models.LeadContact{},
		CreatedBy:       createdBy,
		CreatedAt:       createdAt,
	}

	return tx, &lead, nil
}

// UpdateLead updates a lead's editable fields and replaces its contact list
// wholesale. Returns nil when the lead is not in the tenant.
func (l *LeadsDB) UpdateLead(tenantID, leadID uuid.UUID, req models.LeadUpdateRequest) (*models.Lead, error) {
	tx, err := l.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %w", err)
	}

	result, err := tx.Exec(`
		UPDATE leads
		SET name = $1, url = $2, summary = $3, products = $4, services = $5, differentiators = $6, brand_colors = $7
		WHERE tenant_id = $8 AND id = $9`,
		req.Name, req.URL, req.Summary,
		pq.Array(req.Products), pq.Array(req.Services),
		pq.Array(req.Differentiators), pq.Array(req.BrandColors),
		tenantID, leadID)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("error updating lead: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("error checking affected rows: %w", err)
	}
	if rows == 0 {
		tx.Rollback()
		return nil, nil
	}

	err = l.execQuery(tx, `DELETE FROM lead_contacts WHERE lead_id = $1`, leadID)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("error clearing lead contacts: %w", err)
	}

	for _, contact := range req.Contacts {
		err = l.execQuery(tx, `
			INSERT INTO lead_contacts (id, lead_id, name, email, phone, title, is_primary)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.New(), leadID, contact.Name, contact.Email, contact.Phone, contact.Title, contact.IsPrimary)
		if err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("error inserting lead contact: %w", err)
		}
	}

	if err := l.CommitTransaction(tx); err != nil {
		return nil, fmt.Errorf("error committing transaction: %w", err)
	}

	return l.GetLead(tenantID, leadID)
}

// DeleteLead removes a lead and, through the cascade, its contacts. Returns
// false when the lead is not in the tenant.
func (l *LeadsDB) DeleteLead(tenantID, leadID uuid.UUID) (bool, error) {
	tx, err := l.DB.Begin()
	if err != nil {
		return false, fmt.Errorf("error starting transaction: %w", err)
	}

	result, err := tx.Exec(`DELETE FROM leads WHERE tenant_id = $1 AND id = $2`, tenantID, leadID)
	if err != nil {
		tx.Rollback()
		return false, fmt.Errorf("error deleting lead: %w", err)
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

// MarkLeadSyncQueued starts a transaction marking the lead as syncing. The
// caller publishes the sync request and then commits. Returns false when the
// lead is not in the tenant.
func (l *LeadsDB) MarkLeadSyncQueued(tenantID, leadID uuid.UUID) (*sql.Tx, bool, error) {
	tx, err := l.DB.Begin()
	if err != nil {
		return nil, false, fmt.Errorf("error starting transaction: %w", err)
	}

	result, err := tx.Exec(`UPDATE leads SET status = 'syncing' WHERE tenant_id = $1 AND id = $2`, tenantID, leadID)
	if err != nil {
		tx.Rollback()
		return nil, false, fmt.Errorf("error marking lead syncing: %w", err)
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

// ApplyLeadAnalysis stores the analysis results reported back for a lead and
// marks it analyzed.
func (l *LeadsDB) ApplyLeadAnalysis(result models.SyncResult) error {
	tx, err := l.DB.Begin()
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}

	err = l.execQuery(tx, `
		UPDATE leads
		SET status = 'analyzed', summary = $1, products = $2, services = $3, differentiators = $4, brand_colors = $5,
		    logo_url = CASE WHEN $6 <> '' THEN $6 ELSE logo_url END,
		    last_synced_at = $7
		WHERE tenant_id = $8 AND id = $9`,
		result.Summary, pq.Array(result.Products), pq.Array(result.Services),
		pq.Array(result.Differentiators), pq.Array(result.BrandColors),
		result.LogoURL, time.Now().UTC(), result.TenantID, result.SubjectID)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("error applying lead analysis: %w", err)
	}

	if err := l.CommitTransaction(tx); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}

	return nil
}

// MarkLeadSyncFailed marks a lead's sync as failed.
func (l *LeadsDB) MarkLeadSyncFailed(tenantID, leadID uuid.UUID) error {
	tx, err := l.DB.Begin()
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}

	err = l.execQuery(tx, `UPDATE leads SET status = 'failed' WHERE tenant_id = $1 AND id = $2`, tenantID, leadID)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("error marking lead failed: %w", err)
	}

	if err := l.CommitTransaction(tx); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}

	return nil
}

// SetLeadVendorFit stores the vendor fit report for a lead.
func (l *LeadsDB) SetLeadVendorFit(tenantID, leadID uuid.UUID, fit models.VendorFit) error {
	fitJSON, err := json.Marshal(fit)
	if err != nil {
		return fmt.Errorf("error encoding vendor fit: %w", err)
	}

	tx, err := l.DB.Begin()
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}

	err = l.execQuery(tx, `UPDATE leads SET vendor_fit = $1 WHERE tenant_id = $2 AND id = $3`, fitJSON, tenantID, leadID)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("error updating vendor fit: %w", err)
	}

	if err := l.CommitTransaction(tx); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}

	return nil
}

// ListSyncingLeads retrieves all leads currently marked syncing, across
// tenants. Used to re-publish sync requests for leads whose results were
// lost.
func (db *LeadsDB) ListSyncingLeads() ([]models.Lead, error) {
	query := `SELECT id, tenant_id, name, url FROM leads WHERE status = 'syncing' ORDER BY created_at`
	rows, err := db.DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("error retrieving syncing leads: %w", err)
	}
	defer rows.Close()

	var leads []models.Lead
	for rows.Next() {
		var lead models.Lead
		if err := rows.Scan(&lead.ID, &lead.TenantID, &lead.Name, &lead.URL); err != nil {
			return nil, fmt.Errorf("error scanning lead: %w", err)
		}
		leads = append(leads, lead)
	}
	return leads, nil
}

// rowScanner is satisfied by both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanLead reads one lead row, decoding the vendor fit JSON when present.
func scanLead(row rowScanner) (*models.Lead, error) {
	var lead models.Lead
	var vendorFitJSON []byte
	if err := row.Scan(
		&lead.ID,
		&lead.TenantID,
		&lead.Name,
		&lead.URL,
		&lead.Status,
		&lead.Summary,
		pq.Array(&lead.Products),
		pq.Array(&lead.Services),
		pq.Array(&lead.Differentiators),
		pq.Array(&lead.BrandColors),
		&lead.LogoURL,
		&vendorFitJSON,
		&lead.LastSyncedAt,
		&lead.CreatedBy,
		&lead.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}

		return nil, fmt.Errorf("error scanning lead: %w", err)
	}

	if len(vendorFitJSON) > 0 {
		var fit models.VendorFit
		if err := json.Unmarshal(vendorFitJSON, &fit); err != nil {
			return nil, fmt.Errorf("error decoding vendor fit: %w", err)
		}
		lead.VendorFit = &fit
	}

	return &lead, nil
}

// attachLeadContacts fetches the contacts for each lead and attaches them.
func (db *LeadsDB) attachLeadContacts(leads []models.Lead) ([]models.Lead, error) {
	if len(leads) == 0 {
		return leads, nil
	}

	contacts, err := db.getLeadContacts(extractLeadIDs(leads))
	if err != nil {
		return nil, err
	}

	for i := range leads {
		leads[i].Contacts = contacts[leads[i].ID]
		if leads[i].Contacts == nil {
			leads[i].Contacts = []models.LeadContact{}
		}
	}

	return leads, nil
}

// getLeadContacts fetches contacts for the specified leads, primary contacts
// first.
func (db *LeadsDB) getLeadContacts(leadIDs []uuid.UUID) (map[uuid.UUID][]models.LeadContact, error) {
	query := `
		SELECT lead_id, id, name, email, phone, title, is_primary
		FROM lead_contacts
		WHERE lead_id = ANY($1)
		ORDER BY is_primary DESC, name`
	rows, err := db.DB.Query(query, pq.Array(leadIDs))
	if err != nil {
		return nil, fmt.Errorf("error retrieving lead contacts: %w", err)
	}
	defer rows.Close()

	contacts := make(map[uuid.UUID][]models.LeadContact)
	for rows.Next() {
		var leadID uuid.UUID
		var c models.LeadContact
		if err := rows.Scan(&leadID, &c.ID, &c.Name, &c.Email, &c.Phone, &c.Title, &c.IsPrimary); err != nil {
			return nil, fmt.Errorf("error scanning lead contact: %w", err)
		}
		contacts[leadID] = append(contacts[leadID], c)
	}
	return contacts, nil
}

// extractLeadIDs extracts lead IDs from a slice of Lead structs.
func extractLeadIDs(leads []models.Lead) []uuid.UUID {
	ids := make([]uuid.UUID, len(leads))
	for i, lead := range leads {
		ids[i] = lead.ID
	}
	return ids
}
