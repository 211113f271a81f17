package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dripiq/dripiq-lead-services/models"
	"github.com/google/uuid"
)

// CreateInvite starts a transaction inserting a pending user together with
// its invite. The caller sends the invite email and publishes the event
// before committing, so neither happens for a row that never lands.
func (l *LeadsDB) CreateInvite(tenantID uuid.UUID, req models.InviteRequest, role models.Role, invitedBy *uuid.UUID, tokenHash string, expiresAt time.Time) (*sql.Tx, *models.Invite, error) {
	tx, err := l.DB.Begin()
	if err != nil {
		return nil, nil, fmt.Errorf("error starting transaction: %w", err)
	}

	userID := uuid.New()
	inviteID := uuid.New()
	createdAt := time.Now().UTC()

	err = l.execQuery(tx, `
		INSERT INTO users (id, tenant_id, email, first_name, last_name, role_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7)`,
		userID, tenantID, req.Email, req.FirstName, req.LastName, role.ID, createdAt)
	if err != nil {
		tx.Rollback()
		return nil, nil, fmt.Errorf("error inserting pending user: %w", err)
	}

	err = l.execQuery(tx, `
		INSERT INTO invites (id, tenant_id, user_id, email, role_id, token_hash, status, invited_by, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7, $8, $9)`,
		inviteID, tenantID, userID, req.Email, role.ID, tokenHash, invitedBy, expiresAt, createdAt)
	if err != nil {
		tx.Rollback()
		return nil, nil, fmt.Errorf("error inserting invite: %w", err)
	}

	invite := models.Invite{
		ID:        inviteID,
		TenantID:  tenantID,
		UserID:    userID,
		Email:     req.Email,
		Role:      role,
		Status:    "pending",
		InvitedBy: invitedBy,
		ExpiresAt: expiresAt,
		CreatedAt: createdAt,
	}

	return tx, &invite, nil
}

// GetInvite retrieves a single invite within a tenant.
func (db *LeadsDB) GetInvite(tenantID, inviteID uuid.UUID) (*models.Invite, error) {
	query := `
		SELECT i.id, i.tenant_id, i.user_id, i.email, r.id, r.name, r.description, i.status, i.invited_by, i.expires_at, i.created_at
		FROM invites i
		INNER JOIN roles r ON r.id = i.role_id
		WHERE i.tenant_id = $1 AND i.id = $2`
	row := db.DB.QueryRow(query, tenantID, inviteID)

	var inv models.Invite
	if err := row.Scan(
		&inv.ID,
		&inv.TenantID,
		&inv.UserID,
		&inv.Email,
		&inv.Role.ID,
		&inv.Role.Name,
		&inv.Role.Description,
		&inv.Status,
		&inv.InvitedBy,
		&inv.ExpiresAt,
		&inv.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			// Invite does not exist, return nil invite and nil error
			return nil, nil
		}

		return nil, fmt.Errorf("error scanning invite: %w", err)
	}

	return &inv, nil
}

// GetInviteByTokenHash looks up an invite by the fingerprint of its token,
// along with the details an invited person sees before accepting. Status and
// expiry are checked by the caller so that all invalid tokens look the same
// from outside.
func (db *LeadsDB) GetInviteByTokenHash(tokenHash string) (*models.Invite, *models.InviteDetails, error) {
	query := `
		SELECT i.id, i.tenant_id, i.user_id, i.email, r.id, r.name, r.description, i.status, i.invited_by, i.expires_at, i.created_at, t.name, u.first_name, u.last_name
		FROM invites i
		INNER JOIN roles r ON r.id = i.role_id
		INNER JOIN tenants t ON t.id = i.tenant_id
		INNER JOIN users u ON u.id = i.user_id
		WHERE i.token_hash = $1`
	row := db.DB.QueryRow(query, tokenHash)

	var inv models.Invite
	var details models.InviteDetails
	if err := row.Scan(
		&inv.ID,
		&inv.TenantID,
		&inv.UserID,
		&inv.Email,
		&inv.Role.ID,
		&inv.Role.Name,
		&inv.Role.Description,
		&inv.Status,
		&inv.InvitedBy,
		&inv.ExpiresAt,
		&inv.CreatedAt,
		&details.TenantName,
		&details.FirstName,
		&details.LastName); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, nil
		}

		return nil, nil, fmt.Errorf("error scanning invite: %w", err)
	}

	details.Email = inv.Email
	details.Role = inv.Role.Name
	details.ExpiresAt = inv.ExpiresAt

	return &inv, &details, nil
}

// RotateInviteToken replaces the token fingerprint and extends the expiry of
// a pending invite. Returns nil when the tenant has no pending invite with
// that ID.
func (l *LeadsDB) RotateInviteToken(tenantID, inviteID uuid.UUID, tokenHash string, expiresAt time.Time) (*models.Invite, error) {
	tx, err := l.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %w", err)
	}

	result, err := tx.Exec(`
		UPDATE invites SET token_hash = $1, expires_at = $2
		WHERE tenant_id = $3 AND id = $4 AND status = 'pending'`,
		tokenHash, expiresAt, tenantID, inviteID)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("error rotating invite token: %w", err)
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

	if err := l.CommitTransaction(tx); err != nil {
		return nil, fmt.Errorf("error committing transaction: %w", err)
	}

	return l.GetInvite(tenantID, inviteID)
}

// AcceptInvite atomically redeems a pending, unexpired invite and activates
// its user. The single UPDATE guards against double acceptance under
// concurrent requests. Returns nil when the token matches no redeemable
// invite.
func (l *LeadsDB) AcceptInvite(tokenHash, firstName, lastName, authUserID string) (*models.Invite, error) {
	tx, err := l.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %w", err)
	}

	row := tx.QueryRow(`
		UPDATE invites SET status = 'accepted', accepted_at = now()
		WHERE token_hash = $1 AND status = 'pending' AND expires_at > now()
		RETURNING id, tenant_id, user_id, email, role_id, invited_by, expires_at, created_at`,
		tokenHash)

	var inv models.Invite
	if err := row.Scan(
		&inv.ID,
		&inv.TenantID,
		&inv.UserID,
		&inv.Email,
		&inv.Role.ID,
		&inv.InvitedBy,
		&inv.ExpiresAt,
		&inv.CreatedAt); err != nil {
		tx.Rollback()
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, fmt.Errorf("error accepting invite: %w", err)
	}
	inv.Status = "accepted"

	err = l.execQuery(tx, `
		UPDATE users SET first_name = $1, last_name = $2, status = 'active', auth_user_id = $3
		WHERE id = $4`,
		firstName, lastName, sql.NullString{String: authUserID, Valid: authUserID != ""}, inv.UserID)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("error activating invited user: %w", err)
	}

	if err := l.CommitTransaction(tx); err != nil {
		return nil, fmt.Errorf("error committing transaction: %w", err)
	}

	return &inv, nil
}

// RevokeInvite removes a pending invite and the pending user it reserved a
// seat for. Returns false when the tenant has no pending invite with that ID.
func (l *LeadsDB) RevokeInvite(tenantID, inviteID uuid.UUID) (bool, error) {
	tx, err := l.DB.Begin()
	if err != nil {
		return false, fmt.Errorf("error starting transaction: %w", err)
	}

	// Claim the invite first so a concurrent accept cannot win after this
	// point. Deleting the user below cascades to the invite row itself.
	row := tx.QueryRow(`
		UPDATE invites SET status = 'revoked'
		WHERE tenant_id = $1 AND id = $2 AND status = 'pending'
		RETURNING user_id`,
		tenantID, inviteID)

	var userID uuid.UUID
	if err := row.Scan(&userID); err != nil {
		tx.Rollback()
		if err == sql.ErrNoRows {
			return false, nil
		}

		return false, fmt.Errorf("error revoking invite: %w", err)
	}

	err = l.execQuery(tx, `DELETE FROM users WHERE id = $1 AND status = 'pending'`, userID)
	if err != nil {
		tx.Rollback()
		return false, fmt.Errorf("error deleting pending user: %w", err)
	}

	if err := l.CommitTransaction(tx); err != nil {
		return false, fmt.Errorf("error committing transaction: %w", err)
	}

	return true, nil
}
