package db

import (
	"database/sql"
	"fmt"

	"github.com/dripiq/dripiq-lead-services/models"
	"github.com/google/uuid"
)

// ListUsers retrieves one page of the tenant's users, newest first. Pending
// users carry a summary of their outstanding invite so clients can resend or
// revoke it without a second lookup.
func (db *LeadsDB) ListUsers(tenantID uuid.UUID, page, limit int) ([]models.User, error) {
	query := `
		SELECT u.id, u.tenant_id, u.email, u.first_name, u.last_name, r.id, r.name, r.description, u.status, u.created_at, i.id, i.expires_at
		FROM users u
		INNER JOIN roles r ON r.id = u.role_id
		LEFT JOIN invites i ON i.user_id = u.id AND i.status = 'pending'
		WHERE u.tenant_id = $1
		ORDER BY u.created_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := db.DB.Query(query, tenantID, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("error retrieving users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		var inviteID uuid.NullUUID
		var inviteExpiresAt sql.NullTime
		if err := rows.Scan(&u.ID,
			&u.TenantID,
			&u.Email,
			&u.FirstName,
			&u.LastName,
			&u.Role.ID,
			&u.Role.Name,
			&u.Role.Description,
			&u.Status,
			&u.CreatedAt,
			&inviteID,
			&inviteExpiresAt); err != nil {
			return nil, fmt.Errorf("error scanning user: %w", err)
		}

		if inviteID.Valid {
			u.Invite = &models.InviteSummary{ID: inviteID.UUID, ExpiresAt: inviteExpiresAt.Time}
		}
		users = append(users, u)
	}
	return users, nil
}

// CountUsers returns the total number of users in a tenant.
func (db *LeadsDB) CountUsers(tenantID uuid.UUID) (int, error) {
	var count int
	err := db.DB.QueryRow(`SELECT COUNT(*) FROM users WHERE tenant_id = $1`, tenantID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting users: %w", err)
	}
	return count, nil
}

// GetUser retrieves a single user within a tenant.
func (db *LeadsDB) GetUser(tenantID, userID uuid.UUID) (*models.User, error) {
	query := `
		SELECT u.id, u.tenant_id, u.email, u.first_name, u.last_name, r.id, r.name, r.description, u.status, u.created_at
		FROM users u
		INNER JOIN roles r ON r.id = u.role_id
		WHERE u.tenant_id = $1 AND u.id = $2`
	row := db.DB.QueryRow(query, tenantID, userID)

	var u models.User
	if err := row.Scan(
		&u.ID,
		&u.TenantID,
		&u.Email,
		&u.FirstName,
		&u.LastName,
		&u.Role.ID,
		&u.Role.Name,
		&u.Role.Description,
		&u.Status,
		&u.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			// User does not exist, return nil user and nil error
			return nil, nil
		}

		return nil, fmt.Errorf("error scanning user: %w", err)
	}

	return &u, nil
}

// GetUserByEmail retrieves a user by email within a tenant, regardless of
// status. Used to detect duplicates before inviting.
func (db *LeadsDB) GetUserByEmail(tenantID uuid.UUID, email string) (*models.User, error) {
	query := `
		SELECT u.id, u.tenant_id, u.email, u.first_name, u.last_name, r.id, r.name, r.description, u.status, u.created_at
		FROM users u
		INNER JOIN roles r ON r.id = u.role_id
		WHERE u.tenant_id = $1 AND u.email = $2`
	row := db.DB.QueryRow(query, tenantID, email)

	var u models.User
	if err := row.Scan(
		&u.ID,
		&u.TenantID,
		&u.Email,
		&u.FirstName,
		&u.LastName,
		&u.Role.ID,
		&u.Role.Name,
		&u.Role.Description,
		&u.Status,
		&u.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, fmt.Errorf("error scanning user: %w", err)
	}

	return &u, nil
}

// UpdateUserRole reassigns a user's role and returns the stored user. Returns
// nil when the user is not in the tenant.
func (l *LeadsDB) UpdateUserRole(tenantID, userID, roleID uuid.UUID) (*models.User, error) {
	tx, err := l.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %w", err)
	}

	result, err := tx.Exec(`UPDATE users SET role_id = $1 WHERE tenant_id = $2 AND id = $3`, roleID, tenantID, userID)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("error updating user role: %w", err)
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

	return l.GetUser(tenantID, userID)
}

// GetRoles retrieves all assignable roles.
func (db *LeadsDB) GetRoles() ([]models.Role, error) {
	rows, err := db.DB.Query(`SELECT id, name, description FROM roles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("error retrieving roles: %w", err)
	}
	defer rows.Close()

	var roles []models.Role
	for rows.Next() {
		var r models.Role
		if err := rows.Scan(&r.ID, &r.Name, &r.Description); err != nil {
			return nil, fmt.Errorf("error scanning role: %w", err)
		}
		roles = append(roles, r)
	}
	return roles, nil
}

// GetRole retrieves a single role, nil when it does not exist.
func (db *LeadsDB) GetRole(roleID uuid.UUID) (*models.Role, error) {
	var r models.Role
	err := db.DB.QueryRow(`SELECT id, name, description FROM roles WHERE id = $1`, roleID).Scan(&r.ID, &r.Name, &r.Description)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("error scanning role: %w", err)
	}
	return &r, nil
}
