package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents an assignable role within a tenant.
type Role struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
}

// User represents a member of a tenant. Status is "pending" until the user
// accepts their invite, then "active".
type User struct {
	ID        uuid.UUID      `json:"id"`
	TenantID  uuid.UUID      `json:"tenantId"`
	Email     string         `json:"email"`
	FirstName string         `json:"firstName,omitempty"`
	LastName  string         `json:"lastName,omitempty"`
	Role      Role           `json:"role"`
	Status    string         `json:"status"`
	Invite    *InviteSummary `json:"invite,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// InviteSummary is attached to pending users so clients can resend or revoke
// the outstanding invite without a second lookup.
type InviteSummary struct {
	ID        uuid.UUID `json:"id"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// UserPage holds one page of users plus pagination metadata.
type UserPage struct {
	Data       []User     `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// RoleUpdateRequest changes the role of an existing user.
type RoleUpdateRequest struct {
	RoleID uuid.UUID `json:"roleId"`
}

// RolesResponse holds the roles available to a tenant.
type RolesResponse struct {
	Roles []Role `json:"roles"`
}
