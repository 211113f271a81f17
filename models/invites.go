package models

import (
	"time"

	"github.com/google/uuid"
)

// Invite represents an outstanding or settled invitation into a tenant. The
// invite token itself is never stored or returned, only its SHA-256
// fingerprint is kept in the database.
type Invite struct {
	ID        uuid.UUID  `json:"id"`
	TenantID  uuid.UUID  `json:"tenantId"`
	UserID    uuid.UUID  `json:"userId"`
	Email     string     `json:"email"`
	Role      Role       `json:"role"`
	Status    string     `json:"status"`
	InvitedBy *uuid.UUID `json:"invitedBy,omitempty"`
	ExpiresAt time.Time  `json:"expiresAt"`
	CreatedAt time.Time  `json:"createdAt"`
}

// InviteRequest creates a new invitation.
type InviteRequest struct {
	Email     string    `json:"email"`
	RoleID    uuid.UUID `json:"roleId"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
}

// InviteTokenRequest carries the opaque token from an invite link.
type InviteTokenRequest struct {
	Token string `json:"token"`
}

// InviteAcceptRequest redeems an invite token and completes the profile of
// the pending user.
type InviteAcceptRequest struct {
	Token     string `json:"token"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// InviteDetails is what an invited person sees before accepting.
type InviteDetails struct {
	Email      string    `json:"email"`
	FirstName  string    `json:"firstName,omitempty"`
	LastName   string    `json:"lastName,omitempty"`
	TenantName string    `json:"tenantName"`
	Role       string    `json:"role"`
	ExpiresAt  time.Time `json:"expiresAt"`
}
