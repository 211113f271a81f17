package models

import (
	"time"

	"github.com/google/uuid"
)

// SenderIdentity is a from-address a tenant may send campaign email as.
// ValidationStatus tracks SES identity verification: pending until the
// address or domain is verified, then verified or failed.
type SenderIdentity struct {
	ID               uuid.UUID `json:"id"`
	TenantID         uuid.UUID `json:"tenantId"`
	FromEmail        string    `json:"fromEmail"`
	FromName         string    `json:"fromName"`
	Domain           string    `json:"domain"`
	ValidationStatus string    `json:"validationStatus"`
	CreatedAt        time.Time `json:"createdAt"`
}

// SenderIdentityRequest registers a new sender identity.
type SenderIdentityRequest struct {
	FromEmail string `json:"fromEmail"`
	FromName  string `json:"fromName"`
}

// SenderIdentitiesResponse holds a tenant's sender identities.
type SenderIdentitiesResponse struct {
	SenderIdentities []SenderIdentity `json:"senderIdentities"`
}
