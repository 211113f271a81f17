package models

import (
	"time"

	"github.com/google/uuid"
)

// Integration records that a tenant has connected an external provider such
// as a CRM. The credential itself lives in AWS Secrets Manager and is never
// returned by the API.
type Integration struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenantId"`
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"createdAt"`
}

// IntegrationRequest connects a provider using an API key.
type IntegrationRequest struct {
	Provider string `json:"provider"`
	APIKey   string `json:"apiKey"`
}

// IntegrationsResponse holds a tenant's connected integrations.
type IntegrationsResponse struct {
	Integrations []Integration `json:"integrations"`
}
