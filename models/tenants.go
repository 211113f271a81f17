package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is the organization profile shown on the settings page. The summary,
// product and differentiator fields are filled in by the analysis pipeline
// after a sync and can be edited by admins afterwards.
type Tenant struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Website         string     `json:"website,omitempty"`
	Summary         string     `json:"summary,omitempty"`
	Products        []string   `json:"products"`
	Services        []string   `json:"services"`
	Differentiators []string   `json:"differentiators"`
	BrandColors     []string   `json:"brandColors"`
	LogoURL         string     `json:"logoUrl,omitempty"`
	SyncStatus      string     `json:"syncStatus"`
	LastSyncedAt    *time.Time `json:"lastSyncedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// SyncStatusResponse acknowledges that asynchronous work was queued.
type SyncStatusResponse struct {
	Status string `json:"status"`
}

// TenantUpdateRequest edits the organization profile. Brand colors must be
// six-digit hex values such as #1A2B3C.
type TenantUpdateRequest struct {
	Name            string   `json:"name"`
	Website         string   `json:"website"`
	Summary         string   `json:"summary"`
	Products        []string `json:"products"`
	Services        []string `json:"services"`
	Differentiators []string `json:"differentiators"`
	BrandColors     []string `json:"brandColors"`
}

// LogoRequest records a logo object the client uploaded with vended
// credentials.
type LogoRequest struct {
	Key string `json:"key"`
}

// LogoResponse returns the public URL the recorded logo is served from.
type LogoResponse struct {
	LogoURL string `json:"logoUrl"`
}
