package models

import (
	"time"

	"github.com/google/uuid"
)

// Actions published to the outbound topic.
const (
	ActionLeadSyncRequested      = "lead.sync.requested"
	ActionLeadVendorFitRequested = "lead.vendor_fit.requested"
	ActionTenantSyncRequested    = "organization.sync.requested"
	ActionInviteCreated          = "invite.created"
	ActionTestMessage            = "test.message"
)

// Actions consumed from the results topic.
const (
	ActionLeadSynced             = "lead.synced"
	ActionLeadSyncFailed         = "lead.sync_failed"
	ActionLeadVendorFitCompleted = "lead.vendor_fit.completed"
	ActionTenantSynced           = "organization.synced"
)

// Event is the message published for anything the analysis pipeline or other
// services should pick up.
type Event struct {
	TenantID   uuid.UUID         `json:"tenant_id"`
	SubjectID  uuid.UUID         `json:"subject_id"`
	Action     string            `json:"action"`
	Source     string            `json:"source"`
	OccurredAt time.Time         `json:"occurred_at"`
	Data       map[string]string `json:"data,omitempty"`
}

// SyncResult is what the analysis pipeline reports back after working a sync
// or vendor-fit request.
type SyncResult struct {
	TenantID        uuid.UUID  `json:"tenant_id"`
	SubjectID       uuid.UUID  `json:"subject_id"`
	Action          string     `json:"action"`
	Summary         string     `json:"summary,omitempty"`
	Products        []string   `json:"products,omitempty"`
	Services        []string   `json:"services,omitempty"`
	Differentiators []string   `json:"differentiators,omitempty"`
	BrandColors     []string   `json:"brand_colors,omitempty"`
	LogoURL         string     `json:"logo_url,omitempty"`
	VendorFit       *VendorFit `json:"vendor_fit,omitempty"`
	Error           string     `json:"error,omitempty"`
}
