package models

import (
	"time"

	"github.com/google/uuid"
)

// VendorFit scores how well a lead matches the tenant's offering. Produced
// asynchronously by the analysis pipeline.
type VendorFit struct {
	Score       int       `json:"score"`
	Summary     string    `json:"summary"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// LeadContact is a person attached to a lead. Contacts are replaced wholesale
// when a lead is updated.
type LeadContact struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Title     string    `json:"title,omitempty"`
	IsPrimary bool      `json:"isPrimary"`
}

// Lead is a prospective customer organization tracked by a tenant. Status
// moves new -> syncing -> analyzed (or failed) as the pipeline works.
type Lead struct {
	ID              uuid.UUID     `json:"id"`
	TenantID        uuid.UUID     `json:"tenantId"`
	Name            string        `json:"name"`
	URL             string        `json:"url"`
	Status          string        `json:"status"`
	Summary         string        `json:"summary,omitempty"`
	Products        []string      `json:"products"`
	Services        []string      `json:"services"`
	Differentiators []string      `json:"differentiators"`
	BrandColors     []string      `json:"brandColors"`
	LogoURL         string        `json:"logoUrl,omitempty"`
	VendorFit       *VendorFit    `json:"vendorFit,omitempty"`
	Contacts        []LeadContact `json:"contacts"`
	LastSyncedAt    *time.Time    `json:"lastSyncedAt,omitempty"`
	CreatedBy       *uuid.UUID    `json:"createdBy,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
}

// LeadRequest creates a new lead from a name and website URL.
type LeadRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// LeadContactRequest is one contact in a lead update.
type LeadContactRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Title     string `json:"title"`
	IsPrimary bool   `json:"isPrimary"`
}

// LeadUpdateRequest edits a lead, including its contact list.
type LeadUpdateRequest struct {
	Name            string               `json:"name"`
	URL             string               `json:"url"`
	Summary         string               `json:"summary"`
	Products        []string             `json:"products"`
	Services        []string             `json:"services"`
	Differentiators []string             `json:"differentiators"`
	BrandColors     []string             `json:"brandColors"`
	Contacts        []LeadContactRequest `json:"contacts"`
}

// LeadPage holds one page of leads plus pagination metadata.
type LeadPage struct {
	Data       []Lead     `json:"data"`
	Pagination Pagination `json:"pagination"`
}
