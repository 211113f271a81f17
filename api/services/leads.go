package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dripiq/dripiq-lead-services/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// GetLeadsService retrieves one page of the tenant's leads, optionally
// filtered by the q parameter on name or URL.
func GetLeadsService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())

	tenantID, _, ok := tenantFromRequest(r)
	if !ok {
		logger.Warn().Msg("Unauthorized request: missing claims")
		WriteResponse(w, http.StatusUnauthorized, nil)
		return
	}

	page, limit := parsePagination(r)
	search := r.URL.Query().Get("q")

	leads, err := svc.DB.ListLeads(tenantID, search, page, limit)
	if err != nil {
		logger.Error().Err(err).Msg("Database error retrieving leads")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to retrieve leads")
		return
	}

	total, err := svc.DB.CountLeads(tenantID, search)
	if err != nil {
		logger.Error().Err(err).Msg("Database error counting leads")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to retrieve leads")
		return
	}

	if leads == nil {
		leads = []models.Lead{}
	}

	logger.Info().Int("lead_count", len(leads)).Msg("Successfully retrieved leads")
	WriteResponse(w, http.StatusOK, models.LeadPage{Data: leads, Pagination: buildPagination(page, limit, total)})
}

// GetLeadService retrieves a single lead with contacts and vendor fit.
func GetLeadService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())

	tenantID, _, ok := tenantFromRequest(r)
	if !ok {
		logger.Warn().Msg("Unauthorized request: missing claims")
		WriteResponse(w, http.StatusUnauthorized, nil)
		return
	}

	leadID, err := uuid.Parse(mux.Vars(r)["lead-id"])
	if err != nil {
		logger.Warn().Err(err).Msg("Invalid lead ID in path")
		WriteErrMessage(w, http.StatusBadRequest, "invalid lead id")
		return
	}

	lead, err := svc.DB.GetLead(tenantID, leadID)
	if err != nil {
		logger.Error().Err(err).Msg("Database error retrieving lead")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to retrieve lead")
		return
	}
	if lead == nil {
		logger.Warn().Str("lead_id", leadID.String()).Msg("Lead not found in tenant")
		WriteErrMessage(w, http.StatusNotFound, "lead not found")
		return
	}

	WriteResponse(w, http.StatusOK, lead)
}

// CreateLeadService registers a new lead and queues its first analysis. The
// row and the published sync request commit together.
func CreateLeadService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())

	tenantID, claims, ok := tenantFromRequest(r)
	if !ok {
		logger.Warn().Msg("Unauthorized request: missing claims")
		WriteResponse(w, http.StatusUnauthorized, nil)
		return
	}

	var req models.LeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn().Err(err).Msg("Invalid request payload")
		WriteErrMessage(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if req.Name == "" {
		logger.Warn().Msg("Missing lead name")
		WriteErrMessage(w, http.StatusBadRequest, "name is required")
		return
	}
	if !IsValidURL(req.URL) {
		logger.Warn().Str("url", req.URL).Msg("Invalid lead URL")
		WriteErrMessage(w, http.StatusBadRequest, "url must be a valid http or https URL")
		return
	}

	var createdBy *uuid.UUID
	caller, err := svc.DB.GetUserByEmail(tenantID, claims.Email)
	if err != nil {
		logger.Error().Err(err).Msg("Database error resolving calling user")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to create lead")
		return
	}
	if caller != nil {
		createdBy = &caller.ID
	}

	tx, lead, err := svc.DB.CreateLead(tenantID, req, createdBy)
	if err != nil {
		logger.Error().Err(err).Msg("Database error creating lead")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to create lead")
		return
	}

	event := models.Event{
		TenantID:   tenantID,
		SubjectID:  lead.ID,
		Action:     models.ActionLeadSyncRequested,
		Source:     eventSource,
		OccurredAt: time.Now().UTC(),
		Data:       map[string]string{"url": lead.URL},
	}
	if err := svc.Publisher.Publish(event); err != nil {
		logger.Error().Err(err).Msg("Failed to publish lead sync request")
		tx.Rollback()
		WriteErrMessage(w, http.StatusInternalServerError, "failed to create lead")
		return
	}

	if err := svc.DB.CommitTransaction(tx); err != nil {
		logger.Error().Err(err).Msg("Failed to commit transaction")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to create lead")
		return
	}

	logger.Info().Str("lead_id", lead.ID.String()).Str("name", lead.Name).Msg("Lead created successfully")

	var location = fmt.Sprintf("%s/%s", r.URL.Path, lead.ID)
	WriteResponse(w, http.StatusCreated, lead, location)
}

// UpdateLeadService saves edits to a lead, replacing its contact list
// wholesale. Validation matches the organization update rules.
func UpdateLeadService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())

	tenantID, _, ok := tenantFromRequest(r)
	if !ok {
		logger.Warn().Msg("Unauthorized request: missing claims")
		WriteResponse(w, http.StatusUnauthorized, nil)
		return
	}

	leadID, err := uuid.Parse(mux.Vars(r)["lead-id"])
	if err != nil {
		logger.Warn().Err(err).Msg("Invalid lead ID in path")
		WriteErrMessage(w, http.StatusBadRequest, "invalid lead id")
		return
	}

	var req models.LeadUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn().Err(err).Msg("Invalid request payload")
		WriteErrMessage(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if req.Name == "" {
		logger.Warn().Msg("Missing lead name")
		WriteErrMessage(w, http.StatusBadRequest, "name is required")
		return
	}
	if !IsValidURL(req.URL) {
		logger.Warn().Str("url", req.URL).Msg("Invalid lead URL")
		WriteErrMessage(w, http.StatusBadRequest, "url must be a valid http or https URL")
		return
	}
	if color := firstInvalidColor(req.BrandColors); color != "" {
		logger.Warn().Str("color", color).Msg("Invalid brand color")
		WriteErrMessage(w, http.StatusBadRequest, "brand colors must be six digit hex values like #1A2B3C")
		return
	}

	lead, err := svc.DB.UpdateLead(tenantID, leadID, req)
	if err != nil {
		logger.Error().Err(err).Msg("Database error updating lead")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to update lead")
		return
	}
	if lead == nil {
		logger.Warn().Str("lead_id", leadID.String()).Msg("Lead not found in tenant")
		WriteErrMessage(w, http.StatusNotFound, "lead not found")
		return
	}

	logger.Info().Str("lead_id", leadID.String()).Msg("Lead updated successfully")
	WriteResponse(w, http.StatusOK, lead)
}

// DeleteLeadService removes a lead and its contacts.
func DeleteLeadService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())

	tenantID, _, ok := tenantFromRequest(r)
	if !ok {
		logger.Warn().Msg("Unauthorized request: missing claims")
		WriteResponse(w, http.StatusUnauthorized, nil)
		return
	}

	leadID, err := uuid.Parse(mux.Vars(r)["lead-id"])
	if err != nil {
		logger.Warn().Err(err).Msg("Invalid lead ID in path")
		WriteErrMessage(w, http.StatusBadRequest, "invalid lead id")
		return
	}

	found, err := svc.DB.DeleteLead(tenantID, leadID)
	if err != nil {
		logger.Error().Err(err).Msg("Database error deleting lead")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to delete lead")
		return
	}
	if !found {
		logger.Warn().Str("lead_id", leadID.String()).Msg("Lead not found in tenant")
		WriteErrMessage(w, http.StatusNotFound, "lead not found")
		return
	}

	logger.Info().Str("lead_id", leadID.String()).Msg("Lead deleted successfully")
	WriteResponse(w, http.StatusNoContent, nil)
}

// ResyncLeadService queues a fresh analysis of a lead. The status update and
// the published request share the same transaction boundary.
func ResyncLeadService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())

	tenantID, _, ok := tenantFromRequest(r)
	if !ok {
		logger.Warn().Msg("Unauthorized request: missing claims")
		WriteResponse(w, http.StatusUnauthorized, nil)
		return
	}

	leadID, err := uuid.Parse(mux.Vars(r)["lead-id"])
	if err != nil {
		logger.Warn().Err(err).Msg("Invalid lead ID in path")
		WriteErrMessage(w, http.StatusBadRequest, "invalid lead id")
		return
	}

	tx, found, err := svc.DB.MarkLeadSyncQueued(tenantID, leadID)
	if err != nil {
		logger.Error().Err(err).Msg("Database error queueing lead sync")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to queue resync")
		return
	}
	if !found {
		logger.Warn().Str("lead_id", leadID.String()).Msg("Lead not found in tenant")
		WriteErrMessage(w, http.StatusNotFound, "lead not found")
		return
	}

	event := models.Event{
		TenantID:   tenantID,
		SubjectID:  leadID,
		Action:     models.ActionLeadSyncRequested,
		Source:     eventSource,
		OccurredAt: time.Now().UTC(),
	}
	if err := svc.Publisher.Publish(event); err != nil {
		logger.Error().Err(err).Msg("Failed to publish lead sync request")
		tx.Rollback()
		WriteErrMessage(w, http.StatusInternalServerError, "failed to queue resync")
		return
	}

	if err := svc.DB.CommitTransaction(tx); err != nil {
		logger.Error().Err(err).Msg("Failed to commit transaction")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to queue resync")
		return
	}

	logger.Info().Str("lead_id", leadID.String()).Msg("Lead sync queued")
	WriteResponse(w, http.StatusAccepted, models.SyncStatusResponse{Status: "queued"})
}

// VendorFitLeadService asks the analysis pipeline to score how well a lead
// matches the tenant's offering. The report lands asynchronously through the
// results consumer.
func VendorFitLeadService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())

	tenantID, _, ok := tenantFromRequest(r)
	if !ok {
		logger.Warn().Msg("Unauthorized request: missing claims")
		WriteResponse(w, http.StatusUnauthorized, nil)
		return
	}

	leadID, err := uuid.Parse(mux.Vars(r)["lead-id"])
	if err != nil {
		logger.Warn().Err(err).Msg("Invalid lead ID in path")
		WriteErrMessage(w, http.StatusBadRequest, "invalid lead id")
		return
	}

	lead, err := svc.DB.GetLead(tenantID, leadID)
	if err != nil {
		logger.Error().Err(err).Msg("Database error retrieving lead")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to queue vendor fit")
		return
	}
	if lead == nil {
		logger.Warn().Str("lead_id", leadID.String()).Msg("Lead not found in tenant")
		WriteErrMessage(w, http.StatusNotFound, "lead not found")
		return
	}

	event := models.Event{
		TenantID:   tenantID,
		SubjectID:  leadID,
		Action:     models.ActionLeadVendorFitRequested,
		Source:     eventSource,
		OccurredAt: time.Now().UTC(),
		Data:       map[string]string{"url": lead.URL},
	}
	if err := svc.Publisher.Publish(event); err != nil {
		logger.Error().Err(err).Msg("Failed to publish vendor fit request")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to queue vendor fit")
		return
	}

	logger.Info().Str("lead_id", leadID.String()).Msg("Vendor fit analysis queued")
	WriteResponse(w, http.StatusAccepted, models.SyncStatusResponse{Status: "queued"})
}
