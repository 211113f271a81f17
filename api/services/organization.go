package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dripiq/dripiq-lead-services/models"
	"github.com/rs/zerolog"
)

// GetOrganizationService retrieves the calling tenant's organization profile.
func GetOrganizationService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())

	tenantID, _, ok := tenantFromRequest(r)
	if !ok {
		logger.Warn().Msg("Unauthorized request: missing claims")
		WriteResponse(w, http.StatusUnauthorized, nil)
		return
	}

	tenant, err := svc.DB.GetTenant(tenantID)
	if err != nil {
		logger.Error().Err(err).Msg("Database error retrieving tenant")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to retrieve organization")
		return
	}
	if tenant == nil {
		logger.Warn().Str("tenant_id", tenantID.String()).Msg("Tenant does not exist")
		WriteErrMessage(w, http.StatusNotFound, "organization not found")
		return
	}

	WriteResponse(w, http.StatusOK, tenant)
}

// UpdateOrganizationService saves edits to the organization profile. The
// website must parse as an absolute URL and every brand color must be a six
// digit hex value.
func UpdateOrganizationService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())

	tenantID, _, ok := tenantFromRequest(r)
	if !ok {
		logger.Warn().Msg("Unauthorized request: missing claims")
		WriteResponse(w, http.StatusUnauthorized, nil)
		return
	}

	var req models.TenantUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn().Err(err).Msg("Invalid request payload")
		WriteErrMessage(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if req.Name == "" {
		logger.Warn().Msg("Missing organization name")
		WriteErrMessage(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Website != "" && !IsValidURL(req.Website) {
		logger.Warn().Str("website", req.Website).Msg("Invalid organization website")
		WriteErrMessage(w, http.StatusBadRequest, "website must be a valid http or https URL")
		return
	}
	if color := firstInvalidColor(req.BrandColors); color != "" {
		logger.Warn().Str("color", color).Msg("Invalid brand color")
		WriteErrMessage(w, http.StatusBadRequest, "brand colors must be six digit hex values like #1A2B3C")
		return
	}

	tenant, err := svc.DB.UpdateTenant(tenantID, req)
	if err != nil {
		logger.Error().Err(err).Msg("Database error updating tenant")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to update organization")
		return
	}
	if tenant == nil {
		logger.Warn().Str("tenant_id", tenantID.String()).Msg("Tenant does not exist")
		WriteErrMessage(w, http.StatusNotFound, "organization not found")
		return
	}

	logger.Info().Str("tenant_id", tenantID.String()).Msg("Organization updated successfully")
	WriteResponse(w, http.StatusOK, tenant)
}

// ResyncOrganizationService queues a fresh analysis of the organization's
// website. The status update and the published request share the same
// transaction boundary: a failed publish leaves the status untouched.
func ResyncOrganizationService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())

	tenantID, _, ok := tenantFromRequest(r)
	if !ok {
		logger.Warn().Msg("Unauthorized request: missing claims")
		WriteResponse(w, http.StatusUnauthorized, nil)
		return
	}

	tx, found, err := svc.DB.MarkTenantSyncQueued(tenantID)
	if err != nil {
		logger.Error().Err(err).Msg("Database error queueing organization sync")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to queue resync")
		return
	}
	if !found {
		logger.Warn().Str("tenant_id", tenantID.String()).Msg("Tenant does not exist")
		WriteErrMessage(w, http.StatusNotFound, "organization not found")
		return
	}

	event := models.Event{
		TenantID:   tenantID,
		SubjectID:  tenantID,
		Action:     models.ActionTenantSyncRequested,
		Source:     eventSource,
		OccurredAt: time.Now().UTC(),
	}
	if err := svc.Publisher.Publish(event); err != nil {
		logger.Error().Err(err).Msg("Failed to publish organization sync request")
		tx.Rollback()
		WriteErrMessage(w, http.StatusInternalServerError, "failed to queue resync")
		return
	}

	if err := svc.DB.CommitTransaction(tx); err != nil {
		logger.Error().Err(err).Msg("Failed to commit transaction")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to queue resync")
		return
	}

	logger.Info().Str("tenant_id", tenantID.String()).Msg("Organization sync queued")
	WriteResponse(w, http.StatusAccepted, models.SyncStatusResponse{Status: "queued"})
}

// SetOrganizationLogoService records a logo the client uploaded with vended
// credentials. The object key must sit under the tenant's branding prefix and
// is checked against the bucket before anything is stored.
func SetOrganizationLogoService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())

	tenantID, _, ok := tenantFromRequest(r)
	if !ok {
		logger.Warn().Msg("Unauthorized request: missing claims")
		WriteResponse(w, http.StatusUnauthorized, nil)
		return
	}

	var req models.LogoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn().Err(err).Msg("Invalid request payload")
		WriteErrMessage(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	prefix := fmt.Sprintf("branding/%s/", tenantID)
	if req.Key == "" || !strings.HasPrefix(req.Key, prefix) {
		logger.Warn().Str("key", req.Key).Msg("Logo key outside tenant prefix")
		WriteErrMessage(w, http.StatusBadRequest, "key must sit under the tenant's branding prefix")
		return
	}

	_, err := svc.Storage.HeadObject(r.Context(), &s3.HeadObjectInput{
		Bucket: aws.String(svc.Config.AWS.S3.Bucket),
		Key:    aws.String(req.Key),
	})
	if err != nil {
		var notFound *s3types.NotFound
		if errors.As(err, &notFound) {
			logger.Warn().Str("key", req.Key).Msg("Logo object not found in bucket")
			WriteErrMessage(w, http.StatusBadRequest, "no uploaded object at the given key")
			return
		}
		logger.Error().Err(err).Msg("Failed to check logo object")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to record logo")
		return
	}

	logoURL := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s",
		svc.Config.AWS.S3.Bucket, svc.Config.AWS.Region, req.Key)

	if err := svc.DB.SetTenantLogo(tenantID, logoURL); err != nil {
		logger.Error().Err(err).Msg("Database error recording logo")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to record logo")
		return
	}

	logger.Info().Str("tenant_id", tenantID.String()).Str("logo_url", logoURL).Msg("Organization logo recorded")
	WriteResponse(w, http.StatusOK, models.LogoResponse{LogoURL: logoURL})
}
