package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/dripiq/dripiq-lead-services/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// GetSenderIdentitiesService lists the tenant's sender identities.
func GetSenderIdentitiesService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())

	tenantID, _, ok := tenantFromRequest(r)
	if !ok {
		logger.Warn().Msg("Unauthorized request: missing claims")
		WriteResponse(w, http.StatusUnauthorized, nil)
		return
	}

	identities, err := svc.DB.GetSenderIdentities(tenantID)
	if err != nil {
		logger.Error().Err(err).Msg("Database error retrieving sender identities")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to retrieve sender identities")
		return
	}

	if identities == nil {
		identities = []models.SenderIdentity{}
	}

	WriteResponse(w, http.StatusOK, models.SenderIdentitiesResponse{SenderIdentities: identities})
}

// CreateSenderIdentityService registers a from-address for the tenant and
// starts SES verification of it. The identity stays pending until verified.
func CreateSenderIdentityService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())

	tenantID, _, ok := tenantFromRequest(r)
	if !ok {
		logger.Warn().Msg("Unauthorized request: missing claims")
		WriteResponse(w, http.StatusUnauthorized, nil)
		return
	}

	var req models.SenderIdentityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn().Err(err).Msg("Invalid request payload")
		WriteErrMessage(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if !IsValidEmail(req.FromEmail) {
		logger.Warn().Str("from_email", req.FromEmail).Msg("Invalid sender address")
		WriteErrMessage(w, http.StatusBadRequest, "fromEmail must be a valid email address")
		return
	}

	existing, err := svc.DB.GetSenderIdentityByEmail(tenantID, req.FromEmail)
	if err != nil {
		logger.Error().Err(err).Msg("Database error checking for existing sender identity")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to create sender identity")
		return
	}
	if existing != nil {
		logger.Warn().Str("from_email", req.FromEmail).Msg("Sender identity already exists")
		WriteErrMessage(w, http.StatusConflict, "a sender identity with this address already exists")
		return
	}

	// Start provider verification before recording the row, so a failed SES
	// call leaves nothing behind.
	_, err = svc.Identity.CreateEmailIdentity(r.Context(), &sesv2.CreateEmailIdentityInput{
		EmailIdentity: aws.String(req.FromEmail),
	})
	if err != nil {
		var alreadyExists *types.AlreadyExistsException
		if !errors.As(err, &alreadyExists) {
			logger.Error().Err(err).Str("aws_code", awsErrorCode(err)).Str("from_email", req.FromEmail).Msg("Failed to create SES identity")
			WriteErrMessage(w, http.StatusInternalServerError, "failed to create sender identity")
			return
		}
		// The address is already registered with SES; verification state is
		// picked up on the next verify poll.
	}

	parts := strings.Split(req.FromEmail, "@")
	domain := parts[len(parts)-1]

	identity, err := svc.DB.CreateSenderIdentity(tenantID, req, domain)
	if err != nil {
		logger.Error().Err(err).Msg("Database error creating sender identity")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to create sender identity")
		return
	}

	logger.Info().Str("from_email", req.FromEmail).Msg("Sender identity created successfully")

	var location = fmt.Sprintf("%s/%s", r.URL.Path, identity.ID)
	WriteResponse(w, http.StatusCreated, identity, location)
}

// VerifySenderIdentityService polls SES for the verification state of a
// sender identity and stores the result.
func VerifySenderIdentityService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())

	tenantID, _, ok := tenantFromRequest(r)
	if !ok {
		logger.Warn().Msg("Unauthorized request: missing claims")
		WriteResponse(w, http.StatusUnauthorized, nil)
		return
	}

	identityID, err := uuid.Parse(mux.Vars(r)["identity-id"])
	if err != nil {
		logger.Warn().Err(err).Msg("Invalid identity ID in path")
		WriteErrMessage(w, http.StatusBadRequest, "invalid identity id")
		return
	}

	identity, err := svc.DB.GetSenderIdentity(tenantID, identityID)
	if err != nil {
		logger.Error().Err(err).Msg("Database error retrieving sender identity")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to verify sender identity")
		return
	}
	if identity == nil {
		logger.Warn().Str("identity_id", identityID.String()).Msg("Sender identity not found in tenant")
		WriteErrMessage(w, http.StatusNotFound, "sender identity not found")
		return
	}

	status := "pending"
	out, err := svc.Identity.GetEmailIdentity(r.Context(), &sesv2.GetEmailIdentityInput{
		EmailIdentity: aws.String(identity.FromEmail),
	})
	if err != nil {
		var notFound *types.NotFoundException
		if !errors.As(err, &notFound) {
			logger.Error().Err(err).Str("aws_code", awsErrorCode(err)).Str("from_email", identity.FromEmail).Msg("Failed to query SES identity")
			WriteErrMessage(w, http.StatusInternalServerError, "failed to verify sender identity")
			return
		}
		// Identity vanished on the SES side, e.g. removed from the console.
		status = "failed"
	} else if out.VerifiedForSendingStatus {
		status = "verified"
	}

	if err := svc.DB.UpdateSenderValidationStatus(tenantID, identityID, status); err != nil {
		logger.Error().Err(err).Msg("Database error updating validation status")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to verify sender identity")
		return
	}

	identity.ValidationStatus = status

	logger.Info().Str("from_email", identity.FromEmail).Str("status", status).Msg("Sender identity verification polled")
	WriteResponse(w, http.StatusOK, identity)
}

// DeleteSenderIdentityService removes a sender identity here and at SES.
func DeleteSenderIdentityService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())

	tenantID, _, ok := tenantFromRequest(r)
	if !ok {
		logger.Warn().Msg("Unauthorized request: missing claims")
		WriteResponse(w, http.StatusUnauthorized, nil)
		return
	}

	identityID, err := uuid.Parse(mux.Vars(r)["identity-id"])
	if err != nil {
		logger.Warn().Err(err).Msg("Invalid identity ID in path")
		WriteErrMessage(w, http.StatusBadRequest, "invalid identity id")
		return
	}

	identity, err := svc.DB.GetSenderIdentity(tenantID, identityID)
	if err != nil {
		logger.Error().Err(err).Msg("Database error retrieving sender identity")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to delete sender identity")
		return
	}
	if identity == nil {
		logger.Warn().Str("identity_id", identityID.String()).Msg("Sender identity not found in tenant")
		WriteErrMessage(w, http.StatusNotFound, "sender identity not found")
		return
	}

	_, err = svc.Identity.DeleteEmailIdentity(r.Context(), &sesv2.DeleteEmailIdentityInput{
		EmailIdentity: aws.String(identity.FromEmail),
	})
	if err != nil {
		var notFound *types.NotFoundException
		if !errors.As(err, &notFound) {
			logger.Error().Err(err).Str("aws_code", awsErrorCode(err)).Str("from_email", identity.FromEmail).Msg("Failed to delete SES identity")
			WriteErrMessage(w, http.StatusInternalServerError, "failed to delete sender identity")
			return
		}
	}

	if _, err := svc.DB.DeleteSenderIdentity(tenantID, identityID); err != nil {
		logger.Error().Err(err).Msg("Database error deleting sender identity")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to delete sender identity")
		return
	}

	logger.Info().Str("from_email", identity.FromEmail).Msg("Sender identity deleted successfully")
	WriteResponse(w, http.StatusNoContent, nil)
}
