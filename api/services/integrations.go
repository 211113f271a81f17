package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/dripiq/dripiq-lead-services/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// GetIntegrationsService lists the tenant's connected integrations. API keys
// are never included.
func GetIntegrationsService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())

	tenantID, _, ok := tenantFromRequest(r)
	if !ok {
		logger.Warn().Msg("Unauthorized request: missing claims")
		WriteResponse(w, http.StatusUnauthorized, nil)
		return
	}

	integrations, err := svc.DB.GetIntegrations(tenantID)
	if err != nil {
		logger.Error().Err(err).Msg("Database error retrieving integrations")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to retrieve integrations")
		return
	}

	if integrations == nil {
		integrations = []models.Integration{}
	}

	WriteResponse(w, http.StatusOK, models.IntegrationsResponse{Integrations: integrations})
}

// CreateIntegrationService connects an external provider for the tenant. The
// API key goes into the tenant's Secrets Manager secret, keyed by provider;
// the database only records that the connection exists.
func CreateIntegrationService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())

	tenantID, _, ok := tenantFromRequest(r)
	if !ok {
		logger.Warn().Msg("Unauthorized request: missing claims")
		WriteResponse(w, http.StatusUnauthorized, nil)
		return
	}

	var req models.IntegrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn().Err(err).Msg("Invalid request payload")
		WriteErrMessage(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if req.Provider == "" {
		logger.Warn().Msg("Missing provider in request")
		WriteErrMessage(w, http.StatusBadRequest, "provider is required")
		return
	}
	if req.APIKey == "" {
		logger.Warn().Str("provider", req.Provider).Msg("Missing API key in request")
		WriteErrMessage(w, http.StatusBadRequest, "apiKey is required")
		return
	}

	exists, err := svc.DB.CheckIntegrationExists(tenantID, req.Provider)
	if err != nil {
		logger.Error().Err(err).Msg("Database error checking for existing integration")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to create integration")
		return
	}
	if exists {
		logger.Warn().Str("provider", req.Provider).Msg("Integration already exists")
		WriteErrMessage(w, http.StatusConflict, "an integration for this provider already exists")
		return
	}

	// Store the credential before recording the row, mirroring how external
	// provisioning precedes the database write elsewhere.
	secretName := integrationSecretName(svc, tenantID)

	secrets, err := loadIntegrationSecrets(r.Context(), svc, secretName)
	if err != nil {
		logger.Error().Err(err).Str("secret_name", secretName).Msg("Failed to load tenant secrets")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to create integration")
		return
	}

	secrets[req.Provider] = req.APIKey

	if err := storeIntegrationSecrets(r.Context(), svc, secretName, secrets); err != nil {
		logger.Error().Err(err).Str("secret_name", secretName).Msg("Failed to store tenant secrets")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to create integration")
		return
	}

	integration, err := svc.DB.CreateIntegration(tenantID, req.Provider)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			logger.Warn().Str("provider", req.Provider).Msg("Integration already exists")
			WriteErrMessage(w, http.StatusConflict, "an integration for this provider already exists")
			return
		}
		logger.Error().Err(err).Msg("Database error creating integration")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to create integration")
		return
	}

	logger.Info().Str("provider", req.Provider).Msg("Integration created successfully")

	var location = fmt.Sprintf("%s/%s", r.URL.Path, integration.ID)
	WriteResponse(w, http.StatusCreated, integration, location)
}

// DeleteIntegrationService disconnects a provider and removes its API key
// from the tenant's secret. The secret itself is deleted once no keys remain.
func DeleteIntegrationService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())

	tenantID, _, ok := tenantFromRequest(r)
	if !ok {
		logger.Warn().Msg("Unauthorized request: missing claims")
		WriteResponse(w, http.StatusUnauthorized, nil)
		return
	}

	integrationID, err := uuid.Parse(mux.Vars(r)["integration-id"])
	if err != nil {
		logger.Warn().Err(err).Msg("Invalid integration ID in path")
		WriteErrMessage(w, http.StatusBadRequest, "invalid integration id")
		return
	}

	provider, err := svc.DB.DeleteIntegration(tenantID, integrationID)
	if err != nil {
		logger.Error().Err(err).Msg("Database error deleting integration")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to delete integration")
		return
	}
	if provider == "" {
		logger.Warn().Str("integration_id", integrationID.String()).Msg("Integration not found in tenant")
		WriteErrMessage(w, http.StatusNotFound, "integration not found")
		return
	}

	secretName := integrationSecretName(svc, tenantID)

	secrets, err := loadIntegrationSecrets(r.Context(), svc, secretName)
	if err != nil {
		logger.Error().Err(err).Str("secret_name", secretName).Msg("Failed to load tenant secrets")
		WriteErrMessage(w, http.StatusInternalServerError, "integration removed but credential cleanup failed")
		return
	}

	delete(secrets, provider)

	if len(secrets) == 0 {
		_, err = svc.Secrets.DeleteSecret(r.Context(), &secretsmanager.DeleteSecretInput{
			SecretId:                   aws.String(secretName),
			ForceDeleteWithoutRecovery: aws.Bool(true),
		})
		if err != nil {
			var notFound *types.ResourceNotFoundException
			if !errors.As(err, &notFound) {
				logger.Error().Err(err).Str("secret_name", secretName).Msg("Failed to delete tenant secret")
				WriteErrMessage(w, http.StatusInternalServerError, "integration removed but credential cleanup failed")
				return
			}
		}
	} else {
		if err := storeIntegrationSecrets(r.Context(), svc, secretName, secrets); err != nil {
			logger.Error().Err(err).Str("secret_name", secretName).Msg("Failed to store tenant secrets")
			WriteErrMessage(w, http.StatusInternalServerError, "integration removed but credential cleanup failed")
			return
		}
	}

	logger.Info().Str("provider", provider).Msg("Integration deleted successfully")
	WriteResponse(w, http.StatusNoContent, nil)
}

// integrationSecretName builds the per-tenant secret name. All of a tenant's
// integration keys share one secret, keyed by provider.
func integrationSecretName(svc *Service, tenantID uuid.UUID) string {
	return fmt.Sprintf("%s%s", svc.Config.AWS.SecretsPrefix, tenantID)
}

// loadIntegrationSecrets fetches the tenant's secret and decodes the provider
// to API key map. A missing secret yields an empty map.
func loadIntegrationSecrets(ctx context.Context, svc *Service, secretName string) (map[string]string, error) {

	out, err := svc.Secrets.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretName),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return map[string]string{}, nil
		}
		return nil, err
	}

	secrets := map[string]string{}
	if out.SecretString != nil && *out.SecretString != "" {
		if err := json.Unmarshal([]byte(*out.SecretString), &secrets); err != nil {
			return nil, err
		}
	}

	return secrets, nil
}

// storeIntegrationSecrets writes the provider map back, creating the secret
// on first use.
func storeIntegrationSecrets(ctx context.Context, svc *Service, secretName string, secrets map[string]string) error {

	payload, err := json.Marshal(secrets)
	if err != nil {
		return err
	}

	_, err = svc.Secrets.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(secretName),
		SecretString: aws.String(string(payload)),
	})
	if err != nil {
		var exists *types.ResourceExistsException
		if !errors.As(err, &exists) {
			return err
		}
		_, err = svc.Secrets.UpdateSecret(ctx, &secretsmanager.UpdateSecretInput{
			SecretId:     aws.String(secretName),
			SecretString: aws.String(string(payload)),
		})
		if err != nil {
			return err
		}
	}

	return nil
}
