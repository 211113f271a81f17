package handlers

import (
	"net/http"

	services "github.com/dripiq/dripiq-lead-services/api/services"
)

// GetIntegrations handles HTTP requests for listing connected providers.
func GetIntegrations(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.GetIntegrationsService(svc, w, r)
	}
}

// CreateIntegration handles HTTP requests for connecting a provider.
func CreateIntegration(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.CreateIntegrationService(svc, w, r)
	}
}

// DeleteIntegration handles HTTP requests for disconnecting a provider.
func DeleteIntegration(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.DeleteIntegrationService(svc, w, r)
	}
}
