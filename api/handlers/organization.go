package handlers

import (
	"net/http"

	services "github.com/dripiq/dripiq-lead-services/api/services"
)

// @Summary Get the caller's organization
// @Description Retrieve the organization profile of the tenant the caller belongs to, including branding and sync state.
// @Tags organization
// @Produce json
// @Success 200 {object} models.Tenant
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /organization [get]
func GetOrganization(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.GetOrganizationService(svc, w, r)
	}
}

// UpdateOrganization handles HTTP requests for updating the organization profile.
func UpdateOrganization(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.UpdateOrganizationService(svc, w, r)
	}
}

// ResyncOrganization handles HTTP requests for queueing an organization re-analysis.
func ResyncOrganization(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.ResyncOrganizationService(svc, w, r)
	}
}

// SetOrganizationLogo handles HTTP requests for recording an uploaded logo.
func SetOrganizationLogo(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.SetOrganizationLogoService(svc, w, r)
	}
}
