package handlers

import (
	"net/http"

	services "github.com/dripiq/dripiq-lead-services/api/services"
)

// @Summary List leads
// @Description Retrieve one page of the tenant's leads, optionally filtered by a search term matching name or URL.
// @Tags leads
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Param q query string false "Search term"
// @Success 200 {object} models.LeadPage
// @Failure 401 {object} models.ErrorResponse
// @Router /leads [get]
func GetLeads(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.GetLeadsService(svc, w, r)
	}
}

// GetLead handles HTTP requests for retrieving a single lead.
func GetLead(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.GetLeadService(svc, w, r)
	}
}

// @Summary Create a lead
// @Description Create a lead from a name and website URL and queue its first analysis.
// @Tags leads
// @Accept json
// @Produce json
// @Param lead body models.LeadRequest true "Lead"
// @Success 201 {object} models.Lead
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /leads [post]
func CreateLead(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.CreateLeadService(svc, w, r)
	}
}

// UpdateLead handles HTTP requests for editing a lead and its contacts.
func UpdateLead(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.UpdateLeadService(svc, w, r)
	}
}

// DeleteLead handles HTTP requests for removing a lead.
func DeleteLead(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.DeleteLeadService(svc, w, r)
	}
}

// ResyncLead handles HTTP requests for queueing a lead re-analysis.
func ResyncLead(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.ResyncLeadService(svc, w, r)
	}
}

// VendorFitLead handles HTTP requests for queueing a vendor fit evaluation.
func VendorFitLead(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.VendorFitLeadService(svc, w, r)
	}
}
