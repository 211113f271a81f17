package handlers

import (
	"net/http"

	services "github.com/dripiq/dripiq-lead-services/api/services"
)

// GetUsers handles HTTP requests for listing the tenant's users.
func GetUsers(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.GetUsersService(svc, w, r)
	}
}

// UpdateUserRole handles HTTP requests for reassigning a user's role.
func UpdateUserRole(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.UpdateUserRoleService(svc, w, r)
	}
}

// GetRoles handles HTTP requests for listing the role catalog.
func GetRoles(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.GetRolesService(svc, w, r)
	}
}
