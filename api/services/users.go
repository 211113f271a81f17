package services

import (
	"encoding/json"
	"net/http"

	"github.com/dripiq/dripiq-lead-services/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// GetUsersService retrieves one page of the tenant's users, active and
// pending alike.
func GetUsersService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())

	tenantID, _, ok := tenantFromRequest(r)
	if !ok {
		logger.Warn().Msg("Unauthorized request: missing claims")
		WriteResponse(w, http.StatusUnauthorized, nil)
		return
	}

	page, limit := parsePagination(r)

	users, err := svc.DB.ListUsers(tenantID, page, limit)
	if err != nil {
		logger.Error().Err(err).Msg("Database error retrieving users")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to retrieve users")
		return
	}

	total, err := svc.DB.CountUsers(tenantID)
	if err != nil {
		logger.Error().Err(err).Msg("Database error counting users")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to retrieve users")
		return
	}

	// Ensure users is not nil, return an empty slice if no users are found
	if users == nil {
		users = []models.User{}
	}

	logger.Info().Int("user_count", len(users)).Msg("Successfully retrieved users")
	WriteResponse(w, http.StatusOK, models.UserPage{Data: users, Pagination: buildPagination(page, limit, total)})
}

// UpdateUserRoleService changes the role of a user in the tenant. Admins only.
func UpdateUserRoleService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())

	tenantID, claims, ok := tenantFromRequest(r)
	if !ok {
		logger.Warn().Msg("Unauthorized request: missing claims")
		WriteResponse(w, http.StatusUnauthorized, nil)
		return
	}

	admin, err := isAdmin(svc, tenantID, claims)
	if err != nil {
		logger.Error().Err(err).Msg("Database error resolving calling user")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to update role")
		return
	}
	if !admin {
		logger.Warn().Str("user", claims.Email).Msg("Access denied: admin role required")
		WriteErrMessage(w, http.StatusForbidden, "admin role required")
		return
	}

	userID, err := uuid.Parse(mux.Vars(r)["user-id"])
	if err != nil {
		logger.Warn().Err(err).Msg("Invalid user ID in path")
		WriteErrMessage(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req models.RoleUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn().Err(err).Msg("Invalid request payload")
		WriteErrMessage(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	role, err := svc.DB.GetRole(req.RoleID)
	if err != nil {
		logger.Error().Err(err).Msg("Database error retrieving role")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to update role")
		return
	}
	if role == nil {
		logger.Warn().Str("role_id", req.RoleID.String()).Msg("Role does not exist")
		WriteErrMessage(w, http.StatusBadRequest, "role does not exist")
		return
	}

	user, err := svc.DB.UpdateUserRole(tenantID, userID, req.RoleID)
	if err != nil {
		logger.Error().Err(err).Msg("Database error updating user role")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to update role")
		return
	}
	if user == nil {
		logger.Warn().Str("user_id", userID.String()).Msg("User not found in tenant")
		WriteErrMessage(w, http.StatusNotFound, "user not found")
		return
	}

	logger.Info().Str("user_id", userID.String()).Str("role", role.Name).Msg("User role updated successfully")
	WriteResponse(w, http.StatusOK, user)
}

// GetRolesService lists the role catalog.
func GetRolesService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())

	roles, err := svc.DB.GetRoles()
	if err != nil {
		logger.Error().Err(err).Msg("Database error retrieving roles")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to retrieve roles")
		return
	}

	if roles == nil {
		roles = []models.Role{}
	}

	WriteResponse(w, http.StatusOK, models.RolesResponse{Roles: roles})
}
