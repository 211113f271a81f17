package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dripiq/dripiq-lead-services/api/middleware"
	"github.com/dripiq/dripiq-lead-services/internal/authn"
	"github.com/dripiq/dripiq-lead-services/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestGetUsersService(t *testing.T) {

	mockDB := new(MockLeadsStore)
	tenantID := uuid.New()

	mockUsers := []models.User{
		{
			ID:       uuid.New(),
			TenantID: tenantID,
			Email:    "admin@acme.io",
			Role:     models.Role{Name: "admin"},
			Status:   "active",
		},
		{
			ID:       uuid.New(),
			TenantID: tenantID,
			Email:    "new.rep@acme.io",
			Role:     models.Role{Name: "member"},
			Status:   "pending",
			Invite:   &models.InviteSummary{ID: uuid.New(), ExpiresAt: time.Now().UTC().Add(24 * time.Hour)},
		},
	}

	mockDB.On("ListUsers", tenantID, 1, 20).Return(mockUsers, nil)
	mockDB.On("CountUsers", tenantID).Return(2, nil)

	svc := &Service{DB: mockDB}

	r := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	ctx := context.WithValue(r.Context(), middleware.ClaimsKey, authn.Claims{Email: "admin@acme.io", TenantID: tenantID.String()})
	r = r.WithContext(ctx)

	w := httptest.NewRecorder()
	GetUsersService(svc, w, r)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)

	body, _ := io.ReadAll(res.Body)
	var page models.UserPage
	err := json.Unmarshal(body, &page)
	assert.NoError(t, err, "Response should be valid JSON")
	assert.Len(t, page.Data, 2, "Expected number of users to match")
	assert.Equal(t, 2, page.Pagination.Total)

	// Pending users carry their outstanding invite
	assert.Equal(t, "pending", page.Data[1].Status)
	assert.NotNil(t, page.Data[1].Invite)

	mockDB.AssertExpectations(t)
}

func TestUpdateUserRoleService(t *testing.T) {

	mockDB := new(MockLeadsStore)

	tenantID := uuid.New()
	userID := uuid.New()
	roleID := uuid.New()

	admin := &models.User{
		ID:       uuid.New(),
		TenantID: tenantID,
		Email:    "admin@acme.io",
		Role:     models.Role{ID: uuid.New(), Name: "admin"},
		Status:   "active",
	}
	role := &models.Role{ID: roleID, Name: "admin"}
	updated := &models.User{
		ID:       userID,
		TenantID: tenantID,
		Email:    "rep@acme.io",
		Role:     *role,
		Status:   "active",
	}

	mockDB.On("GetUserByEmail", tenantID, "admin@acme.io").Return(admin, nil)
	mockDB.On("GetRole", roleID).Return(role, nil)
	mockDB.On("UpdateUserRole", tenantID, userID, roleID).Return(updated, nil)

	svc := &Service{DB: mockDB}

	requestBody, _ := json.Marshal(models.RoleUpdateRequest{RoleID: roleID})
	r := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/api/users/%s/role", userID), bytes.NewReader(requestBody))
	r = mux.SetURLVars(r, map[string]string{"user-id": userID.String()})

	ctx := context.WithValue(r.Context(), middleware.ClaimsKey, authn.Claims{Email: "admin@acme.io", TenantID: tenantID.String()})
	r = r.WithContext(ctx)

	w := httptest.NewRecorder()
	UpdateUserRoleService(svc, w, r)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)

	body, _ := io.ReadAll(res.Body)
	var responseUser models.User
	err := json.Unmarshal(body, &responseUser)
	assert.NoError(t, err, "Response should be valid JSON")
	assert.Equal(t, "admin", responseUser.Role.Name)

	mockDB.AssertExpectations(t)
}

func TestUpdateUserRoleServiceForbidden(t *testing.T) {

	mockDB := new(MockLeadsStore)

	tenantID := uuid.New()
	userID := uuid.New()

	member := &models.User{
		ID:       uuid.New(),
		TenantID: tenantID,
		Email:    "rep@acme.io",
		Role:     models.Role{ID: uuid.New(), Name: "member"},
		Status:   "active",
	}

	mockDB.On("GetUserByEmail", tenantID, "rep@acme.io").Return(member, nil)

	svc := &Service{DB: mockDB}

	requestBody, _ := json.Marshal(models.RoleUpdateRequest{RoleID: uuid.New()})
	r := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/api/users/%s/role", userID), bytes.NewReader(requestBody))
	r = mux.SetURLVars(r, map[string]string{"user-id": userID.String()})

	ctx := context.WithValue(r.Context(), middleware.ClaimsKey, authn.Claims{Email: "rep@acme.io", TenantID: tenantID.String()})
	r = r.WithContext(ctx)

	w := httptest.NewRecorder()
	UpdateUserRoleService(svc, w, r)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	mockDB.AssertNotCalled(t, "UpdateUserRole", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetRolesService(t *testing.T) {

	mockDB := new(MockLeadsStore)

	mockRoles := []models.Role{
		{ID: uuid.New(), Name: "admin", Description: "Full access"},
		{ID: uuid.New(), Name: "member", Description: "Standard access"},
	}

	mockDB.On("GetRoles").Return(mockRoles, nil)

	svc := &Service{DB: mockDB}

	r := httptest.NewRequest(http.MethodGet, "/api/roles", nil)

	w := httptest.NewRecorder()
	GetRolesService(svc, w, r)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)

	body, _ := io.ReadAll(res.Body)
	var response models.RolesResponse
	err := json.Unmarshal(body, &response)
	assert.NoError(t, err, "Response should be valid JSON")
	assert.Len(t, response.Roles, 2)
	assert.Equal(t, "admin", response.Roles[0].Name)

	mockDB.AssertExpectations(t)
}
