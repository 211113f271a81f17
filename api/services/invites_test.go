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

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/dripiq/dripiq-lead-services/api/middleware"
	"github.com/dripiq/dripiq-lead-services/internal/appconfig"
	"github.com/dripiq/dripiq-lead-services/internal/authn"
	"github.com/dripiq/dripiq-lead-services/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func inviteTestConfig() *appconfig.Config {
	return &appconfig.Config{
		Invites: appconfig.InvitesConfig{
			AcceptURL: "https://app.dripiq.com/invite",
			TTL:       "168h",
		},
		AWS: appconfig.AWSConfig{
			SES: appconfig.SESConfig{
				FromAddress: "no-reply@dripiq.com",
				FromName:    "dripIq",
			},
		},
	}
}

func TestCreateInviteService(t *testing.T) {

	mockDB := new(MockLeadsStore)
	mockEmail := new(MockEmailClient)
	mockPublisher := new(MockNotifier)

	tenantID := uuid.New()
	roleID := uuid.New()

	svc := &Service{Config: inviteTestConfig(), DB: mockDB, Publisher: mockPublisher, Email: mockEmail}

	admin := &models.User{
		ID:       uuid.New(),
		TenantID: tenantID,
		Email:    "admin@acme.io",
		Role:     models.Role{ID: uuid.New(), Name: "admin"},
		Status:   "active",
	}
	role := &models.Role{ID: roleID, Name: "member"}
	invite := &models.Invite{
		ID:        uuid.New(),
		TenantID:  tenantID,
		UserID:    uuid.New(),
		Email:     "new.rep@acme.io",
		Role:      *role,
		Status:    "pending",
		ExpiresAt: time.Now().UTC().Add(168 * time.Hour),
	}

	mockDB.On("GetUserByEmail", tenantID, "admin@acme.io").Return(admin, nil)
	mockDB.On("GetRole", roleID).Return(role, nil)
	mockDB.On("GetUserByEmail", tenantID, "new.rep@acme.io").Return(nil, nil)
	mockDB.On("CreateInvite", tenantID, models.InviteRequest{Email: "new.rep@acme.io", RoleID: roleID}, *role, &admin.ID, mock.AnythingOfType("string"), mock.Anything).
		Return(nil, invite, nil)
	mockDB.On("CommitTransaction", mock.Anything).Return(nil)

	mockEmail.On("SendEmail", mock.Anything, mock.Anything, mock.Anything).
		Return(&sesv2.SendEmailOutput{}, nil)
	mockPublisher.On("Publish", mock.Anything).Return(nil)

	requestBody, _ := json.Marshal(models.InviteRequest{Email: "new.rep@acme.io", RoleID: roleID})
	r := httptest.NewRequest(http.MethodPost, "/api/invites", bytes.NewReader(requestBody))

	ctx := context.WithValue(r.Context(), middleware.ClaimsKey, authn.Claims{Email: "admin@acme.io", TenantID: tenantID.String()})
	r = r.WithContext(ctx)

	w := httptest.NewRecorder()
	CreateInviteService(svc, w, r)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Equal(t, fmt.Sprintf("/api/invites/%s", invite.ID), res.Header.Get("Location"))

	body, _ := io.ReadAll(res.Body)
	var responseInvite models.Invite
	err := json.Unmarshal(body, &responseInvite)
	assert.NoError(t, err, "Response should be valid JSON")
	assert.Equal(t, invite.ID, responseInvite.ID, "Invite ID should match")
	assert.Equal(t, "pending", responseInvite.Status)

	// The accept link goes to the invitee, never to the admin
	mockEmail.AssertCalled(t, "SendEmail", mock.Anything, mock.MatchedBy(func(input *sesv2.SendEmailInput) bool {
		return len(input.Destination.ToAddresses) == 1 && input.Destination.ToAddresses[0] == "new.rep@acme.io"
	}), mock.Anything)

	mockPublisher.AssertCalled(t, "Publish", mock.MatchedBy(func(event models.Event) bool {
		return event.Action == models.ActionInviteCreated && event.Data["email"] == "new.rep@acme.io"
	}))

	mockDB.AssertExpectations(t)
	mockEmail.AssertExpectations(t)
	mockPublisher.AssertExpectations(t)
}

// An invalid address is rejected before anything touches the database, the
// mail provider or the queue.
func TestCreateInviteServiceInvalidEmail(t *testing.T) {

	mockDB := new(MockLeadsStore)
	mockEmail := new(MockEmailClient)
	mockPublisher := new(MockNotifier)

	tenantID := uuid.New()
	svc := &Service{Config: inviteTestConfig(), DB: mockDB, Publisher: mockPublisher, Email: mockEmail}

	requestBody, _ := json.Marshal(models.InviteRequest{Email: "not-an-email", RoleID: uuid.New()})
	r := httptest.NewRequest(http.MethodPost, "/api/invites", bytes.NewReader(requestBody))

	ctx := context.WithValue(r.Context(), middleware.ClaimsKey, authn.Claims{Email: "admin@acme.io", TenantID: tenantID.String()})
	r = r.WithContext(ctx)

	w := httptest.NewRecorder()
	CreateInviteService(svc, w, r)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	body, _ := io.ReadAll(res.Body)
	var errResponse models.ErrorResponse
	err := json.Unmarshal(body, &errResponse)
	assert.NoError(t, err, "Response should be valid JSON")
	assert.Equal(t, "invalid email address", errResponse.Message)

	mockDB.AssertNotCalled(t, "GetUserByEmail", mock.Anything, mock.Anything)
	mockDB.AssertNotCalled(t, "CreateInvite", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mockEmail.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything)
	mockPublisher.AssertNotCalled(t, "Publish", mock.Anything)
}

func TestCreateInviteServiceRequiresAdmin(t *testing.T) {

	mockDB := new(MockLeadsStore)
	mockEmail := new(MockEmailClient)
	mockPublisher := new(MockNotifier)

	tenantID := uuid.New()
	svc := &Service{Config: inviteTestConfig(), DB: mockDB, Publisher: mockPublisher, Email: mockEmail}

	member := &models.User{
		ID:       uuid.New(),
		TenantID: tenantID,
		Email:    "rep@acme.io",
		Role:     models.Role{ID: uuid.New(), Name: "member"},
		Status:   "active",
	}
	mockDB.On("GetUserByEmail", tenantID, "rep@acme.io").Return(member, nil)

	requestBody, _ := json.Marshal(models.InviteRequest{Email: "new.rep@acme.io", RoleID: uuid.New()})
	r := httptest.NewRequest(http.MethodPost, "/api/invites", bytes.NewReader(requestBody))

	ctx := context.WithValue(r.Context(), middleware.ClaimsKey, authn.Claims{Email: "rep@acme.io", TenantID: tenantID.String()})
	r = r.WithContext(ctx)

	w := httptest.NewRecorder()
	CreateInviteService(svc, w, r)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	mockDB.AssertNotCalled(t, "CreateInvite", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mockEmail.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateInviteServiceDuplicateEmail(t *testing.T) {

	mockDB := new(MockLeadsStore)
	mockEmail := new(MockEmailClient)
	mockPublisher := new(MockNotifier)

	tenantID := uuid.New()
	roleID := uuid.New()
	svc := &Service{Config: inviteTestConfig(), DB: mockDB, Publisher: mockPublisher, Email: mockEmail}

	admin := &models.User{
		ID:       uuid.New(),
		TenantID: tenantID,
		Email:    "admin@acme.io",
		Role:     models.Role{ID: uuid.New(), Name: "admin"},
		Status:   "active",
	}
	existing := &models.User{
		ID:       uuid.New(),
		TenantID: tenantID,
		Email:    "taken@acme.io",
		Role:     models.Role{ID: roleID, Name: "member"},
		Status:   "active",
	}

	mockDB.On("GetUserByEmail", tenantID, "admin@acme.io").Return(admin, nil)
	mockDB.On("GetRole", roleID).Return(&models.Role{ID: roleID, Name: "member"}, nil)
	mockDB.On("GetUserByEmail", tenantID, "taken@acme.io").Return(existing, nil)

	requestBody, _ := json.Marshal(models.InviteRequest{Email: "taken@acme.io", RoleID: roleID})
	r := httptest.NewRequest(http.MethodPost, "/api/invites", bytes.NewReader(requestBody))

	ctx := context.WithValue(r.Context(), middleware.ClaimsKey, authn.Claims{Email: "admin@acme.io", TenantID: tenantID.String()})
	r = r.WithContext(ctx)

	w := httptest.NewRecorder()
	CreateInviteService(svc, w, r)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusConflict, res.StatusCode)

	mockDB.AssertNotCalled(t, "CreateInvite", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mockEmail.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyInviteService(t *testing.T) {

	mockDB := new(MockLeadsStore)
	svc := &Service{Config: inviteTestConfig(), DB: mockDB}

	token := "opaque-invite-token"
	expiresAt := time.Now().UTC().Add(24 * time.Hour)

	invite := &models.Invite{
		ID:        uuid.New(),
		TenantID:  uuid.New(),
		UserID:    uuid.New(),
		Email:     "new.rep@acme.io",
		Status:    "pending",
		ExpiresAt: expiresAt,
	}
	details := &models.InviteDetails{
		Email:      "new.rep@acme.io",
		TenantName: "Acme",
		Role:       "member",
		ExpiresAt:  expiresAt,
	}

	mockDB.On("GetInviteByTokenHash", hashInviteToken(token)).Return(invite, details, nil)

	requestBody, _ := json.Marshal(models.InviteTokenRequest{Token: token})
	r := httptest.NewRequest(http.MethodPost, "/api/invites/verify", bytes.NewReader(requestBody))

	w := httptest.NewRecorder()
	VerifyInviteService(svc, w, r)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)

	body, _ := io.ReadAll(res.Body)
	var responseDetails models.InviteDetails
	err := json.Unmarshal(body, &responseDetails)
	assert.NoError(t, err, "Response should be valid JSON")
	assert.Equal(t, "Acme", responseDetails.TenantName)
	assert.Equal(t, "member", responseDetails.Role)
	assert.Equal(t, "new.rep@acme.io", responseDetails.Email)

	mockDB.AssertExpectations(t)
}

// An expired token gets the same 404 as an unknown one.
func TestVerifyInviteServiceExpired(t *testing.T) {

	mockDB := new(MockLeadsStore)
	svc := &Service{Config: inviteTestConfig(), DB: mockDB}

	token := "stale-invite-token"
	invite := &models.Invite{
		ID:        uuid.New(),
		Email:     "new.rep@acme.io",
		Status:    "pending",
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}

	mockDB.On("GetInviteByTokenHash", hashInviteToken(token)).Return(invite, &models.InviteDetails{}, nil)

	requestBody, _ := json.Marshal(models.InviteTokenRequest{Token: token})
	r := httptest.NewRequest(http.MethodPost, "/api/invites/verify", bytes.NewReader(requestBody))

	w := httptest.NewRecorder()
	VerifyInviteService(svc, w, r)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	body, _ := io.ReadAll(res.Body)
	var errResponse models.ErrorResponse
	_ = json.Unmarshal(body, &errResponse)
	assert.Equal(t, "invite not found or no longer valid", errResponse.Message)
}

func TestVerifyInviteServiceUnknownToken(t *testing.T) {

	mockDB := new(MockLeadsStore)
	svc := &Service{Config: inviteTestConfig(), DB: mockDB}

	mockDB.On("GetInviteByTokenHash", mock.AnythingOfType("string")).Return(nil, nil, nil)

	requestBody, _ := json.Marshal(models.InviteTokenRequest{Token: "never-issued"})
	r := httptest.NewRequest(http.MethodPost, "/api/invites/verify", bytes.NewReader(requestBody))

	w := httptest.NewRecorder()
	VerifyInviteService(svc, w, r)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestAcceptInviteService(t *testing.T) {

	mockDB := new(MockLeadsStore)
	mockAuth := new(MockAuthProvider)

	tenantID := uuid.New()
	userID := uuid.New()
	token := "opaque-invite-token"
	tokenHash := hashInviteToken(token)

	svc := &Service{Config: inviteTestConfig(), DB: mockDB, Auth: mockAuth}

	invite := &models.Invite{
		ID:        uuid.New(),
		TenantID:  tenantID,
		UserID:    userID,
		Email:     "new.rep@acme.io",
		Status:    "pending",
		ExpiresAt: time.Now().UTC().Add(24 * time.Hour),
	}
	accepted := &models.Invite{
		ID:       invite.ID,
		TenantID: tenantID,
		UserID:   userID,
		Email:    invite.Email,
		Status:   "accepted",
	}
	activated := &models.User{
		ID:        userID,
		TenantID:  tenantID,
		Email:     "new.rep@acme.io",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Status:    "active",
	}

	mockDB.On("GetInviteByTokenHash", tokenHash).Return(invite, &models.InviteDetails{}, nil)
	mockAuth.On("CreateUser", "new.rep@acme.io", "Ada", "Lovelace").Return("auth-123", nil)
	mockDB.On("AcceptInvite", tokenHash, "Ada", "Lovelace", "auth-123").Return(accepted, nil)
	mockDB.On("GetUser", tenantID, userID).Return(activated, nil)

	requestBody, _ := json.Marshal(models.InviteAcceptRequest{Token: token, FirstName: "Ada", LastName: "Lovelace"})
	r := httptest.NewRequest(http.MethodPost, "/api/invites/accept", bytes.NewReader(requestBody))

	w := httptest.NewRecorder()
	AcceptInviteService(svc, w, r)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)

	body, _ := io.ReadAll(res.Body)
	var responseUser models.User
	err := json.Unmarshal(body, &responseUser)
	assert.NoError(t, err, "Response should be valid JSON")
	assert.Equal(t, "Ada", responseUser.FirstName)
	assert.Equal(t, "active", responseUser.Status)

	mockDB.AssertExpectations(t)
	mockAuth.AssertExpectations(t)
}

// Losing the accept race removes the freshly provisioned auth account again.
func TestAcceptInviteServiceLostRace(t *testing.T) {

	mockDB := new(MockLeadsStore)
	mockAuth := new(MockAuthProvider)

	token := "opaque-invite-token"
	tokenHash := hashInviteToken(token)

	svc := &Service{Config: inviteTestConfig(), DB: mockDB, Auth: mockAuth}

	invite := &models.Invite{
		ID:        uuid.New(),
		Email:     "new.rep@acme.io",
		Status:    "pending",
		ExpiresAt: time.Now().UTC().Add(24 * time.Hour),
	}

	mockDB.On("GetInviteByTokenHash", tokenHash).Return(invite, &models.InviteDetails{}, nil)
	mockAuth.On("CreateUser", "new.rep@acme.io", "Ada", "Lovelace").Return("auth-123", nil)
	mockDB.On("AcceptInvite", tokenHash, "Ada", "Lovelace", "auth-123").Return(nil, nil)
	mockAuth.On("DeleteUser", "auth-123").Return(nil)

	requestBody, _ := json.Marshal(models.InviteAcceptRequest{Token: token, FirstName: "Ada", LastName: "Lovelace"})
	r := httptest.NewRequest(http.MethodPost, "/api/invites/accept", bytes.NewReader(requestBody))

	w := httptest.NewRecorder()
	AcceptInviteService(svc, w, r)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	mockAuth.AssertCalled(t, "DeleteUser", "auth-123")
	mockDB.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything)
}

func TestResendInviteService(t *testing.T) {

	mockDB := new(MockLeadsStore)
	mockEmail := new(MockEmailClient)

	tenantID := uuid.New()
	inviteID := uuid.New()

	svc := &Service{Config: inviteTestConfig(), DB: mockDB, Email: mockEmail}

	admin := &models.User{
		ID:       uuid.New(),
		TenantID: tenantID,
		Email:    "admin@acme.io",
		Role:     models.Role{ID: uuid.New(), Name: "admin"},
		Status:   "active",
	}
	invite := &models.Invite{
		ID:        inviteID,
		TenantID:  tenantID,
		UserID:    uuid.New(),
		Email:     "new.rep@acme.io",
		Role:      models.Role{Name: "member"},
		Status:    "pending",
		ExpiresAt: time.Now().UTC().Add(168 * time.Hour),
	}

	mockDB.On("GetUserByEmail", tenantID, "admin@acme.io").Return(admin, nil)
	mockDB.On("RotateInviteToken", tenantID, inviteID, mock.AnythingOfType("string"), mock.Anything).Return(invite, nil)
	mockEmail.On("SendEmail", mock.Anything, mock.Anything, mock.Anything).
		Return(&sesv2.SendEmailOutput{}, nil)

	r := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/invites/%s/resend", inviteID), nil)
	r = mux.SetURLVars(r, map[string]string{"invite-id": inviteID.String()})

	ctx := context.WithValue(r.Context(), middleware.ClaimsKey, authn.Claims{Email: "admin@acme.io", TenantID: tenantID.String()})
	r = r.WithContext(ctx)

	w := httptest.NewRecorder()
	ResendInviteService(svc, w, r)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)

	mockDB.AssertExpectations(t)
	mockEmail.AssertExpectations(t)
}

func TestRevokeInviteService(t *testing.T) {

	mockDB := new(MockLeadsStore)

	tenantID := uuid.New()
	inviteID := uuid.New()

	svc := &Service{Config: inviteTestConfig(), DB: mockDB}

	admin := &models.User{
		ID:       uuid.New(),
		TenantID: tenantID,
		Email:    "admin@acme.io",
		Role:     models.Role{ID: uuid.New(), Name: "admin"},
		Status:   "active",
	}

	mockDB.On("GetUserByEmail", tenantID, "admin@acme.io").Return(admin, nil)
	mockDB.On("RevokeInvite", tenantID, inviteID).Return(true, nil).Once()

	r := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/invites/%s", inviteID), nil)
	r = mux.SetURLVars(r, map[string]string{"invite-id": inviteID.String()})

	ctx := context.WithValue(r.Context(), middleware.ClaimsKey, authn.Claims{Email: "admin@acme.io", TenantID: tenantID.String()})
	r = r.WithContext(ctx)

	w := httptest.NewRecorder()
	RevokeInviteService(svc, w, r)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusNoContent, res.StatusCode)

	mockDB.AssertExpectations(t)
	mockDB.AssertCalled(t, "RevokeInvite", tenantID, inviteID)
}
