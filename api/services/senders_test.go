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

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/dripiq/dripiq-lead-services/api/middleware"
	"github.com/dripiq/dripiq-lead-services/internal/authn"
	"github.com/dripiq/dripiq-lead-services/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestCreateSenderIdentityService(t *testing.T) {

	mockDB := new(MockLeadsStore)
	mockIdentity := new(MockIdentityClient)

	tenantID := uuid.New()

	identity := &models.SenderIdentity{
		ID:               uuid.New(),
		TenantID:         tenantID,
		FromEmail:        "sales@acme.io",
		FromName:         "Acme Sales",
		Domain:           "acme.io",
		ValidationStatus: "pending",
	}

	mockDB.On("GetSenderIdentityByEmail", tenantID, "sales@acme.io").Return(nil, nil)
	mockIdentity.On("CreateEmailIdentity", mock.Anything, mock.Anything, mock.Anything).
		Return(&sesv2.CreateEmailIdentityOutput{}, nil)
	mockDB.On("CreateSenderIdentity", tenantID, models.SenderIdentityRequest{FromEmail: "sales@acme.io", FromName: "Acme Sales"}, "acme.io").
		Return(identity, nil)

	svc := &Service{DB: mockDB, Identity: mockIdentity}

	requestBody, _ := json.Marshal(models.SenderIdentityRequest{FromEmail: "sales@acme.io", FromName: "Acme Sales"})
	r := httptest.NewRequest(http.MethodPost, "/api/senders", bytes.NewReader(requestBody))

	ctx := context.WithValue(r.Context(), middleware.ClaimsKey, authn.Claims{Email: "admin@acme.io", TenantID: tenantID.String()})
	r = r.WithContext(ctx)

	w := httptest.NewRecorder()
	CreateSenderIdentityService(svc, w, r)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Equal(t, fmt.Sprintf("/api/senders/%s", identity.ID), res.Header.Get("Location"))

	body, _ := io.ReadAll(res.Body)
	var responseIdentity models.SenderIdentity
	err := json.Unmarshal(body, &responseIdentity)
	assert.NoError(t, err, "Response should be valid JSON")
	assert.Equal(t, "pending", responseIdentity.ValidationStatus)
	assert.Equal(t, "acme.io", responseIdentity.Domain)

	// SES verification starts for the exact address that was registered
	mockIdentity.AssertCalled(t, "CreateEmailIdentity", mock.Anything, mock.MatchedBy(func(input *sesv2.CreateEmailIdentityInput) bool {
		return input.EmailIdentity != nil && *input.EmailIdentity == "sales@acme.io"
	}), mock.Anything)

	mockDB.AssertExpectations(t)
	mockIdentity.AssertExpectations(t)
}

func TestCreateSenderIdentityServiceInvalidEmail(t *testing.T) {

	mockDB := new(MockLeadsStore)
	mockIdentity := new(MockIdentityClient)
	tenantID := uuid.New()

	svc := &Service{DB: mockDB, Identity: mockIdentity}

	requestBody, _ := json.Marshal(models.SenderIdentityRequest{FromEmail: "not-an-address"})
	r := httptest.NewRequest(http.MethodPost, "/api/senders", bytes.NewReader(requestBody))

	ctx := context.WithValue(r.Context(), middleware.ClaimsKey, authn.Claims{Email: "admin@acme.io", TenantID: tenantID.String()})
	r = r.WithContext(ctx)

	w := httptest.NewRecorder()
	CreateSenderIdentityService(svc, w, r)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	mockIdentity.AssertNotCalled(t, "CreateEmailIdentity", mock.Anything, mock.Anything, mock.Anything)
	mockDB.AssertNotCalled(t, "CreateSenderIdentity", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateSenderIdentityServiceDuplicate(t *testing.T) {

	mockDB := new(MockLeadsStore)
	mockIdentity := new(MockIdentityClient)
	tenantID := uuid.New()

	existing := &models.SenderIdentity{
		ID:        uuid.New(),
		TenantID:  tenantID,
		FromEmail: "sales@acme.io",
	}
	mockDB.On("GetSenderIdentityByEmail", tenantID, "sales@acme.io").Return(existing, nil)

	svc := &Service{DB: mockDB, Identity: mockIdentity}

	requestBody, _ := json.Marshal(models.SenderIdentityRequest{FromEmail: "sales@acme.io"})
	r := httptest.NewRequest(http.MethodPost, "/api/senders", bytes.NewReader(requestBody))

	ctx := context.WithValue(r.Context(), middleware.ClaimsKey, authn.Claims{Email: "admin@acme.io", TenantID: tenantID.String()})
	r = r.WithContext(ctx)

	w := httptest.NewRecorder()
	CreateSenderIdentityService(svc, w, r)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusConflict, res.StatusCode)

	mockIdentity.AssertNotCalled(t, "CreateEmailIdentity", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifySenderIdentityService(t *testing.T) {

	mockDB := new(MockLeadsStore)
	mockIdentity := new(MockIdentityClient)

	tenantID := uuid.New()
	identityID := uuid.New()

	identity := &models.SenderIdentity{
		ID:               identityID,
		TenantID:         tenantID,
		FromEmail:        "sales@acme.io",
		Domain:           "acme.io",
		ValidationStatus: "pending",
	}

	mockDB.On("GetSenderIdentity", tenantID, identityID).Return(identity, nil)
	mockIdentity.On("GetEmailIdentity", mock.Anything, mock.Anything, mock.Anything).
		Return(&sesv2.GetEmailIdentityOutput{VerifiedForSendingStatus: true}, nil)
	mockDB.On("UpdateSenderValidationStatus", tenantID, identityID, "verified").Return(nil)

	svc := &Service{DB: mockDB, Identity: mockIdentity}

	r := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/senders/%s/verify", identityID), nil)
	r = mux.SetURLVars(r, map[string]string{"identity-id": identityID.String()})

	ctx := context.WithValue(r.Context(), middleware.ClaimsKey, authn.Claims{Email: "admin@acme.io", TenantID: tenantID.String()})
	r = r.WithContext(ctx)

	w := httptest.NewRecorder()
	VerifySenderIdentityService(svc, w, r)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)

	body, _ := io.ReadAll(res.Body)
	var responseIdentity models.SenderIdentity
	err := json.Unmarshal(body, &responseIdentity)
	assert.NoError(t, err, "Response should be valid JSON")
	assert.Equal(t, "verified", responseIdentity.ValidationStatus)

	mockDB.AssertExpectations(t)
	mockIdentity.AssertExpectations(t)
}

func TestVerifySenderIdentityServiceStillPending(t *testing.T) {

	mockDB := new(MockLeadsStore)
	mockIdentity := new(MockIdentityClient)

	tenantID := uuid.New()
	identityID := uuid.New()

	identity := &models.SenderIdentity{
		ID:               identityID,
		TenantID:         tenantID,
		FromEmail:        "sales@acme.io",
		ValidationStatus: "pending",
	}

	mockDB.On("GetSenderIdentity", tenantID, identityID).Return(identity, nil)
	mockIdentity.On("GetEmailIdentity", mock.Anything, mock.Anything, mock.Anything).
		Return(&sesv2.GetEmailIdentityOutput{VerifiedForSendingStatus: false}, nil)
	mockDB.On("UpdateSenderValidationStatus", tenantID, identityID, "pending").Return(nil)

	svc := &Service{DB: mockDB, Identity: mockIdentity}

	r := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/senders/%s/verify", identityID), nil)
	r = mux.SetURLVars(r, map[string]string{"identity-id": identityID.String()})

	ctx := context.WithValue(r.Context(), middleware.ClaimsKey, authn.Claims{Email: "admin@acme.io", TenantID: tenantID.String()})
	r = r.WithContext(ctx)

	w := httptest.NewRecorder()
	VerifySenderIdentityService(svc, w, r)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)

	body, _ := io.ReadAll(res.Body)
	var responseIdentity models.SenderIdentity
	_ = json.Unmarshal(body, &responseIdentity)
	assert.Equal(t, "pending", responseIdentity.ValidationStatus)
}

func TestDeleteSenderIdentityService(t *testing.T) {

	mockDB := new(MockLeadsStore)
	mockIdentity := new(MockIdentityClient)

	tenantID := uuid.New()
	identityID := uuid.New()

	identity := &models.SenderIdentity{
		ID:        identityID,
		TenantID:  tenantID,
		FromEmail: "sales@acme.io",
	}

	mockDB.On("GetSenderIdentity", tenantID, identityID).Return(identity, nil)
	mockIdentity.On("DeleteEmailIdentity", mock.Anything, mock.Anything, mock.Anything).
		Return(&sesv2.DeleteEmailIdentityOutput{}, nil)
	mockDB.On("DeleteSenderIdentity", tenantID, identityID).Return(true, nil)

	svc := &Service{DB: mockDB, Identity: mockIdentity}

	r := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/senders/%s", identityID), nil)
	r = mux.SetURLVars(r, map[string]string{"identity-id": identityID.String()})

	ctx := context.WithValue(r.Context(), middleware.ClaimsKey, authn.Claims{Email: "admin@acme.io", TenantID: tenantID.String()})
	r = r.WithContext(ctx)

	w := httptest.NewRecorder()
	DeleteSenderIdentityService(svc, w, r)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusNoContent, res.StatusCode)

	mockIdentity.AssertCalled(t, "DeleteEmailIdentity", mock.Anything, mock.MatchedBy(func(input *sesv2.DeleteEmailIdentityInput) bool {
		return input.EmailIdentity != nil && *input.EmailIdentity == "sales@acme.io"
	}), mock.Anything)

	mockDB.AssertExpectations(t)
}
