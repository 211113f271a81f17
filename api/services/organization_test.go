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

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dripiq/dripiq-lead-services/api/middleware"
	"github.com/dripiq/dripiq-lead-services/internal/appconfig"
	"github.com/dripiq/dripiq-lead-services/internal/authn"
	"github.com/dripiq/dripiq-lead-services/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestGetOrganizationService(t *testing.T) {

	mockDB := new(MockLeadsStore)
	tenantID := uuid.New()

	tenant := &models.Tenant{
		ID:         tenantID,
		Name:       "Acme",
		Website:    "https://acme.io",
		SyncStatus: "idle",
	}

	mockDB.On("GetTenant", tenantID).Return(tenant, nil).Once()

	svc := &Service{DB: mockDB}

	r := httptest.NewRequest(http.MethodGet, "/api/organization", nil)
	ctx := context.WithValue(r.Context(), middleware.ClaimsKey, authn.Claims{Email: "admin@acme.io", TenantID: tenantID.String()})
	r = r.WithContext(ctx)

	w := httptest.NewRecorder()
	GetOrganizationService(svc, w, r)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)

	body, _ := io.ReadAll(res.Body)
	var responseTenant models.Tenant
	err := json.Unmarshal(body, &responseTenant)
	assert.NoError(t, err, "Response should be valid JSON")
	assert.Equal(t, tenant.ID, responseTenant.ID, "Tenant ID should match")
	assert.Equal(t, "Acme", responseTenant.Name)

	mockDB.AssertExpectations(t)
}

func TestUpdateOrganizationService(t *testing.T) {

	mockDB := new(MockLeadsStore)
	tenantID := uuid.New()

	req := models.TenantUpdateRequest{
		Name:        "Acme Ltd",
		Website:     "https://acme.io",
		Summary:     "We make everything",
		BrandColors: []string{"#1A2B3C", "#FFFFFF"},
	}
	updated := &models.Tenant{
		ID:          tenantID,
		Name:        "Acme Ltd",
		Website:     "https://acme.io",
		Summary:     "We make everything",
		BrandColors: []string{"#1A2B3C", "#FFFFFF"},
		SyncStatus:  "idle",
	}

	mockDB.On("UpdateTenant", tenantID, req).Return(updated, nil)

	svc := &Service{DB: mockDB}

	requestBody, _ := json.Marshal(req)
	r := httptest.NewRequest(http.MethodPut, "/api/organization", bytes.NewReader(requestBody))
	ctx := context.WithValue(r.Context(), middleware.ClaimsKey, authn.Claims{Email: "admin@acme.io", TenantID: tenantID.String()})
	r = r.WithContext(ctx)

	w := httptest.NewRecorder()
	UpdateOrganizationService(svc, w, r)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)

	body, _ := io.ReadAll(res.Body)
	var responseTenant models.Tenant
	err := json.Unmarshal(body, &responseTenant)
	assert.NoError(t, err, "Response should be valid JSON")
	assert.Equal(t, "Acme Ltd", responseTenant.Name)

	mockDB.AssertExpectations(t)
}

// A malformed brand color fails validation before anything is written.
func TestUpdateOrganizationServiceBadColor(t *testing.T) {

	mockDB := new(MockLeadsStore)
	tenantID := uuid.New()
	svc := &Service{DB: mockDB}

	req := models.TenantUpdateRequest{
		Name:        "Acme Ltd",
		BrandColors: []string{"#1A2B3C", "red"},
	}

	requestBody, _ := json.Marshal(req)
	r := httptest.NewRequest(http.MethodPut, "/api/organization", bytes.NewReader(requestBody))
	ctx := context.WithValue(r.Context(), middleware.ClaimsKey, authn.Claims{Email: "admin@acme.io", TenantID: tenantID.String()})
	r = r.WithContext(ctx)

	w := httptest.NewRecorder()
	UpdateOrganizationService(svc, w, r)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	body, _ := io.ReadAll(res.Body)
	var errResponse models.ErrorResponse
	_ = json.Unmarshal(body, &errResponse)
	assert.Equal(t, "brand colors must be six digit hex values like #1A2B3C", errResponse.Message)

	mockDB.AssertNotCalled(t, "UpdateTenant", mock.Anything, mock.Anything)
}

func TestResyncOrganizationService(t *testing.T) {

	mockDB := new(MockLeadsStore)
	mockPublisher := new(MockNotifier)
	tenantID := uuid.New()

	mockDB.On("MarkTenantSyncQueued", tenantID).Return(nil, true, nil)
	mockDB.On("CommitTransaction", mock.Anything).Return(nil)
	mockPublisher.On("Publish", mock.Anything).Return(nil)

	svc := &Service{DB: mockDB, Publisher: mockPublisher}

	r := httptest.NewRequest(http.MethodPost, "/api/organization/resync", nil)
	ctx := context.WithValue(r.Context(), middleware.ClaimsKey, authn.Claims{Email: "admin@acme.io", TenantID: tenantID.String()})
	r = r.WithContext(ctx)

	w := httptest.NewRecorder()
	ResyncOrganizationService(svc, w, r)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusAccepted, res.StatusCode)

	body, _ := io.ReadAll(res.Body)
	var status models.SyncStatusResponse
	err := json.Unmarshal(body, &status)
	assert.NoError(t, err, "Response should be valid JSON")
	assert.Equal(t, "queued", status.Status)

	mockPublisher.AssertCalled(t, "Publish", mock.MatchedBy(func(event models.Event) bool {
		return event.Action == models.ActionTenantSyncRequested && event.TenantID == tenantID
	}))

	mockDB.AssertExpectations(t)
	mockPublisher.AssertExpectations(t)
}

func TestResyncOrganizationServiceNotFound(t *testing.T) {

	mockDB := new(MockLeadsStore)
	mockPublisher := new(MockNotifier)
	tenantID := uuid.New()

	mockDB.On("MarkTenantSyncQueued", tenantID).Return(nil, false, nil)

	svc := &Service{DB: mockDB, Publisher: mockPublisher}

	r := httptest.NewRequest(http.MethodPost, "/api/organization/resync", nil)
	ctx := context.WithValue(r.Context(), middleware.ClaimsKey, authn.Claims{Email: "admin@acme.io", TenantID: tenantID.String()})
	r = r.WithContext(ctx)

	w := httptest.NewRecorder()
	ResyncOrganizationService(svc, w, r)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	mockPublisher.AssertNotCalled(t, "Publish", mock.Anything)
	mockDB.AssertNotCalled(t, "CommitTransaction", mock.Anything)
}

func TestSetOrganizationLogoService(t *testing.T) {

	mockDB := new(MockLeadsStore)
	mockStorage := new(MockS3Client)
	tenantID := uuid.New()

	key := fmt.Sprintf("branding/%s/logo.png", tenantID)
	logoURL := fmt.Sprintf("https://acme-branding.s3.eu-west-2.amazonaws.com/%s", key)

	mockStorage.On("HeadObject", mock.Anything, mock.MatchedBy(func(params *s3.HeadObjectInput) bool {
		return *params.Bucket == "acme-branding" && *params.Key == key
	}), mock.Anything).Return(&s3.HeadObjectOutput{}, nil).Once()
	mockDB.On("SetTenantLogo", tenantID, logoURL).Return(nil).Once()

	svc := &Service{
		Config: &appconfig.Config{
			AWS: appconfig.AWSConfig{
				Region: "eu-west-2",
				S3:     appconfig.S3Config{Bucket: "acme-branding"},
			},
		},
		DB:      mockDB,
		Storage: mockStorage,
	}

	requestBody, _ := json.Marshal(models.LogoRequest{Key: key})
	r := httptest.NewRequest(http.MethodPut, "/api/organization/logo", bytes.NewReader(requestBody))
	ctx := context.WithValue(r.Context(), middleware.ClaimsKey, authn.Claims{Email: "admin@acme.io", TenantID: tenantID.String()})
	r = r.WithContext(ctx)

	w := httptest.NewRecorder()
	SetOrganizationLogoService(svc, w, r)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)

	body, _ := io.ReadAll(res.Body)
	var response models.LogoResponse
	err := json.Unmarshal(body, &response)
	assert.NoError(t, err, "Response should be valid JSON")
	assert.Equal(t, logoURL, response.LogoURL)

	mockDB.AssertExpectations(t)
	mockStorage.AssertExpectations(t)
}

// A key outside the tenant's branding prefix is rejected before the bucket is
// consulted.
func TestSetOrganizationLogoServiceWrongPrefix(t *testing.T) {

	mockDB := new(MockLeadsStore)
	mockStorage := new(MockS3Client)
	tenantID := uuid.New()

	svc := &Service{DB: mockDB, Storage: mockStorage}

	requestBody, _ := json.Marshal(models.LogoRequest{Key: fmt.Sprintf("branding/%s/logo.png", uuid.New())})
	r := httptest.NewRequest(http.MethodPut, "/api/organization/logo", bytes.NewReader(requestBody))
	ctx := context.WithValue(r.Context(), middleware.ClaimsKey, authn.Claims{Email: "admin@acme.io", TenantID: tenantID.String()})
	r = r.WithContext(ctx)

	w := httptest.NewRecorder()
	SetOrganizationLogoService(svc, w, r)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	body, _ := io.ReadAll(res.Body)
	var errResponse models.ErrorResponse
	_ = json.Unmarshal(body, &errResponse)
	assert.Equal(t, "key must sit under the tenant's branding prefix", errResponse.Message)

	mockStorage.AssertNotCalled(t, "HeadObject", mock.Anything, mock.Anything, mock.Anything)
	mockDB.AssertNotCalled(t, "SetTenantLogo", mock.Anything, mock.Anything)
}

func TestSetOrganizationLogoServiceMissingObject(t *testing.T) {

	mockDB := new(MockLeadsStore)
	mockStorage := new(MockS3Client)
	tenantID := uuid.New()

	key := fmt.Sprintf("branding/%s/logo.png", tenantID)

	mockStorage.On("HeadObject", mock.Anything, mock.Anything, mock.Anything).Return(nil, &s3types.NotFound{}).Once()

	svc := &Service{
		Config: &appconfig.Config{
			AWS: appconfig.AWSConfig{
				Region: "eu-west-2",
				S3:     appconfig.S3Config{Bucket: "acme-branding"},
			},
		},
		DB:      mockDB,
		Storage: mockStorage,
	}

	requestBody, _ := json.Marshal(models.LogoRequest{Key: key})
	r := httptest.NewRequest(http.MethodPut, "/api/organization/logo", bytes.NewReader(requestBody))
	ctx := context.WithValue(r.Context(), middleware.ClaimsKey, authn.Claims{Email: "admin@acme.io", TenantID: tenantID.String()})
	r = r.WithContext(ctx)

	w := httptest.NewRecorder()
	SetOrganizationLogoService(svc, w, r)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	body, _ := io.ReadAll(res.Body)
	var errResponse models.ErrorResponse
	_ = json.Unmarshal(body, &errResponse)
	assert.Equal(t, "no uploaded object at the given key", errResponse.Message)

	mockDB.AssertNotCalled(t, "SetTenantLogo", mock.Anything, mock.Anything)

	mockStorage.AssertExpectations(t)
}
