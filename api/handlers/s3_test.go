package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/aws-sdk-go-v2/service/sts/types"
	"github.com/dripiq/dripiq-lead-services/api/middleware"
	"github.com/dripiq/dripiq-lead-services/internal/authn"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type MockSTSClient struct {
	LastInput *sts.AssumeRoleWithWebIdentityInput
}

func (m *MockSTSClient) AssumeRoleWithWebIdentity(ctx context.Context,
	params *sts.AssumeRoleWithWebIdentityInput, optFns ...func(*sts.Options)) (
	*sts.AssumeRoleWithWebIdentityOutput, error) {

	m.LastInput = params
	return &sts.AssumeRoleWithWebIdentityOutput{
		Credentials: &types.Credentials{
			AccessKeyId:     aws.String("mockAccessKeyId"),
			SecretAccessKey: aws.String("mockSecretAccessKey"),
			SessionToken:    aws.String("mockSessionToken"),
			Expiration:      aws.Time(time.Date(2024, 11, 13, 16, 36, 20, 0, time.UTC)),
		},
	}, nil
}

func TestRequestLogoUploadCredentials(t *testing.T) {
	mockSTSClient := &MockSTSClient{}
	tenantID := uuid.New()

	req, err := http.NewRequest("GET", "/api/organization/logo-upload", nil)
	assert.NoError(t, err)

	claims := authn.Claims{Email: "admin@acme.io", TenantID: tenantID.String()}
	ctx := context.WithValue(req.Context(), middleware.ClaimsKey, claims)
	ctx = context.WithValue(ctx, middleware.TokenKey, "raw-bearer-token")
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler := RequestLogoUploadCredentials("arn:aws:iam::123456789012:role/branding-upload", "dripiq-branding", mockSTSClient)
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code, "handler returned wrong status code")
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"), "handler returned wrong content type")

	var creds S3Credentials
	err = json.Unmarshal(rr.Body.Bytes(), &creds)

	assert.NoError(t, err, "failed to unmarshal response body")
	assert.Equal(t, "mockAccessKeyId", creds.AccessKeyId)
	assert.Equal(t, "mockSecretAccessKey", creds.SecretAccessKey)
	assert.Equal(t, "mockSessionToken", creds.SessionToken)
	assert.Equal(t, "2024-11-13T16:36:20Z", creds.Expiration)
	assert.Equal(t, "dripiq-branding", creds.Bucket)
	assert.Equal(t, "branding/"+tenantID.String()+"/", creds.Prefix)

	// The caller's own bearer token is what gets exchanged
	assert.Equal(t, "raw-bearer-token", *mockSTSClient.LastInput.WebIdentityToken)
	assert.Equal(t, "logo-upload-"+tenantID.String(), *mockSTSClient.LastInput.RoleSessionName)
}

func TestRequestLogoUploadCredentialsMissingToken(t *testing.T) {
	mockSTSClient := &MockSTSClient{}

	req, err := http.NewRequest("GET", "/api/organization/logo-upload", nil)
	assert.NoError(t, err)

	// Claims without the raw token in context
	claims := authn.Claims{Email: "admin@acme.io", TenantID: uuid.New().String()}
	req = req.WithContext(context.WithValue(req.Context(), middleware.ClaimsKey, claims))

	rr := httptest.NewRecorder()
	handler := RequestLogoUploadCredentials("arn:aws:iam::123456789012:role/branding-upload", "dripiq-branding", mockSTSClient)
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Nil(t, mockSTSClient.LastInput, "no STS call without a token")
}
