package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/dripiq/dripiq-lead-services/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockLeadsStore struct {
	mock.Mock
}

type MockNotifier struct {
	mock.Mock
}

type MockEmailClient struct {
	mock.Mock
}

type MockIdentityClient struct {
	mock.Mock
}

type MockSecretsClient struct {
	mock.Mock
}

type MockS3Client struct {
	mock.Mock
}

type MockAuthProvider struct {
	mock.Mock
}

func (m *MockLeadsStore) GetTenant(tenantID uuid.UUID) (*models.Tenant, error) {
	args := m.Called(tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockLeadsStore) UpdateTenant(tenantID uuid.UUID, req models.TenantUpdateRequest) (*models.Tenant, error) {
	args := m.Called(tenantID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockLeadsStore) MarkTenantSyncQueued(tenantID uuid.UUID) (*sql.Tx, bool, error) {
	args := m.Called(tenantID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*sql.Tx), args.Bool(1), args.Error(2)
}

func (m *MockLeadsStore) SetTenantLogo(tenantID uuid.UUID, logoURL string) error {
	args := m.Called(tenantID, logoURL)
	return args.Error(0)
}

func (m *MockLeadsStore) ListUsers(tenantID uuid.UUID, page, limit int) ([]models.User, error) {
	args := m.Called(tenantID, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockLeadsStore) CountUsers(tenantID uuid.UUID) (int, error) {
	args := m.Called(tenantID)
	return args.Int(0), args.Error(1)
}

func (m *MockLeadsStore) GetUser(tenantID, userID uuid.UUID) (*models.User, error) {
	args := m.Called(tenantID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockLeadsStore) GetUserByEmail(tenantID uuid.UUID, email string) (*models.User, error) {
	args := m.Called(tenantID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockLeadsStore) UpdateUserRole(tenantID, userID, roleID uuid.UUID) (*models.User, error) {
	args := m.Called(tenantID, userID, roleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockLeadsStore) GetRoles() ([]models.Role, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Role), args.Error(1)
}

func (m *MockLeadsStore) GetRole(roleID uuid.UUID) (*models.Role, error) {
	args := m.Called(roleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Role), args.Error(1)
}

func (m *MockLeadsStore) CreateInvite(tenantID uuid.UUID, req models.InviteRequest, role models.Role, invitedBy *uuid.UUID, tokenHash string, expiresAt time.Time) (*sql.Tx, *models.Invite, error) {
	args := m.Called(tenantID, req, role, invitedBy, tokenHash, expiresAt)
	var tx *sql.Tx
	if args.Get(0) != nil {
		tx = args.Get(0).(*sql.Tx)
	}
	if args.Get(1) == nil {
		return tx, nil, args.Error(2)
	}
	return tx, args.Get(1).(*models.Invite), args.Error(2)
}

func (m *MockLeadsStore) GetInvite(tenantID, inviteID uuid.UUID) (*models.Invite, error) {
	args := m.Called(tenantID, inviteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invite), args.Error(1)
}

func (m *MockLeadsStore) GetInviteByTokenHash(tokenHash string) (*models.Invite, *models.InviteDetails, error) {
	args := m.Called(tokenHash)
	var invite *models.Invite
	if args.Get(0) != nil {
		invite = args.Get(0).(*models.Invite)
	}
	var details *models.InviteDetails
	if args.Get(1) != nil {
		details = args.Get(1).(*models.InviteDetails)
	}
	return invite, details, args.Error(2)
}

func (m *MockLeadsStore) RotateInviteToken(tenantID, inviteID uuid.UUID, tokenHash string, expiresAt time.Time) (*models.Invite, error) {
	args := m.Called(tenantID, inviteID, tokenHash, expiresAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invite), args.Error(1)
}

func (m *MockLeadsStore) AcceptInvite(tokenHash, firstName, lastName, authUserID string) (*models.Invite, error) {
	args := m.Called(tokenHash, firstName, lastName, authUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invite), args.Error(1)
}

func (m *MockLeadsStore) RevokeInvite(tenantID, inviteID uuid.UUID) (bool, error) {
	args := m.Called(tenantID, inviteID)
	return args.Bool(0), args.Error(1)
}

func (m *MockLeadsStore) ListLeads(tenantID uuid.UUID, search string, page, limit int) ([]models.Lead, error) {
	args := m.Called(tenantID, search, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Lead), args.Error(1)
}

func (m *MockLeadsStore) CountLeads(tenantID uuid.UUID, search string) (int, error) {
	args := m.Called(tenantID, search)
	return args.Int(0), args.Error(1)
}

func (m *MockLeadsStore) GetLead(tenantID, leadID uuid.UUID) (*models.Lead, error) {
	args := m.Called(tenantID, leadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lead), args.Error(1)
}

func (m *MockLeadsStore) CreateLead(tenantID uuid.UUID, req models.LeadRequest, createdBy *uuid.UUID) (*sql.Tx, *models.Lead, error) {
	args := m.Called(tenantID, req, createdBy)
	var tx *sql.Tx
	if args.Get(0) != nil {
		tx = args.Get(0).(*sql.Tx)
	}
	if args.Get(1) == nil {
		return tx, nil, args.Error(2)
	}
	return tx, args.Get(1).(*models.Lead), args.Error(2)
}

func (m *MockLeadsStore) UpdateLead(tenantID, leadID uuid.UUID, req models.LeadUpdateRequest) (*models.Lead, error) {
	args := m.Called(tenantID, leadID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lead), args.Error(1)
}

func (m *MockLeadsStore) DeleteLead(tenantID, leadID uuid.UUID) (bool, error) {
	args := m.Called(tenantID, leadID)
	return args.Bool(0), args.Error(1)
}

func (m *MockLeadsStore) MarkLeadSyncQueued(tenantID, leadID uuid.UUID) (*sql.Tx, bool, error) {
	args := m.Called(tenantID, leadID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*sql.Tx), args.Bool(1), args.Error(2)
}

func (m *MockLeadsStore) CreateSenderIdentity(tenantID uuid.UUID, req models.SenderIdentityRequest, domain string) (*models.SenderIdentity, error) {
	args := m.Called(tenantID, req, domain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SenderIdentity), args.Error(1)
}

func (m *MockLeadsStore) GetSenderIdentities(tenantID uuid.UUID) ([]models.SenderIdentity, error) {
	args := m.Called(tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SenderIdentity), args.Error(1)
}

func (m *MockLeadsStore) GetSenderIdentity(tenantID, identityID uuid.UUID) (*models.SenderIdentity, error) {
	args := m.Called(tenantID, identityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SenderIdentity), args.Error(1)
}

func (m *MockLeadsStore) GetSenderIdentityByEmail(tenantID uuid.UUID, fromEmail string) (*models.SenderIdentity, error) {
	args := m.Called(tenantID, fromEmail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SenderIdentity), args.Error(1)
}

func (m *MockLeadsStore) UpdateSenderValidationStatus(tenantID, identityID uuid.UUID, status string) error {
	args := m.Called(tenantID, identityID, status)
	return args.Error(0)
}

func (m *MockLeadsStore) DeleteSenderIdentity(tenantID, identityID uuid.UUID) (bool, error) {
	args := m.Called(tenantID, identityID)
	return args.Bool(0), args.Error(1)
}

func (m *MockLeadsStore) CreateIntegration(tenantID uuid.UUID, provider string) (*models.Integration, error) {
	args := m.Called(tenantID, provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Integration), args.Error(1)
}

func (m *MockLeadsStore) GetIntegrations(tenantID uuid.UUID) ([]models.Integration, error) {
	args := m.Called(tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Integration), args.Error(1)
}

func (m *MockLeadsStore) CheckIntegrationExists(tenantID uuid.UUID, provider string) (bool, error) {
	args := m.Called(tenantID, provider)
	return args.Bool(0), args.Error(1)
}

func (m *MockLeadsStore) DeleteIntegration(tenantID, integrationID uuid.UUID) (string, error) {
	args := m.Called(tenantID, integrationID)
	return args.String(0), args.Error(1)
}

func (m *MockLeadsStore) CommitTransaction(tx *sql.Tx) error {
	args := m.Called(tx)
	return args.Error(0)
}

// Mock the Publish method
func (m *MockNotifier) Publish(event interface{}) error {
	args := m.Called(event)
	return args.Error(0)
}

// Mock the Close method
func (m *MockNotifier) Close() {
	m.Called()
}

func (m *MockEmailClient) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sesv2.SendEmailOutput), args.Error(1)
}

func (m *MockIdentityClient) CreateEmailIdentity(ctx context.Context, params *sesv2.CreateEmailIdentityInput, optFns ...func(*sesv2.Options)) (*sesv2.CreateEmailIdentityOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sesv2.CreateEmailIdentityOutput), args.Error(1)
}

func (m *MockIdentityClient) GetEmailIdentity(ctx context.Context, params *sesv2.GetEmailIdentityInput, optFns ...func(*sesv2.Options)) (*sesv2.GetEmailIdentityOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sesv2.GetEmailIdentityOutput), args.Error(1)
}

func (m *MockIdentityClient) DeleteEmailIdentity(ctx context.Context, params *sesv2.DeleteEmailIdentityInput, optFns ...func(*sesv2.Options)) (*sesv2.DeleteEmailIdentityOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sesv2.DeleteEmailIdentityOutput), args.Error(1)
}

func (m *MockSecretsClient) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*secretsmanager.GetSecretValueOutput), args.Error(1)
}

func (m *MockSecretsClient) CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*secretsmanager.CreateSecretOutput), args.Error(1)
}

func (m *MockSecretsClient) UpdateSecret(ctx context.Context, params *secretsmanager.UpdateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.UpdateSecretOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*secretsmanager.UpdateSecretOutput), args.Error(1)
}

func (m *MockSecretsClient) DeleteSecret(ctx context.Context, params *secretsmanager.DeleteSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DeleteSecretOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*secretsmanager.DeleteSecretOutput), args.Error(1)
}

func (m *MockS3Client) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.HeadObjectOutput), args.Error(1)
}

// CreateUser mock
func (m *MockAuthProvider) CreateUser(email, firstName, lastName string) (string, error) {
	args := m.Called(email, firstName, lastName)
	return args.String(0), args.Error(1)
}

// DeleteUser mock
func (m *MockAuthProvider) DeleteUser(authUserID string) error {
	args := m.Called(authUserID)
	return args.Error(0)
}
