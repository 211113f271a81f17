package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/dripiq/dripiq-lead-services/internal/appconfig"
	"github.com/dripiq/dripiq-lead-services/internal/events"
	"github.com/dripiq/dripiq-lead-services/models"
	"github.com/google/uuid"
)

// eventSource tags messages published from API request flows.
const eventSource = "lead-services.api"

// Service contains all shared dependencies for handlers.
type Service struct {
	Config    *appconfig.Config
	DB        LeadsStore
	Publisher events.Notifier
	Email     EmailClient
	Identity  IdentityClient
	Secrets   SecretsClient
	Storage   S3Client
	Auth      AuthProvider
}

// LeadsStore is the database surface the services work against. Implemented
// by db.LeadsDB and mocked in tests.
type LeadsStore interface {
	GetTenant(tenantID uuid.UUID) (*models.Tenant, error)
	UpdateTenant(tenantID uuid.UUID, req models.TenantUpdateRequest) (*models.Tenant, error)
	MarkTenantSyncQueued(tenantID uuid.UUID) (*sql.Tx, bool, error)
	SetTenantLogo(tenantID uuid.UUID, logoURL string) error

	ListUsers(tenantID uuid.UUID, page, limit int) ([]models.User, error)
	CountUsers(tenantID uuid.UUID) (int, error)
	GetUser(tenantID, userID uuid.UUID) (*models.User, error)
	GetUserByEmail(tenantID uuid.UUID, email string) (*models.User, error)
	UpdateUserRole(tenantID, userID, roleID uuid.UUID) (*models.User, error)
	GetRoles() ([]models.Role, error)
	GetRole(roleID uuid.UUID) (*models.Role, error)

	CreateInvite(tenantID uuid.UUID, req models.InviteRequest, role models.Role, invitedBy *uuid.UUID, tokenHash string, expiresAt time.Time) (*sql.Tx, *models.Invite, error)
	GetInvite(tenantID, inviteID uuid.UUID) (*models.Invite, error)
	GetInviteByTokenHash(tokenHash string) (*models.Invite, *models.InviteDetails, error)
	RotateInviteToken(tenantID, inviteID uuid.UUID, tokenHash string, expiresAt time.Time) (*models.Invite, error)
	AcceptInvite(tokenHash, firstName, lastName, authUserID string) (*models.Invite, error)
	RevokeInvite(tenantID, inviteID uuid.UUID) (bool, error)

	ListLeads(tenantID uuid.UUID, search string, page, limit int) ([]models.Lead, error)
	CountLeads(tenantID uuid.UUID, search string) (int, error)
	GetLead(tenantID, leadID uuid.UUID) (*models.Lead, error)
	CreateLead(tenantID uuid.UUID, req models.LeadRequest, createdBy *uuid.UUID) (*sql.Tx, *models.Lead, error)
	UpdateLead(tenantID, leadID uuid.UUID, req models.LeadUpdateRequest) (*models.Lead, error)
	DeleteLead(tenantID, leadID uuid.UUID) (bool, error)
	MarkLeadSyncQueued(tenantID, leadID uuid.UUID) (*sql.Tx, bool, error)

	CreateSenderIdentity(tenantID uuid.UUID, req models.SenderIdentityRequest, domain string) (*models.SenderIdentity, error)
	GetSenderIdentities(tenantID uuid.UUID) ([]models.SenderIdentity, error)
	GetSenderIdentity(tenantID, identityID uuid.UUID) (*models.SenderIdentity, error)
	GetSenderIdentityByEmail(tenantID uuid.UUID, fromEmail string) (*models.SenderIdentity, error)
	UpdateSenderValidationStatus(tenantID, identityID uuid.UUID, status string) error
	DeleteSenderIdentity(tenantID, identityID uuid.UUID) (bool, error)

	CreateIntegration(tenantID uuid.UUID, provider string) (*models.Integration, error)
	GetIntegrations(tenantID uuid.UUID) ([]models.Integration, error)
	CheckIntegrationExists(tenantID uuid.UUID, provider string) (bool, error)
	DeleteIntegration(tenantID, integrationID uuid.UUID) (string, error)

	CommitTransaction(tx *sql.Tx) error
}

// EmailClient is the slice of the SESv2 API used to send invite email.
type EmailClient interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// IdentityClient is the slice of the SESv2 API managing sender identities.
type IdentityClient interface {
	CreateEmailIdentity(ctx context.Context, params *sesv2.CreateEmailIdentityInput, optFns ...func(*sesv2.Options)) (*sesv2.CreateEmailIdentityOutput, error)
	GetEmailIdentity(ctx context.Context, params *sesv2.GetEmailIdentityInput, optFns ...func(*sesv2.Options)) (*sesv2.GetEmailIdentityOutput, error)
	DeleteEmailIdentity(ctx context.Context, params *sesv2.DeleteEmailIdentityInput, optFns ...func(*sesv2.Options)) (*sesv2.DeleteEmailIdentityOutput, error)
}

// SecretsClient is the slice of the Secrets Manager API holding integration
// credentials.
type SecretsClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
	UpdateSecret(ctx context.Context, params *secretsmanager.UpdateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.UpdateSecretOutput, error)
	DeleteSecret(ctx context.Context, params *secretsmanager.DeleteSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DeleteSecretOutput, error)
}

// S3Client checks uploaded objects in the branding bucket.
type S3Client interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// AuthProvider provisions accounts in the external auth service when an
// invite is accepted.
type AuthProvider interface {
	CreateUser(email, firstName, lastName string) (string, error)
	DeleteUser(authUserID string) error
}
