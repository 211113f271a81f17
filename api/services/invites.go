package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/dripiq/dripiq-lead-services/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// CreateInviteService invites a new member into the tenant: a pending user
// and invite are created in one transaction, the accept link is mailed and
// the invite event published before the transaction commits. Validation runs
// before anything touches the database or the mail provider.
func CreateInviteService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())

	tenantID, claims, ok := tenantFromRequest(r)
	if !ok {
		logger.Warn().Msg("Unauthorized request: missing claims")
		WriteResponse(w, http.StatusUnauthorized, nil)
		return
	}

	var req models.InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn().Err(err).Msg("Invalid request payload")
		WriteErrMessage(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	// Reject bad input before any lookup or side effect
	if !IsValidEmail(req.Email) {
		logger.Warn().Str("email", req.Email).Msg("Invalid invite email address")
		WriteErrMessage(w, http.StatusBadRequest, "invalid email address")
		return
	}
	if req.RoleID == uuid.Nil {
		logger.Warn().Msg("Missing role in invite request")
		WriteErrMessage(w, http.StatusBadRequest, "roleId is required")
		return
	}

	caller, err := svc.DB.GetUserByEmail(tenantID, claims.Email)
	if err != nil {
		logger.Error().Err(err).Msg("Database error resolving calling user")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to create invite")
		return
	}
	if caller == nil || caller.Role.Name != "admin" {
		logger.Warn().Str("user", claims.Email).Msg("Access denied: admin role required")
		WriteErrMessage(w, http.StatusForbidden, "admin role required")
		return
	}

	role, err := svc.DB.GetRole(req.RoleID)
	if err != nil {
		logger.Error().Err(err).Msg("Database error retrieving role")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to create invite")
		return
	}
	if role == nil {
		logger.Warn().Str("role_id", req.RoleID.String()).Msg("Role does not exist")
		WriteErrMessage(w, http.StatusBadRequest, "role does not exist")
		return
	}

	existing, err := svc.DB.GetUserByEmail(tenantID, req.Email)
	if err != nil {
		logger.Error().Err(err).Msg("Database error checking for existing user")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to create invite")
		return
	}
	if existing != nil {
		logger.Warn().Str("email", req.Email).Msg("User with this email already exists")
		WriteErrMessage(w, http.StatusConflict, "a user with this email already exists")
		return
	}

	token, tokenHash, err := mintInviteToken()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to generate invite token")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to create invite")
		return
	}

	expiresAt := time.Now().UTC().Add(svc.Config.Invites.InviteTTL())

	tx, invite, err := svc.DB.CreateInvite(tenantID, req, *role, &caller.ID, tokenHash, expiresAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			logger.Warn().Str("email", req.Email).Msg("User with this email already exists")
			WriteErrMessage(w, http.StatusConflict, "a user with this email already exists")
			return
		}
		logger.Error().Err(err).Msg("Database error creating invite")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to create invite")
		return
	}

	if err := sendInviteEmail(r.Context(), svc, req.Email, role.Name, token, expiresAt); err != nil {
		logger.Error().Err(err).Str("email", req.Email).Msg("Failed to send invite email")
		tx.Rollback()
		WriteErrMessage(w, http.StatusInternalServerError, "failed to send invite email")
		return
	}

	event := models.Event{
		TenantID:   tenantID,
		SubjectID:  invite.ID,
		Action:     models.ActionInviteCreated,
		Source:     eventSource,
		OccurredAt: time.Now().UTC(),
		Data:       map[string]string{"email": req.Email},
	}
	if err := svc.Publisher.Publish(event); err != nil {
		logger.Error().Err(err).Msg("Failed to publish invite event")
		tx.Rollback()
		WriteErrMessage(w, http.StatusInternalServerError, "failed to create invite")
		return
	}

	// Commit the transaction after successful email and publishing
	if err := svc.DB.CommitTransaction(tx); err != nil {
		logger.Error().Err(err).Msg("Failed to commit transaction")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to create invite")
		return
	}

	logger.Info().Str("email", req.Email).Str("invite_id", invite.ID.String()).Msg("Invite created successfully")

	var location = fmt.Sprintf("%s/%s", r.URL.Path, invite.ID)
	WriteResponse(w, http.StatusCreated, invite, location)
}

// VerifyInviteService resolves an invite token to the details shown on the
// accept page. Public endpoint: expired, revoked, accepted and unknown tokens
// are indistinguishable from outside.
func VerifyInviteService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())

	var req models.InviteTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		logger.Warn().Msg("Invalid verify payload")
		WriteErrMessage(w, http.StatusBadRequest, "token is required")
		return
	}

	invite, details, err := svc.DB.GetInviteByTokenHash(hashInviteToken(req.Token))
	if err != nil {
		logger.Error().Err(err).Msg("Database error resolving invite token")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to verify invite")
		return
	}
	if invite == nil || invite.Status != "pending" || invite.ExpiresAt.Before(time.Now().UTC()) {
		logger.Warn().Msg("Invite token not redeemable")
		WriteErrMessage(w, http.StatusNotFound, "invite not found or no longer valid")
		return
	}

	WriteResponse(w, http.StatusOK, details)
}

// AcceptInviteService redeems an invite token: the account is provisioned
// with the auth service, then the invite is atomically marked accepted and
// its pending user activated. A second accept of the same token finds no
// pending invite and gets a 404.
func AcceptInviteService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())

	var req models.InviteAcceptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		logger.Warn().Msg("Invalid accept payload")
		WriteErrMessage(w, http.StatusBadRequest, "token is required")
		return
	}
	if req.FirstName == "" || req.LastName == "" {
		logger.Warn().Msg("Missing name in accept payload")
		WriteErrMessage(w, http.StatusBadRequest, "firstName and lastName are required")
		return
	}

	tokenHash := hashInviteToken(req.Token)

	invite, _, err := svc.DB.GetInviteByTokenHash(tokenHash)
	if err != nil {
		logger.Error().Err(err).Msg("Database error resolving invite token")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to accept invite")
		return
	}
	if invite == nil || invite.Status != "pending" || invite.ExpiresAt.Before(time.Now().UTC()) {
		logger.Warn().Msg("Invite token not redeemable")
		WriteErrMessage(w, http.StatusNotFound, "invite not found or no longer valid")
		return
	}

	// Provision the auth account before touching the database so no user row
	// activates without a login behind it.
	var authUserID string
	if svc.Auth != nil {
		authUserID, err = svc.Auth.CreateUser(invite.Email, req.FirstName, req.LastName)
		if err != nil {
			logger.Error().Err(err).Str("email", invite.Email).Msg("Failed to provision auth account")
			WriteErrMessage(w, http.StatusInternalServerError, "failed to accept invite")
			return
		}
	}

	accepted, err := svc.DB.AcceptInvite(tokenHash, req.FirstName, req.LastName, authUserID)
	if err != nil {
		logger.Error().Err(err).Msg("Database error accepting invite")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to accept invite")
		return
	}
	if accepted == nil {
		// Lost the race to another accept or a revoke; drop the auth account
		// we just created.
		if svc.Auth != nil && authUserID != "" {
			if err := svc.Auth.DeleteUser(authUserID); err != nil {
				logger.Warn().Err(err).Msg("Failed to remove orphaned auth account")
			}
		}
		logger.Warn().Msg("Invite token not redeemable")
		WriteErrMessage(w, http.StatusNotFound, "invite not found or no longer valid")
		return
	}

	user, err := svc.DB.GetUser(accepted.TenantID, accepted.UserID)
	if err != nil {
		logger.Error().Err(err).Msg("Database error retrieving activated user")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to accept invite")
		return
	}

	logger.Info().Str("invite_id", accepted.ID.String()).Msg("Invite accepted successfully")
	WriteResponse(w, http.StatusOK, user)
}

// ResendInviteService rotates the token of a pending invite, extends its
// expiry and mails a fresh accept link. The previous link stops working.
func ResendInviteService(svc *Service, w http.ResponseWriter, r *http.Request) {

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
		WriteErrMessage(w, http.StatusInternalServerError, "failed to resend invite")
		return
	}
	if !admin {
		logger.Warn().Str("user", claims.Email).Msg("Access denied: admin role required")
		WriteErrMessage(w, http.StatusForbidden, "admin role required")
		return
	}

	inviteID, err := uuid.Parse(mux.Vars(r)["invite-id"])
	if err != nil {
		logger.Warn().Err(err).Msg("Invalid invite ID in path")
		WriteErrMessage(w, http.StatusBadRequest, "invalid invite id")
		return
	}

	token, tokenHash, err := mintInviteToken()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to generate invite token")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to resend invite")
		return
	}

	expiresAt := time.Now().UTC().Add(svc.Config.Invites.InviteTTL())

	invite, err := svc.DB.RotateInviteToken(tenantID, inviteID, tokenHash, expiresAt)
	if err != nil {
		logger.Error().Err(err).Msg("Database error rotating invite token")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to resend invite")
		return
	}
	if invite == nil {
		logger.Warn().Str("invite_id", inviteID.String()).Msg("No pending invite to resend")
		WriteErrMessage(w, http.StatusNotFound, "invite not found")
		return
	}

	if err := sendInviteEmail(r.Context(), svc, invite.Email, invite.Role.Name, token, expiresAt); err != nil {
		logger.Error().Err(err).Str("email", invite.Email).Msg("Failed to send invite email")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to send invite email")
		return
	}

	logger.Info().Str("invite_id", invite.ID.String()).Msg("Invite resent successfully")
	WriteResponse(w, http.StatusOK, invite)
}

// RevokeInviteService withdraws a pending invite and releases the seat its
// pending user was holding.
func RevokeInviteService(svc *Service, w http.ResponseWriter, r *http.Request) {

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
		WriteErrMessage(w, http.StatusInternalServerError, "failed to revoke invite")
		return
	}
	if !admin {
		logger.Warn().Str("user", claims.Email).Msg("Access denied: admin role required")
		WriteErrMessage(w, http.StatusForbidden, "admin role required")
		return
	}

	inviteID, err := uuid.Parse(mux.Vars(r)["invite-id"])
	if err != nil {
		logger.Warn().Err(err).Msg("Invalid invite ID in path")
		WriteErrMessage(w, http.StatusBadRequest, "invalid invite id")
		return
	}

	found, err := svc.DB.RevokeInvite(tenantID, inviteID)
	if err != nil {
		logger.Error().Err(err).Msg("Database error revoking invite")
		WriteErrMessage(w, http.StatusInternalServerError, "failed to revoke invite")
		return
	}
	if !found {
		logger.Warn().Str("invite_id", inviteID.String()).Msg("No pending invite to revoke")
		WriteErrMessage(w, http.StatusNotFound, "invite not found")
		return
	}

	logger.Info().Str("invite_id", inviteID.String()).Msg("Invite revoked successfully")
	WriteResponse(w, http.StatusNoContent, nil)
}

// mintInviteToken generates the opaque token mailed to the invitee and the
// SHA-256 fingerprint stored in its place. The raw token exists only in the
// email.
func mintInviteToken() (string, string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("failed to generate invite token: %w", err)
	}

	token := base64.RawURLEncoding.EncodeToString(raw)
	return token, hashInviteToken(token), nil
}

// hashInviteToken fingerprints a token for storage and lookup.
func hashInviteToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// sendInviteEmail mails the accept link to the invitee.
func sendInviteEmail(ctx context.Context, svc *Service, email, roleName, token string, expiresAt time.Time) error {
	link := fmt.Sprintf("%s?token=%s", svc.Config.Invites.AcceptURL, token)
	body := fmt.Sprintf(
		"You have been invited to join your team on dripIq as %s.\n\nAccept the invitation: %s\n\nThe invitation expires on %s.",
		roleName, link, expiresAt.Format("2 January 2006"))

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", svc.Config.AWS.SES.FromName, svc.Config.AWS.SES.FromAddress)),
		Destination:      &types.Destination{ToAddresses: []string{email}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String("You have been invited to dripIq")},
				Body:    &types.Body{Text: &types.Content{Data: aws.String(body)}},
			},
		},
	}

	_, err := svc.Email.SendEmail(ctx, input)
	return err
}
