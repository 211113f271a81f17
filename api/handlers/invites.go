package handlers

import (
	"net/http"

	services "github.com/dripiq/dripiq-lead-services/api/services"
)

// @Summary Invite someone to the organization
// @Description Create a pending user and its invitation, send the accept link by email and publish the invite event. Admin only.
// @Tags invites
// @Accept json
// @Produce json
// @Param invite body models.InviteRequest true "Invitation"
// @Success 201 {object} models.Invite
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /invites [post]
func CreateInvite(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.CreateInviteService(svc, w, r)
	}
}

// VerifyInvite handles HTTP requests for resolving an invite token to its
// details. Public: reached through the rate limited subrouter.
func VerifyInvite(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.VerifyInviteService(svc, w, r)
	}
}

// AcceptInvite handles HTTP requests for redeeming an invite token. Public:
// reached through the rate limited subrouter.
func AcceptInvite(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.AcceptInviteService(svc, w, r)
	}
}

// ResendInvite handles HTTP requests for re-sending an invitation email.
func ResendInvite(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.ResendInviteService(svc, w, r)
	}
}

// RevokeInvite handles HTTP requests for revoking a pending invitation.
func RevokeInvite(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.RevokeInviteService(svc, w, r)
	}
}
