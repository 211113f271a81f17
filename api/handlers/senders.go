package handlers

import (
	"net/http"

	services "github.com/dripiq/dripiq-lead-services/api/services"
)

// GetSenderIdentities handles HTTP requests for listing sender identities.
func GetSenderIdentities(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.GetSenderIdentitiesService(svc, w, r)
	}
}

// CreateSenderIdentity handles HTTP requests for registering a sending address.
func CreateSenderIdentity(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.CreateSenderIdentityService(svc, w, r)
	}
}

// VerifySenderIdentity handles HTTP requests for refreshing a sending
// address's verification state from the provider.
func VerifySenderIdentity(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.VerifySenderIdentityService(svc, w, r)
	}
}

// DeleteSenderIdentity handles HTTP requests for removing a sending address.
func DeleteSenderIdentity(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.DeleteSenderIdentityService(svc, w, r)
	}
}
