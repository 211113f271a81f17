package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"strconv"

	"github.com/aws/smithy-go"
	"github.com/dripiq/dripiq-lead-services/api/middleware"
	"github.com/dripiq/dripiq-lead-services/internal/authn"
	"github.com/dripiq/dripiq-lead-services/models"
	"github.com/google/uuid"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

var hexColorRegex = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

func WriteResponse(w http.ResponseWriter, statusCode int, response interface{}, location ...string) {

	w.Header().Set("Content-Type", "application/json")

	// API responses are never cached so the client always sees current data
	w.Header().Set("Cache-Control", "max-age=0")

	// Conditionally set the Location header if provided
	if len(location) > 0 && location[0] != "" {
		w.Header().Set("Location", location[0])
	}

	w.WriteHeader(statusCode)

	if response != nil {
		if err := json.NewEncoder(w).Encode(response); err != nil {
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
			return
		}
	}
}

// WriteErrMessage sends the standard error envelope.
func WriteErrMessage(w http.ResponseWriter, statusCode int, message string) {
	WriteResponse(w, statusCode, models.ErrorResponse{Message: message})
}

// IsValidEmail returns true if the address looks deliverable.
func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// IsHexColor returns true if the value is a six digit hex color like #1A2B3C.
func IsHexColor(value string) bool {
	return hexColorRegex.MatchString(value)
}

// firstInvalidColor returns the first entry that is not a six digit hex
// color, or empty when all pass.
func firstInvalidColor(colors []string) string {
	for _, color := range colors {
		if !IsHexColor(color) {
			return color
		}
	}
	return ""
}

// IsValidURL returns true if the value parses as an absolute http or https URL.
func IsValidURL(value string) bool {
	u, err := url.Parse(value)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// awsErrorCode pulls the provider's error code out of an AWS SDK error for
// logging. Empty when the error did not come from the AWS API.
func awsErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// tenantFromRequest pulls the tenant a request is scoped to out of its JWT
// claims.
func tenantFromRequest(r *http.Request) (uuid.UUID, authn.Claims, bool) {
	claims, ok := r.Context().Value(middleware.ClaimsKey).(authn.Claims)
	if !ok {
		return uuid.Nil, authn.Claims{}, false
	}

	tenantID, err := uuid.Parse(claims.TenantID)
	if err != nil {
		return uuid.Nil, authn.Claims{}, false
	}

	return tenantID, claims, true
}

// isAdmin checks if the calling user holds the admin role in the tenant. The
// caller is resolved through the email claim since tokens carry the auth
// service's user ID, not ours.
func isAdmin(svc *Service, tenantID uuid.UUID, claims authn.Claims) (bool, error) {
	user, err := svc.DB.GetUserByEmail(tenantID, claims.Email)
	if err != nil {
		return false, err
	}
	return user != nil && user.Role.Name == "admin", nil
}

// parsePagination reads page and limit query parameters, applying defaults
// and a cap on page size.
func parsePagination(r *http.Request) (int, int) {
	page := 1
	limit := 20

	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 100 {
		limit = 100
	}

	return page, limit
}

// buildPagination fills the envelope metadata for a list response.
func buildPagination(page, limit, total int) models.Pagination {
	pages := 0
	if total > 0 {
		pages = (total + limit - 1) / limit
	}
	return models.Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}
