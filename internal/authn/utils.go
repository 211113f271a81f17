package authn

import (
	"errors"

	"github.com/golang-jwt/jwt"
)

var ErrInvalidJWT = errors.New("invalid jwt token")
var ErrInvalidClaims = errors.New("invalid claims")

// Claims are the token claims issued by the auth service. TenantID scopes
// every request; the middleware rejects tokens without it.
type Claims struct {
	jwt.StandardClaims
	Username string `json:"preferred_username"`
	Email    string `json:"email"`
	TenantID string `json:"tenant_id"`
}

func ParseClaims(token string) (Claims, error) {
	claims := Claims{}
	// Check if token is JWT by attempting to parse it
	if t, err := jwt.ParseWithClaims(token, &claims, nil); err != nil {
		// Ignore validation errors (signature is checked by the gateway)
		if _, ok := err.(*jwt.ValidationError); !ok {
			return claims, ErrInvalidJWT
		}

		// Check if token was decoded successfully
		if t == nil {
			// Return an error if the token was not decoded successfully
			return claims, ErrInvalidClaims
		}
	}
	return claims, nil
}
