package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dripiq/dripiq-lead-services/internal/appconfig"
)

// AuthClient is a client for the auth service admin API. It provisions and
// removes login accounts when invites are accepted or revoked.
type AuthClient struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Token        string
	HTTPClient   *http.Client
}

type HTTPError struct {
	Message string
	Status  int
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewAuthClient creates a new instance of AuthClient.
func NewAuthClient(cfg appconfig.AuthServiceConfig) *AuthClient {
	return &AuthClient{
		BaseURL:      cfg.URL,
		ClientID:     cfg.ClientId,
		ClientSecret: cfg.ClientSecret,
		HTTPClient:   &http.Client{},
	}
}

// GetToken retrieves an admin access token using client_credentials.
func (ac *AuthClient) GetToken() error {
	tokenURL := fmt.Sprintf("%s/oauth/token", ac.BaseURL)

	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("client_id", ac.ClientID)
	data.Set("client_secret", ac.ClientSecret)

	resp, err := ac.HTTPClient.PostForm(tokenURL, data)
	if err != nil {
		return fmt.Errorf("failed to request token: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &HTTPError{Message: string(respBody), Status: resp.StatusCode}
	}

	var tokenResponse struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(respBody, &tokenResponse); err != nil {
		return fmt.Errorf("failed to decode token response: %w", err)
	}

	ac.Token = tokenResponse.AccessToken
	return nil
}

// CreateUser creates a login account and returns the auth service's ID for
// it. That ID, not ours, is what appears as the subject in issued tokens.
func (ac *AuthClient) CreateUser(email, firstName, lastName string) (string, error) {

	user := map[string]string{
		"email":     email,
		"firstName": firstName,
		"lastName":  lastName,
	}
	body, _ := json.Marshal(user)

	url := fmt.Sprintf("%s/api/v1/users", ac.BaseURL)

	respBody, statusCode, header, err := ac.makeRequest(http.MethodPost, url, "application/json", body)
	if err != nil {
		return "", err
	}

	if statusCode != http.StatusCreated {
		return "", fmt.Errorf("failed to create user, status: %d, response: %s", statusCode, respBody)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &created); err == nil && created.ID != "" {
		return created.ID, nil
	}

	// Some deployments return an empty body and point at the new account via
	// the Location header instead.
	if location := header.Get("Location"); location != "" {
		parts := strings.Split(strings.TrimRight(location, "/"), "/")
		return parts[len(parts)-1], nil
	}

	return "", fmt.Errorf("create user response carried no user ID")
}

// DeleteUser removes a login account. A missing account is not an error so
// that cleanup after a lost race stays idempotent.
func (ac *AuthClient) DeleteUser(authUserID string) error {

	url := fmt.Sprintf("%s/api/v1/users/%s", ac.BaseURL, authUserID)

	respBody, statusCode, _, err := ac.makeRequest(http.MethodDelete, url, "application/json", nil)
	if err != nil {
		if statusCode == http.StatusNotFound {
			return nil
		}
		return err
	}

	if statusCode != http.StatusNoContent && statusCode != http.StatusOK {
		return fmt.Errorf("failed to delete user, status: %d, response: %s", statusCode, respBody)
	}

	return nil
}

// Helper function for making HTTP requests to the auth service admin API.
// Fetches a token on first use and retries once after a 401, since admin
// tokens are short lived.
func (ac *AuthClient) makeRequest(method, url, contentType string, body []byte) ([]byte, int, http.Header, error) {

	if ac.Token == "" {
		if err := ac.GetToken(); err != nil {
			return nil, 0, nil, err
		}
	}

	respBody, statusCode, header, err := ac.doRequest(method, url, contentType, body)
	if statusCode == http.StatusUnauthorized {
		if err := ac.GetToken(); err != nil {
			return nil, statusCode, nil, err
		}
		respBody, statusCode, header, err = ac.doRequest(method, url, contentType, body)
	}

	return respBody, statusCode, header, err
}

func (ac *AuthClient) doRequest(method, url, contentType string, body []byte) ([]byte, int, http.Header, error) {
	req, err := http.NewRequest(method, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", ac.Token))
	req.Header.Set("Content-Type", contentType)

	resp, err := ac.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, resp.Header, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return respBody, resp.StatusCode, resp.Header, &HTTPError{
			Message: fmt.Sprintf("error response: status %d, body: %s", resp.StatusCode, string(respBody)),
			Status:  resp.StatusCode,
		}
	}

	return respBody, resp.StatusCode, resp.Header, nil
}
