package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/dripiq/dripiq-lead-services/api/middleware"
	"github.com/dripiq/dripiq-lead-services/internal/authn"
	"github.com/rs/zerolog"
)

const TimeFormat string = "2006-01-02T15:04:05Z"

type STSClient interface {
	AssumeRoleWithWebIdentity(ctx context.Context,
		params *sts.AssumeRoleWithWebIdentityInput, optFns ...func(*sts.Options)) (
		*sts.AssumeRoleWithWebIdentityOutput, error)
}

// @Summary Request logo upload credentials
// @Description Request temporary S3 credentials scoped to the tenant's branding prefix. The caller uploads the logo with these and then records it via PUT /organization/logo.
// @Tags organization
// @Produce json
// @Success 200 {object} S3Credentials
// @Failure 401 {object} string
// @Failure 500 {object} string
// @Router /organization/logo-upload [get]
func RequestLogoUploadCredentials(roleArn, bucket string, c STSClient) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {
		logger := zerolog.Ctx(r.Context()).With().Str("role_arn", roleArn).Logger()

		token, ok := r.Context().Value(middleware.TokenKey).(string)
		if !ok {
			err := "Invalid token"
			http.Error(w, err, http.StatusUnauthorized)
			logger.Error().Msg(err)
			return
		}

		claims, ok := r.Context().Value(middleware.ClaimsKey).(authn.Claims)
		if !ok || claims.TenantID == "" {
			err := "Invalid claims"
			http.Error(w, err, http.StatusUnauthorized)
			logger.Error().Msg(err)
			return
		}

		logger = logger.With().Str("tenant", claims.TenantID).Logger()

		// The caller's bearer token doubles as the web identity, so the
		// assumed session is tied to the same principal the API saw.
		resp, err := c.AssumeRoleWithWebIdentity(r.Context(),
			&sts.AssumeRoleWithWebIdentityInput{
				RoleArn:          &roleArn,
				WebIdentityToken: &token,
				RoleSessionName:  aws.String(fmt.Sprintf("logo-upload-%s", claims.TenantID)),
			})
		if err != nil {
			logger.Err(err).Msg("Failed to retrieve upload credentials")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(S3Credentials{
			AccessKeyId:     *resp.Credentials.AccessKeyId,
			SecretAccessKey: *resp.Credentials.SecretAccessKey,
			SessionToken:    *resp.Credentials.SessionToken,
			Expiration:      resp.Credentials.Expiration.UTC().Format(TimeFormat),
			Bucket:          bucket,
			Prefix:          fmt.Sprintf("branding/%s/", claims.TenantID),
		})
		logger.Info().Msg("Upload credentials retrieved")
	}
}

type S3Credentials struct {
	AccessKeyId     string `json:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey"`
	SessionToken    string `json:"sessionToken"`
	Expiration      string `json:"expiration"`
	Bucket          string `json:"bucket"`
	Prefix          string `json:"prefix"`
}
