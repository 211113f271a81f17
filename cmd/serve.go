package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/dripiq/dripiq-lead-services/api/handlers"
	"github.com/dripiq/dripiq-lead-services/api/middleware"
	"github.com/dripiq/dripiq-lead-services/api/services"
	docs "github.com/dripiq/dripiq-lead-services/docs"
	awsclient "github.com/dripiq/dripiq-lead-services/internal/aws"
	"github.com/dripiq/dripiq-lead-services/internal/events"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	httpSwagger "github.com/swaggo/http-swagger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server for handling API requests",
	Run: func(cmd *cobra.Command, args []string) {

		// Load the config, connect the database and set up logging
		commonSetUp()
		defer publisher.Close()
		defer leadsDB.Close()

		// One resolved SDK config feeds every AWS client
		awsCfg, err := awsclient.LoadAWSConfig(context.Background(), appCfg.AWS.Region, appCfg.AWS.Endpoint)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load AWS config")
		}
		sesClient := awsclient.NewSESClient(awsCfg)
		secretsClient := awsclient.NewSecretsManagerClient(awsCfg)
		stsClient := awsclient.NewSTSClient(awsCfg)
		s3Client := awsclient.NewS3Client(awsCfg)

		authClient := services.NewAuthClient(appCfg.AuthService)

		service := &services.Service{
			Config:    appCfg,
			DB:        leadsDB,
			Publisher: publisher,
			Email:     sesClient,
			Identity:  sesClient,
			Secrets:   secretsClient,
			Storage:   s3Client,
			Auth:      authClient,
		}

		// Create routes
		r := mux.NewRouter()

		// Public invite routes, reachable without a token but rate limited.
		// Registered before the authenticated subrouter so token resolution
		// never sees them.
		public := r.PathPrefix(appCfg.BasePath).Subrouter()
		public.Use(middleware.WithLogger)
		public.Use(middleware.RateLimitByIP(appCfg.RateLimit.RPS, appCfg.RateLimit.Burst))
		public.HandleFunc("/invites/verify", handlers.VerifyInvite(service)).Methods(http.MethodPost)
		public.HandleFunc("/invites/accept", handlers.AcceptInvite(service)).Methods(http.MethodPost)

		// Everything else requires a bearer token scoped to a tenant
		api := r.PathPrefix(appCfg.BasePath).Subrouter()
		api.Use(middleware.WithLogger)
		api.Use(middleware.JWTMiddleware)

		// Organization routes
		api.HandleFunc("/organization", handlers.GetOrganization(service)).Methods(http.MethodGet)
		api.HandleFunc("/organization", handlers.UpdateOrganization(service)).Methods(http.MethodPut)
		api.HandleFunc("/organization/resync", handlers.ResyncOrganization(service)).Methods(http.MethodPost)
		api.HandleFunc("/organization/logo-upload", handlers.RequestLogoUploadCredentials(appCfg.AWS.S3.RoleArn, appCfg.AWS.S3.Bucket, stsClient)).Methods(http.MethodGet)
		api.HandleFunc("/organization/logo", handlers.SetOrganizationLogo(service)).Methods(http.MethodPut)

		// User and role routes
		api.HandleFunc("/users", handlers.GetUsers(service)).Methods(http.MethodGet)
		api.HandleFunc("/users/{user-id}/role", handlers.UpdateUserRole(service)).Methods(http.MethodPut)
		api.HandleFunc("/roles", handlers.GetRoles(service)).Methods(http.MethodGet)

		// Invite routes
		api.HandleFunc("/invites", handlers.CreateInvite(service)).Methods(http.MethodPost)
		api.HandleFunc("/invites/{invite-id}/resend", handlers.ResendInvite(service)).Methods(http.MethodPost)
		api.HandleFunc("/invites/{invite-id}", handlers.RevokeInvite(service)).Methods(http.MethodDelete)

		// Lead routes
		api.HandleFunc("/leads", handlers.GetLeads(service)).Methods(http.MethodGet)
		api.HandleFunc("/leads", handlers.CreateLead(service)).Methods(http.MethodPost)
		api.HandleFunc("/leads/{lead-id}", handlers.GetLead(service)).Methods(http.MethodGet)
		api.HandleFunc("/leads/{lead-id}", handlers.UpdateLead(service)).Methods(http.MethodPut)
		api.HandleFunc("/leads/{lead-id}", handlers.DeleteLead(service)).Methods(http.MethodDelete)
		api.HandleFunc("/leads/{lead-id}/resync", handlers.ResyncLead(service)).Methods(http.MethodPost)
		api.HandleFunc("/leads/{lead-id}/vendor-fit", handlers.VendorFitLead(service)).Methods(http.MethodPost)

		// Sender identity routes
		api.HandleFunc("/sender-identities", handlers.GetSenderIdentities(service)).Methods(http.MethodGet)
		api.HandleFunc("/sender-identities", handlers.CreateSenderIdentity(service)).Methods(http.MethodPost)
		api.HandleFunc("/sender-identities/{identity-id}/verify", handlers.VerifySenderIdentity(service)).Methods(http.MethodPost)
		api.HandleFunc("/sender-identities/{identity-id}", handlers.DeleteSenderIdentity(service)).Methods(http.MethodDelete)

		// Integration routes
		api.HandleFunc("/integrations", handlers.GetIntegrations(service)).Methods(http.MethodGet)
		api.HandleFunc("/integrations", handlers.CreateIntegration(service)).Methods(http.MethodPost)
		api.HandleFunc("/integrations/{integration-id}", handlers.DeleteIntegration(service)).Methods(http.MethodDelete)

		// Docs
		docs.SwaggerInfo.Host = appCfg.Host
		docs.SwaggerInfo.BasePath = appCfg.BasePath
		r.PathPrefix(appCfg.DocsPath).Handler(httpSwagger.Handler(
			httpSwagger.URL(path.Join(appCfg.DocsPath, "/doc.json")),
			httpSwagger.DeepLinking(true),
			httpSwagger.DocExpansion("none"),
			httpSwagger.DomID("swagger-ui"),
		)).Methods(http.MethodGet)

		// Interval test publisher, only in environments that enable it
		if appCfg.Pulsar.TestPublisher.Enabled {
			testPublisher := events.NewTestPublisher(publisher, appCfg.Pulsar.TestPublisherInterval())
			testPublisher.Start()
			defer testPublisher.Stop()
		}

		srv := &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		go func() {
			log.Info().Msg(fmt.Sprintf("Server started at %s:%d", host, port))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatal().Err(err).Msg("could not start server")
			}
		}()

		// Graceful shutdown
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Info().Msg("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("server shutdown failed")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&host, "host", "0.0.0.0", "host to run the server on")
	serveCmd.Flags().IntVar(&port, "port", 8080, "port to run the server on")
}
