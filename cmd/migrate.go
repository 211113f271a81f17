package cmd

import (
	"os"

	"github.com/dripiq/dripiq-lead-services/db"
	"github.com/dripiq/dripiq-lead-services/internal/appconfig"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "init-db-migrate",
	Short: "Initialize tables and run database migrations",
	Long:  `This job ensures tables exist and then runs goose migrations.`,
	Run: func(cmd *cobra.Command, args []string) {
		// Set the log level
		setLogging(logLevel)

		// Load the config file
		var err error
		appCfg, err = appconfig.LoadConfig(configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load config")
		}

		if err = os.Setenv("DATABASE_URL", appCfg.Database.Source); err != nil {
			log.Fatal().Err(err).Msg("failed to set DATABASE_URL")
		}

		// Migrations never publish, so no event publisher is wired in
		dbLogger := log.With().Str("component", "db").Logger()
		leadsDB, err = db.NewLeadsDB(nil, &dbLogger)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize LeadsDB")
		}
		defer leadsDB.Close()

		// Run the migrations
		log.Info().Msgf("Running migrations...")
		if err := leadsDB.Migrate(); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}

		log.Info().Msg("Migrations complete")
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
