package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dripiq/dripiq-lead-services/db"
	"github.com/dripiq/dripiq-lead-services/internal/appconfig"
	"github.com/dripiq/dripiq-lead-services/internal/events"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	logLevel   string
	configPath string
	host       string
	port       int

	appCfg    *appconfig.Config
	leadsDB   *db.LeadsDB
	publisher *events.EventPublisher
)

var rootCmd = &cobra.Command{
	Use:   "lead-services",
	Short: "Lead Services",
	Long:  `Lead Services is the tenant-scoped API and queue worker behind the dripIq admin client.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn",
		"sets the log level")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "/etc/lead-services/config.yaml",
		"path to the config file")
}

// commonSetUp loads the config, connects the database and wires the event
// publisher into it. Every long-running subcommand starts here; the caller
// owns closing what it opens.
func commonSetUp() {
	setLogging(logLevel)

	var err error
	appCfg, err = appconfig.LoadConfig(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// NewLeadsDB reads the connection string from the environment
	if err = os.Setenv("DATABASE_URL", appCfg.Database.Source); err != nil {
		log.Fatal().Err(err).Msg("failed to set DATABASE_URL")
	}

	publisher, err = events.NewEventPublisher(appCfg.Pulsar.URL, appCfg.Pulsar.TopicProducer)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize event publisher")
	}

	dbLogger := log.With().Str("component", "db").Logger()
	leadsDB, err = db.NewLeadsDB(publisher, &dbLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize LeadsDB")
	}
}

func setLogging(level string) {
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	switch strings.ToLower(level) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "fatal":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	case "panic":
		zerolog.SetGlobalLevel(zerolog.PanicLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}
}
