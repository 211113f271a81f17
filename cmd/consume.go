package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dripiq/dripiq-lead-services/internal/events"
	"github.com/dripiq/dripiq-lead-services/models"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Run the Pulsar consumer that applies analysis results to the database",
	Run: func(cmd *cobra.Command, args []string) {

		// Load the config, connect the database and set up logging
		commonSetUp()
		defer publisher.Close()
		defer leadsDB.Close()

		consumer, err := events.NewEventConsumer(appCfg.Pulsar.URL, appCfg.Pulsar.TopicConsumer, appCfg.Pulsar.Subscription)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize event consumer")
		}
		defer consumer.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
			<-quit
			log.Info().Msg("Shutting down consumer...")
			cancel()
		}()

		log.Info().Str("topic", appCfg.Pulsar.TopicConsumer).Msg("Waiting for sync results")

		for {
			result, msg, err := consumer.ReceiveResult(ctx)
			if err != nil {
				if ctx.Err() != nil {
					log.Info().Msg("Consumer stopped")
					return
				}
				if msg != nil {
					// Undecodable payloads retry until the DLQ policy gives
					// up on them.
					log.Error().Err(err).Msg("Rejecting malformed message")
					consumer.Nack(msg)
					continue
				}
				log.Error().Err(err).Msg("Error receiving message")
				continue
			}

			if err := applyResult(result); err != nil {
				log.Error().Err(err).
					Str("action", result.Action).
					Str("tenant_id", result.TenantID.String()).
					Str("subject_id", result.SubjectID.String()).
					Msg("Failed to apply sync result")
				consumer.Nack(msg)
				continue
			}
			consumer.Ack(msg)
		}
	},
}

// applyResult routes one pipeline result to the matching database write.
func applyResult(result models.SyncResult) error {
	switch result.Action {
	case models.ActionLeadSynced:
		if err := leadsDB.ApplyLeadAnalysis(result); err != nil {
			return err
		}
		// Some pipeline runs fold the vendor fit report into the sync result
		if result.VendorFit != nil {
			return leadsDB.SetLeadVendorFit(result.TenantID, result.SubjectID, *result.VendorFit)
		}
		return nil

	case models.ActionLeadSyncFailed:
		return leadsDB.MarkLeadSyncFailed(result.TenantID, result.SubjectID)

	case models.ActionLeadVendorFitCompleted:
		if result.VendorFit == nil {
			log.Warn().Str("subject_id", result.SubjectID.String()).Msg("Vendor fit result carried no report")
			return nil
		}
		return leadsDB.SetLeadVendorFit(result.TenantID, result.SubjectID, *result.VendorFit)

	case models.ActionTenantSynced:
		if result.Error != "" {
			log.Warn().Str("tenant_id", result.TenantID.String()).Str("error", result.Error).Msg("Organization sync reported failure")
			return leadsDB.SetTenantSyncStatus(result.TenantID, "failed")
		}
		return leadsDB.ApplyTenantAnalysis(result)

	default:
		log.Warn().Str("action", result.Action).Msg("Ignoring unknown result action")
		return nil
	}
}

func init() {
	rootCmd.AddCommand(consumeCmd)
}
