package cmd

import (
	"time"

	"github.com/dripiq/dripiq-lead-services/models"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var requeueCmd = &cobra.Command{
	Use:   "requeue",
	Short: "Re-publish sync requests for leads stuck in syncing",
	Long: `Leads stay in syncing until the analysis pipeline reports back. When a
result message is lost the lead is stuck, so this job re-publishes a sync
request for every lead still marked syncing. Run it manually or on a schedule.`,
	Run: func(cmd *cobra.Command, args []string) {

		// Load the config, connect the database and set up logging
		commonSetUp()
		defer publisher.Close()
		defer leadsDB.Close()

		leads, err := leadsDB.ListSyncingLeads()
		if err != nil {
			log.Fatal().Err(err).Msg("Error fetching syncing leads")
		}

		log.Info().Int("count", len(leads)).Msg("Requeueing stuck leads")

		for _, lead := range leads {
			event := models.Event{
				TenantID:   lead.TenantID,
				SubjectID:  lead.ID,
				Action:     models.ActionLeadSyncRequested,
				Source:     "lead-services.requeue",
				OccurredAt: time.Now().UTC(),
				Data:       map[string]string{"url": lead.URL},
			}

			if err := leadsDB.Events.Publish(event); err != nil {
				log.Error().Err(err).Str("lead_id", lead.ID.String()).Msg("Failed to requeue lead sync")
				continue
			}
			log.Info().Str("lead_id", lead.ID.String()).Str("tenant_id", lead.TenantID.String()).Msg("Requeued lead sync")
		}

		log.Info().Msg("Requeue complete")
	},
}

func init() {
	rootCmd.AddCommand(requeueCmd)
}
