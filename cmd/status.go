package cmd

import (
	"github.com/marcus/fieldsync/internal/models"
	"github.com/marcus/fieldsync/internal/output"
	"github.com/marcus/fieldsync/internal/syncconfig"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show connectivity, pending work, and recent sync activity",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		_, mon, client, err := buildEngine(s)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		probeOnce(cmd.Context(), client, mon)

		counts, err := s.GetPendingCounts()
		if err != nil {
			output.Error("%v", err)
			return err
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			return output.JSON(map[string]any{
				"online":  mon.IsOnline(),
				"status":  mon.Status(),
				"server":  syncconfig.GetServerURL(),
				"pending": counts,
			})
		}

		if mon.IsOnline() {
			output.Success("Online (%s)", syncconfig.GetServerURL())
		} else {
			output.Warning("Offline (%s unreachable)", syncconfig.GetServerURL())
		}

		if counts.Total() == 0 {
			output.Info("Everything synced")
		} else {
			output.Info("Pending: %d properties, %d inspections, %d evidence (%d queued)",
				counts.Properties, counts.Inspections, counts.Evidence, counts.QueueEntries)
		}
		if counts.Abandoned > 0 {
			output.Warning("%d abandoned entries; run 'fieldsync sync --retry-abandoned'", counts.Abandoned)
		}

		failed, err := s.ListQueueEntriesByStatus(models.QueueFailed)
		if err != nil {
			return err
		}
		for i := range failed {
			e := &failed[i]
			output.Warning("  retrying %s/%s %s (attempt %d): %s",
				e.EntityType, e.EntityID, e.Action, e.RetryCount, e.LastError)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().Bool("json", false, "JSON output")
}
