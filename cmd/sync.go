package cmd

import (
	"github.com/marcus/fieldsync/internal/models"
	"github.com/marcus/fieldsync/internal/output"
	"github.com/marcus/fieldsync/internal/store"
	"github.com/marcus/fieldsync/internal/syncconfig"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	Short:   "Push pending local changes to the server",
	GroupID: "sync",
	Long: `Runs one sync pass: drains the pending mutation queue in order, then
uploads evidence whose parent inspection the server knows about.

With --status, shows what is waiting instead of syncing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		if showStatus, _ := cmd.Flags().GetBool("status"); showStatus {
			return printSyncStatus(s)
		}

		if retryAbandoned, _ := cmd.Flags().GetBool("retry-abandoned"); retryAbandoned {
			n, err := s.ResetAbandonedQueueEntries()
			if err != nil {
				output.Error("%v", err)
				return err
			}
			output.Info("Reset %d abandoned entries", n)
		}

		eng, mon, client, err := buildEngine(s)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		ctx := cmd.Context()
		probeOnce(ctx, client, mon)

		res, err := eng.TriggerSync(ctx)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			return output.JSON(res)
		}

		for _, msg := range res.Errors {
			output.Warning("%s", msg)
		}
		if res.Success {
			output.Success("Synced %d item(s)", res.SyncedItems)
		} else {
			output.Error("synced %d, failed %d", res.SyncedItems, res.FailedItems)
		}
		return nil
	},
}

func printSyncStatus(s *store.Store) error {
	counts, err := s.GetPendingCounts()
	if err != nil {
		output.Error("%v", err)
		return err
	}

	output.Info("Pending: %d properties, %d inspections, %d evidence (%d queued)",
		counts.Properties, counts.Inspections, counts.Evidence, counts.QueueEntries)

	if counts.Abandoned > 0 {
		output.Warning("%d abandoned entries; run 'fieldsync sync --retry-abandoned'", counts.Abandoned)
		abandoned, err := s.ListQueueEntriesByStatus(models.QueueAbandoned)
		if err != nil {
			return err
		}
		for i := range abandoned {
			e := &abandoned[i]
			output.Info("  %s/%s %s: %s", e.EntityType, e.EntityID, e.Action, e.LastError)
		}
	}

	history, err := s.GetSyncHistoryTail(10)
	if err != nil {
		return err
	}
	if len(history) > 0 {
		output.Info("%s", output.SectionHeader("recent sync activity"))
		for i := range history {
			h := &history[i]
			line := h.Direction + " " + h.ActionType + " " + h.EntityType + "/" + h.EntityID + " " + h.Outcome
			if h.Detail != "" {
				line += " (" + h.Detail + ")"
			}
			output.Info("  %s  %s", h.Timestamp.Format("15:04:05"), line)
		}
	}

	return nil
}

var pullCmd = &cobra.Command{
	Use:     "pull",
	Short:   "Pull server data into the local mirror",
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		eng, mon, client, err := buildEngine(s)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		ctx := cmd.Context()
		probeOnce(ctx, client, mon)

		userID, _ := cmd.Flags().GetString("user")
		if userID == "" {
			userID = syncconfig.GetUserID()
		}

		res, err := eng.PullServerData(ctx, userID)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			return output.JSON(res)
		}
		output.Success("Pulled: %d new, %d updated, %d kept local, %d awaiting push",
			res.Inserted, res.Updated, res.SkippedLocal, res.SkippedQueued)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(pullCmd)

	syncCmd.Flags().Bool("status", false, "Show pending work instead of syncing")
	syncCmd.Flags().Bool("retry-abandoned", false, "Reset abandoned queue entries before syncing")
	syncCmd.Flags().Bool("json", false, "JSON output")

	pullCmd.Flags().String("user", "", "User ID to pull data for")
	pullCmd.Flags().Bool("json", false, "JSON output")
}
