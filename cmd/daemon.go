package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/marcus/fieldsync/internal/output"
	"github.com/marcus/fieldsync/internal/syncconfig"
	"github.com/spf13/cobra"
)

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	Short:   "Run background sync until interrupted",
	GroupID: "sync",
	Long: `Probes the server on an interval, triggers a sync pass whenever
connectivity returns and on a fixed schedule, and exits on SIGINT/SIGTERM.`,
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

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		interval := syncconfig.GetAutoSyncInterval()
		if cmd.Flags().Changed("interval") {
			interval, _ = cmd.Flags().GetDuration("interval")
		}

		mon.StartProbe(ctx, client, syncconfig.GetProbeInterval())
		eng.StartAutoSync(interval)
		defer eng.StopAutoSync()

		slog.Info("daemon started", "interval", interval, "server", syncconfig.GetServerURL())
		output.Info("Syncing every %s; Ctrl-C to stop", interval)

		<-ctx.Done()
		slog.Info("daemon stopping")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.Flags().Duration("interval", 0, "Sync interval (overrides config)")
}
