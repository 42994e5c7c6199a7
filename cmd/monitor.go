package cmd

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/marcus/fieldsync/internal/output"
	"github.com/marcus/fieldsync/internal/tui/monitor"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live TUI dashboard for connectivity and sync progress",
	Long: `Launch a live-updating TUI dashboard showing:
- Connectivity and sync engine state
- Pending properties, inspections, evidence, and queued mutations
- Recent sync history

Key bindings:
  s              Trigger a sync pass now
  r              Force refresh
  q              Quit`,
	GroupID: "system",
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
		probeOnce(cmd.Context(), client, mon)

		interval, _ := cmd.Flags().GetDuration("interval")
		if interval < 500*time.Millisecond {
			interval = 2 * time.Second
		}

		model := monitor.NewModel(s, eng, mon, interval, version)

		p := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("error running monitor: %w", err)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().Duration("interval", 2*time.Second, "Refresh interval (default 2s)")
}
