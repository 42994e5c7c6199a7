package cmd

import (
	"fmt"
	"os"

	"github.com/marcus/fieldsync/internal/models"
	"github.com/marcus/fieldsync/internal/output"
	"github.com/spf13/cobra"
)

var evidenceCmd = &cobra.Command{
	Use:     "evidence",
	Aliases: []string{"ev"},
	Short:   "Manage captured evidence",
	GroupID: "capture",
}

var evidenceAddCmd = &cobra.Command{
	Use:   "add <inspection-id> <file>",
	Short: "Attach a capture to an inspection step",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		path := args[1]
		if _, err := os.Stat(path); err != nil {
			err = fmt.Errorf("evidence file: %w", err)
			output.Error("%v", err)
			return err
		}

		e := &models.Evidence{
			InspectionLocalID: args[0],
			LocalPath:         path,
		}
		e.Step, _ = cmd.Flags().GetInt("step")
		typ, _ := cmd.Flags().GetString("type")
		e.Type = models.EvidenceType(typ)
		e.Metadata, _ = cmd.Flags().GetString("metadata")
		if cmd.Flags().Changed("lat") {
			lat, _ := cmd.Flags().GetFloat64("lat")
			e.Latitude = &lat
		}
		if cmd.Flags().Changed("lon") {
			lon, _ := cmd.Flags().GetFloat64("lon")
			e.Longitude = &lon
		}

		if err := s.CreateEvidence(e); err != nil {
			output.Error("%v", err)
			return err
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			return output.JSON(e)
		}
		output.Success("Created %s", e.LocalID)
		return nil
	},
}

var evidenceListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List evidence",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		inspectionID, _ := cmd.Flags().GetString("inspection")
		items, err := s.ListEvidence(inspectionID)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			return output.JSON(items)
		}
		if len(items) == 0 {
			output.Info("No evidence")
			return nil
		}
		for i := range items {
			output.Info("%s", output.FormatEvidenceShort(&items[i]))
		}
		return nil
	},
}

var evidenceRmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Remove a local evidence record",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		if err := s.DeleteEvidence(args[0]); err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("Removed %s", args[0])
		return nil
	},
}

var evidenceRetryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Reset failed uploads so the next sync retries them",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		n, err := s.ResetEvidenceUploads()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		if n == 0 {
			output.Info("Nothing to retry")
			return nil
		}
		output.Success("Reset %d upload(s); run 'fieldsync sync' to retry", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(evidenceCmd)
	evidenceCmd.AddCommand(evidenceAddCmd, evidenceListCmd, evidenceRmCmd, evidenceRetryCmd)

	evidenceAddCmd.Flags().Int("step", 0, "Inspection step index")
	evidenceAddCmd.Flags().String("type", "photo", "Evidence type (photo|thermal|voice)")
	evidenceAddCmd.Flags().String("metadata", "", "Free-form metadata")
	evidenceAddCmd.Flags().Float64("lat", 0, "Capture latitude")
	evidenceAddCmd.Flags().Float64("lon", 0, "Capture longitude")
	evidenceAddCmd.Flags().Bool("json", false, "JSON output")

	evidenceListCmd.Flags().String("inspection", "", "Filter by inspection local ID")
	evidenceListCmd.Flags().Bool("json", false, "JSON output")
}
