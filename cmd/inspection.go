package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/marcus/fieldsync/internal/models"
	"github.com/marcus/fieldsync/internal/output"
	"github.com/spf13/cobra"
)

var inspectionCmd = &cobra.Command{
	Use:     "inspection",
	Aliases: []string{"insp"},
	Short:   "Manage inspections",
	GroupID: "capture",
}

var inspectionAddCmd = &cobra.Command{
	Use:   "add <property-id>",
	Short: "Start an inspection against a property",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		i := &models.Inspection{PropertyLocalID: args[0]}
		i.Kind, _ = cmd.Flags().GetString("kind")

		if steps, _ := cmd.Flags().GetString("steps"); steps != "" {
			if !json.Valid([]byte(steps)) {
				err := fmt.Errorf("--steps must be valid JSON")
				output.Error("%v", err)
				return err
			}
			i.StepData = []byte(steps)
		}

		if err := s.CreateInspection(i); err != nil {
			output.Error("%v", err)
			return err
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			return output.JSON(i)
		}
		output.Success("Created %s", i.LocalID)
		return nil
	},
}

var inspectionListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List inspections",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		propertyID, _ := cmd.Flags().GetString("property")
		inspections, err := s.ListInspections(propertyID)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			return output.JSON(inspections)
		}
		if len(inspections) == 0 {
			output.Info("No inspections")
			return nil
		}
		for i := range inspections {
			output.Info("%s", output.FormatInspectionShort(&inspections[i]))
		}
		return nil
	},
}

var inspectionShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an inspection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		i, err := s.GetInspection(args[0])
		if err != nil {
			output.Error("%v", err)
			return err
		}
		return output.JSON(i)
	},
}

var inspectionUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update an inspection's step data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		i, err := s.GetInspection(args[0])
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if cmd.Flags().Changed("kind") {
			i.Kind, _ = cmd.Flags().GetString("kind")
		}
		if cmd.Flags().Changed("steps") {
			steps, _ := cmd.Flags().GetString("steps")
			if !json.Valid([]byte(steps)) {
				err := fmt.Errorf("--steps must be valid JSON")
				output.Error("%v", err)
				return err
			}
			i.StepData = []byte(steps)
		}
		if complete, _ := cmd.Flags().GetBool("complete"); complete {
			i.Completed = true
		}

		if err := s.UpdateInspection(i); err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("Updated %s", i.LocalID)
		return nil
	},
}

var inspectionRmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete an inspection",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		if err := s.DeleteInspection(args[0]); err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("Deleted %s", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectionCmd)
	inspectionCmd.AddCommand(inspectionAddCmd, inspectionListCmd, inspectionShowCmd, inspectionUpdateCmd, inspectionRmCmd)

	inspectionAddCmd.Flags().String("kind", "standard", "Inspection kind")
	inspectionAddCmd.Flags().String("steps", "", "Step data as JSON")
	inspectionAddCmd.Flags().Bool("json", false, "JSON output")

	inspectionListCmd.Flags().String("property", "", "Filter by property local ID")
	inspectionListCmd.Flags().Bool("json", false, "JSON output")

	inspectionUpdateCmd.Flags().String("kind", "", "Inspection kind")
	inspectionUpdateCmd.Flags().String("steps", "", "Step data as JSON")
	inspectionUpdateCmd.Flags().Bool("complete", false, "Mark the inspection completed")
}
