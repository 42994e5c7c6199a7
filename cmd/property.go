package cmd

import (
	"github.com/marcus/fieldsync/internal/models"
	"github.com/marcus/fieldsync/internal/output"
	"github.com/spf13/cobra"
)

var propertyCmd = &cobra.Command{
	Use:     "property",
	Aliases: []string{"prop"},
	Short:   "Manage properties",
	GroupID: "capture",
}

var propertyAddCmd = &cobra.Command{
	Use:   "add <address>",
	Short: "Add a property",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		p := &models.Property{Address: args[0]}
		p.City, _ = cmd.Flags().GetString("city")
		p.PostalCode, _ = cmd.Flags().GetString("postal-code")
		p.OwnerName, _ = cmd.Flags().GetString("owner")
		p.Notes, _ = cmd.Flags().GetString("notes")

		if err := s.CreateProperty(p); err != nil {
			output.Error("%v", err)
			return err
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			return output.JSON(p)
		}
		output.Success("Created %s", p.LocalID)
		return nil
	},
}

var propertyListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List properties",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		props, err := s.ListProperties()
		if err != nil {
			output.Error("%v", err)
			return err
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			return output.JSON(props)
		}
		if len(props) == 0 {
			output.Info("No properties")
			return nil
		}
		for i := range props {
			output.Info("%s", output.FormatPropertyShort(&props[i]))
		}
		return nil
	},
}

var propertyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a property",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		p, err := s.GetProperty(args[0])
		if err != nil {
			output.Error("%v", err)
			return err
		}
		return output.JSON(p)
	},
}

var propertyUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a property",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		p, err := s.GetProperty(args[0])
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if cmd.Flags().Changed("address") {
			p.Address, _ = cmd.Flags().GetString("address")
		}
		if cmd.Flags().Changed("city") {
			p.City, _ = cmd.Flags().GetString("city")
		}
		if cmd.Flags().Changed("postal-code") {
			p.PostalCode, _ = cmd.Flags().GetString("postal-code")
		}
		if cmd.Flags().Changed("owner") {
			p.OwnerName, _ = cmd.Flags().GetString("owner")
		}
		if cmd.Flags().Changed("notes") {
			p.Notes, _ = cmd.Flags().GetString("notes")
		}

		if err := s.UpdateProperty(p); err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("Updated %s", p.LocalID)
		return nil
	},
}

var propertyRmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete a property",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		if err := s.DeleteProperty(args[0]); err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("Deleted %s", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(propertyCmd)
	propertyCmd.AddCommand(propertyAddCmd, propertyListCmd, propertyShowCmd, propertyUpdateCmd, propertyRmCmd)

	propertyAddCmd.Flags().String("city", "", "City")
	propertyAddCmd.Flags().String("postal-code", "", "Postal code")
	propertyAddCmd.Flags().String("owner", "", "Owner name")
	propertyAddCmd.Flags().String("notes", "", "Notes")
	propertyAddCmd.Flags().Bool("json", false, "JSON output")

	propertyListCmd.Flags().Bool("json", false, "JSON output")

	propertyUpdateCmd.Flags().String("address", "", "Address")
	propertyUpdateCmd.Flags().String("city", "", "City")
	propertyUpdateCmd.Flags().String("postal-code", "", "Postal code")
	propertyUpdateCmd.Flags().String("owner", "", "Owner name")
	propertyUpdateCmd.Flags().String("notes", "", "Notes")
}
