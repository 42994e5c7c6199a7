package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/marcus/fieldsync/internal/output"
	"github.com/marcus/fieldsync/internal/store"
	"github.com/marcus/fieldsync/internal/syncconfig"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:     "init",
	Short:   "Initialize the local fieldsync database",
	Long:    `Creates the local .fieldsync directory and SQLite database, and optionally records the sync server settings.`,
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		baseDir := getBaseDir()

		if _, err := os.Stat(filepath.Join(baseDir, ".fieldsync")); err == nil {
			output.Warning(".fieldsync/ already exists")
			return nil
		}

		s, err := store.Initialize(baseDir)
		if err != nil {
			output.Error("failed to initialize database: %v", err)
			return err
		}
		defer s.Close()

		fmt.Println("INITIALIZED .fieldsync/")

		serverURL, _ := cmd.Flags().GetString("server")
		userID, _ := cmd.Flags().GetString("user")

		if serverURL == "" && userID == "" {
			interactive, _ := cmd.Flags().GetBool("interactive")
			if interactive {
				form := huh.NewForm(
					huh.NewGroup(
						huh.NewInput().
							Title("Sync server URL").
							Placeholder("http://localhost:8080").
							Value(&serverURL),
						huh.NewInput().
							Title("User ID").
							Value(&userID),
					),
				)
				if err := form.Run(); err != nil {
					return fmt.Errorf("prompt: %w", err)
				}
			}
		}

		if serverURL != "" || userID != "" {
			cfg, err := syncconfig.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if serverURL != "" {
				cfg.Sync.URL = serverURL
			}
			if userID != "" {
				cfg.Sync.UserID = userID
			}
			if err := syncconfig.SaveConfig(cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			output.Success("Saved sync settings")
		}

		deviceID, err := syncconfig.GetDeviceID()
		if err != nil {
			return fmt.Errorf("device id: %w", err)
		}
		fmt.Printf("Device: %s\n", deviceID)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().String("server", "", "Sync server URL")
	initCmd.Flags().String("user", "", "User ID owning the local data")
	initCmd.Flags().BoolP("interactive", "i", false, "Prompt for sync settings")
}
