package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/marcus/fieldsync/internal/output"
	"github.com/marcus/fieldsync/internal/syncconfig"
	"github.com/spf13/cobra"
)

// validConfigKeys lists the supported config keys for set/get.
var validConfigKeys = []string{
	"sync.url",
	"sync.user",
	"sync.auto.enabled",
	"sync.auto.interval",
	"sync.auto.probe",
}

func isValidConfigKey(key string) bool {
	for _, k := range validConfigKeys {
		if k == key {
			return true
		}
	}
	return false
}

func parseBool(val string) (bool, error) {
	switch strings.ToLower(val) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value %q (use true/false/1/0)", val)
	}
}

func boolPtr(b bool) *bool { return &b }

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Manage fieldsync configuration",
	GroupID: "system",
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if !isValidConfigKey(key) {
			err := fmt.Errorf("unknown config key %q (valid: %s)", key, strings.Join(validConfigKeys, ", "))
			output.Error("%v", err)
			return err
		}

		cfg, err := syncconfig.LoadConfig()
		if err != nil {
			output.Error("%v", err)
			return err
		}

		switch key {
		case "sync.url":
			cfg.Sync.URL = val
		case "sync.user":
			cfg.Sync.UserID = val
		case "sync.auto.enabled":
			b, err := parseBool(val)
			if err != nil {
				output.Error("%v", err)
				return err
			}
			cfg.Sync.Auto.Enabled = boolPtr(b)
		case "sync.auto.interval":
			if _, err := time.ParseDuration(val); err != nil {
				err = fmt.Errorf("invalid duration %q: %w", val, err)
				output.Error("%v", err)
				return err
			}
			cfg.Sync.Auto.Interval = val
		case "sync.auto.probe":
			if _, err := time.ParseDuration(val); err != nil {
				err = fmt.Errorf("invalid duration %q: %w", val, err)
				output.Error("%v", err)
				return err
			}
			cfg.Sync.Auto.Probe = val
		}

		if err := syncconfig.SaveConfig(cfg); err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("Set %s = %s", key, val)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Show config values",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := syncconfig.LoadConfig()
		if err != nil {
			output.Error("%v", err)
			return err
		}

		values := map[string]string{
			"sync.url":           cfg.Sync.URL,
			"sync.user":          cfg.Sync.UserID,
			"sync.auto.enabled":  fmt.Sprintf("%v", syncconfig.GetAutoSyncEnabled()),
			"sync.auto.interval": syncconfig.GetAutoSyncInterval().String(),
			"sync.auto.probe":    syncconfig.GetProbeInterval().String(),
		}

		if len(args) == 1 {
			key := args[0]
			if !isValidConfigKey(key) {
				err := fmt.Errorf("unknown config key %q", key)
				output.Error("%v", err)
				return err
			}
			fmt.Println(values[key])
			return nil
		}

		for _, k := range validConfigKeys {
			fmt.Printf("%s = %s\n", k, values[k])
		}
		return nil
	},
}

var configTokenCmd = &cobra.Command{
	Use:   "token <set|clear>",
	Short: "Manage the stored API token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "set":
			token, _ := cmd.Flags().GetString("value")
			if token == "" {
				err := fmt.Errorf("--value is required for token set")
				output.Error("%v", err)
				return err
			}
			creds, err := syncconfig.LoadAuth()
			if err != nil {
				output.Error("%v", err)
				return err
			}
			if creds == nil {
				creds = &syncconfig.AuthCredentials{}
			}
			creds.Token = token
			creds.ServerURL = syncconfig.GetServerURL()
			if err := syncconfig.SaveAuth(creds); err != nil {
				output.Error("%v", err)
				return err
			}
			output.Success("Token saved")
		case "clear":
			if err := syncconfig.ClearAuth(); err != nil {
				output.Error("%v", err)
				return err
			}
			output.Success("Token cleared")
		default:
			err := fmt.Errorf("unknown token action %q (use set or clear)", args[0])
			output.Error("%v", err)
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configSetCmd, configGetCmd, configTokenCmd)

	configTokenCmd.Flags().String("value", "", "Token value for 'set'")
}
