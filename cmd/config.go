package cmd

import (
	"fmt"
	"strings"

	"github.com/longkey1/llmcomm/internal/llmcomm/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configFields = []string{
	"configfile", "model", "base_url", "timeout", "data_dir", "history_file",
	"key_file", "api_key", "api_key_env", "use_keyring", "prompt", "prompt_dirs",
	"retention_days",
}

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config [field]",
	Short: "Display current configuration",
	Long: `Display the current configuration values.
This command shows all configuration values loaded from the config file and environment variables.
The API key is shown masked, together with where it was loaded from.

If a field name is specified, only that field's value is displayed.
Available fields: ` + strings.Join(configFields, ", ") + `

Examples:
  llmcomm config                # Show all configuration
  llmcomm config model          # Show only model
  llmcomm config history_file   # Show the history file path`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig("")
		if err != nil {
			return err
		}

		values := configValues(cfg)
		if len(args) > 0 {
			field := strings.ToLower(args[0])
			value, ok := values[field]
			if !ok {
				return fmt.Errorf("unknown field: %s\nAvailable fields: %s", args[0], strings.Join(configFields, ", "))
			}
			fmt.Println(value)
			return nil
		}

		for _, field := range configFields {
			fmt.Printf("%s: %s\n", field, values[field])
		}
		return nil
	},
}

func configValues(cfg *config.Config) map[string]string {
	store := newCredentialStore(cfg)
	apiKey := config.MaskToken(store.LoadKey())
	if source := store.Source(); source != "" {
		apiKey += " (" + source + ")"
	}

	return map[string]string{
		"configfile":     viper.ConfigFileUsed(),
		"model":          cfg.Model,
		"base_url":       cfg.BaseURL,
		"timeout":        cfg.Timeout.String(),
		"data_dir":       cfg.DataDir,
		"history_file":   cfg.HistoryPath(),
		"key_file":       cfg.KeyPath(),
		"api_key":        apiKey,
		"api_key_env":    cfg.APIKeyEnv,
		"use_keyring":    fmt.Sprintf("%t", cfg.UseKeyring),
		"prompt":         cfg.Prompt,
		"prompt_dirs":    strings.Join(cfg.PromptDirs, ","),
		"retention_days": fmt.Sprintf("%d", cfg.RetentionDays),
	}
}

func init() {
	rootCmd.AddCommand(configCmd)
}
