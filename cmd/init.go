package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/longkey1/llmcomm/internal/llmcomm/config"
	"github.com/spf13/cobra"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the configuration file",
	Long: `Initialize the configuration file with default settings.
The config file will be created at $HOME/.config/llmcomm/config.toml by default.
You can specify a different location using the --config option.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configFile := filepath.Join(userConfigDir(), "config.toml")
		if cfgFile != "" {
			configFile = cfgFile
		}
		return writeDefaultConfig(configFile)
	},
}

// writeDefaultConfig creates configFile with default values and the
// prompts directory next to it. An existing file is left untouched.
func writeDefaultConfig(configFile string) error {
	configDir := filepath.Dir(configFile)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at: %s", configFile)
	}

	cfg := config.NewDefaultConfig(configDir)
	f, err := os.Create(configFile)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := cfg.WriteTOML(f); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	promptsDir := filepath.Join(configDir, "prompts")
	if err := os.MkdirAll(promptsDir, 0755); err != nil {
		return fmt.Errorf("failed to create prompts directory: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configFile)
	fmt.Printf("Prompts directory created at: %s\n", promptsDir)
	return nil
}

func init() {
	rootCmd.AddCommand(initCmd)
}
