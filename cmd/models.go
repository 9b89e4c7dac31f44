/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/longkey1/llmcomm/internal/openai"
	"github.com/spf13/cobra"
)

// modelsCmd represents the models command
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List available models",
	Long: `List the models available to the configured API key.
Fetches the latest model information directly from the API.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig("")
		if err != nil {
			return err
		}
		key := newCredentialStore(cfg).LoadKey()
		if key == "" {
			return fmt.Errorf("no API key configured; run 'llmcomm key set' or set %s", cfg.APIKeyEnv)
		}

		models, err := openai.NewClient(cfg).ListModels(context.Background(), key)
		if err != nil {
			return fmt.Errorf("failed to list models: %w", err)
		}
		if len(models) == 0 {
			return fmt.Errorf("no models returned from API")
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "MODEL\tOWNED BY\tCREATED\tDEFAULT")
		fmt.Fprintln(w, "-----\t--------\t-------\t-------")
		for _, m := range models {
			defaultMark := ""
			if m.ID == cfg.Model {
				defaultMark = "Yes"
			}
			created := "-"
			if m.Created > 0 {
				created = time.Unix(m.Created, 0).Format("2006-01-02")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.ID, m.OwnedBy, created, defaultMark)
		}
		w.Flush()

		fmt.Printf("\nUse a model with: llmcomm chat --model <model> [message]\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
