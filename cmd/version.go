/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/longkey1/llmcomm/internal/version"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Show detailed version information including:
- Version number
- Git commit SHA
- Build time
- Go version`,
	RunE: func(cmd *cobra.Command, args []string) error {
		short, _ := cmd.Flags().GetBool("short")
		if short {
			fmt.Println(version.Short())
			return nil
		}

		v := version.Get()
		const flag = "output"
		of, err := cmd.Flags().GetString(flag)
		if err != nil {
			return errors.Wrapf(err, "error accessing flag %s for command %s", flag, cmd.Name())
		}
		switch of {
		case "":
			fmt.Println(v.String())
		case "yaml":
			y, err := yaml.Marshal(&v)
			if err != nil {
				return err
			}
			fmt.Print(string(y))
		case "json":
			j, err := json.MarshalIndent(&v, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(j))
		default:
			return errors.Errorf("invalid output format: %s", of)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().BoolP("short", "s", false, "Show only version number")
	versionCmd.Flags().StringP("output", "o", "", "Output format; available options are 'yaml' and 'json'")
}
