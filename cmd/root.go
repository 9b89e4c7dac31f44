/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"
	"path/filepath"

	"github.com/longkey1/llmcomm/internal/llmcomm/config"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const appName = "llmcomm"

var (
	cfgFile  string
	logLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "A chat client for OpenAI-compatible LLM APIs",
	Long: `llmcomm keeps a list of conversations with a hosted language model.
Conversations are saved locally and can be continued later, either
interactively or one message at a time.

Configuration is read from a TOML file and LLMCOMM_* environment variables.
The API key is kept in the OS keyring when one is available.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initLogging, initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/llmcomm/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (trace,debug,info,warn,error)")
}

func initLogging() {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		log.WithError(err).Fatal("cannot parse log-level")
	}
	log.SetLevel(level)
	log.SetOutput(os.Stderr)

	// Add some millisecond precision to log timestamps
	formatter := new(log.TextFormatter)
	formatter.TimestampFormat = "2006-01-02T15:04:05.999Z07:00"
	formatter.FullTimestamp = true
	log.SetFormatter(formatter)
}

// userConfigDir returns $HOME/.config/llmcomm
func userConfigDir() string {
	home, err := os.UserHomeDir()
	cobra.CheckErr(err)
	return filepath.Join(home, ".config", appName)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	viper.SetEnvPrefix("LLMCOMM")
	viper.AutomaticEnv()

	dataDir := userConfigDir()
	defaults := config.NewDefaultConfig(dataDir)
	// Later directories in the list take precedence over earlier ones
	defaults.PromptDirs = []string{
		"/usr/share/llmcomm/prompts",
		"/usr/local/share/llmcomm/prompts",
		filepath.Join(dataDir, "prompts"),
	}
	config.SetDefaults(defaults)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			log.WithError(err).WithField("path", cfgFile).Error("error reading config file")
		}
	} else {
		// System-wide config first, user config merged on top
		viper.SetConfigType("toml")
		viper.SetConfigName("config")
		viper.AddConfigPath("/etc/llmcomm")
		viper.AddConfigPath("/usr/local/etc/llmcomm")

		systemConfigLoaded := false
		if err := viper.ReadInConfig(); err == nil {
			systemConfigLoaded = true
			log.WithField("path", viper.ConfigFileUsed()).Debug("loaded system-wide config")
		}

		viper.AddConfigPath(dataDir)
		var err error
		if systemConfigLoaded {
			err = mergeUserConfig(dataDir)
		} else {
			err = viper.ReadInConfig()
		}
		if err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				log.WithError(err).Error("error reading user config file")
			}
		}
	}

	log.WithFields(log.Fields{
		"config": viper.ConfigFileUsed(),
		"model":  viper.GetString("model"),
	}).Debug("configuration loaded")
}

// mergeUserConfig merges $dataDir/config.toml over the system config.
func mergeUserConfig(dataDir string) error {
	path := filepath.Join(dataDir, "config.toml")
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := viper.MergeConfig(f); err != nil {
		return err
	}
	log.WithField("path", path).Debug("merged user config")
	return nil
}
