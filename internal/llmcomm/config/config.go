package config

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

const (
	DefaultModel          = "gpt-4o-mini"
	DefaultBaseURL        = "https://api.openai.com/v1"
	DefaultTimeout        = 3 * time.Minute
	DefaultHistoryFile    = "history.json"
	DefaultKeyFile        = "key"
	DefaultAPIKeyEnv      = "OPENAI_API_KEY"
	DefaultKeyringService = "llmcomm"
	DefaultRetentionDays  = 30
)

// Config holds the application configuration
type Config struct {
	Model          string        `toml:"model" mapstructure:"model"`
	BaseURL        string        `toml:"base_url" mapstructure:"base_url"`
	Timeout        time.Duration `toml:"-" mapstructure:"timeout"`
	DataDir        string        `toml:"data_dir" mapstructure:"data_dir"`
	HistoryFile    string        `toml:"history_file" mapstructure:"history_file"`
	KeyFile        string        `toml:"key_file" mapstructure:"key_file"`
	APIKeyEnv      string        `toml:"api_key_env" mapstructure:"api_key_env"`
	KeyringService string        `toml:"keyring_service" mapstructure:"keyring_service"`
	UseKeyring     bool          `toml:"use_keyring" mapstructure:"use_keyring"`
	SystemPrompt   string        `toml:"system_prompt" mapstructure:"system_prompt"`
	Prompt         string        `toml:"prompt" mapstructure:"prompt"`                 // Name of a prompt template in PromptDirs
	PromptDirs     []string      `toml:"prompt_dirs" mapstructure:"prompt_dirs"`       // Later directories take precedence
	RetentionDays  int           `toml:"retention_days" mapstructure:"retention_days"` // Age in days at which 'conversations clear' removes a conversation
}

// GetBaseURL returns the API base URL
func (c *Config) GetBaseURL() string {
	return c.BaseURL
}

// GetTimeout returns the request timeout
func (c *Config) GetTimeout() time.Duration {
	return c.Timeout
}

// HistoryPath returns the location of the history file
func (c *Config) HistoryPath() string {
	return c.dataPath(c.HistoryFile)
}

// KeyPath returns the location of the plain-file credential
func (c *Config) KeyPath() string {
	return c.dataPath(c.KeyFile)
}

func (c *Config) dataPath(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

// NewDefaultConfig returns a new Config with default values
func NewDefaultConfig(dataDir string) *Config {
	return &Config{
		Model:          DefaultModel,
		BaseURL:        DefaultBaseURL,
		Timeout:        DefaultTimeout,
		DataDir:        dataDir,
		HistoryFile:    DefaultHistoryFile,
		KeyFile:        DefaultKeyFile,
		APIKeyEnv:      DefaultAPIKeyEnv,
		KeyringService: DefaultKeyringService,
		UseKeyring:     true,
		PromptDirs:     []string{filepath.Join(dataDir, "prompts")},
		RetentionDays:  DefaultRetentionDays,
	}
}

// SetDefaults registers the defaults of cfg with viper.
func SetDefaults(cfg *Config) {
	viper.SetDefault("model", cfg.Model)
	viper.SetDefault("base_url", cfg.BaseURL)
	viper.SetDefault("timeout", cfg.Timeout)
	viper.SetDefault("data_dir", cfg.DataDir)
	viper.SetDefault("history_file", cfg.HistoryFile)
	viper.SetDefault("key_file", cfg.KeyFile)
	viper.SetDefault("api_key_env", cfg.APIKeyEnv)
	viper.SetDefault("keyring_service", cfg.KeyringService)
	viper.SetDefault("use_keyring", cfg.UseKeyring)
	viper.SetDefault("system_prompt", cfg.SystemPrompt)
	viper.SetDefault("prompt", cfg.Prompt)
	viper.SetDefault("prompt_dirs", cfg.PromptDirs)
	viper.SetDefault("retention_days", cfg.RetentionDays)
}

// LoadConfig loads configuration from viper
func LoadConfig() (*Config, error) {
	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	config.BaseURL = expandEnvVar(config.BaseURL)
	config.SystemPrompt = expandEnvVar(config.SystemPrompt)
	config.DataDir = expandEnvVar(config.DataDir)

	if config.DataDir != "" {
		dataDir, err := ResolvePath(config.DataDir)
		if err != nil {
			return nil, fmt.Errorf("error resolving data directory path '%s': %w", config.DataDir, err)
		}
		config.DataDir = dataDir
	}

	// Convert prompt directories to absolute paths
	for i, promptDir := range config.PromptDirs {
		absPath, err := ResolvePath(expandEnvVar(promptDir))
		if err != nil {
			return nil, fmt.Errorf("error resolving prompt directory path '%s': %w", promptDir, err)
		}
		config.PromptDirs[i] = absPath
	}

	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.RetentionDays <= 0 {
		config.RetentionDays = DefaultRetentionDays
	}

	return config, nil
}

// WriteTOML writes c as a config file. Timeout is written in
// time.ParseDuration form.
func (c *Config) WriteTOML(w io.Writer) error {
	file := struct {
		Model          string   `toml:"model"`
		BaseURL        string   `toml:"base_url"`
		Timeout        string   `toml:"timeout"`
		DataDir        string   `toml:"data_dir"`
		HistoryFile    string   `toml:"history_file"`
		KeyFile        string   `toml:"key_file"`
		APIKeyEnv      string   `toml:"api_key_env"`
		KeyringService string   `toml:"keyring_service"`
		UseKeyring     bool     `toml:"use_keyring"`
		SystemPrompt   string   `toml:"system_prompt"`
		Prompt         string   `toml:"prompt"`
		PromptDirs     []string `toml:"prompt_dirs"`
		RetentionDays  int      `toml:"retention_days"`
	}{
		Model:          c.Model,
		BaseURL:        c.BaseURL,
		Timeout:        c.Timeout.String(),
		DataDir:        c.DataDir,
		HistoryFile:    c.HistoryFile,
		KeyFile:        c.KeyFile,
		APIKeyEnv:      c.APIKeyEnv,
		KeyringService: c.KeyringService,
		UseKeyring:     c.UseKeyring,
		SystemPrompt:   c.SystemPrompt,
		Prompt:         c.Prompt,
		PromptDirs:     c.PromptDirs,
		RetentionDays:  c.RetentionDays,
	}
	if err := toml.NewEncoder(w).Encode(file); err != nil {
		return fmt.Errorf("error encoding config: %w", err)
	}
	return nil
}
