package cmd

import (
	"fmt"
	"strings"

	"github.com/longkey1/llmcomm/internal/llmcomm/config"
	"github.com/longkey1/llmcomm/internal/llmcomm/controller"
	"github.com/longkey1/llmcomm/internal/llmcomm/credential"
	"github.com/longkey1/llmcomm/internal/llmcomm/history"
	promptpkg "github.com/longkey1/llmcomm/internal/llmcomm/prompt"
	"github.com/longkey1/llmcomm/internal/openai"
	log "github.com/sirupsen/logrus"
)

// loadConfig loads the configuration, applying a --model flag when given.
func loadConfig(modelFlag string) (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if m := strings.TrimSpace(modelFlag); m != "" {
		cfg.Model = m
	}
	return cfg, nil
}

// newCredentialStore builds the keyring, file and environment backends
// described by cfg.
func newCredentialStore(cfg *config.Config) *credential.Store {
	var secure credential.Backend
	if cfg.UseKeyring {
		secure = credential.NewKeyringBackend(cfg.KeyringService)
	}
	return credential.NewStore(
		secure,
		credential.NewFileBackend(cfg.KeyPath()),
		credential.NewEnvBackend(cfg.APIKeyEnv),
	)
}

func newHistoryStore(cfg *config.Config) *history.Store {
	return history.NewStore(cfg.HistoryPath())
}

// newClient creates the completion client. The system prompt comes from
// the named prompt template if one is set, else from system_prompt. A model
// set by the template replaces cfg.Model unless overridden is true.
func newClient(cfg *config.Config, promptName string, args []string, overridden bool) (*openai.Client, error) {
	client := openai.NewClient(cfg)

	systemPrompt := cfg.SystemPrompt
	if promptName == "" {
		promptName = cfg.Prompt
	}
	if promptName != "" {
		vars, err := promptpkg.ParseArgs(args)
		if err != nil {
			return nil, fmt.Errorf("processing arguments: %w", err)
		}
		p, err := promptpkg.Resolve(promptName, cfg.PromptDirs, vars)
		if err != nil {
			return nil, fmt.Errorf("loading prompt: %w", err)
		}
		systemPrompt = p.System
		if p.Model != nil && !overridden {
			cfg.Model = strings.TrimSpace(*p.Model)
			log.WithField("model", cfg.Model).Debug("using model from prompt template")
		}
	}

	client.SetSystemPrompt(systemPrompt)
	return client, nil
}

// newController wires the stores and client into a controller.
func newController(cfg *config.Config, client controller.Completer) *controller.Controller {
	return controller.New(controller.Options{
		History:   newHistoryStore(cfg),
		Keys:      newCredentialStore(cfg),
		Completer: client,
		Model:     cfg.Model,
	})
}
