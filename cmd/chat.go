/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/longkey1/llmcomm/internal/llmcomm/controller"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	model           string
	prompt          string
	argFlags        []string
	useEditor       bool
	conversationID  string
	newConversation bool
	interactive     bool
)

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Chat with the model",
	Long: `Send a message to the model and print the reply.

With a message (as arguments, from stdin, or composed in $EDITOR with --editor)
the message is sent once and the reply printed. Without a message on a
terminal, or with --interactive, an interactive session starts.

Messages are added to the conversation that was active last time unless --new
is given or --conversation selects another one (id prefix or 'latest'). A model
given with --model, or set by the prompt template, is remembered by that
conversation.

The prompt file should be in TOML format with the following structure:
system = "System prompt with optional {{key}} placeholders"
model = "optional-model-name"  # Optional: overrides the default model`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if conversationID != "" && newConversation {
			return fmt.Errorf("cannot specify both --conversation and --new")
		}

		cfg, err := loadConfig(model)
		if err != nil {
			return err
		}
		configured := cfg.Model
		client, err := newClient(cfg, prompt, argFlags, cmd.Flags().Changed("model"))
		if err != nil {
			return err
		}
		ctrl := newController(cfg, client)

		if err := selectConversation(ctrl); err != nil {
			return err
		}
		if cmd.Flags().Changed("model") || cfg.Model != configured {
			ctrl.SetModel(cfg.Model)
		}

		stdinIsTerminal := term.IsTerminal(int(os.Stdin.Fd()))
		if interactive || (len(args) == 0 && !useEditor && stdinIsTerminal) {
			r := newREPL(ctrl, os.Stdin, os.Stdout, os.Stderr)
			r.prompts = client
			r.promptDirs = cfg.PromptDirs
			return r.run(context.Background())
		}

		var message string
		if useEditor {
			message, err = getMessageFromEditor()
			if err != nil {
				return fmt.Errorf("getting message from editor: %w", err)
			}
		} else if len(args) > 0 {
			message = strings.Join(args, " ")
		} else {
			input, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("reading from stdin: %w", err)
			}
			message = string(input)
		}

		reply, err := sendOnce(context.Background(), ctrl, message)
		if err != nil {
			return err
		}
		fmt.Println(reply)
		return nil
	},
}

// selectConversation applies --conversation and --new. An empty current
// conversation is reused rather than creating another one.
func selectConversation(ctrl *controller.Controller) error {
	switch {
	case conversationID != "":
		conv, err := ctrl.FindConversation(conversationID)
		if err != nil {
			return fmt.Errorf("finding conversation: %w", err)
		}
		ctrl.SelectConversation(conv.ID)
	case newConversation && ctrl.Current().MessageCount() > 0:
		ctrl.NewConversation()
	}
	return nil
}

// sendOnce sends message in the current conversation and returns the reply.
func sendOnce(ctx context.Context, ctrl *controller.Controller, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("message is empty")
	}
	if !ctrl.HasAPIKey() {
		return "", fmt.Errorf("no API key configured; run 'llmcomm key set' or set OPENAI_API_KEY")
	}
	if err := ctrl.SendMessage(ctx, message); err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	msgs := ctrl.Messages()
	return msgs[len(msgs)-1].Content, nil
}

// getMessageFromEditor opens the default editor and returns the edited message
func getMessageFromEditor() (string, error) {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		return "", fmt.Errorf("EDITOR environment variable is not set")
	}

	tmpFile, err := os.CreateTemp("", "llmcomm-*.txt")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpFile.Close()
	defer os.Remove(tmpFile.Name())

	cmd := exec.Command(editor, tmpFile.Name())
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to open editor: %w", err)
	}

	content, err := os.ReadFile(tmpFile.Name())
	if err != nil {
		return "", fmt.Errorf("failed to read edited content: %w", err)
	}

	return strings.TrimSpace(string(content)), nil
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringVarP(&model, "model", "m", "", "Model to use (default from config)")
	chatCmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Name of the prompt template (without .toml extension)")
	chatCmd.Flags().StringArrayVar(&argFlags, "arg", []string{}, "Key-value pairs for prompt template (format: key:value)")
	chatCmd.Flags().BoolVarP(&useEditor, "editor", "e", false, "Use default editor (from EDITOR environment variable) to compose message")
	chatCmd.Flags().StringVarP(&conversationID, "conversation", "c", "", "Conversation ID (short or full UUID, or 'latest')")
	chatCmd.Flags().BoolVarP(&newConversation, "new", "n", false, "Start a new conversation")
	chatCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Start an interactive session")
}
