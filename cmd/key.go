package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/longkey1/llmcomm/internal/llmcomm/config"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// keyCmd represents the key command
var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the stored API key",
	Long: `Manage the API key used for requests.

The key is stored in the OS keyring (Keychain, Credential Manager or Secret
Service) when one is available, and otherwise in a file readable only by you.
When neither holds a key, the environment variable named by api_key_env
(default OPENAI_API_KEY) is used.`,
}

var keySetCmd = &cobra.Command{
	Use:   "set [api-key]",
	Short: "Store an API key",
	Long: `Store an API key. When no key is given as an argument it is read from
the terminal without echo, or from stdin when stdin is not a terminal.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig("")
		if err != nil {
			return err
		}

		var key string
		if len(args) > 0 {
			key = args[0]
		} else {
			key, err = readKey()
			if err != nil {
				return err
			}
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("API key is empty; use 'llmcomm key clear' to remove the stored key")
		}

		backend := newCredentialStore(cfg).SaveKey(key)
		if backend == "" {
			return fmt.Errorf("failed to store API key (run with --log-level=debug for details)")
		}
		fmt.Printf("API key saved (%s).\n", backend)
		return nil
	},
}

var keyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored API key",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig("")
		if err != nil {
			return err
		}
		store := newCredentialStore(cfg)
		store.SaveKey("")

		if source := store.Source(); source != "" {
			fmt.Printf("Stored API key removed. A key is still provided by %s.\n", source)
			return nil
		}
		fmt.Println("Stored API key removed.")
		return nil
	},
}

var keyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show where the API key is loaded from",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig("")
		if err != nil {
			return err
		}
		store := newCredentialStore(cfg)

		source := store.Source()
		if source == "" {
			fmt.Println("No API key configured.")
			fmt.Println("\nSet one with:\n  llmcomm key set")
			return nil
		}
		fmt.Printf("Source: %s\n", source)
		fmt.Printf("Key: %s\n", config.MaskToken(store.LoadKey()))
		return nil
	},
}

// readKey reads a key from the terminal without echo, or a line from stdin.
func readKey() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "API key: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading API key: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading API key: %w", err)
	}
	return line, nil
}

func init() {
	rootCmd.AddCommand(keyCmd)
	keyCmd.AddCommand(keySetCmd)
	keyCmd.AddCommand(keyClearCmd)
	keyCmd.AddCommand(keyStatusCmd)
}
