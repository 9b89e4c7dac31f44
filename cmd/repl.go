package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/longkey1/llmcomm/internal/llmcomm/controller"
	promptpkg "github.com/longkey1/llmcomm/internal/llmcomm/prompt"
)

// systemPrompter holds the system prompt sent with every request.
type systemPrompter interface {
	SystemPrompt() string
	SetSystemPrompt(prompt string)
}

// repl is the interactive chat loop. Replies go to out, everything else
// to errOut, so that out can be piped.
type repl struct {
	ctrl   *controller.Controller
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	// prompts is nil when the session has no client to configure.
	prompts    systemPrompter
	promptDirs []string
}

func newREPL(ctrl *controller.Controller, in io.Reader, out, errOut io.Writer) *repl {
	return &repl{ctrl: ctrl, in: in, out: out, errOut: errOut}
}

// run reads lines until EOF or /exit.
func (r *repl) run(ctx context.Context) error {
	unsubscribe := r.ctrl.Subscribe(func(ch controller.Change) {
		switch ch {
		case controller.ChangeSending:
			if r.ctrl.Sending() {
				fmt.Fprint(r.errOut, "Waiting for response...\n")
			}
		case controller.ChangeError:
			if msg := r.ctrl.LastError(); msg != "" {
				fmt.Fprintf(r.errOut, "Error: %s\n", msg)
			}
		}
	})
	defer unsubscribe()

	r.printHeader()

	scanner := bufio.NewScanner(r.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(r.errOut, "You> ")

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("input error: %w", err)
			}
			fmt.Fprintln(r.errOut, "\nGoodbye!")
			return nil
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if r.handleCommand(input) {
				continue
			}
			return nil
		}

		if !r.ctrl.HasAPIKey() {
			fmt.Fprintln(r.errOut, "No API key configured. Set one with /key <api-key> or 'llmcomm key set'.")
			continue
		}

		// Failures are reported by the error observer.
		if err := r.ctrl.SendMessage(ctx, input); err != nil {
			continue
		}
		msgs := r.ctrl.Messages()
		if len(msgs) > 0 {
			fmt.Fprintf(r.out, "\nAssistant> %s\n\n", msgs[len(msgs)-1].Content)
		}
	}
}

func (r *repl) printHeader() {
	conv := r.ctrl.Current()
	fmt.Fprintf(r.errOut, "\n=== %s [%s] ===\n", conv.DisplayTitle(), conv.ShortID())
	fmt.Fprintf(r.errOut, "Model: %s\n", r.ctrl.Model())
	fmt.Fprintf(r.errOut, "Type '/help' for commands, '/exit' or 'Ctrl+D' to quit\n\n")
}

// handleCommand processes a slash command.
// Returns true to continue the loop, false to exit.
func (r *repl) handleCommand(line string) bool {
	fields := strings.Fields(line)
	command := strings.ToLower(fields[0])
	arg := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

	switch command {
	case "/help", "/h":
		fmt.Fprintln(r.errOut, "\nAvailable commands:")
		fmt.Fprintln(r.errOut, "  /new              - Start a new conversation")
		fmt.Fprintln(r.errOut, "  /list             - List conversations")
		fmt.Fprintln(r.errOut, "  /select <id>      - Switch to a conversation (id prefix or 'latest')")
		fmt.Fprintln(r.errOut, "  /delete [id]      - Delete a conversation (default: current)")
		fmt.Fprintln(r.errOut, "  /rename <title>   - Rename the current conversation")
		fmt.Fprintln(r.errOut, "  /history          - Show the messages of the current conversation")
		fmt.Fprintln(r.errOut, "  /model [name]     - Show or change the model")
		fmt.Fprintln(r.errOut, "  /system [text]    - Show or set the system prompt ('/system clear' removes it)")
		fmt.Fprintln(r.errOut, "  /prompt <name> [key:value...] - Use a prompt template")
		fmt.Fprintln(r.errOut, "  /prompts          - List prompt templates")
		fmt.Fprintln(r.errOut, "  /key <api-key>    - Store an API key")
		fmt.Fprintln(r.errOut, "  /info, /i         - Show conversation information")
		fmt.Fprintln(r.errOut, "  /exit, /quit      - Exit interactive mode")
		fmt.Fprintln(r.errOut, "")

	case "/new", "/n":
		conv := r.ctrl.NewConversation()
		fmt.Fprintf(r.errOut, "Started conversation %s\n", conv.ShortID())

	case "/list", "/l":
		printConversations(r.errOut, r.ctrl.Conversations(), r.ctrl.Current())

	case "/select", "/s":
		if arg == "" {
			fmt.Fprintln(r.errOut, "Usage: /select <id>")
			break
		}
		conv, err := r.ctrl.FindConversation(arg)
		if err != nil {
			fmt.Fprintf(r.errOut, "%v\n", err)
			break
		}
		r.ctrl.SelectConversation(conv.ID)
		fmt.Fprintf(r.errOut, "Switched to %s (%s, %d messages)\n", conv.ShortID(), conv.DisplayTitle(), conv.MessageCount())

	case "/delete", "/d":
		conv := r.ctrl.Current()
		if arg != "" {
			var err error
			if conv, err = r.ctrl.FindConversation(arg); err != nil {
				fmt.Fprintf(r.errOut, "%v\n", err)
				break
			}
		}
		r.ctrl.DeleteConversation(conv.ID)
		fmt.Fprintf(r.errOut, "Deleted %s. Current conversation: %s\n", conv.ShortID(), r.ctrl.Current().ShortID())

	case "/rename", "/r":
		conv := r.ctrl.Current()
		r.ctrl.RenameConversation(conv.ID, arg)
		fmt.Fprintf(r.errOut, "Conversation %s renamed to %q.\n", conv.ShortID(), conv.DisplayTitle())

	case "/history":
		printMessages(r.errOut, r.ctrl.Messages())

	case "/model", "/m":
		if arg != "" {
			r.ctrl.SetModel(arg)
		}
		fmt.Fprintf(r.errOut, "Model: %s\n", r.ctrl.Model())

	case "/system":
		if r.prompts == nil {
			fmt.Fprintln(r.errOut, "System prompts are not available in this session.")
			break
		}
		switch arg {
		case "":
		case "clear":
			r.prompts.SetSystemPrompt("")
		default:
			r.prompts.SetSystemPrompt(arg)
		}
		if current := r.prompts.SystemPrompt(); current != "" {
			fmt.Fprintf(r.errOut, "System prompt: %s\n", current)
		} else {
			fmt.Fprintln(r.errOut, "No system prompt.")
		}

	case "/prompt", "/p":
		if r.prompts == nil {
			fmt.Fprintln(r.errOut, "System prompts are not available in this session.")
			break
		}
		if len(fields) < 2 {
			fmt.Fprintln(r.errOut, "Usage: /prompt <name> [key:value...]")
			break
		}
		if err := r.usePrompt(fields[1], fields[2:]); err != nil {
			fmt.Fprintf(r.errOut, "%v\n", err)
		}

	case "/prompts":
		entries, err := promptpkg.List(r.promptDirs)
		if err != nil {
			fmt.Fprintf(r.errOut, "%v\n", err)
			break
		}
		if len(entries) == 0 {
			fmt.Fprintln(r.errOut, "No prompt templates found.")
			break
		}
		for _, entry := range entries {
			fmt.Fprintf(r.errOut, "  %s\n", entry.Name)
		}

	case "/key":
		if arg == "" {
			fmt.Fprintln(r.errOut, "Usage: /key <api-key>")
			break
		}
		if backend := r.ctrl.SetAPIKey(arg); backend != "" {
			fmt.Fprintf(r.errOut, "API key saved (%s).\n", backend)
		} else {
			fmt.Fprintln(r.errOut, "API key set for this session only; it could not be saved.")
		}

	case "/info", "/i":
		conv := r.ctrl.Current()
		fmt.Fprintln(r.errOut, "\nConversation Information:")
		fmt.Fprintf(r.errOut, "  ID: %s\n", conv.ShortID())
		fmt.Fprintf(r.errOut, "  Full ID: %s\n", conv.ID)
		fmt.Fprintf(r.errOut, "  Title: %s\n", conv.DisplayTitle())
		fmt.Fprintf(r.errOut, "  Model: %s\n", r.ctrl.Model())
		if len(conv.ModelsUsed) > 0 {
			fmt.Fprintf(r.errOut, "  Models used: %s\n", strings.Join(conv.ModelsUsed, ", "))
		}
		fmt.Fprintf(r.errOut, "  Messages: %d\n", conv.MessageCount())
		fmt.Fprintf(r.errOut, "  Created: %s\n", conv.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintln(r.errOut, "")

	case "/exit", "/quit", "/q":
		fmt.Fprintln(r.errOut, "Goodbye!")
		return false

	default:
		fmt.Fprintf(r.errOut, "Unknown command: %s (type '/help' for available commands)\n", command)
	}
	return true
}

// usePrompt loads the named template as the system prompt. A model set by
// the template becomes the current conversation's model.
func (r *repl) usePrompt(name string, args []string) error {
	vars, err := promptpkg.ParseArgs(args)
	if err != nil {
		return fmt.Errorf("processing arguments: %w", err)
	}
	p, err := promptpkg.Resolve(name, r.promptDirs, vars)
	if err != nil {
		return fmt.Errorf("loading prompt: %w", err)
	}

	r.prompts.SetSystemPrompt(p.System)
	if p.Model != nil {
		r.ctrl.SetModel(*p.Model)
	}
	fmt.Fprintf(r.errOut, "Using prompt %s (model: %s)\n", name, r.ctrl.Model())
	return nil
}
