/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/longkey1/llmcomm/internal/llmcomm"
	"github.com/longkey1/llmcomm/internal/llmcomm/config"
	"github.com/longkey1/llmcomm/internal/llmcomm/controller"
	"github.com/longkey1/llmcomm/internal/openai"
	"github.com/spf13/cobra"
)

var (
	forceDelete bool
	clearBefore string
	clearAll    bool
)

// conversationsCmd represents the conversations command
var conversationsCmd = &cobra.Command{
	Use:     "conversations",
	Aliases: []string{"conv", "c"},
	Short:   "Manage saved conversations",
	Long: `Manage saved conversations including listing, viewing, renaming and deleting them.

IDs can be a short ID (minimum 4 characters), a full UUID, or "latest" for the
most recently updated conversation.`,
}

// conversationsListCmd represents the conversations list command
var conversationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all conversations",
	Long:  `List all saved conversations, newest first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		saved, err := loadSaved()
		if err != nil {
			return err
		}
		printConversations(os.Stdout, saved.conversations, saved.current())
		fmt.Println("\nUse 'llmcomm conversations show <id>' to view a conversation.")
		return nil
	},
}

// conversationsShowCmd represents the conversations show command
var conversationsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a conversation and its messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		saved, err := loadSaved()
		if err != nil {
			return err
		}
		conv, err := saved.find(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Conversation: %s\n", conv.ID)
		fmt.Printf("Title: %s\n", conv.DisplayTitle())
		if conv.ParentID != "" {
			fmt.Printf("Parent: %s\n", conv.ParentID)
		}
		model := conv.Model
		if model == "" {
			model = saved.cfg.Model + " (default)"
		}
		fmt.Printf("Model: %s\n", model)
		if len(conv.ModelsUsed) > 0 {
			fmt.Printf("Models used: %s\n", strings.Join(conv.ModelsUsed, ", "))
		}
		fmt.Printf("Created: %s (%s)\n", conv.CreatedAt.Format("2006-01-02 15:04:05"), humanize.Time(conv.CreatedAt))
		fmt.Printf("Updated: %s (%s)\n", conv.UpdatedAt.Format("2006-01-02 15:04:05"), humanize.Time(conv.UpdatedAt))
		fmt.Printf("Messages: %d\n\n", conv.MessageCount())
		printMessages(os.Stdout, conv.Messages)

		fmt.Printf("\nContinue this conversation with:\n  llmcomm chat -c %s \"your message\"\n", conv.ShortID())
		return nil
	},
}

// conversationsDeleteCmd represents the conversations delete command
var conversationsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a conversation",
	Long: `Delete a conversation permanently.

Warning: This action cannot be undone.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		saved, err := loadSaved()
		if err != nil {
			return err
		}
		conv, err := saved.find(args[0])
		if err != nil {
			return err
		}

		if !forceDelete && !confirm(os.Stdin, os.Stdout, fmt.Sprintf("Are you sure you want to delete conversation %s (%s)?", conv.ShortID(), conv.DisplayTitle())) {
			fmt.Println("Deletion cancelled.")
			return nil
		}

		newController(saved.cfg, nil).DeleteConversation(conv.ID)
		fmt.Printf("Conversation %s deleted successfully.\n", conv.ShortID())
		return nil
	},
}

// conversationsRenameCmd represents the conversations rename command
var conversationsRenameCmd = &cobra.Command{
	Use:   "rename <id> <title>",
	Short: "Rename a conversation",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		saved, err := loadSaved()
		if err != nil {
			return err
		}
		found, err := saved.find(args[0])
		if err != nil {
			return err
		}

		title := strings.TrimSpace(strings.Join(args[1:], " "))
		if !newController(saved.cfg, nil).RenameConversation(found.ID, title) {
			return fmt.Errorf("conversation not found: %s", found.ShortID())
		}
		fmt.Printf("Conversation %s renamed to %q.\n", found.ShortID(), llmcomm.NormalizeTitle(title))
		return nil
	},
}

// conversationsClearCmd represents the conversations clear command
var conversationsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete old conversations",
	Long: `Delete old conversations permanently.

By default, deletes conversations created more than retention_days (30) days ago.
Use --before to specify a different date, or --all to delete all conversations.
Conversations that a kept summary links back to are not deleted.

Warning: This action cannot be undone.

Examples:
  llmcomm conversations clear                      # Delete conversations older than retention_days
  llmcomm conversations clear --before 2024-01-01  # Delete conversations created before 2024-01-01
  llmcomm conversations clear --before 2024-12     # Delete conversations created before 2024-12-01
  llmcomm conversations clear --all                # Delete all conversations`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		saved, err := loadSaved()
		if err != nil {
			return err
		}
		if len(saved.conversations) == 0 {
			fmt.Println("No conversations to delete.")
			return nil
		}

		var cutoff time.Time
		var question string
		switch {
		case clearAll:
		case clearBefore != "":
			if cutoff, err = parseDate(clearBefore); err != nil {
				return fmt.Errorf("parsing date: %w", err)
			}
		default:
			cutoff = time.Now().AddDate(0, 0, -saved.cfg.RetentionDays)
		}

		plan := planClear(saved.conversations, clearAll, cutoff)
		if len(plan.protected) > 0 {
			fmt.Fprintf(os.Stderr, "\nNotice: The following conversations were not deleted (referenced by summaries):\n")
			for _, conv := range plan.protected {
				fmt.Fprintf(os.Stderr, "  - %s (created: %s)\n", conv.ShortID(), conv.CreatedAt.Format("2006-01-02"))
			}
			fmt.Fprintln(os.Stderr)
		}
		if len(plan.remove) == 0 {
			if clearAll {
				fmt.Println("No conversations to delete.")
			} else {
				fmt.Printf("No conversations found created before %s.\n", cutoff.Format("2006-01-02"))
			}
			return nil
		}

		switch {
		case clearAll:
			question = fmt.Sprintf("Are you sure you want to delete all %d conversations?", len(plan.remove))
		case clearBefore != "":
			question = fmt.Sprintf("Are you sure you want to delete %d conversations created before %s?",
				len(plan.remove), cutoff.Format("2006-01-02"))
		default:
			question = fmt.Sprintf("Are you sure you want to delete %d conversations older than %d days (created before %s)?",
				len(plan.remove), saved.cfg.RetentionDays, cutoff.Format("2006-01-02"))
		}
		if !forceDelete && !confirm(os.Stdin, os.Stdout, question) {
			fmt.Println("Deletion cancelled.")
			return nil
		}

		ids := make([]string, len(plan.remove))
		for i, conv := range plan.remove {
			ids[i] = conv.ID
		}
		deleted := newController(saved.cfg, nil).DeleteConversations(ids)
		fmt.Printf("Successfully deleted %d conversations.\n", deleted)
		return nil
	},
}

// conversationsSummarizeCmd represents the conversations summarize command
var conversationsSummarizeCmd = &cobra.Command{
	Use:   "summarize <id>",
	Short: "Summarize a conversation into a new one",
	Long: `Summarize a conversation and start a new conversation from the summary.

The original conversation is kept and the new one links back to it. Earlier
summaries in the chain are followed so the new summary covers them too.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		saved, err := loadSaved()
		if err != nil {
			return err
		}
		found, err := saved.find(args[0])
		if err != nil {
			return err
		}

		ctrl := newController(saved.cfg, openai.NewClient(saved.cfg))
		fmt.Fprintf(os.Stderr, "Generating summary of %s using %s...\n", found.ShortID(), modelOf(found, ctrl.DefaultModel()))
		conv, err := ctrl.Summarize(context.Background(), found.ID)
		if err != nil {
			return fmt.Errorf("summarizing conversation: %w", err)
		}

		fmt.Fprintf(os.Stderr, "\nNew conversation created: %s (parent: %s)\n", conv.ShortID(), found.ShortID())
		fmt.Fprintf(os.Stderr, "\nContinue with:\n  llmcomm chat -c %s \"your message\"\n", conv.ShortID())
		return nil
	},
}

// savedConversations is the history as stored on disk, read without a
// controller so that inspecting it never writes.
type savedConversations struct {
	cfg           *config.Config
	conversations []*llmcomm.Conversation
	activeID      string
}

func loadSaved() (*savedConversations, error) {
	cfg, err := loadConfig("")
	if err != nil {
		return nil, err
	}
	store := newHistoryStore(cfg)
	return &savedConversations{
		cfg:           cfg,
		conversations: store.LoadAll(),
		activeID:      store.LoadActive(),
	}, nil
}

func (s *savedConversations) find(id string) (*llmcomm.Conversation, error) {
	conv, err := controller.Find(s.conversations, id)
	if err != nil {
		return nil, fmt.Errorf("finding conversation: %w", err)
	}
	return conv, nil
}

// current returns the conversation a controller would select on startup.
func (s *savedConversations) current() *llmcomm.Conversation {
	for _, conv := range s.conversations {
		if conv.ID == s.activeID {
			return conv
		}
	}
	if len(s.conversations) > 0 {
		return s.conversations[0]
	}
	return nil
}

type clearPlan struct {
	remove    []*llmcomm.Conversation
	protected []*llmcomm.Conversation
}

// planClear selects the conversations created before cutoff, or all of them.
// A selected conversation stays when a conversation that is kept names it as
// its parent.
func planClear(conversations []*llmcomm.Conversation, all bool, cutoff time.Time) clearPlan {
	selected := make(map[string]bool)
	for _, conv := range conversations {
		if all || conv.CreatedAt.Before(cutoff) {
			selected[conv.ID] = true
		}
	}

	protect := make(map[string]bool)
	for _, conv := range conversations {
		if !selected[conv.ID] && conv.ParentID != "" && selected[conv.ParentID] {
			protect[conv.ParentID] = true
		}
	}

	var plan clearPlan
	for _, conv := range conversations {
		switch {
		case protect[conv.ID]:
			plan.protected = append(plan.protected, conv)
		case selected[conv.ID]:
			plan.remove = append(plan.remove, conv)
		}
	}
	return plan
}

// parseDate parses YYYY-MM-DD, YYYY-MM or YYYY. Partial dates mean the
// first day of the month or year.
func parseDate(dateStr string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
		if t, err := time.ParseInLocation(layout, dateStr, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date format: %s (use YYYY-MM-DD, YYYY-MM, or YYYY)", dateStr)
}

func modelOf(conv *llmcomm.Conversation, fallback string) string {
	if conv.Model != "" {
		return conv.Model
	}
	return fallback
}

// printConversations writes a table of conversations; current is marked
// with an asterisk.
func printConversations(w io.Writer, conversations []*llmcomm.Conversation, current *llmcomm.Conversation) {
	if len(conversations) == 0 {
		fmt.Fprintln(w, "No conversations found.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, " \tID\tUPDATED\tMESSAGES\tTITLE")
	fmt.Fprintln(tw, " \t--\t-------\t--------\t-----")
	for _, conv := range conversations {
		mark := " "
		if conv == current {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			mark,
			conv.ShortID(),
			humanize.Time(conv.UpdatedAt),
			conv.MessageCount(),
			conv.DisplayTitle(),
		)
	}
	tw.Flush()
}

// printMessages writes a numbered message history.
func printMessages(w io.Writer, messages []llmcomm.Message) {
	if len(messages) == 0 {
		fmt.Fprintln(w, "No messages in this conversation.")
		return
	}

	fmt.Fprintln(w, "Message History:")
	fmt.Fprintln(w, "----------------")
	for i, msg := range messages {
		roleLabel := "You"
		if !msg.IsUser() {
			roleLabel = "Assistant"
		}
		fmt.Fprintf(w, "\n[%d] %s:\n%s\n", i+1, roleLabel, msg.Content)
	}
}

// confirm asks a yes/no question and reports whether the answer was yes.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	response, _ := bufio.NewReader(in).ReadString('\n')
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}

func init() {
	rootCmd.AddCommand(conversationsCmd)
	conversationsCmd.AddCommand(conversationsListCmd)
	conversationsCmd.AddCommand(conversationsShowCmd)
	conversationsCmd.AddCommand(conversationsDeleteCmd)
	conversationsCmd.AddCommand(conversationsRenameCmd)
	conversationsCmd.AddCommand(conversationsClearCmd)
	conversationsCmd.AddCommand(conversationsSummarizeCmd)

	conversationsDeleteCmd.Flags().BoolVarP(&forceDelete, "force", "f", false, "Delete without asking for confirmation")
	conversationsClearCmd.Flags().BoolVarP(&forceDelete, "force", "f", false, "Delete without asking for confirmation")
	conversationsClearCmd.Flags().StringVar(&clearBefore, "before", "", "Delete conversations created before this date (YYYY-MM-DD, YYYY-MM, or YYYY)")
	conversationsClearCmd.Flags().BoolVar(&clearAll, "all", false, "Delete all conversations (overrides retention_days)")
}
