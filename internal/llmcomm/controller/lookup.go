package controller

import (
	"fmt"
	"strings"

	"github.com/longkey1/llmcomm/internal/llmcomm"
)

// MinPrefixLength is the shortest id prefix FindConversation accepts.
const MinPrefixLength = 4

// AmbiguousIDError is returned when multiple conversations match a prefix
type AmbiguousIDError struct {
	Prefix  string
	Matches []*llmcomm.Conversation
}

func (e *AmbiguousIDError) Error() string {
	var lines []string
	lines = append(lines, fmt.Sprintf("Ambiguous conversation ID %q. Multiple matches found:", e.Prefix))
	for _, match := range e.Matches {
		lines = append(lines, fmt.Sprintf("- %s (%s, %s, %d messages)",
			match.ShortID(),
			match.DisplayTitle(),
			match.CreatedAt.Format("2006-01-02"),
			match.MessageCount()))
	}
	lines = append(lines, "")
	lines = append(lines, "Please use a longer prefix or run 'llmcomm conversations list'.")
	return strings.Join(lines, "\n")
}

// FindConversation finds a conversation by full id or id prefix (minimum
// MinPrefixLength characters). "latest" returns the most recently updated
// conversation.
func (c *Controller) FindConversation(prefix string) (*llmcomm.Conversation, error) {
	return Find(c.conversations, prefix)
}

// Find applies the FindConversation rules to a loaded list without a
// controller.
func Find(conversations []*llmcomm.Conversation, prefix string) (*llmcomm.Conversation, error) {
	prefix = strings.TrimSpace(prefix)

	if prefix == "latest" {
		var latest *llmcomm.Conversation
		for _, conv := range conversations {
			if latest == nil || conv.UpdatedAt.After(latest.UpdatedAt) {
				latest = conv
			}
		}
		if latest == nil {
			return nil, fmt.Errorf("no conversations found")
		}
		return latest, nil
	}

	for _, conv := range conversations {
		if conv.ID == prefix {
			return conv, nil
		}
	}

	if len(prefix) < MinPrefixLength {
		return nil, fmt.Errorf("conversation ID prefix must be at least %d characters (got %d)", MinPrefixLength, len(prefix))
	}

	var matches []*llmcomm.Conversation
	for _, conv := range conversations {
		if strings.HasPrefix(conv.ID, prefix) {
			matches = append(matches, conv)
		}
	}

	if len(matches) == 0 {
		return nil, fmt.Errorf("conversation not found: %s\n\nRun 'llmcomm conversations list' to see available conversations.", prefix)
	}
	if len(matches) > 1 {
		return nil, &AmbiguousIDError{Prefix: prefix, Matches: matches}
	}
	return matches[0], nil
}
