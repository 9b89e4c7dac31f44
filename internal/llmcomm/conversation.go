package llmcomm

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultTitle is shown for conversations without a usable title.
	DefaultTitle = "New Chat"

	// MaxTitleLength is the number of characters kept from the first
	// user message when deriving a title.
	MaxTitleLength = 30

	titleEllipsis = "..."
)

// Conversation represents an ordered list of messages with a stable identity.
type Conversation struct {
	ID        string    `json:"Id"`
	Title     string    `json:"Title"`
	Messages  []Message `json:"Messages"`
	CreatedAt time.Time `json:"CreatedAt"`
	UpdatedAt time.Time `json:"UpdatedAt"`

	// Model is the model selected for this conversation. Empty means the
	// configured default.
	Model      string   `json:"Model,omitempty"`
	// ModelsUsed lists every model that produced a reply, in first-use order.
	ModelsUsed []string `json:"ModelsUsed,omitempty"`
	// ParentID links a summary conversation to the one it condenses.
	ParentID   string   `json:"ParentId,omitempty"`
}

// NewConversation creates an empty conversation titled DefaultTitle.
func NewConversation() *Conversation {
	now := time.Now()
	return &Conversation{
		ID:        uuid.New().String(),
		Title:     DefaultTitle,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetTitle sets the title, falling back to DefaultTitle for blank input.
func (c *Conversation) SetTitle(title string) {
	c.Title = NormalizeTitle(title)
}

// DisplayTitle returns the title, normalized.
func (c *Conversation) DisplayTitle() string {
	return NormalizeTitle(c.Title)
}

// Append adds a message to the end of the conversation.
func (c *Conversation) Append(msg Message) {
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now()
}

// RemoveLast drops the most recent message and returns it.
// It reports false if the conversation is empty.
func (c *Conversation) RemoveLast() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	last := c.Messages[len(c.Messages)-1]
	c.Messages = c.Messages[:len(c.Messages)-1]
	c.UpdatedAt = time.Now()
	return last, true
}

// RecordModel adds model to ModelsUsed unless it is already listed.
func (c *Conversation) RecordModel(model string) {
	if model == "" {
		return
	}
	for _, m := range c.ModelsUsed {
		if m == model {
			return
		}
	}
	c.ModelsUsed = append(c.ModelsUsed, model)
}

// MessageCount returns the number of messages in the conversation.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// ShortID returns the first 8 characters of the ID.
func (c *Conversation) ShortID() string {
	if len(c.ID) >= 8 {
		return c.ID[:8]
	}
	return c.ID
}

// NormalizeTitle returns DefaultTitle when title is empty or whitespace.
func NormalizeTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return DefaultTitle
	}
	return title
}

// TitleFromText builds a title from message text: the trimmed text,
// cut to MaxTitleLength characters with an ellipsis when longer.
func TitleFromText(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return DefaultTitle
	}
	runes := []rune(text)
	if len(runes) > MaxTitleLength {
		return string(runes[:MaxTitleLength]) + titleEllipsis
	}
	return text
}

// DeriveTitle returns the title for a list of messages based on the first
// user message.
func DeriveTitle(messages []Message) string {
	for _, msg := range messages {
		if msg.IsUser() {
			return TitleFromText(msg.Content)
		}
	}
	return DefaultTitle
}
