// Package controller owns the conversation list and the single in-flight
// completion. Front ends drive it through commands and observe it through
// Subscribe.
package controller

import (
	"context"
	"strings"

	"github.com/longkey1/llmcomm/internal/llmcomm"
	log "github.com/sirupsen/logrus"
)

// Completer produces the assistant reply for a conversation.
type Completer interface {
	Complete(ctx context.Context, apiKey, model string, messages []llmcomm.Message) (string, error)
}

// HistoryStore persists the whole conversation list.
type HistoryStore interface {
	LoadAll() []*llmcomm.Conversation
	SaveAll(conversations []*llmcomm.Conversation)
}

// ActiveStore remembers the current conversation between runs. When the
// HistoryStore passed to New also implements it, the saved selection is
// restored on startup and every later selection is recorded.
type ActiveStore interface {
	LoadActive() string
	SaveActive(id string)
}

// KeyStore loads and saves the API key. SaveKey returns the name of the
// backend that was written, or "".
type KeyStore interface {
	LoadKey() string
	SaveKey(key string) string
}

// Options configures a Controller. Model is the default for conversations
// that have not chosen one.
type Options struct {
	History   HistoryStore
	Keys      KeyStore
	Completer Completer
	Model     string
}

// Controller holds the conversation state for one front end. It is not safe
// for concurrent use; Sending guards against overlapping sends only.
type Controller struct {
	history   HistoryStore
	active    ActiveStore
	keys      KeyStore
	completer Completer

	conversations []*llmcomm.Conversation
	current       *llmcomm.Conversation
	messages      []llmcomm.Message // active view of current's messages

	apiKey    string
	model     string // default model
	activeID  string // last selection written to active
	sending   bool
	lastError string

	observers observers
}

// New creates a controller, loading the API key and the saved history. The
// previously active conversation becomes current, falling back to the head
// of the list. When the history is empty a new conversation is created.
func New(opts Options) *Controller {
	c := &Controller{
		history:   opts.History,
		keys:      opts.Keys,
		completer: opts.Completer,
		model:     strings.TrimSpace(opts.Model),
	}
	if active, ok := opts.History.(ActiveStore); ok {
		c.active = active
		c.activeID = active.LoadActive()
	}

	if c.keys != nil {
		c.apiKey = strings.TrimSpace(c.keys.LoadKey())
	}

	c.conversations = c.history.LoadAll()
	log.WithField("count", len(c.conversations)).Debug("loaded conversations")

	if len(c.conversations) == 0 {
		c.NewConversation()
		return c
	}
	conv := c.lookup(c.activeID)
	if conv == nil {
		conv = c.conversations[0]
	}
	c.setCurrent(conv)
	return c
}

// NewConversation inserts an empty conversation at the head of the list,
// makes it current and saves the list.
func (c *Controller) NewConversation() *llmcomm.Conversation {
	conv := llmcomm.NewConversation()
	c.insert(conv)
	return conv
}

// SelectConversation makes the conversation with id current. It reports
// false, changing nothing, if there is no such conversation.
func (c *Controller) SelectConversation(id string) bool {
	conv := c.lookup(id)
	if conv == nil {
		return false
	}
	c.setCurrent(conv)
	return true
}

// DeleteConversation removes the conversation with id. If it was current the
// new head becomes current, or a new conversation is created when none are
// left. Unknown ids are ignored.
func (c *Controller) DeleteConversation(id string) {
	c.DeleteConversations([]string{id})
}

// DeleteConversations removes every conversation whose id is listed and
// saves the list once. The current conversation is replaced as in
// DeleteConversation. Unknown ids are ignored. It returns the number of
// conversations removed.
func (c *Controller) DeleteConversations(ids []string) int {
	remove := make(map[string]bool, len(ids))
	for _, id := range ids {
		remove[id] = true
	}

	kept := make([]*llmcomm.Conversation, 0, len(c.conversations))
	removedCurrent := false
	for _, conv := range c.conversations {
		if !remove[conv.ID] {
			kept = append(kept, conv)
			continue
		}
		if conv == c.current {
			removedCurrent = true
		}
		log.WithField("id", conv.ID).Debug("deleted conversation")
	}
	removed := len(c.conversations) - len(kept)
	if removed == 0 {
		return 0
	}
	c.conversations = kept

	if removedCurrent {
		c.current = nil
		if len(c.conversations) == 0 {
			// NewConversation saves and notifies.
			c.NewConversation()
			return removed
		}
		c.setCurrent(c.conversations[0])
	}
	c.save()
	c.notify(ChangeConversations)
	return removed
}

// RenameConversation sets the title of the conversation with id. A blank
// title resets it to the default. It reports false for unknown ids.
func (c *Controller) RenameConversation(id, title string) bool {
	conv := c.lookup(id)
	if conv == nil {
		return false
	}
	conv.SetTitle(strings.TrimSpace(title))
	c.save()
	c.notify(ChangeConversations)
	if conv == c.current {
		c.notify(ChangeTitle)
	}
	return true
}

// CanSend reports whether SendMessage would accept input.
func (c *Controller) CanSend(input string) bool {
	return c.HasAPIKey() && strings.TrimSpace(input) != "" && !c.sending
}

// SendMessage appends text as a user message to the current conversation
// and requests the assistant reply. The user message is saved before the
// request. On failure it is removed again, the error is recorded as the
// last error and returned.
//
// Nothing happens, and nil is returned, when there is no current
// conversation, no API key, the text is blank, or a send is in progress.
func (c *Controller) SendMessage(ctx context.Context, text string) error {
	if c.current == nil || !c.CanSend(text) {
		return nil
	}
	conv := c.current
	text = strings.TrimSpace(text)

	c.setError("")

	msg := llmcomm.NewUserMessage(text)
	conv.Append(msg)
	c.messages = append(c.messages, msg)
	if conv.MessageCount() == 1 {
		conv.SetTitle(llmcomm.TitleFromText(text))
		c.notify(ChangeTitle)
	}
	c.notify(ChangeMessages)
	c.save()

	c.setSending(true)
	defer c.setSending(false)

	model := c.modelFor(conv)
	log.WithFields(log.Fields{"id": conv.ShortID(), "model": model, "messages": conv.MessageCount()}).Debug("sending message")
	reply, err := c.completer.Complete(ctx, c.apiKey, model, conv.Messages)
	if err != nil {
		conv.RemoveLast()
		if conv == c.current && len(c.messages) > 0 {
			c.messages = c.messages[:len(c.messages)-1]
		}
		log.WithError(err).WithField("id", conv.ShortID()).Warn("completion failed")
		c.setError(err.Error())
		c.notify(ChangeMessages)
		c.save()
		return err
	}

	answer := llmcomm.NewAssistantMessage(reply)
	conv.Append(answer)
	conv.RecordModel(model)
	if conv == c.current {
		c.messages = append(c.messages, answer)
	}
	c.notify(ChangeMessages)
	c.save()
	return nil
}

// SetAPIKey stores key through the key store and uses it for later sends.
// An empty key clears the stored credential. It returns the name of the
// backend written.
func (c *Controller) SetAPIKey(key string) string {
	key = strings.TrimSpace(key)
	var backend string
	if c.keys != nil {
		backend = c.keys.SaveKey(key)
	}
	if key != c.apiKey {
		c.apiKey = key
		c.notify(ChangeAPIKey)
	}
	return backend
}

// SetModel sets the model used for later sends in the current conversation
// and saves the choice with it. Other conversations keep their own model.
func (c *Controller) SetModel(model string) {
	model = strings.TrimSpace(model)
	if model == "" || model == c.Model() {
		return
	}
	if c.current == nil {
		c.model = model
	} else {
		c.current.Model = model
		c.save()
	}
	c.notify(ChangeModel)
}

// Conversations returns the conversations, newest first.
func (c *Controller) Conversations() []*llmcomm.Conversation {
	out := make([]*llmcomm.Conversation, len(c.conversations))
	copy(out, c.conversations)
	return out
}

// Current returns the current conversation.
func (c *Controller) Current() *llmcomm.Conversation {
	return c.current
}

// Messages returns the messages of the current conversation in order.
func (c *Controller) Messages() []llmcomm.Message {
	out := make([]llmcomm.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Controller) Sending() bool        { return c.sending }
func (c *Controller) LastError() string    { return c.lastError }
func (c *Controller) APIKey() string       { return c.apiKey }
func (c *Controller) HasAPIKey() bool      { return c.apiKey != "" }
func (c *Controller) DefaultModel() string { return c.model }

// Model returns the model the next send in the current conversation uses.
func (c *Controller) Model() string {
	return c.modelFor(c.current)
}

func (c *Controller) modelFor(conv *llmcomm.Conversation) string {
	if conv != nil && conv.Model != "" {
		return conv.Model
	}
	return c.model
}

func (c *Controller) insert(conv *llmcomm.Conversation) {
	c.conversations = append([]*llmcomm.Conversation{conv}, c.conversations...)
	c.setCurrent(conv)
	c.save()
	c.notify(ChangeConversations)
}

func (c *Controller) setCurrent(conv *llmcomm.Conversation) {
	prevModel := c.Model()
	c.current = conv
	c.messages = make([]llmcomm.Message, len(conv.Messages))
	copy(c.messages, conv.Messages)
	c.saveActive()
	c.notify(ChangeCurrent)
	c.notify(ChangeTitle)
	c.notify(ChangeMessages)
	if c.Model() != prevModel {
		c.notify(ChangeModel)
	}
}

func (c *Controller) saveActive() {
	if c.active == nil || c.current == nil || c.current.ID == c.activeID {
		return
	}
	c.activeID = c.current.ID
	c.active.SaveActive(c.activeID)
}

func (c *Controller) setSending(sending bool) {
	c.sending = sending
	c.notify(ChangeSending)
}

func (c *Controller) setError(msg string) {
	if c.lastError == msg {
		return
	}
	c.lastError = msg
	c.notify(ChangeError)
}

func (c *Controller) save() {
	c.history.SaveAll(c.conversations)
}

func (c *Controller) indexOf(id string) int {
	for i, conv := range c.conversations {
		if conv.ID == id {
			return i
		}
	}
	return -1
}

func (c *Controller) lookup(id string) *llmcomm.Conversation {
	if idx := c.indexOf(id); idx >= 0 {
		return c.conversations[idx]
	}
	return nil
}
