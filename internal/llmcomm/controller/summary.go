package controller

import (
	"context"
	"fmt"
	"strings"

	"github.com/longkey1/llmcomm/internal/llmcomm"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// SummaryPrefix starts the first message of a summary conversation.
const SummaryPrefix = "Previous conversation summary:\n\n"

var (
	// ErrNothingToSummarize is returned for a conversation without messages.
	ErrNothingToSummarize = errors.New("conversation has no messages to summarize")
	// ErrSending is returned when a request is already in flight.
	ErrSending = errors.New("a request is already in progress")
)

const summaryInstructions = `Please summarize the following conversation in 3-5 concise paragraphs.
Focus on:
- Main topics discussed
- Key decisions made
- Current status or next steps

Conversation history:

`

// Summarize asks the model for a summary of the conversation with id and
// its ancestors, then starts a new conversation whose first user message
// carries that summary. The new conversation links back through ParentID,
// inherits the model and becomes current. The source is left untouched.
func (c *Controller) Summarize(ctx context.Context, id string) (*llmcomm.Conversation, error) {
	source := c.lookup(id)
	if source == nil {
		return nil, fmt.Errorf("conversation not found: %s", id)
	}
	if source.MessageCount() == 0 {
		return nil, ErrNothingToSummarize
	}
	if !c.HasAPIKey() {
		return nil, llmcomm.ErrAuthRequired
	}
	if c.sending {
		return nil, ErrSending
	}

	c.setError("")
	c.setSending(true)
	defer c.setSending(false)

	model := c.modelFor(source)
	request := llmcomm.NewUserMessage(summaryInstructions + c.transcript(source))
	log.WithFields(log.Fields{"id": source.ShortID(), "model": model}).Debug("summarizing conversation")

	summary, err := c.completer.Complete(ctx, c.apiKey, model, []llmcomm.Message{request})
	if err != nil {
		log.WithError(err).WithField("id", source.ShortID()).Warn("summary failed")
		c.setError(err.Error())
		return nil, err
	}

	conv := llmcomm.NewConversation()
	conv.ParentID = source.ID
	conv.Model = source.Model
	conv.SetTitle(llmcomm.TitleFromText("Summary: " + source.DisplayTitle()))
	conv.Append(llmcomm.NewUserMessage(SummaryPrefix + strings.TrimSpace(summary)))
	conv.RecordModel(model)
	c.insert(conv)
	return conv, nil
}

// transcript numbers every message of conv and its ancestors, oldest first.
// The leading summary of a child conversation is skipped because its
// parent's messages are already included.
func (c *Controller) transcript(conv *llmcomm.Conversation) string {
	var b strings.Builder
	n := 1
	for _, part := range append(c.ancestors(conv), conv) {
		msgs := part.Messages
		if part.ParentID != "" && len(msgs) > 0 && c.lookup(part.ParentID) != nil {
			msgs = msgs[1:]
		}
		for _, msg := range msgs {
			role := "User"
			if msg.Role == llmcomm.RoleAssistant {
				role = "Assistant"
			}
			fmt.Fprintf(&b, "[Message %d] %s: %s\n\n", n, role, msg.Content)
			n++
		}
	}
	return b.String()
}

// ancestors follows ParentID links and returns the chain from the oldest
// ancestor to the direct parent. A missing parent or a cycle ends the chain.
func (c *Controller) ancestors(conv *llmcomm.Conversation) []*llmcomm.Conversation {
	var chain []*llmcomm.Conversation
	visited := map[string]bool{conv.ID: true}
	for id := conv.ParentID; id != "" && !visited[id]; {
		visited[id] = true
		parent := c.lookup(id)
		if parent == nil {
			log.WithField("id", id).Debug("parent conversation not found")
			break
		}
		chain = append([]*llmcomm.Conversation{parent}, chain...)
		id = parent.ParentID
	}
	return chain
}
