// Package openai implements the chat-completions client.
//
// Complete performs a single request/response exchange: no retries and no
// streaming. Errors are classified into the kinds defined in llmcomm.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/longkey1/llmcomm/internal/llmcomm"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 3 * time.Minute
)

// ChatCompletionRequest represents the request body for the chat completions endpoint
type ChatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
}

// ChatMessage is a message as sent on the wire
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Config defines the configuration interface for the client
type Config interface {
	GetBaseURL() string
	GetTimeout() time.Duration
}

// Client talks to an OpenAI-compatible API.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	systemPrompt string
}

// NewClient creates a new client from config.
func NewClient(config Config) *Client {
	baseURL := strings.TrimRight(config.GetBaseURL(), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := config.GetTimeout()
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SetSystemPrompt sets a prompt sent as a system message ahead of the
// conversation on every request. An empty prompt sends nothing extra.
func (c *Client) SetSystemPrompt(prompt string) {
	c.systemPrompt = strings.TrimSpace(prompt)
}

// SystemPrompt returns the prompt set by SetSystemPrompt.
func (c *Client) SystemPrompt() string {
	return c.systemPrompt
}

// Complete sends messages to the chat completions endpoint and returns the
// content of the first choice, or "" if the response has no choices.
func (c *Client) Complete(ctx context.Context, apiKey, model string, messages []llmcomm.Message) (string, error) {
	if strings.TrimSpace(apiKey) == "" {
		return "", llmcomm.ErrAuthRequired
	}

	reqBody := ChatCompletionRequest{
		Model:    model,
		Messages: c.buildMessages(messages),
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", errors.Wrap(err, "error marshaling request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", errors.Wrap(err, "error creating request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	log.WithFields(log.Fields{"model": model, "messages": len(reqBody.Messages)}).Debug("sending chat completion request")
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &llmcomm.NetworkError{Err: err, Timeout: isTimeout(err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &llmcomm.NetworkError{Err: err, Timeout: isTimeout(err)}
	}

	log.WithFields(log.Fields{"status": resp.StatusCode, "elapsed": time.Since(start)}).Debug("received chat completion response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &llmcomm.APIError{
			StatusCode: resp.StatusCode,
			Message:    extractErrorMessage(body),
		}
	}

	if !gjson.ValidBytes(body) {
		return "", errors.New("error parsing response: invalid JSON")
	}

	return gjson.GetBytes(body, "choices.0.message.content").String(), nil
}

func (c *Client) buildMessages(messages []llmcomm.Message) []ChatMessage {
	out := make([]ChatMessage, 0, len(messages)+1)
	if c.systemPrompt != "" {
		out = append(out, ChatMessage{Role: "system", Content: c.systemPrompt})
	}
	for _, msg := range messages {
		out = append(out, ChatMessage{Role: string(msg.Role), Content: msg.Content})
	}
	return out
}

// extractErrorMessage returns error.message from an error body, or the raw
// body when that field is missing or the body is not JSON.
func extractErrorMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		msg := gjson.GetBytes(body, "error.message")
		if msg.Type == gjson.String && msg.Str != "" {
			return msg.Str
		}
	}
	return string(body)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
