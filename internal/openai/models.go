package openai

import (
	"context"
	"strings"

	"github.com/longkey1/llmcomm/internal/llmcomm"
	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/pkg/errors"
)

// ListModels returns the models available to apiKey, sorted by ID.
func (c *Client) ListModels(ctx context.Context, apiKey string) ([]llmcomm.ModelInfo, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, llmcomm.ErrAuthRequired
	}

	client := sdk.NewClient(
		option.WithAPIKey(apiKey),
		// The SDK resolves paths relative to the base URL, which needs a
		// trailing slash to keep the /v1 segment.
		option.WithBaseURL(c.baseURL+"/"),
		option.WithHTTPClient(c.httpClient),
		option.WithMaxRetries(0),
	)

	page, err := client.Models.List(ctx)
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) {
			message := apiErr.Message
			if message == "" {
				message = apiErr.Error()
			}
			return nil, &llmcomm.APIError{StatusCode: apiErr.StatusCode, Message: message}
		}
		return nil, &llmcomm.NetworkError{Err: err, Timeout: isTimeout(err)}
	}

	models := make([]llmcomm.ModelInfo, 0, len(page.Data))
	for _, m := range page.Data {
		models = append(models, llmcomm.ModelInfo{
			ID:      m.ID,
			OwnedBy: m.OwnedBy,
			Created: m.Created,
		})
	}
	llmcomm.SortModels(models)
	return models, nil
}
