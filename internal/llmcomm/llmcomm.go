// Package llmcomm provides the core types shared by the chat client:
// messages, conversations, the title rule and the error kinds returned by
// the completion client.
package llmcomm

import "sort"

// ModelInfo represents information about a model available from the API.
type ModelInfo struct {
	ID      string // Model identifier (e.g., "gpt-4o-mini")
	OwnedBy string // Organization that owns the model
	Created int64  // Unix timestamp the model was created
}

// SortModels orders models by ID.
func SortModels(models []ModelInfo) {
	sort.Slice(models, func(i, j int) bool {
		return models[i].ID < models[j].ID
	})
}
