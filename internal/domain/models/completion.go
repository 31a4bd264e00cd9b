package models

import (
	"time"
)

// CompletionResult is the ephemeral outcome of one round trip to the
// text-generation provider. It is never persisted directly.
type CompletionResult struct {
	Content      string        `json:"content"`
	InputTokens  int           `json:"input_tokens"`
	OutputTokens int           `json:"output_tokens"`
	TotalTokens  int           `json:"total_tokens"`
	Duration     time.Duration `json:"duration"`
	Success      bool          `json:"success"`
	Error        string        `json:"error,omitempty"`
}
