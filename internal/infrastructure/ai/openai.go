package ai

import (
	"chatforge/internal/domain/models"
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai"
)

const (
	// maxHistoryMessages bounds the conversation history sent with
	// each request. Fixed, not configurable per call.
	maxHistoryMessages = 10

	requestTimeout = 30 * time.Second

	fallbackMessage = "I'm having trouble processing your request right now. Please try again in a moment."
)

type GenerateRequest struct {
	Message      string
	History      []*models.Turn
	ModelID      string
	MaxTokens    int
	Temperature  float64
	SystemPrompt string
}

// CompletionClient performs one round trip to a text-generation
// provider. Implementations never return an error: every failure is
// folded into a CompletionResult with Success=false so the caller
// treats it as a terminal outcome, not a retryable condition.
type CompletionClient interface {
	Generate(ctx context.Context, req GenerateRequest) *models.CompletionResult
}

type OpenAIClient struct {
	client *openai.Client
	logger *slog.Logger
}

func NewOpenAIClient(apiKey string, logger *slog.Logger) *OpenAIClient {
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		logger: logger,
	}
}

// NewOpenAIClientWithConfig builds a client from an explicit
// configuration, used to point at compatible providers or proxies.
func NewOpenAIClientWithConfig(cfg openai.ClientConfig, logger *slog.Logger) *OpenAIClient {
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		logger: logger,
	}
}

func (c *OpenAIClient) Generate(ctx context.Context, req GenerateRequest) *models.CompletionResult {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.ModelID,
		Messages:    buildMessages(req),
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		if c.logger != nil {
			c.logger.Error("chat completion failed", "error", err, "model_id", req.ModelID)
		}
		return failureResult(err, start)
	}

	if len(resp.Choices) == 0 {
		return failureResult(errors.New("no choices in completion response"), start)
	}

	return &models.CompletionResult{
		Content:      resp.Choices[0].Message.Content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		TotalTokens:  resp.Usage.TotalTokens,
		Duration:     time.Since(start),
		Success:      true,
	}
}

// buildMessages assembles the outbound message list: optional system
// prompt, the most recent history entries, then the new user message.
func buildMessages(req GenerateRequest) []openai.ChatCompletionMessage {
	history := req.History
	if len(history) > maxHistoryMessages {
		history = history[len(history)-maxHistoryMessages:]
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)

	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}

	for _, turn := range history {
		role := openai.ChatMessageRoleUser
		if turn.Role == models.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: turn.Content,
		})
	}

	return append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Message,
	})
}

func failureResult(err error, start time.Time) *models.CompletionResult {
	return &models.CompletionResult{
		Content:  fallbackMessage,
		Duration: time.Since(start),
		Success:  false,
		Error:    err.Error(),
	}
}
