package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"chatforge/internal/domain/models"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeHistory(n int) []*models.Turn {
	turns := make([]*models.Turn, n)
	for i := range turns {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		turns[i] = &models.Turn{
			Role:           role,
			Content:        fmt.Sprintf("turn %d", i+1),
			SequenceNumber: i + 1,
		}
	}
	return turns
}

func TestBuildMessagesTruncatesHistory(t *testing.T) {
	messages := buildMessages(GenerateRequest{
		Message:      "latest question",
		History:      makeHistory(15),
		SystemPrompt: "You are a helpful assistant.",
	})

	// System prompt + last 10 history turns + the new user message.
	require.Len(t, messages, 12)
	assert.Equal(t, openai.ChatMessageRoleSystem, messages[0].Role)
	assert.Equal(t, "turn 6", messages[1].Content)
	assert.Equal(t, "turn 15", messages[10].Content)
	assert.Equal(t, openai.ChatMessageRoleUser, messages[11].Role)
	assert.Equal(t, "latest question", messages[11].Content)
}

func TestBuildMessagesMapsRoles(t *testing.T) {
	messages := buildMessages(GenerateRequest{
		Message: "hi",
		History: makeHistory(2),
	})

	require.Len(t, messages, 3)
	assert.Equal(t, openai.ChatMessageRoleUser, messages[0].Role)
	assert.Equal(t, openai.ChatMessageRoleAssistant, messages[1].Role)
	assert.Equal(t, openai.ChatMessageRoleUser, messages[2].Role)
}

func TestBuildMessagesWithoutSystemPrompt(t *testing.T) {
	messages := buildMessages(GenerateRequest{Message: "hi"})

	require.Len(t, messages, 1)
	assert.Equal(t, openai.ChatMessageRoleUser, messages[0].Role)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = server.URL + "/v1"
	return NewOpenAIClientWithConfig(cfg, nil)
}

func TestGenerateMapsResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Hello there"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 100, "completion_tokens": 50, "total_tokens": 150}
		}`)
	})

	result := client.Generate(context.Background(), GenerateRequest{
		Message: "hi",
		ModelID: "gpt-4o-mini",
	})

	require.True(t, result.Success)
	assert.Equal(t, "Hello there", result.Content)
	assert.Equal(t, 100, result.InputTokens)
	assert.Equal(t, 50, result.OutputTokens)
	assert.Equal(t, 150, result.TotalTokens)
	assert.Empty(t, result.Error)
}

func TestGenerateFailureReturnsFallback(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "overloaded"}}`, http.StatusServiceUnavailable)
	})

	result := client.Generate(context.Background(), GenerateRequest{
		Message: "hi",
		ModelID: "gpt-4o-mini",
	})

	require.False(t, result.Success)
	assert.Equal(t, fallbackMessage, result.Content)
	assert.NotEmpty(t, result.Error)
}

func TestGenerateEmptyChoicesIsFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": "chatcmpl-1", "object": "chat.completion", "choices": []}`)
	})

	result := client.Generate(context.Background(), GenerateRequest{Message: "hi", ModelID: "gpt-4o-mini"})

	require.False(t, result.Success)
	assert.Equal(t, fallbackMessage, result.Content)
}
