package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chatforge/internal/domain/models"
	"chatforge/internal/domain/repositories"
	"chatforge/internal/domain/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubConversationService struct {
	result *services.TurnResult
	err    error
	turns  []*models.Turn
}

func (s *stubConversationService) ProcessMessage(context.Context, int64, uuid.UUID, string, *uuid.UUID) (*services.TurnResult, error) {
	return s.result, s.err
}

func (s *stubConversationService) ConversationTurns(context.Context, int64, uuid.UUID, uuid.UUID, int) ([]*models.Turn, error) {
	return s.turns, s.err
}

type stubUsageService struct {
	summary *models.UsageSummary
	err     error
}

func (s *stubUsageService) RecordMessage(context.Context, int64, string, int) bool { return true }
func (s *stubUsageService) RecordAIAction(context.Context, int64, string) bool     { return true }
func (s *stubUsageService) Summary(context.Context, int64, time.Time, time.Time) (*models.UsageSummary, error) {
	return s.summary, s.err
}

func newChatRouter(conversations services.ConversationService, usage services.UsageService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := gin.New()
	NewChatHandler(conversations, usage, logger).Register(router)
	return router
}

func postMessage(t *testing.T, router *gin.Engine, agentID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/agents/"+agentID+"/messages", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestPostMessageCompleted(t *testing.T) {
	convID := uuid.New()
	router := newChatRouter(&stubConversationService{result: &services.TurnResult{
		Status:         services.TurnCompleted,
		Response:       "Hi!",
		ConversationID: convID,
		TokensUsed:     150,
		CreditsCharged: 2,
	}}, &stubUsageService{})

	rec := postMessage(t, router, uuid.NewString(), `{"account_id": 1, "message": "Hello"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "completed", body["status"])
	assert.Equal(t, "Hi!", body["response"])
	assert.Equal(t, convID.String(), body["conversation_id"])
}

func TestPostMessageRejectedMapsToPaymentRequired(t *testing.T) {
	premium := models.PlanPremium
	router := newChatRouter(&stubConversationService{result: &services.TurnResult{
		Status:        services.TurnRejected,
		Reason:        "insufficient credits: need 2, have 1",
		SuggestedPlan: &premium,
	}}, &stubUsageService{})

	rec := postMessage(t, router, uuid.NewString(), `{"account_id": 1, "message": "Hello"}`)

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "rejected", body["status"])
	assert.Equal(t, "premium", body["suggested_plan"])
}

func TestPostMessageGenerationFailedMapsToBadGateway(t *testing.T) {
	router := newChatRouter(&stubConversationService{result: &services.TurnResult{
		Status: services.TurnGenerationFailed,
		Detail: "upstream timeout",
	}}, &stubUsageService{})

	rec := postMessage(t, router, uuid.NewString(), `{"account_id": 1, "message": "Hello"}`)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestPostMessageNotFoundSentinels(t *testing.T) {
	router := newChatRouter(&stubConversationService{
		err: fmt.Errorf("agent not found: %w", repositories.ErrAgentNotFound),
	}, &stubUsageService{})

	rec := postMessage(t, router, uuid.NewString(), `{"account_id": 1, "message": "Hello"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPostMessageValidation(t *testing.T) {
	router := newChatRouter(&stubConversationService{}, &stubUsageService{})

	rec := postMessage(t, router, "not-a-uuid", `{"account_id": 1, "message": "Hello"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postMessage(t, router, uuid.NewString(), `{"account_id": 1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postMessage(t, router, uuid.NewString(), `{"account_id": 1, "message": "Hello", "conversation_id": "nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetTurns(t *testing.T) {
	router := newChatRouter(&stubConversationService{turns: []*models.Turn{
		{ID: uuid.New(), Role: models.RoleUser, Content: "Hello", SequenceNumber: 1},
		{ID: uuid.New(), Role: models.RoleAssistant, Content: "Hi!", SequenceNumber: 2},
	}}, &stubUsageService{})

	url := fmt.Sprintf("/api/agents/%s/conversations/%s/turns?account_id=1", uuid.NewString(), uuid.NewString())
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Turns []map[string]interface{} `json:"turns"`
		Count int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
}

func TestGetUsage(t *testing.T) {
	router := newChatRouter(&stubConversationService{}, &stubUsageService{summary: &models.UsageSummary{
		CreditsUsed:  4,
		MessagesSent: 2,
		TokensUsed:   300,
	}})

	req := httptest.NewRequest(http.MethodGet, "/api/accounts/1/usage?days=7", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		AccountID int64               `json:"account_id"`
		Usage     models.UsageSummary `json:"usage"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.AccountID)
	assert.Equal(t, int64(300), body.Usage.TokensUsed)
}
