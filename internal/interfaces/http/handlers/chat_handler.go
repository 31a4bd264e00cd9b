package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"chatforge/internal/domain/repositories"
	"chatforge/internal/domain/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ChatHandler struct {
	conversations services.ConversationService
	usage         services.UsageService
	logger        *slog.Logger
}

func NewChatHandler(conversations services.ConversationService, usage services.UsageService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		conversations: conversations,
		usage:         usage,
		logger:        logger,
	}
}

func (h *ChatHandler) Register(router *gin.Engine) {
	api := router.Group("/api")
	api.POST("/agents/:agent_id/messages", h.PostMessage)
	api.GET("/agents/:agent_id/conversations/:conversation_id/turns", h.GetTurns)
	api.GET("/accounts/:account_id/usage", h.GetUsage)
}

type postMessageRequest struct {
	AccountID      int64   `json:"account_id" binding:"required"`
	Message        string  `json:"message" binding:"required"`
	ConversationID *string `json:"conversation_id"`
}

func (h *ChatHandler) PostMessage(c *gin.Context) {
	agentID, err := uuid.Parse(c.Param("agent_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid agent id"})
		return
	}

	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var conversationID *uuid.UUID
	if req.ConversationID != nil {
		id, err := uuid.Parse(*req.ConversationID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
			return
		}
		conversationID = &id
	}

	result, err := h.conversations.ProcessMessage(c.Request.Context(), req.AccountID, agentID, req.Message, conversationID)
	if err != nil {
		if errors.Is(err, repositories.ErrAccountNotFound) || errors.Is(err, repositories.ErrAgentNotFound) || errors.Is(err, repositories.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("failed to process message", "error", err, "agent_id", agentID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process message"})
		return
	}

	switch result.Status {
	case services.TurnRejected:
		c.JSON(http.StatusPaymentRequired, result)
	case services.TurnGenerationFailed:
		c.JSON(http.StatusBadGateway, result)
	default:
		c.JSON(http.StatusOK, result)
	}
}

func (h *ChatHandler) GetTurns(c *gin.Context) {
	agentID, err := uuid.Parse(c.Param("agent_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid agent id"})
		return
	}

	conversationID, err := uuid.Parse(c.Param("conversation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	accountID, err := strconv.ParseInt(c.Query("account_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account_id is required"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	turns, err := h.conversations.ConversationTurns(c.Request.Context(), accountID, agentID, conversationID, limit)
	if err != nil {
		if errors.Is(err, repositories.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		h.logger.Error("failed to get turns", "error", err, "conversation_id", conversationID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get conversation turns"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"turns": turns, "count": len(turns)})
}

func (h *ChatHandler) GetUsage(c *gin.Context) {
	accountID, err := strconv.ParseInt(c.Param("account_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
		return
	}

	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
	if days <= 0 || days > 365 {
		days = 30
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -days)

	summary, err := h.usage.Summary(c.Request.Context(), accountID, from, to)
	if err != nil {
		h.logger.Error("failed to get usage summary", "error", err, "account_id", accountID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get usage summary"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"account_id": accountID,
		"from":       from.Format("2006-01-02"),
		"to":         to.Format("2006-01-02"),
		"usage":      summary,
	})
}
