package services

import (
	"chatforge/internal/domain/models"
	"chatforge/internal/domain/repositories"
	"chatforge/internal/infrastructure/ai"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

type TurnStatus string

const (
	TurnCompleted        TurnStatus = "completed"
	TurnRejected         TurnStatus = "rejected"
	TurnGenerationFailed TurnStatus = "generation_failed"
)

// TurnResult is the tagged outcome of one processed message. Status
// selects which fields are meaningful.
type TurnResult struct {
	Status           TurnStatus       `json:"status"`
	Response         string           `json:"response,omitempty"`
	ConversationID   uuid.UUID        `json:"conversation_id,omitempty"`
	MessageID        uuid.UUID        `json:"message_id,omitempty"`
	TokensUsed       int              `json:"tokens_used"`
	CreditsCharged   int64            `json:"credits_charged"`
	CreditsRemaining int64            `json:"credits_remaining"`
	TurnCount        int              `json:"turn_count"`
	Duration         time.Duration    `json:"duration"`
	Reason           string           `json:"reason,omitempty"`
	SuggestedPlan    *models.PlanTier `json:"suggested_plan,omitempty"`
	Detail           string           `json:"detail,omitempty"`
}

// ConversationOptions tunes per-deployment pipeline behavior.
type ConversationOptions struct {
	// StrictLookup makes an unknown conversation id an error instead
	// of silently starting a new conversation.
	StrictLookup bool

	// ContextTurns caps how many recent turns are sent as context.
	ContextTurns int
}

const defaultContextTurns = 20

type ConversationService interface {
	ProcessMessage(ctx context.Context, accountID int64, agentID uuid.UUID, message string, conversationID *uuid.UUID) (*TurnResult, error)
	ConversationTurns(ctx context.Context, accountID int64, agentID, conversationID uuid.UUID, maxTurns int) ([]*models.Turn, error)
}

type conversationService struct {
	accountRepo repositories.AccountRepository
	agentRepo   repositories.AgentRepository
	convRepo    repositories.ConversationRepository
	quota       QuotaService
	usage       UsageService
	completions ai.CompletionClient
	opts        ConversationOptions
	logger      *slog.Logger
}

func NewConversationService(
	accountRepo repositories.AccountRepository,
	agentRepo repositories.AgentRepository,
	convRepo repositories.ConversationRepository,
	quota QuotaService,
	usage UsageService,
	completions ai.CompletionClient,
	opts ConversationOptions,
	logger *slog.Logger,
) ConversationService {
	if opts.ContextTurns <= 0 {
		opts.ContextTurns = defaultContextTurns
	}
	return &conversationService{
		accountRepo: accountRepo,
		agentRepo:   agentRepo,
		convRepo:    convRepo,
		quota:       quota,
		usage:       usage,
		completions: completions,
		opts:        opts,
		logger:      logger,
	}
}

// ProcessMessage runs the turn pipeline: quota check, conversation
// resolve, context build, generation, persistence, quota commit, usage
// recording. The pipeline is linear; every external failure maps to
// one terminal state and nothing is retried.
func (s *conversationService) ProcessMessage(ctx context.Context, accountID int64, agentID uuid.UUID, message string, conversationID *uuid.UUID) (*TurnResult, error) {
	start := time.Now()

	account, err := s.accountRepo.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("account not found: %w", err)
	}

	agent, err := s.agentRepo.GetAgent(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("agent not found: %w", err)
	}
	if agent.AccountID != accountID {
		return nil, fmt.Errorf("agent %s belongs to a different account", agentID)
	}

	unitsNeeded := s.quota.CostForResource(agent.ModelID)
	allowed, reason := s.quota.CheckAllowance(ctx, account, unitsNeeded)
	if !allowed {
		return &TurnResult{
			Status:           TurnRejected,
			Reason:           reason,
			SuggestedPlan:    s.quota.UpgradeSuggestion(account, CapabilityCredits),
			CreditsRemaining: account.CreditsRemaining(),
			Duration:         time.Since(start),
		}, nil
	}

	conv, err := s.resolveConversation(ctx, account, agent, conversationID)
	if err != nil {
		return nil, err
	}

	history, err := s.convRepo.RecentTurns(ctx, conv.ID, s.opts.ContextTurns)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation context: %w", err)
	}

	result := s.completions.Generate(ctx, ai.GenerateRequest{
		Message:      message,
		History:      history,
		ModelID:      agent.ModelID,
		MaxTokens:    agent.MaxTokens,
		Temperature:  agent.Temperature,
		SystemPrompt: buildSystemPrompt(agent),
	})

	if !result.Success {
		// Nothing was persisted and no credits were consumed; the
		// whole attempt is a no-op from the account's perspective.
		return &TurnResult{
			Status:         TurnGenerationFailed,
			Response:       result.Content,
			ConversationID: conv.ID,
			Detail:         result.Error,
			Duration:       time.Since(start),
		}, nil
	}

	if _, err := s.convRepo.AppendTurn(ctx, conv.ID, models.RoleUser, message); err != nil {
		s.logError("failed to persist user turn after generation", err, "conversation_id", conv.ID)
		return nil, fmt.Errorf("failed to persist user turn: %w", err)
	}

	assistantTurn, err := s.convRepo.AppendTurn(ctx, conv.ID, models.RoleAssistant, result.Content)
	if err != nil {
		s.logError("failed to persist assistant turn after generation", err, "conversation_id", conv.ID)
		return nil, fmt.Errorf("failed to persist assistant turn: %w", err)
	}

	var creditsCharged int64
	if s.quota.CommitConsumption(ctx, account, unitsNeeded) {
		creditsCharged = unitsNeeded
	} else {
		// Balance was exhausted by a concurrent request between check
		// and commit. The turns stay; the account is not charged.
		s.logWarn("credit commit denied after generation", "account_id", accountID, "units", unitsNeeded)
	}

	s.usage.RecordMessage(ctx, accountID, agent.ModelID, result.TotalTokens)

	turnCount, err := s.convRepo.CountTurns(ctx, conv.ID)
	if err != nil {
		s.logError("failed to count turns", err, "conversation_id", conv.ID)
		turnCount = assistantTurn.SequenceNumber
	}

	return &TurnResult{
		Status:           TurnCompleted,
		Response:         result.Content,
		ConversationID:   conv.ID,
		MessageID:        assistantTurn.ID,
		TokensUsed:       result.TotalTokens,
		CreditsCharged:   creditsCharged,
		CreditsRemaining: account.CreditsRemaining(),
		TurnCount:        turnCount,
		Duration:         time.Since(start),
	}, nil
}

func (s *conversationService) ConversationTurns(ctx context.Context, accountID int64, agentID, conversationID uuid.UUID, maxTurns int) ([]*models.Turn, error) {
	if maxTurns <= 0 || maxTurns > 100 {
		maxTurns = 50
	}

	conv, err := s.convRepo.GetOwned(ctx, conversationID, agentID, accountID)
	if err != nil {
		return nil, err
	}

	return s.convRepo.RecentTurns(ctx, conv.ID, maxTurns)
}

// resolveConversation finds the conversation by id within the agent
// and account scope, or creates a new one. An unknown id falls back to
// creating unless StrictLookup is set.
func (s *conversationService) resolveConversation(ctx context.Context, account *models.Account, agent *models.Agent, conversationID *uuid.UUID) (*models.Conversation, error) {
	if conversationID != nil {
		conv, err := s.convRepo.GetOwned(ctx, *conversationID, agent.ID, account.ID)
		if err == nil {
			return conv, nil
		}
		if !errors.Is(err, repositories.ErrConversationNotFound) {
			return nil, fmt.Errorf("failed to resolve conversation: %w", err)
		}
		if s.opts.StrictLookup {
			return nil, fmt.Errorf("conversation %s: %w", *conversationID, err)
		}
	}

	conv := &models.Conversation{
		ID:        uuid.New(),
		AccountID: account.ID,
		AgentID:   agent.ID,
		Metadata: map[string]interface{}{
			"agent_name": agent.Name,
		},
	}
	if err := s.convRepo.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv, nil
}

func buildSystemPrompt(agent *models.Agent) string {
	name := agent.Name
	if name == "" {
		name = "Assistant"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a helpful AI assistant.", name)
	if agent.Tone != "" {
		fmt.Fprintf(&b, " Respond in a %s tone.", agent.Tone)
	}
	if agent.WelcomeMessage != "" {
		fmt.Fprintf(&b, " When greeting new users, take your cue from: %q.", agent.WelcomeMessage)
	}
	return b.String()
}

func (s *conversationService) logError(msg string, err error, args ...interface{}) {
	if s.logger != nil {
		allArgs := append([]interface{}{"error", err}, args...)
		s.logger.Error(msg, allArgs...)
	}
}

func (s *conversationService) logWarn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
