package services

import (
	"chatforge/internal/domain/repositories"
	"context"
	"log/slog"
	"time"

	"chatforge/internal/domain/models"
)

type UsageService interface {
	// RecordMessage adds one processed message to today's aggregate.
	// Persistence failures are logged and swallowed: usage recording
	// must never abort an already-delivered response. Returns false
	// only when the write failed.
	RecordMessage(ctx context.Context, accountID int64, modelID string, tokensUsed int) bool

	RecordAIAction(ctx context.Context, accountID int64, actionType string) bool

	Summary(ctx context.Context, accountID int64, from, to time.Time) (*models.UsageSummary, error)
}

type usageService struct {
	usageRepo repositories.UsageRepository
	quota     QuotaService
	logger    *slog.Logger
}

func NewUsageService(usageRepo repositories.UsageRepository, quota QuotaService, logger *slog.Logger) UsageService {
	return &usageService{
		usageRepo: usageRepo,
		quota:     quota,
		logger:    logger,
	}
}

func (s *usageService) RecordMessage(ctx context.Context, accountID int64, modelID string, tokensUsed int) bool {
	delta := repositories.UsageDelta{
		Credits:  s.quota.CostForResource(modelID),
		Messages: 1,
		Tokens:   int64(tokensUsed),
	}

	if err := s.usageRepo.IncrementDaily(ctx, accountID, today(), delta); err != nil {
		s.logError("failed to record message usage", err, "account_id", accountID, "model_id", modelID)
		return false
	}
	return true
}

func (s *usageService) RecordAIAction(ctx context.Context, accountID int64, actionType string) bool {
	delta := repositories.UsageDelta{AIActions: 1}

	if err := s.usageRepo.IncrementDaily(ctx, accountID, today(), delta); err != nil {
		s.logError("failed to record AI action usage", err, "account_id", accountID, "action_type", actionType)
		return false
	}
	return true
}

func (s *usageService) Summary(ctx context.Context, accountID int64, from, to time.Time) (*models.UsageSummary, error) {
	return s.usageRepo.GetRange(ctx, accountID, from, to)
}

func today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *usageService) logError(msg string, err error, args ...interface{}) {
	if s.logger != nil {
		allArgs := append([]interface{}{"error", err}, args...)
		s.logger.Error(msg, allArgs...)
	}
}
