package repositories

import (
	"chatforge/internal/domain/models"
	"context"

	"github.com/google/uuid"
)

type AgentRepository interface {
	CreateAgent(ctx context.Context, agent *models.Agent) error
	GetAgent(ctx context.Context, id uuid.UUID) (*models.Agent, error)
	GetAgentsByAccount(ctx context.Context, accountID int64) ([]*models.Agent, error)
	UpdateAgent(ctx context.Context, agent *models.Agent) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByAccount(ctx context.Context, accountID int64) (int, error)
}
