package database

import (
	"context"
	"database/sql"
	"fmt"

	"chatforge/internal/domain/models"
	"chatforge/internal/domain/repositories"

	"github.com/google/uuid"
)

type agentRepository struct {
	db *PostgresDB
}

func NewAgentRepository(db *PostgresDB) repositories.AgentRepository {
	return &agentRepository{db: db}
}

func (r *agentRepository) CreateAgent(ctx context.Context, agent *models.Agent) error {
	if agent.ID == uuid.Nil {
		agent.ID = uuid.New()
	}

	query := `INSERT INTO agents (id, account_id, name, model_id, max_tokens, temperature, tone, welcome_message)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
              RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(
		ctx, query,
		agent.ID,
		agent.AccountID,
		agent.Name,
		agent.ModelID,
		agent.MaxTokens,
		agent.Temperature,
		agent.Tone,
		agent.WelcomeMessage,
	).Scan(&agent.CreatedAt, &agent.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}
	return nil
}

func (r *agentRepository) GetAgent(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	var agent models.Agent
	query := `SELECT id, account_id, name, model_id, max_tokens, temperature, tone,
              welcome_message, created_at, updated_at
              FROM agents WHERE id = $1`

	err := r.db.GetContext(ctx, &agent, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("agent %s: %w", id, repositories.ErrAgentNotFound)
		}
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	return &agent, nil
}

func (r *agentRepository) GetAgentsByAccount(ctx context.Context, accountID int64) ([]*models.Agent, error) {
	var agents []*models.Agent
	query := `SELECT id, account_id, name, model_id, max_tokens, temperature, tone,
              welcome_message, created_at, updated_at
              FROM agents WHERE account_id = $1
              ORDER BY created_at`

	if err := r.db.SelectContext(ctx, &agents, query, accountID); err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	return agents, nil
}

func (r *agentRepository) UpdateAgent(ctx context.Context, agent *models.Agent) error {
	query := `UPDATE agents SET name = $2, model_id = $3, max_tokens = $4, temperature = $5,
              tone = $6, welcome_message = $7, updated_at = CURRENT_TIMESTAMP
              WHERE id = $1`

	result, err := r.db.ExecContext(
		ctx, query,
		agent.ID,
		agent.Name,
		agent.ModelID,
		agent.MaxTokens,
		agent.Temperature,
		agent.Tone,
		agent.WelcomeMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to update agent: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("agent %s: %w", agent.ID, repositories.ErrAgentNotFound)
	}
	return nil
}

func (r *agentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM agents WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete agent: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("agent %s: %w", id, repositories.ErrAgentNotFound)
	}
	return nil
}

func (r *agentRepository) CountByAccount(ctx context.Context, accountID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM agents WHERE account_id = $1`

	if err := r.db.GetContext(ctx, &count, query, accountID); err != nil {
		return 0, fmt.Errorf("failed to count agents: %w", err)
	}
	return count, nil
}
