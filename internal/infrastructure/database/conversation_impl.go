package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"chatforge/internal/domain/models"
	"chatforge/internal/domain/repositories"

	"github.com/google/uuid"
)

type conversationRepository struct {
	db *PostgresDB
}

func NewConversationRepository(db *PostgresDB) repositories.ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) Create(ctx context.Context, conv *models.Conversation) error {
	if conv.ID == uuid.Nil {
		conv.ID = uuid.New()
	}

	metadataJSON, _ := json.Marshal(conv.Metadata)

	query := `INSERT INTO conversations (id, account_id, agent_id, metadata)
              VALUES ($1, $2, $3, $4)
              RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query, conv.ID, conv.AccountID, conv.AgentID, metadataJSON).
		Scan(&conv.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

func (r *conversationRepository) GetOwned(ctx context.Context, id, agentID uuid.UUID, accountID int64) (*models.Conversation, error) {
	query := `SELECT id, account_id, agent_id, metadata, created_at
              FROM conversations
              WHERE id = $1 AND agent_id = $2 AND account_id = $3`

	var conv models.Conversation
	var metadataJSON []byte

	err := r.db.QueryRowContext(ctx, query, id, agentID, accountID).Scan(
		&conv.ID,
		&conv.AccountID,
		&conv.AgentID,
		&metadataJSON,
		&conv.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("conversation %s: %w", id, repositories.ErrConversationNotFound)
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	json.Unmarshal(metadataJSON, &conv.Metadata)
	return &conv, nil
}

// AppendTurn reserves the sequence number inside the insert itself;
// the UNIQUE(conversation_id, sequence_number) constraint rejects the
// loser of any concurrent append instead of recording a duplicate.
func (r *conversationRepository) AppendTurn(ctx context.Context, conversationID uuid.UUID, role models.TurnRole, content string) (*models.Turn, error) {
	turn := &models.Turn{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
	}

	query := `INSERT INTO turns (id, conversation_id, role, content, sequence_number)
              VALUES ($1, $2, $3, $4,
                  (SELECT COALESCE(MAX(sequence_number), 0) + 1 FROM turns WHERE conversation_id = $2))
              RETURNING sequence_number, created_at`

	err := r.db.QueryRowContext(ctx, query, turn.ID, conversationID, role, content).
		Scan(&turn.SequenceNumber, &turn.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to append turn: %w", err)
	}
	return turn, nil
}

func (r *conversationRepository) RecentTurns(ctx context.Context, conversationID uuid.UUID, maxTurns int) ([]*models.Turn, error) {
	query := `SELECT id, conversation_id, role, content, sequence_number, created_at
              FROM (
                  SELECT id, conversation_id, role, content, sequence_number, created_at
                  FROM turns
                  WHERE conversation_id = $1
                  ORDER BY sequence_number DESC
                  LIMIT $2
              ) recent
              ORDER BY sequence_number ASC`

	var turns []*models.Turn
	if err := r.db.SelectContext(ctx, &turns, query, conversationID, maxTurns); err != nil {
		return nil, fmt.Errorf("failed to get recent turns: %w", err)
	}
	return turns, nil
}

func (r *conversationRepository) CountTurns(ctx context.Context, conversationID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM turns WHERE conversation_id = $1`

	if err := r.db.GetContext(ctx, &count, query, conversationID); err != nil {
		return 0, fmt.Errorf("failed to count turns: %w", err)
	}
	return count, nil
}
