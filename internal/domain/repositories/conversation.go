package repositories

import (
	"chatforge/internal/domain/models"
	"context"

	"github.com/google/uuid"
)

type ConversationRepository interface {
	Create(ctx context.Context, conv *models.Conversation) error

	// GetOwned returns the conversation only when it belongs to the
	// given agent and account; otherwise ErrConversationNotFound.
	GetOwned(ctx context.Context, id, agentID uuid.UUID, accountID int64) (*models.Conversation, error)

	// AppendTurn persists a new turn with the next sequence number for
	// the conversation. The sequence number is reserved inside the
	// insert itself so concurrent appends cannot assign duplicates.
	AppendTurn(ctx context.Context, conversationID uuid.UUID, role models.TurnRole, content string) (*models.Turn, error)

	// RecentTurns returns the most recent maxTurns turns in
	// chronological order, oldest first.
	RecentTurns(ctx context.Context, conversationID uuid.UUID, maxTurns int) ([]*models.Turn, error)

	CountTurns(ctx context.Context, conversationID uuid.UUID) (int, error)
}
