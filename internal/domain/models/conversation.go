package models

import (
	"time"

	"github.com/google/uuid"
)

// TurnRole is a closed two-value enumeration: system/tool roles are
// not modeled at this layer.
type TurnRole string

const (
	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
)

type Conversation struct {
	ID        uuid.UUID              `json:"id" db:"id"`
	AccountID int64                  `json:"account_id" db:"account_id"`
	AgentID   uuid.UUID              `json:"agent_id" db:"agent_id"`
	Metadata  map[string]interface{} `json:"metadata" db:"metadata"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
}

// Turn is one message in a Conversation. Turns are immutable once
// created; sequence numbers are unique and monotonically increasing
// within their conversation.
type Turn struct {
	ID             uuid.UUID `json:"id" db:"id"`
	ConversationID uuid.UUID `json:"conversation_id" db:"conversation_id"`
	Role           TurnRole  `json:"role" db:"role"`
	Content        string    `json:"content" db:"content"`
	SequenceNumber int       `json:"sequence_number" db:"sequence_number"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
