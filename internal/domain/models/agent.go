package models

import (
	"time"

	"github.com/google/uuid"
)

// Agent is a configured chatbot persona belonging to an Account.
type Agent struct {
	ID             uuid.UUID `json:"id" db:"id"`
	AccountID      int64     `json:"account_id" db:"account_id"`
	Name           string    `json:"name" db:"name"`
	ModelID        string    `json:"model_id" db:"model_id"`
	MaxTokens      int       `json:"max_tokens" db:"max_tokens"`
	Temperature    float64   `json:"temperature" db:"temperature"`
	Tone           string    `json:"tone" db:"tone"`
	WelcomeMessage string    `json:"welcome_message" db:"welcome_message"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}
