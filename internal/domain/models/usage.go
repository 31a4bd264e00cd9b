package models

import (
	"time"
)

// UsageRecord is the daily aggregate counter row per account. One row
// per (account, calendar date), upserted atomically: the first write
// creates the zeroed row, subsequent writes increment in place.
type UsageRecord struct {
	AccountID     int64     `json:"account_id" db:"account_id"`
	UsageDate     time.Time `json:"usage_date" db:"usage_date"`
	CreditsUsed   int64     `json:"credits_used" db:"credits_used"`
	MessagesSent  int64     `json:"messages_sent" db:"messages_sent"`
	TokensUsed    int64     `json:"tokens_used" db:"tokens_used"`
	AIActionsUsed int64     `json:"ai_actions_used" db:"ai_actions_used"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// UsageSummary is the date-range rollup returned for reporting.
type UsageSummary struct {
	CreditsUsed   int64 `json:"credits_used" db:"credits_used"`
	MessagesSent  int64 `json:"messages_sent" db:"messages_sent"`
	TokensUsed    int64 `json:"tokens_used" db:"tokens_used"`
	AIActionsUsed int64 `json:"ai_actions_used" db:"ai_actions_used"`
}
