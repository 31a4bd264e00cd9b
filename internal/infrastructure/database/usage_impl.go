package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"chatforge/internal/domain/models"
	"chatforge/internal/domain/repositories"
)

type usageRepository struct {
	db *PostgresDB
}

func NewUsageRepository(db *PostgresDB) repositories.UsageRepository {
	return &usageRepository{db: db}
}

// IncrementDaily is a single upsert: the first write of the day
// creates the row, later writes increment in place. The database's
// row-level atomicity is the only serialization point.
func (r *usageRepository) IncrementDaily(ctx context.Context, accountID int64, day time.Time, delta repositories.UsageDelta) error {
	query := `INSERT INTO usage_records (account_id, usage_date, credits_used, messages_sent, tokens_used, ai_actions_used)
              VALUES ($1, $2, $3, $4, $5, $6)
              ON CONFLICT (account_id, usage_date) DO UPDATE SET
                  credits_used    = usage_records.credits_used + EXCLUDED.credits_used,
                  messages_sent   = usage_records.messages_sent + EXCLUDED.messages_sent,
                  tokens_used     = usage_records.tokens_used + EXCLUDED.tokens_used,
                  ai_actions_used = usage_records.ai_actions_used + EXCLUDED.ai_actions_used,
                  updated_at      = CURRENT_TIMESTAMP`

	_, err := r.db.ExecContext(ctx, query, accountID, day, delta.Credits, delta.Messages, delta.Tokens, delta.AIActions)
	if err != nil {
		return fmt.Errorf("failed to upsert usage record: %w", err)
	}
	return nil
}

func (r *usageRepository) GetDaily(ctx context.Context, accountID int64, day time.Time) (*models.UsageRecord, error) {
	var record models.UsageRecord
	query := `SELECT account_id, usage_date, credits_used, messages_sent, tokens_used,
              ai_actions_used, created_at, updated_at
              FROM usage_records
              WHERE account_id = $1 AND usage_date = $2`

	err := r.db.GetContext(ctx, &record, query, accountID, day)
	if err != nil {
		if err == sql.ErrNoRows {
			// No activity yet today; report zeros.
			return &models.UsageRecord{AccountID: accountID, UsageDate: day}, nil
		}
		return nil, fmt.Errorf("failed to get usage record: %w", err)
	}
	return &record, nil
}

func (r *usageRepository) GetRange(ctx context.Context, accountID int64, from, to time.Time) (*models.UsageSummary, error) {
	var summary models.UsageSummary
	query := `SELECT COALESCE(SUM(credits_used), 0)    AS credits_used,
                     COALESCE(SUM(messages_sent), 0)   AS messages_sent,
                     COALESCE(SUM(tokens_used), 0)     AS tokens_used,
                     COALESCE(SUM(ai_actions_used), 0) AS ai_actions_used
              FROM usage_records
              WHERE account_id = $1 AND usage_date BETWEEN $2 AND $3`

	if err := r.db.GetContext(ctx, &summary, query, accountID, from, to); err != nil {
		return nil, fmt.Errorf("failed to sum usage records: %w", err)
	}
	return &summary, nil
}
