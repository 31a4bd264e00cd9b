package repositories

import (
	"chatforge/internal/domain/models"
	"context"
	"time"
)

// UsageDelta is one increment applied to the daily usage row.
type UsageDelta struct {
	Credits   int64
	Messages  int64
	Tokens    int64
	AIActions int64
}

type UsageRepository interface {
	// IncrementDaily upserts the (account, day) row atomically:
	// create-with-zeros on first write, increment in place after.
	IncrementDaily(ctx context.Context, accountID int64, day time.Time, delta UsageDelta) error

	GetDaily(ctx context.Context, accountID int64, day time.Time) (*models.UsageRecord, error)

	// GetRange sums counters over [from, to] inclusive.
	GetRange(ctx context.Context, accountID int64, from, to time.Time) (*models.UsageSummary, error)
}
