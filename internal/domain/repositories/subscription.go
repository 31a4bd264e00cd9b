package repositories

import (
	"chatforge/internal/domain/models"
	"context"
	"time"
)

type SubscriptionRepository interface {
	GetByAccountID(ctx context.Context, accountID int64) (*models.Subscription, error)
	GetByStripeSubscriptionID(ctx context.Context, stripeSubID string) (*models.Subscription, error)
	Create(ctx context.Context, sub *models.Subscription) error
	Update(ctx context.Context, sub *models.Subscription) error
}

type BillingEventRepository interface {
	// Store records the raw event; duplicate event ids are ignored so
	// redelivered webhooks stay idempotent. Returns true when the
	// event was newly stored.
	Store(ctx context.Context, event *models.BillingEvent) (bool, error)
	MarkProcessed(ctx context.Context, eventID string, at time.Time) error
}
