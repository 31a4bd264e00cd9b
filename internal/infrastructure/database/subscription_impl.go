package database

import (
	"chatforge/internal/domain/models"
	"chatforge/internal/domain/repositories"
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type subscriptionRepository struct {
	db *PostgresDB
}

func NewSubscriptionRepository(db *PostgresDB) repositories.SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) GetByAccountID(ctx context.Context, accountID int64) (*models.Subscription, error) {
	var sub models.Subscription
	query := `
		SELECT id, account_id, stripe_customer_id, stripe_subscription_id, plan, status,
		       current_period_end, cancel_at_period_end, created_at, updated_at
		FROM subscriptions
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	err := r.db.GetContext(ctx, &sub, query, accountID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("account %d: %w", accountID, repositories.ErrSubscriptionNotFound)
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return &sub, nil
}

func (r *subscriptionRepository) GetByStripeSubscriptionID(ctx context.Context, stripeSubID string) (*models.Subscription, error) {
	var sub models.Subscription
	query := `
		SELECT id, account_id, stripe_customer_id, stripe_subscription_id, plan, status,
		       current_period_end, cancel_at_period_end, created_at, updated_at
		FROM subscriptions
		WHERE stripe_subscription_id = $1`

	err := r.db.GetContext(ctx, &sub, query, stripeSubID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("stripe subscription %s: %w", stripeSubID, repositories.ErrSubscriptionNotFound)
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return &sub, nil
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *models.Subscription) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}

	query := `
		INSERT INTO subscriptions (id, account_id, stripe_customer_id, stripe_subscription_id,
		                          plan, status, current_period_end, cancel_at_period_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, sub.ID, sub.AccountID, sub.StripeCustomerID,
		sub.StripeSubscriptionID, sub.Plan, sub.Status, sub.CurrentPeriodEnd,
		sub.CancelAtPeriodEnd).Scan(&sub.CreatedAt, &sub.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	return nil
}

func (r *subscriptionRepository) Update(ctx context.Context, sub *models.Subscription) error {
	query := `
		UPDATE subscriptions
		SET stripe_customer_id = $2, stripe_subscription_id = $3, plan = $4,
		    status = $5, current_period_end = $6, cancel_at_period_end = $7,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query, sub.ID, sub.StripeCustomerID,
		sub.StripeSubscriptionID, sub.Plan, sub.Status, sub.CurrentPeriodEnd,
		sub.CancelAtPeriodEnd).Scan(&sub.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}

	return nil
}

type billingEventRepository struct {
	db *PostgresDB
}

func NewBillingEventRepository(db *PostgresDB) repositories.BillingEventRepository {
	return &billingEventRepository{db: db}
}

// Store inserts the raw event, ignoring duplicates by event id so
// webhook redeliveries stay idempotent.
func (r *billingEventRepository) Store(ctx context.Context, event *models.BillingEvent) (bool, error) {
	query := `INSERT INTO billing_events (id, type, payload)
              VALUES ($1, $2, $3)
              ON CONFLICT (id) DO NOTHING`

	result, err := r.db.ExecContext(ctx, query, event.ID, event.Type, event.Payload)
	if err != nil {
		return false, fmt.Errorf("failed to store billing event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rowsAffected > 0, nil
}

func (r *billingEventRepository) MarkProcessed(ctx context.Context, eventID string, at time.Time) error {
	query := `UPDATE billing_events SET processed_at = $2 WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, eventID, at)
	if err != nil {
		return fmt.Errorf("failed to mark billing event processed: %w", err)
	}
	return nil
}
