package models

import (
	"time"

	"github.com/google/uuid"
)

type SubscriptionStatus string

const (
	StatusActive     SubscriptionStatus = "active"
	StatusCanceled   SubscriptionStatus = "canceled"
	StatusIncomplete SubscriptionStatus = "incomplete"
	StatusPastDue    SubscriptionStatus = "past_due"
	StatusTrialing   SubscriptionStatus = "trialing"
	StatusUnpaid     SubscriptionStatus = "unpaid"
	StatusInactive   SubscriptionStatus = "inactive"
)

type Subscription struct {
	ID                   uuid.UUID          `json:"id" db:"id"`
	AccountID            int64              `json:"account_id" db:"account_id"`
	StripeCustomerID     *string            `json:"stripe_customer_id" db:"stripe_customer_id"`
	StripeSubscriptionID *string            `json:"stripe_subscription_id" db:"stripe_subscription_id"`
	Plan                 PlanTier           `json:"plan" db:"plan"`
	Status               SubscriptionStatus `json:"status" db:"status"`
	CurrentPeriodEnd     *time.Time         `json:"current_period_end" db:"current_period_end"`
	CancelAtPeriodEnd    bool               `json:"cancel_at_period_end" db:"cancel_at_period_end"`
	CreatedAt            time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at" db:"updated_at"`
}

// BillingEvent mirrors one raw payment-processor event. The raw
// payload is stored before the event is applied so that failed
// handling can be replayed manually.
type BillingEvent struct {
	ID          string     `json:"id" db:"id"`
	Type        string     `json:"type" db:"type"`
	Payload     []byte     `json:"payload" db:"payload"`
	ProcessedAt *time.Time `json:"processed_at" db:"processed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}
