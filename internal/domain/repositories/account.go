package repositories

import (
	"chatforge/internal/domain/models"
	"context"
	"time"
)

type AccountRepository interface {
	//create
	CreateAccount(ctx context.Context, account *models.Account) error

	//get
	GetAccountByID(ctx context.Context, id int64) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)

	//update
	UpdateAccount(ctx context.Context, account *models.Account) error
	UpdateAccountPlan(ctx context.Context, id int64, plan models.PlanTier, creditLimit int64) error

	// ConsumeCredits increments credits_used by units only if the
	// result stays within credit_limit, in a single atomic statement.
	// Returns false (state unchanged) when the balance is insufficient.
	ConsumeCredits(ctx context.Context, id int64, units int64) (bool, error)

	// ResetCredits zeroes credits_used and sets the next reset time.
	ResetCredits(ctx context.Context, id int64, resetAt time.Time) error

	//delete
	Delete(ctx context.Context, id int64) error
}
