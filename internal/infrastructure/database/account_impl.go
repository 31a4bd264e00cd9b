package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"chatforge/internal/domain/models"
	"chatforge/internal/domain/repositories"
)

type accountRepository struct {
	db *PostgresDB
}

func NewAccountRepository(db *PostgresDB) repositories.AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) CreateAccount(ctx context.Context, account *models.Account) error {
	query := `INSERT INTO accounts (email, name, plan, credits_used, credit_limit, credits_reset_at, max_agents, max_storage_mb)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
              RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(
		ctx, query,
		account.Email,
		account.Name,
		account.Plan,
		account.CreditsUsed,
		account.CreditLimit,
		account.CreditsResetAt,
		account.MaxAgents,
		account.MaxStorageMB,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *accountRepository) GetAccountByID(ctx context.Context, id int64) (*models.Account, error) {
	var account models.Account
	query := `SELECT id, email, name, plan, credits_used, credit_limit, credits_reset_at,
              max_agents, max_storage_mb, created_at, updated_at
              FROM accounts WHERE id = $1`

	err := r.db.GetContext(ctx, &account, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("account %d: %w", id, repositories.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("failed to get account by id: %w", err)
	}
	return &account, nil
}

func (r *accountRepository) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	query := `SELECT id, email, name, plan, credits_used, credit_limit, credits_reset_at,
              max_agents, max_storage_mb, created_at, updated_at
              FROM accounts WHERE email = $1`

	err := r.db.GetContext(ctx, &account, query, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("account %s: %w", email, repositories.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}
	return &account, nil
}

func (r *accountRepository) UpdateAccount(ctx context.Context, account *models.Account) error {
	query := `UPDATE accounts SET email = $2, name = $3, plan = $4, credits_used = $5,
              credit_limit = $6, credits_reset_at = $7, max_agents = $8, max_storage_mb = $9,
              updated_at = CURRENT_TIMESTAMP
              WHERE id = $1`

	result, err := r.db.ExecContext(
		ctx, query,
		account.ID,
		account.Email,
		account.Name,
		account.Plan,
		account.CreditsUsed,
		account.CreditLimit,
		account.CreditsResetAt,
		account.MaxAgents,
		account.MaxStorageMB,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("account %d: %w", account.ID, repositories.ErrAccountNotFound)
	}
	return nil
}

func (r *accountRepository) UpdateAccountPlan(ctx context.Context, id int64, plan models.PlanTier, creditLimit int64) error {
	query := `UPDATE accounts SET plan = $2, credit_limit = $3, updated_at = CURRENT_TIMESTAMP
              WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, plan, creditLimit)
	if err != nil {
		return fmt.Errorf("failed to update account plan: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("account %d: %w", id, repositories.ErrAccountNotFound)
	}
	return nil
}

// ConsumeCredits performs the conditional increment in one statement;
// the WHERE clause is the only place the limit is enforced, so there
// is no check-then-act window.
func (r *accountRepository) ConsumeCredits(ctx context.Context, id int64, units int64) (bool, error) {
	query := `UPDATE accounts
              SET credits_used = credits_used + $2, updated_at = CURRENT_TIMESTAMP
              WHERE id = $1 AND credits_used + $2 <= credit_limit`

	result, err := r.db.ExecContext(ctx, query, id, units)
	if err != nil {
		return false, fmt.Errorf("failed to consume credits: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rowsAffected > 0, nil
}

func (r *accountRepository) ResetCredits(ctx context.Context, id int64, resetAt time.Time) error {
	query := `UPDATE accounts SET credits_used = 0, credits_reset_at = $2, updated_at = CURRENT_TIMESTAMP
              WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id, resetAt)
	if err != nil {
		return fmt.Errorf("failed to reset credits: %w", err)
	}
	return nil
}

func (r *accountRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM accounts WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("account %d: %w", id, repositories.ErrAccountNotFound)
	}
	return nil
}
