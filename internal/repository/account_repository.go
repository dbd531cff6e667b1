package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/riteshkumar/core-ledger/internal/errors"
	"github.com/riteshkumar/core-ledger/internal/models"
)

const accountColumns = `id, user_id, account_number, balance, created_at, updated_at`

type PostgresAccountRepository struct {
	db dbtx
}

func NewAccountRepository(db dbtx) *PostgresAccountRepository {
	return &PostgresAccountRepository{db: db}
}

func (r *PostgresAccountRepository) Create(ctx context.Context, account *models.Account) error {
	query := `INSERT INTO accounts (user_id, account_number, balance, created_at, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, account.UserID, account.AccountNumber, account.Balance).
		Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)

	if err != nil {
		if constraint, ok := uniqueConstraint(err); ok {
			switch constraint {
			case "accounts_user_id_key":
				return errors.ErrAccountAlreadyExists
			case "accounts_account_number_key":
				return errors.ErrAccountNumberTaken
			}
			return fmt.Errorf("account unique constraint %s: %w", constraint, errors.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *PostgresAccountRepository) GetByUserID(ctx context.Context, userID int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1`
	return r.getOne(ctx, "user ID", query, userID)
}

func (r *PostgresAccountRepository) GetByNumber(ctx context.Context, accountNumber string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1`
	return r.getOne(ctx, "number", query, accountNumber)
}

func (r *PostgresAccountRepository) getOne(ctx context.Context, by, query string, arg interface{}) (*models.Account, error) {
	account := &models.Account{}
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&account.ID, &account.UserID, &account.AccountNumber, &account.Balance, &account.CreatedAt, &account.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account by %s: %w", by, err)
	}
	return account, nil
}

func (r *PostgresAccountRepository) NumberExists(ctx context.Context, accountNumber string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM accounts WHERE account_number = $1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, accountNumber).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check if account number exists: %w", err)
	}
	return exists, nil
}

func (r *PostgresAccountRepository) LockForUpdate(ctx context.Context, ids ...int64) error {
	query := `SELECT id FROM accounts WHERE id = ANY($1) ORDER BY id FOR UPDATE`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to lock accounts: %w", err)
	}
	defer rows.Close()

	locked := make(map[int64]bool, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("failed to scan locked account: %w", err)
		}
		locked[id] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating over locked accounts: %w", err)
	}

	for _, id := range ids {
		if !locked[id] {
			return errors.ErrAccountNotFound
		}
	}
	return nil
}

func (r *PostgresAccountRepository) Debit(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error) {
	query := `UPDATE accounts SET balance = balance - $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND balance >= $1
		RETURNING balance`

	var balance decimal.Decimal
	err := r.db.QueryRowContext(ctx, query, amount, id).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if err != sql.ErrNoRows {
		return decimal.Zero, fmt.Errorf("failed to debit account: %w", err)
	}

	// No row matched: either the account is gone or the balance is short.
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return decimal.Zero, fmt.Errorf("failed to check account after debit: %w", err)
	}
	if !exists {
		return decimal.Zero, errors.ErrAccountNotFound
	}
	return decimal.Zero, errors.ErrInsufficientFunds
}

func (r *PostgresAccountRepository) Credit(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error) {
	query := `UPDATE accounts SET balance = balance + $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
		RETURNING balance`

	var balance decimal.Decimal
	if err := r.db.QueryRowContext(ctx, query, amount, id).Scan(&balance); err != nil {
		if err == sql.ErrNoRows {
			return decimal.Zero, errors.ErrAccountNotFound
		}
		return decimal.Zero, fmt.Errorf("failed to credit account: %w", err)
	}
	return balance, nil
}
