package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/riteshkumar/core-ledger/internal/models"
)

type PostgresTransactionRepository struct {
	db dbtx
}

func NewTransactionRepository(db dbtx) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{db: db}
}

// Create appends one ledger leg. Legs are never updated afterwards.
func (r *PostgresTransactionRepository) Create(ctx context.Context, transaction *models.Transaction) error {
	// Generate reference if not set
	if transaction.Reference == uuid.Nil {
		transaction.Reference = uuid.New()
	}

	query := `INSERT INTO transactions (reference, user_id, amount, transaction_type, description, related_account_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, timestamp`

	err := r.db.QueryRowContext(ctx, query,
		transaction.Reference,
		transaction.UserID,
		transaction.Amount,
		string(transaction.Type),
		transaction.Description,
		transaction.RelatedAccountID,
	).Scan(&transaction.ID, &transaction.Timestamp)

	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *PostgresTransactionRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.Transaction, error) {
	query := `SELECT id, reference, user_id, amount, transaction_type, description, timestamp, related_account_id
		FROM transactions
		WHERE user_id = $1
		ORDER BY timestamp DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions by user ID: %w", err)
	}
	defer rows.Close()

	transactions := []*models.Transaction{}
	for rows.Next() {
		transaction := &models.Transaction{}
		var txType string
		var related sql.NullInt64
		err := rows.Scan(&transaction.ID, &transaction.Reference, &transaction.UserID, &transaction.Amount,
			&txType, &transaction.Description, &transaction.Timestamp, &related)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transaction.Type = models.TransactionType(txType)
		if related.Valid {
			id := related.Int64
			transaction.RelatedAccountID = &id
		}
		transactions = append(transactions, transaction)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over transactions: %w", err)
	}
	return transactions, nil
}
