package repository

import (
	"context"
	"fmt"

	"github.com/riteshkumar/core-ledger/internal/errors"
	"github.com/riteshkumar/core-ledger/internal/models"
)

type PostgresCardRepository struct {
	db dbtx
}

func NewCardRepository(db dbtx) *PostgresCardRepository {
	return &PostgresCardRepository{db: db}
}

func (r *PostgresCardRepository) Create(ctx context.Context, card *models.Card) error {
	query := `INSERT INTO cards (user_id, card_number, expiry, cvv, credit_limit)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		card.UserID,
		card.CardNumber,
		card.Expiry,
		card.CVV,
		card.CreditLimit,
	).Scan(&card.ID, &card.CreatedAt)

	if err != nil {
		if _, ok := uniqueConstraint(err); ok {
			return errors.ErrCardNumberTaken
		}
		return fmt.Errorf("failed to create card: %w", err)
	}
	return nil
}

func (r *PostgresCardRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.Card, error) {
	query := `SELECT id, user_id, card_number, expiry, cvv, credit_limit, created_at
		FROM cards
		WHERE user_id = $1
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cards by user ID: %w", err)
	}
	defer rows.Close()

	cards := []*models.Card{}
	for rows.Next() {
		card := &models.Card{}
		if err := rows.Scan(&card.ID, &card.UserID, &card.CardNumber, &card.Expiry, &card.CVV, &card.CreditLimit, &card.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, card)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over cards: %w", err)
	}
	return cards, nil
}

func (r *PostgresCardRepository) NumberExists(ctx context.Context, cardNumber string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM cards WHERE card_number = $1)`, cardNumber).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check if card number exists: %w", err)
	}
	return exists, nil
}
