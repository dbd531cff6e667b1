package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/riteshkumar/core-ledger/internal/models"
)

type PostgresBeneficiaryRepository struct {
	db dbtx
}

func NewBeneficiaryRepository(db dbtx) *PostgresBeneficiaryRepository {
	return &PostgresBeneficiaryRepository{db: db}
}

func (r *PostgresBeneficiaryRepository) Create(ctx context.Context, b *models.Beneficiary) error {
	query := `INSERT INTO beneficiaries (user_id, name, account_number, alias, cedula, phone, bank_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		b.UserID,
		b.Name,
		b.AccountNumber,
		b.Alias,
		b.Cedula,
		b.Phone,
		b.BankName,
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create beneficiary: %w", err)
	}
	return nil
}

func (r *PostgresBeneficiaryRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.Beneficiary, error) {
	query := `SELECT id, user_id, name, account_number, alias, cedula, phone, bank_name, created_at
		FROM beneficiaries
		WHERE user_id = $1
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get beneficiaries by user ID: %w", err)
	}
	defer rows.Close()

	beneficiaries := []*models.Beneficiary{}
	for rows.Next() {
		b := &models.Beneficiary{}
		var alias, cedula, phone sql.NullString
		err := rows.Scan(&b.ID, &b.UserID, &b.Name, &b.AccountNumber, &alias, &cedula, &phone, &b.BankName, &b.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan beneficiary: %w", err)
		}
		b.Alias = nullableString(alias)
		b.Cedula = nullableString(cedula)
		b.Phone = nullableString(phone)
		beneficiaries = append(beneficiaries, b)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over beneficiaries: %w", err)
	}
	return beneficiaries, nil
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
