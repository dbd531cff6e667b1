package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/riteshkumar/core-ledger/internal/models"
)

type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByUserID(ctx context.Context, userID int64) (*models.Account, error)
	GetByNumber(ctx context.Context, accountNumber string) (*models.Account, error)
	NumberExists(ctx context.Context, accountNumber string) (bool, error)
	// LockForUpdate row-locks the given accounts in ascending id order until
	// the surrounding transaction ends.
	LockForUpdate(ctx context.Context, ids ...int64) error
	// Debit subtracts amount only if the balance covers it and returns the new
	// balance. It fails with ErrInsufficientFunds otherwise.
	Debit(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error)
	Credit(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error)
}

type CardRepository interface {
	Create(ctx context.Context, card *models.Card) error
	ListByUserID(ctx context.Context, userID int64) ([]*models.Card, error)
	NumberExists(ctx context.Context, cardNumber string) (bool, error)
}

type TransactionRepository interface {
	Create(ctx context.Context, transaction *models.Transaction) error
	ListByUserID(ctx context.Context, userID int64) ([]*models.Transaction, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByUserID(ctx context.Context, userID int64) ([]*models.Notification, error)
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
}

type BeneficiaryRepository interface {
	Create(ctx context.Context, beneficiary *models.Beneficiary) error
	ListByUserID(ctx context.Context, userID int64) ([]*models.Beneficiary, error)
}

type AuditRepository interface {
	Create(ctx context.Context, log *models.AuditLog) error
	GetByEntityID(ctx context.Context, entityType, entityID string) ([]*models.AuditLog, error)
}

// Queries groups the repositories bound to one database handle, either the
// pool itself or an open transaction.
type Queries interface {
	Accounts() AccountRepository
	Cards() CardRepository
	Transactions() TransactionRepository
	Notifications() NotificationRepository
	Beneficiaries() BeneficiaryRepository
	Audit() AuditRepository
}

// Store is the ledger's system of record. Every state change of one logical
// operation runs inside a single WithinTx call: if fn returns an error nothing
// it wrote is kept.
type Store interface {
	Queries
	WithinTx(ctx context.Context, fn func(q Queries) error) error
}
