package repository

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"time"

	"github.com/lib/pq"

	"github.com/riteshkumar/core-ledger/internal/errors"
)

//go:embed migrations/*.sql
var migrations embed.FS

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type postgresQueries struct {
	accounts      *PostgresAccountRepository
	cards         *PostgresCardRepository
	transactions  *PostgresTransactionRepository
	notifications *PostgresNotificationRepository
	beneficiaries *PostgresBeneficiaryRepository
	audit         *PostgresAuditRepository
}

func newPostgresQueries(db dbtx) *postgresQueries {
	return &postgresQueries{
		accounts:      NewAccountRepository(db),
		cards:         NewCardRepository(db),
		transactions:  NewTransactionRepository(db),
		notifications: NewNotificationRepository(db),
		beneficiaries: NewBeneficiaryRepository(db),
		audit:         NewAuditRepository(db),
	}
}

func (q *postgresQueries) Accounts() AccountRepository           { return q.accounts }
func (q *postgresQueries) Cards() CardRepository                 { return q.cards }
func (q *postgresQueries) Transactions() TransactionRepository   { return q.transactions }
func (q *postgresQueries) Notifications() NotificationRepository { return q.notifications }
func (q *postgresQueries) Beneficiaries() BeneficiaryRepository  { return q.beneficiaries }
func (q *postgresQueries) Audit() AuditRepository                { return q.audit }

type PostgresStore struct {
	*postgresQueries
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{postgresQueries: newPostgresQueries(db), db: db}
}

// WithinTx runs fn in a READ COMMITTED transaction. Balance writes rely on
// row locks and conditional updates, not on serializable isolation.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(q Queries) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return errors.NewTransactionError("begin", err)
	}

	// Ensure rollback on error
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	if err := fn(newPostgresQueries(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.NewTransactionError("commit", err)
	}

	// Nullify tx to avoid rollback in defer
	tx = nil
	return nil
}

// Migrate applies the embedded schema files in name order. Every statement is
// idempotent so it is safe to run on each start.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		body, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", name, err)
		}
	}
	return nil
}

// OpenPostgres opens a pool and retries the initial ping, since the database
// container may still be starting.
func OpenPostgres(ctx context.Context, dsn string, attempts int, interval time.Duration, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(10 * time.Minute)

	if attempts < 1 {
		attempts = 1
	}
	for i := 1; i <= attempts; i++ {
		err = db.PingContext(ctx)
		if err == nil {
			return db, nil
		}
		logger.Warn("database not reachable",
			"attempt", i,
			"max_attempts", attempts,
			"error", err.Error(),
		)
		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
	db.Close()
	return nil, fmt.Errorf("failed to ping database: %w", err)
}

const uniqueViolation = "23505"

// uniqueConstraint returns the violated constraint name for a 23505 error.
func uniqueConstraint(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return pqErr.Constraint, true
	}
	return "", false
}
