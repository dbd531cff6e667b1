package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/riteshkumar/core-ledger/internal/errors"
	"github.com/riteshkumar/core-ledger/internal/identifier"
	"github.com/riteshkumar/core-ledger/internal/metrics"
	"github.com/riteshkumar/core-ledger/internal/models"
	"github.com/riteshkumar/core-ledger/internal/repository"
)

// maxAllocationAttempts bounds how often an insert is retried after losing a
// UNIQUE race on a freshly generated number.
const maxAllocationAttempts = 5

type AccountService interface {
	CreateAccount(ctx context.Context, userID int64) (*models.Account, error)
	GetAccount(ctx context.Context, userID int64) (*models.Account, error)
	CreateCard(ctx context.Context, userID int64) (*models.Card, error)
	ListCards(ctx context.Context, userID int64) ([]*models.Card, error)
}

type AccountServiceImpl struct {
	store   repository.Store
	ids     *identifier.Generator
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

func NewAccountService(store repository.Store, ids *identifier.Generator, m *metrics.Metrics, logger *slog.Logger) *AccountServiceImpl {
	return &AccountServiceImpl{
		store:   store,
		ids:     ids,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// CreateAccount returns the caller's account, opening one with a zero balance
// on first use. Concurrent first calls converge on the same account.
func (s *AccountServiceImpl) CreateAccount(ctx context.Context, userID int64) (*models.Account, error) {
	if userID <= 0 {
		return nil, errors.NewValidationError("user_id", "must be positive")
	}

	existing, err := s.store.Accounts().GetByUserID(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.IsNotFound(err) {
		s.logger.Error("failed to look up account",
			"user_id", userID,
			"error", err.Error(),
		)
		return nil, err
	}

	for attempt := 1; attempt <= maxAllocationAttempts; attempt++ {
		number, err := s.ids.AccountNumber(ctx, s.store.Accounts().NumberExists)
		if err != nil {
			return nil, err
		}

		account := &models.Account{
			UserID:        userID,
			AccountNumber: number,
			Balance:       decimal.Zero,
		}
		err = s.store.WithinTx(ctx, func(q repository.Queries) error {
			if err := q.Accounts().Create(ctx, account); err != nil {
				return err
			}
			return createAccountAuditLog(ctx, q, account)
		})

		switch {
		case err == nil:
			s.metrics.AccountCreated()
			s.logger.Info("account created successfully",
				"user_id", userID,
				"account_number", account.AccountNumber,
			)
			return account, nil
		case errors.Is(err, errors.ErrAccountAlreadyExists):
			// Another request opened the account first; return theirs.
			return s.store.Accounts().GetByUserID(ctx, userID)
		case errors.Is(err, errors.ErrAccountNumberTaken):
			s.logger.Warn("account number collision, retrying",
				"user_id", userID,
				"attempt", attempt,
			)
			continue
		default:
			s.logger.Error("failed to create account",
				"user_id", userID,
				"error", err.Error(),
			)
			return nil, err
		}
	}

	return nil, fmt.Errorf("allocate account number: %w", errors.ErrAccountNumberTaken)
}

func (s *AccountServiceImpl) GetAccount(ctx context.Context, userID int64) (*models.Account, error) {
	account, err := s.store.Accounts().GetByUserID(ctx, userID)
	if err != nil {
		if errors.IsNotFound(err) {
			s.logger.Warn("account not found",
				"user_id", userID,
			)
			return nil, err
		}
		s.logger.Error("failed to get account",
			"user_id", userID,
			"error", err.Error(),
		)
		return nil, err
	}
	return account, nil
}

// CreateCard always issues a new card; a user may hold any number of them.
func (s *AccountServiceImpl) CreateCard(ctx context.Context, userID int64) (*models.Card, error) {
	if userID <= 0 {
		return nil, errors.NewValidationError("user_id", "must be positive")
	}

	for attempt := 1; attempt <= maxAllocationAttempts; attempt++ {
		number, err := s.ids.CardNumber(ctx, s.store.Cards().NumberExists)
		if err != nil {
			return nil, err
		}

		card := &models.Card{
			UserID:      userID,
			CardNumber:  number,
			Expiry:      s.ids.Expiry(s.now()),
			CVV:         s.ids.CVV(),
			CreditLimit: models.DefaultCreditLimit,
		}
		err = s.store.Cards().Create(ctx, card)
		if err == nil {
			s.metrics.CardIssued()
			s.logger.Info("card issued",
				"user_id", userID,
				"card_id", card.ID,
			)
			return card, nil
		}
		if !errors.Is(err, errors.ErrCardNumberTaken) {
			s.logger.Error("failed to create card",
				"user_id", userID,
				"error", err.Error(),
			)
			return nil, err
		}
		s.logger.Warn("card number collision, retrying",
			"user_id", userID,
			"attempt", attempt,
		)
	}

	return nil, fmt.Errorf("allocate card number: %w", errors.ErrCardNumberTaken)
}

func (s *AccountServiceImpl) ListCards(ctx context.Context, userID int64) ([]*models.Card, error) {
	cards, err := s.store.Cards().ListByUserID(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list cards",
			"user_id", userID,
			"error", err.Error(),
		)
		return nil, err
	}
	return cards, nil
}

func createAccountAuditLog(ctx context.Context, q repository.Queries, account *models.Account) error {
	newValue, err := json.Marshal(models.AccountBalanceSnapshot{
		ID:            account.ID,
		AccountNumber: account.AccountNumber,
		Balance:       account.Balance,
	})
	if err != nil {
		return err
	}

	return q.Audit().Create(ctx, &models.AuditLog{
		EntityType: models.EntityTypeAccount,
		EntityID:   strconv.FormatInt(account.ID, 10),
		Action:     models.AuditActionCreate,
		NewValue:   newValue,
	})
}
