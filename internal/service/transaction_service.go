package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/riteshkumar/core-ledger/internal/errors"
	"github.com/riteshkumar/core-ledger/internal/events"
	"github.com/riteshkumar/core-ledger/internal/metrics"
	"github.com/riteshkumar/core-ledger/internal/models"
	"github.com/riteshkumar/core-ledger/internal/repository"
	"github.com/riteshkumar/core-ledger/internal/utils"
)

const (
	defaultTransferDescription = "Transfer"
	mintDescription            = "Branch deposit (mint)"
	transferNotificationTitle  = "Transfer received"
)

type TransactionService interface {
	Transfer(ctx context.Context, req *models.TransferRequest) (*models.TransferResult, error)
	Mint(ctx context.Context, req *models.MintRequest) (*models.MintResult, error)
	ListTransactions(ctx context.Context, userID int64) ([]*models.Transaction, error)
}

type TransactionServiceImpl struct {
	store     repository.Store
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

func NewTransactionService(store repository.Store, publisher events.Publisher, m *metrics.Metrics, logger *slog.Logger) *TransactionServiceImpl {
	if publisher == nil {
		publisher = &events.NoopPublisher{Logger: logger}
	}
	return &TransactionServiceImpl{
		store:     store,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Transfer moves money from the caller's account to the account identified by
// number. The debit, the credit, both ledger legs, the receiver's notification
// and the audit trail commit together or not at all.
func (s *TransactionServiceImpl) Transfer(ctx context.Context, req *models.TransferRequest) (*models.TransferResult, error) {
	if err := validateTransferRequest(req); err != nil {
		s.logger.Warn("invalid transfer request",
			"from_user_id", req.FromUserID,
			"to_account_number", req.ToAccountNumber,
			"amount", req.Amount.String(),
			"error", err.Error(),
		)
		s.metrics.ObserveTransfer(err, req.Amount)
		return nil, err
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = defaultTransferDescription
	}
	reference := uuid.New()

	var sender, receiver *models.Account
	var newBalance decimal.Decimal

	err := s.store.WithinTx(ctx, func(q repository.Queries) error {
		var err error
		sender, err = q.Accounts().GetByUserID(ctx, req.FromUserID)
		if err != nil {
			return fmt.Errorf("source account: %w", err)
		}
		receiver, err = q.Accounts().GetByNumber(ctx, req.ToAccountNumber)
		if err != nil {
			return fmt.Errorf("destination account: %w", err)
		}
		if sender.ID == receiver.ID {
			return errors.ErrSameAccount
		}

		if err := q.Accounts().LockForUpdate(ctx, sender.ID, receiver.ID); err != nil {
			return errors.NewTransactionError("lock accounts", err)
		}

		newBalance, err = q.Accounts().Debit(ctx, sender.ID, req.Amount)
		if err != nil {
			return err
		}
		receiverBalance, err := q.Accounts().Credit(ctx, receiver.ID, req.Amount)
		if err != nil {
			return err
		}

		out := &models.Transaction{
			Reference:        reference,
			UserID:           sender.UserID,
			Amount:           req.Amount.Neg(),
			Type:             models.TransactionTypeTransferOut,
			Description:      fmt.Sprintf("Transfer to %s - %s", receiver.AccountNumber, description),
			RelatedAccountID: &receiver.ID,
		}
		if err := q.Transactions().Create(ctx, out); err != nil {
			return errors.NewTransactionError("create outgoing leg", err)
		}
		in := &models.Transaction{
			Reference:        reference,
			UserID:           receiver.UserID,
			Amount:           req.Amount,
			Type:             models.TransactionTypeTransferIn,
			Description:      fmt.Sprintf("Received from %s - %s", sender.AccountNumber, description),
			RelatedAccountID: &sender.ID,
		}
		if err := q.Transactions().Create(ctx, in); err != nil {
			return errors.NewTransactionError("create incoming leg", err)
		}

		if err := q.Notifications().Create(ctx, &models.Notification{
			UserID:  receiver.UserID,
			Title:   transferNotificationTitle,
			Message: fmt.Sprintf("You have received $%s from account %s.", req.Amount.StringFixed(2), sender.AccountNumber),
		}); err != nil {
			return errors.NewTransactionError("create notification", err)
		}

		return createTransferAuditLogs(ctx, q, reference, req.Amount,
			balanceChange{account: sender, before: newBalance.Add(req.Amount), after: newBalance},
			balanceChange{account: receiver, before: receiverBalance.Sub(req.Amount), after: receiverBalance},
		)
	})

	s.metrics.ObserveTransfer(err, req.Amount)
	if err != nil {
		s.logTransferFailure(req, err)
		return nil, err
	}

	s.logger.Info("transfer completed",
		"reference", reference.String(),
		"from_account_number", sender.AccountNumber,
		"to_account_number", receiver.AccountNumber,
		"amount", req.Amount.String(),
		"beneficiary_name", req.BeneficiaryName,
		"beneficiary_cedula", req.BeneficiaryCedula,
		"beneficiary_phone", req.BeneficiaryPhone,
	)

	if err := s.publisher.PublishTransferCompleted(ctx, events.TransferCompleted{
		Reference:         reference,
		FromAccountNumber: sender.AccountNumber,
		ToAccountNumber:   receiver.AccountNumber,
		FromUserID:        sender.UserID,
		ToUserID:          receiver.UserID,
		Amount:            req.Amount,
		Description:       description,
		Timestamp:         s.now(),
	}); err != nil {
		s.logger.Error("failed to publish transfer event",
			"reference", reference.String(),
			"error", err.Error(),
		)
	}

	return &models.TransferResult{Reference: reference, NewBalance: newBalance}, nil
}

func (s *TransactionServiceImpl) logTransferFailure(req *models.TransferRequest, err error) {
	attrs := []any{
		"from_user_id", req.FromUserID,
		"to_account_number", req.ToAccountNumber,
		"amount", req.Amount.String(),
		"error", err.Error(),
	}
	if errors.IsNotFound(err) || errors.IsInsufficientFunds(err) || errors.IsInvalidInput(err) {
		s.logger.Warn("transfer rejected", attrs...)
		return
	}
	s.logger.Error("transfer failed", attrs...)
}

// Mint creates money in an account. It is the only operation that changes the
// total amount held across all accounts.
func (s *TransactionServiceImpl) Mint(ctx context.Context, req *models.MintRequest) (*models.MintResult, error) {
	if !req.Amount.IsPositive() {
		s.metrics.ObserveMint(errors.ErrInvalidAmount, req.Amount)
		return nil, errors.ErrInvalidAmount
	}
	if strings.TrimSpace(req.AccountNumber) == "" {
		err := errors.NewValidationError("account_number", "must be non-empty")
		s.metrics.ObserveMint(err, req.Amount)
		return nil, err
	}

	reference := uuid.New()
	var account *models.Account
	var newBalance decimal.Decimal

	err := s.store.WithinTx(ctx, func(q repository.Queries) error {
		var err error
		account, err = q.Accounts().GetByNumber(ctx, req.AccountNumber)
		if err != nil {
			return err
		}
		if err := q.Accounts().LockForUpdate(ctx, account.ID); err != nil {
			return errors.NewTransactionError("lock account", err)
		}
		newBalance, err = q.Accounts().Credit(ctx, account.ID, req.Amount)
		if err != nil {
			return err
		}

		if err := q.Transactions().Create(ctx, &models.Transaction{
			Reference:   reference,
			UserID:      account.UserID,
			Amount:      req.Amount,
			Type:        models.TransactionTypeDeposit,
			Description: mintDescription,
		}); err != nil {
			return errors.NewTransactionError("create deposit leg", err)
		}

		return createBalanceAuditLog(ctx, q, models.AuditActionMint, balanceChange{account: account, before: newBalance.Sub(req.Amount), after: newBalance})
	})

	s.metrics.ObserveMint(err, req.Amount)
	if err != nil {
		if errors.IsNotFound(err) {
			s.logger.Warn("mint target account not found",
				"account_number", req.AccountNumber,
			)
		} else {
			s.logger.Error("mint failed",
				"account_number", req.AccountNumber,
				"amount", req.Amount.String(),
				"error", err.Error(),
			)
		}
		return nil, err
	}

	s.logger.Info("money minted",
		"reference", reference.String(),
		"account_number", account.AccountNumber,
		"amount", req.Amount.String(),
	)

	if err := s.publisher.PublishMintCompleted(ctx, events.MintCompleted{
		Reference:     reference,
		AccountNumber: account.AccountNumber,
		UserID:        account.UserID,
		Amount:        req.Amount,
		NewBalance:    newBalance,
		Timestamp:     s.now(),
	}); err != nil {
		s.logger.Error("failed to publish mint event",
			"reference", reference.String(),
			"error", err.Error(),
		)
	}

	return &models.MintResult{Reference: reference, NewBalance: newBalance}, nil
}

func (s *TransactionServiceImpl) ListTransactions(ctx context.Context, userID int64) ([]*models.Transaction, error) {
	txs, err := s.store.Transactions().ListByUserID(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list transactions",
			"user_id", userID,
			"error", err.Error(),
		)
		return nil, err
	}
	return txs, nil
}

func validateTransferRequest(req *models.TransferRequest) error {
	if !req.Amount.IsPositive() {
		return errors.ErrInvalidAmount
	}
	if strings.TrimSpace(req.ToAccountNumber) == "" {
		return errors.NewValidationError("to_account_number", "must be non-empty")
	}
	if phone := strings.TrimSpace(req.BeneficiaryPhone); phone != "" {
		normalized, err := utils.NormalizePhone(phone)
		if err != nil {
			return errors.NewValidationError("beneficiary_phone", err.Error())
		}
		req.BeneficiaryPhone = normalized
	}
	return nil
}

// balanceChange records one account's balance around a locked update. Both
// values derive from the balance returned by the update, never from a read
// taken before the row lock.
type balanceChange struct {
	account *models.Account
	before  decimal.Decimal
	after   decimal.Decimal
}

func createBalanceAuditLog(ctx context.Context, q repository.Queries, action string, c balanceChange) error {
	oldValue, err := json.Marshal(models.AccountBalanceSnapshot{
		ID:            c.account.ID,
		AccountNumber: c.account.AccountNumber,
		Balance:       c.before,
	})
	if err != nil {
		return err
	}
	newValue, err := json.Marshal(models.AccountBalanceSnapshot{
		ID:            c.account.ID,
		AccountNumber: c.account.AccountNumber,
		Balance:       c.after,
	})
	if err != nil {
		return err
	}

	if err := q.Audit().Create(ctx, &models.AuditLog{
		EntityType: models.EntityTypeAccount,
		EntityID:   strconv.FormatInt(c.account.ID, 10),
		Action:     action,
		OldValue:   oldValue,
		NewValue:   newValue,
	}); err != nil {
		return errors.NewTransactionError("create audit log", err)
	}
	return nil
}

func createTransferAuditLogs(ctx context.Context, q repository.Queries, reference uuid.UUID, amount decimal.Decimal, debit, credit balanceChange) error {
	if err := createBalanceAuditLog(ctx, q, models.AuditActionDebit, debit); err != nil {
		return err
	}
	if err := createBalanceAuditLog(ctx, q, models.AuditActionCredit, credit); err != nil {
		return err
	}

	txValue, err := json.Marshal(struct {
		Reference         uuid.UUID       `json:"reference"`
		FromAccountNumber string          `json:"from_account_number"`
		ToAccountNumber   string          `json:"to_account_number"`
		Amount            decimal.Decimal `json:"amount"`
	}{
		Reference:         reference,
		FromAccountNumber: debit.account.AccountNumber,
		ToAccountNumber:   credit.account.AccountNumber,
		Amount:            amount,
	})
	if err != nil {
		return err
	}

	if err := q.Audit().Create(ctx, &models.AuditLog{
		EntityType: models.EntityTypeTransaction,
		EntityID:   reference.String(),
		Action:     models.AuditActionTransfer,
		NewValue:   txValue,
	}); err != nil {
		return errors.NewTransactionError("create audit log", err)
	}
	return nil
}
