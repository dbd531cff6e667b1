package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Account struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	AccountNumber string          `json:"account_number"`
	Balance       decimal.Decimal `json:"balance"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type Card struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	CardNumber  string          `json:"card_number"`
	Expiry      string          `json:"expiry"`
	CVV         string          `json:"cvv"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TransactionType classifies a single ledger leg.
type TransactionType string

const (
	TransactionTypeDeposit     TransactionType = "deposit"
	TransactionTypeTransferIn  TransactionType = "transfer_in"
	TransactionTypeTransferOut TransactionType = "transfer_out"
)

// Transaction is one immutable leg of the ledger. Amount is signed: outflows
// are negative, inflows positive.
type Transaction struct {
	ID               int64           `json:"id"`
	Reference        uuid.UUID       `json:"reference"`
	UserID           int64           `json:"user_id"`
	Amount           decimal.Decimal `json:"amount"`
	Type             TransactionType `json:"transaction_type"`
	Description      string          `json:"description"`
	Timestamp        time.Time       `json:"timestamp"`
	RelatedAccountID *int64          `json:"related_account_id,omitempty"`
}

type Beneficiary struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	Name          string    `json:"name"`
	AccountNumber string    `json:"account_number"`
	Alias         *string   `json:"alias,omitempty"`
	Cedula        *string   `json:"cedula,omitempty"`
	Phone         *string   `json:"phone,omitempty"`
	BankName      string    `json:"bank_name"`
	CreatedAt     time.Time `json:"created_at"`
}

type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	Timestamp time.Time `json:"timestamp"`
}

type AuditLog struct {
	ID         int64           `json:"id"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Action     string          `json:"action"`
	OldValue   json.RawMessage `json:"old_value"`
	NewValue   json.RawMessage `json:"new_value"`
	CreatedAt  time.Time       `json:"created_at"`
}

const (
	AuditActionCreate   = "CREATE"
	AuditActionDebit    = "DEBIT"
	AuditActionCredit   = "CREDIT"
	AuditActionTransfer = "TRANSFER"
	AuditActionMint     = "MINT"
)

const (
	EntityTypeAccount     = "ACCOUNT"
	EntityTypeTransaction = "TRANSACTION"
)

const (
	BankNameInternal = "CreditBank"
	BankNameExternal = "External Bank"
)

// DefaultCreditLimit is assigned to every new card.
var DefaultCreditLimit = decimal.NewFromInt(5000)

// TransferRequest carries the destination by account number. The beneficiary
// fields are informational; only the phone is checked when present.
type TransferRequest struct {
	FromUserID        int64           `json:"-"`
	ToAccountNumber   string          `json:"to_account_number"`
	Amount            decimal.Decimal `json:"amount"`
	Description       string          `json:"description"`
	BeneficiaryCedula string          `json:"beneficiary_cedula,omitempty"`
	BeneficiaryPhone  string          `json:"beneficiary_phone,omitempty"`
	BeneficiaryName   string          `json:"beneficiary_name,omitempty"`
}

type TransferResult struct {
	Reference  uuid.UUID       `json:"reference"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

type MintRequest struct {
	AccountNumber string          `json:"account_number"`
	Amount        decimal.Decimal `json:"amount"`
}

type MintResult struct {
	Reference  uuid.UUID       `json:"reference"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

type CreateBeneficiaryRequest struct {
	Name          string  `json:"name"`
	AccountNumber string  `json:"account_number"`
	Alias         *string `json:"alias,omitempty"`
	Cedula        *string `json:"cedula,omitempty"`
	Phone         *string `json:"phone,omitempty"`
}

type AccountResponse struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	AccountNumber string          `json:"account_number"`
	Balance       decimal.Decimal `json:"balance"`
}

type CardResponse struct {
	CardNumber  string          `json:"card_number"`
	Expiry      string          `json:"expiry"`
	CVV         string          `json:"cvv"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
}

type TransactionResponse struct {
	ID          int64           `json:"id"`
	Reference   uuid.UUID       `json:"reference"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"transaction_type"`
	Description string          `json:"description"`
	Timestamp   time.Time       `json:"timestamp"`
}

// OperationResponse is returned by money movement endpoints.
type OperationResponse struct {
	Message    string          `json:"message"`
	Reference  uuid.UUID       `json:"reference"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

type MarkReadResponse struct {
	Message string `json:"message"`
	Updated int64  `json:"updated"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Detail    string `json:"detail"`
	RequestID string `json:"request_id,omitempty"`
}

type AccountBalanceSnapshot struct {
	ID            int64           `json:"id"`
	AccountNumber string          `json:"account_number"`
	Balance       decimal.Decimal `json:"balance"`
}
