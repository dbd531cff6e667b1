package errors

import (
	"errors"
	"fmt"
)

// Error kinds. Every domain error wraps exactly one of these so callers can
// branch on the kind without knowing the specific cause.
var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAlreadyExists     = errors.New("already exists")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidInput      = errors.New("invalid input")
)

// Domain errors for the ledger
var (
	ErrAccountNotFound      = fmt.Errorf("account %w", ErrNotFound)
	ErrAccountAlreadyExists = fmt.Errorf("account %w", ErrAlreadyExists)
	ErrAccountNumberTaken   = fmt.Errorf("account number %w", ErrAlreadyExists)
	ErrCardNumberTaken      = fmt.Errorf("card number %w", ErrAlreadyExists)
	ErrInvalidAmount        = fmt.Errorf("%w: amount must be greater than zero", ErrInvalidInput)
	ErrSameAccount          = fmt.Errorf("%w: source and destination accounts cannot be the same", ErrInvalidInput)
	ErrInvalidPhone         = fmt.Errorf("%w: phone must have 11 digits and start with a mobile prefix", ErrInvalidInput)
	ErrMissingToken         = fmt.Errorf("%w: missing bearer token", ErrUnauthenticated)
	ErrInvalidToken         = fmt.Errorf("%w: invalid token", ErrUnauthenticated)
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

func NewValidationError(field, message string) error {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// TransactionError wraps an infrastructure failure that aborted a unit of work.
type TransactionError struct {
	Operation string
	Cause     error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction error during '%s': %v", e.Operation, e.Cause)
}

func (e *TransactionError) Unwrap() error {
	return e.Cause
}

func NewTransactionError(operation string, cause error) error {
	return &TransactionError{
		Operation: operation,
		Cause:     cause,
	}
}

// ForbiddenError reports an operation the caller's role may not perform.
type ForbiddenError struct {
	Operation string
	Role      string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("role '%s' is not allowed to perform '%s'", e.Role, e.Operation)
}

func (e *ForbiddenError) Unwrap() error {
	return ErrForbidden
}

func NewForbiddenError(operation, role string) error {
	return &ForbiddenError{Operation: operation, Role: role}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInsufficientFunds(err error) bool {
	return errors.Is(err, ErrInsufficientFunds)
}

func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrUnauthenticated)
}

func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// Is and As re-export the standard helpers so callers importing this package
// under the name "errors" keep access to them.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

func New(text string) error { return errors.New(text) }
