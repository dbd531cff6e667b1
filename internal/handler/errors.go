package handler

import (
	"log/slog"
	"net/http"

	"github.com/riteshkumar/core-ledger/internal/errors"
	u "github.com/riteshkumar/core-ledger/internal/utils"
)

// handleServiceError maps an error kind onto a status code. Causes of
// internal errors are logged and never sent to the client.
func handleServiceError(w http.ResponseWriter, logger *slog.Logger, err error, operation string) {
	switch {
	case errors.IsNotFound(err):
		u.WriteError(w, http.StatusNotFound, "not found", err.Error())
	case errors.IsInsufficientFunds(err):
		u.WriteError(w, http.StatusBadRequest, "insufficient funds", "source account does not have enough funds for this transfer")
	case errors.IsAlreadyExists(err):
		u.WriteError(w, http.StatusConflict, "already exists", err.Error())
	case errors.IsUnauthenticated(err):
		u.WriteError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
	case errors.IsForbidden(err):
		u.WriteError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.IsValidationError(err):
		u.WriteError(w, http.StatusBadRequest, "validation error", err.Error())
	case errors.IsInvalidInput(err):
		u.WriteError(w, http.StatusBadRequest, "invalid input", err.Error())
	default:
		logger.Error("internal server error during "+operation, "error", err.Error())
		u.WriteError(w, http.StatusInternalServerError, "internal server error", "")
	}
}
