package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/riteshkumar/core-ledger/internal/auth"
	"github.com/riteshkumar/core-ledger/internal/models"
	"github.com/riteshkumar/core-ledger/internal/ratelimit"
	"github.com/riteshkumar/core-ledger/internal/service"
	u "github.com/riteshkumar/core-ledger/internal/utils"
)

const (
	routeTransfer = "/transfer"
	routeMint     = "/admin/mint-money"
)

type TransactionHandler struct {
	transactionService service.TransactionService
	limiter            *ratelimit.Limiter
	logger             *slog.Logger
}

func NewTransactionHandler(transactionService service.TransactionService, limiter *ratelimit.Limiter, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		limiter:            limiter,
		logger:             logger,
	}
}

func (h *TransactionHandler) RegisterRoutes(router *mux.Router) {
	router.Handle(routeTransfer, guarded(auth.OpTransfer, h.logger, h.Transfer, h.limiter.Middleware(routeTransfer))).Methods(http.MethodPost)
	router.Handle(routeMint, guarded(auth.OpMint, h.logger, h.Mint, h.limiter.Middleware(routeMint))).Methods(http.MethodPost)
	router.Handle("/movements", guarded(auth.OpListMovements, h.logger, h.ListMovements)).Methods(http.MethodGet)
}

func (h *TransactionHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req models.TransferRequest
	if err := u.DecodeJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid transfer request", "error", err.Error())
		u.WriteError(w, http.StatusBadRequest, "invalid request payload", err.Error())
		return
	}
	req.FromUserID = identity(r).UserID

	result, err := h.transactionService.Transfer(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "transfer")
		return
	}

	u.WriteJSON(w, http.StatusOK, models.OperationResponse{
		Message:    "Transfer successful",
		Reference:  result.Reference,
		NewBalance: result.NewBalance,
	})
}

func (h *TransactionHandler) Mint(w http.ResponseWriter, r *http.Request) {
	var req models.MintRequest
	if err := u.DecodeJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid mint request", "error", err.Error())
		u.WriteError(w, http.StatusBadRequest, "invalid request payload", err.Error())
		return
	}

	caller := identity(r)
	h.logger.Info("mint requested",
		"user_id", caller.UserID,
		"role", string(caller.Role),
		"account_number", req.AccountNumber,
		"amount", req.Amount.String(),
	)

	result, err := h.transactionService.Mint(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "mint")
		return
	}

	u.WriteJSON(w, http.StatusOK, models.OperationResponse{
		Message:    "Money minted successfully",
		Reference:  result.Reference,
		NewBalance: result.NewBalance,
	})
}

func (h *TransactionHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	txs, err := h.transactionService.ListTransactions(r.Context(), identity(r).UserID)
	if err != nil {
		handleServiceError(w, h.logger, err, "list movements")
		return
	}

	resp := make([]models.TransactionResponse, 0, len(txs))
	for _, t := range txs {
		resp = append(resp, models.TransactionResponse{
			ID:          t.ID,
			Reference:   t.Reference,
			Amount:      t.Amount,
			Type:        t.Type,
			Description: t.Description,
			Timestamp:   t.Timestamp,
		})
	}
	u.WriteJSON(w, http.StatusOK, resp)
}
