package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/riteshkumar/core-ledger/internal/auth"
	"github.com/riteshkumar/core-ledger/internal/models"
	"github.com/riteshkumar/core-ledger/internal/service"
	u "github.com/riteshkumar/core-ledger/internal/utils"
)

type AccountHandler struct {
	accountService service.AccountService
	logger         *slog.Logger
}

func NewAccountHandler(accountService service.AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
}

func (h *AccountHandler) RegisterRoutes(router *mux.Router) {
	router.Handle("/accounts", guarded(auth.OpCreateAccount, h.logger, h.CreateAccount)).Methods(http.MethodPost)
	router.Handle("/accounts/me", guarded(auth.OpReadAccount, h.logger, h.GetAccount)).Methods(http.MethodGet)
	router.Handle("/cards", guarded(auth.OpCreateCard, h.logger, h.CreateCard)).Methods(http.MethodPost)
	router.Handle("/cards/me", guarded(auth.OpListCards, h.logger, h.ListCards)).Methods(http.MethodGet)
}

// CreateAccount returns the caller's account, opening it on first use.
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.accountService.CreateAccount(r.Context(), identity(r).UserID)
	if err != nil {
		handleServiceError(w, h.logger, err, "create account")
		return
	}

	u.WriteJSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.accountService.GetAccount(r.Context(), identity(r).UserID)
	if err != nil {
		handleServiceError(w, h.logger, err, "get account")
		return
	}

	u.WriteJSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *AccountHandler) CreateCard(w http.ResponseWriter, r *http.Request) {
	card, err := h.accountService.CreateCard(r.Context(), identity(r).UserID)
	if err != nil {
		handleServiceError(w, h.logger, err, "create card")
		return
	}

	u.WriteJSON(w, http.StatusCreated, toCardResponse(card))
}

func (h *AccountHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.accountService.ListCards(r.Context(), identity(r).UserID)
	if err != nil {
		handleServiceError(w, h.logger, err, "list cards")
		return
	}

	resp := make([]models.CardResponse, 0, len(cards))
	for _, c := range cards {
		resp = append(resp, toCardResponse(c))
	}
	u.WriteJSON(w, http.StatusOK, resp)
}

func toAccountResponse(a *models.Account) models.AccountResponse {
	return models.AccountResponse{
		ID:            a.ID,
		UserID:        a.UserID,
		AccountNumber: a.AccountNumber,
		Balance:       a.Balance,
	}
}

func toCardResponse(c *models.Card) models.CardResponse {
	return models.CardResponse{
		CardNumber:  c.CardNumber,
		Expiry:      c.Expiry,
		CVV:         c.CVV,
		CreditLimit: c.CreditLimit,
	}
}
