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

type BeneficiaryHandler struct {
	beneficiaryService service.BeneficiaryService
	logger             *slog.Logger
}

func NewBeneficiaryHandler(beneficiaryService service.BeneficiaryService, logger *slog.Logger) *BeneficiaryHandler {
	return &BeneficiaryHandler{
		beneficiaryService: beneficiaryService,
		logger:             logger,
	}
}

func (h *BeneficiaryHandler) RegisterRoutes(router *mux.Router) {
	router.Handle("/beneficiaries", guarded(auth.OpListBeneficiaries, h.logger, h.ListBeneficiaries)).Methods(http.MethodGet)
	router.Handle("/beneficiaries", guarded(auth.OpCreateBeneficiary, h.logger, h.CreateBeneficiary)).Methods(http.MethodPost)
}

func (h *BeneficiaryHandler) CreateBeneficiary(w http.ResponseWriter, r *http.Request) {
	var req models.CreateBeneficiaryRequest
	if err := u.DecodeJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid create beneficiary request", "error", err.Error())
		u.WriteError(w, http.StatusBadRequest, "invalid request payload", err.Error())
		return
	}

	beneficiary, err := h.beneficiaryService.AddBeneficiary(r.Context(), identity(r).UserID, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "create beneficiary")
		return
	}

	u.WriteJSON(w, http.StatusCreated, beneficiary)
}

func (h *BeneficiaryHandler) ListBeneficiaries(w http.ResponseWriter, r *http.Request) {
	beneficiaries, err := h.beneficiaryService.ListBeneficiaries(r.Context(), identity(r).UserID)
	if err != nil {
		handleServiceError(w, h.logger, err, "list beneficiaries")
		return
	}

	u.WriteJSON(w, http.StatusOK, beneficiaries)
}
