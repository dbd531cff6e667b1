package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/riteshkumar/core-ledger/internal/errors"
	"github.com/riteshkumar/core-ledger/internal/models"
	"github.com/riteshkumar/core-ledger/internal/repository"
	"github.com/riteshkumar/core-ledger/internal/utils"
)

type BeneficiaryService interface {
	AddBeneficiary(ctx context.Context, ownerUserID int64, req *models.CreateBeneficiaryRequest) (*models.Beneficiary, error)
	ListBeneficiaries(ctx context.Context, ownerUserID int64) ([]*models.Beneficiary, error)
}

type BeneficiaryServiceImpl struct {
	store  repository.Store
	logger *slog.Logger
}

func NewBeneficiaryService(store repository.Store, logger *slog.Logger) *BeneficiaryServiceImpl {
	return &BeneficiaryServiceImpl{
		store:  store,
		logger: logger,
	}
}

// AddBeneficiary saves a payee for the owner. The bank name reflects whether
// the account number belonged to this ledger when the payee was saved and is
// not revisited afterwards.
func (s *BeneficiaryServiceImpl) AddBeneficiary(ctx context.Context, ownerUserID int64, req *models.CreateBeneficiaryRequest) (*models.Beneficiary, error) {
	beneficiary, err := s.buildBeneficiary(ownerUserID, req)
	if err != nil {
		s.logger.Warn("invalid beneficiary request",
			"user_id", ownerUserID,
			"error", err.Error(),
		)
		return nil, err
	}

	internal, err := s.store.Accounts().NumberExists(ctx, beneficiary.AccountNumber)
	if err != nil {
		s.logger.Error("failed to classify beneficiary bank",
			"user_id", ownerUserID,
			"account_number", beneficiary.AccountNumber,
			"error", err.Error(),
		)
		return nil, err
	}
	beneficiary.BankName = models.BankNameExternal
	if internal {
		beneficiary.BankName = models.BankNameInternal
	}

	if err := s.store.Beneficiaries().Create(ctx, beneficiary); err != nil {
		s.logger.Error("failed to create beneficiary",
			"user_id", ownerUserID,
			"error", err.Error(),
		)
		return nil, err
	}

	s.logger.Info("beneficiary added",
		"user_id", ownerUserID,
		"beneficiary_id", beneficiary.ID,
		"bank_name", beneficiary.BankName,
	)
	return beneficiary, nil
}

func (s *BeneficiaryServiceImpl) ListBeneficiaries(ctx context.Context, ownerUserID int64) ([]*models.Beneficiary, error) {
	beneficiaries, err := s.store.Beneficiaries().ListByUserID(ctx, ownerUserID)
	if err != nil {
		s.logger.Error("failed to list beneficiaries",
			"user_id", ownerUserID,
			"error", err.Error(),
		)
		return nil, err
	}
	return beneficiaries, nil
}

func (s *BeneficiaryServiceImpl) buildBeneficiary(ownerUserID int64, req *models.CreateBeneficiaryRequest) (*models.Beneficiary, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errors.NewValidationError("name", "must be non-empty")
	}
	accountNumber := strings.TrimSpace(req.AccountNumber)
	if accountNumber == "" {
		return nil, errors.NewValidationError("account_number", "must be non-empty")
	}

	b := &models.Beneficiary{
		UserID:        ownerUserID,
		Name:          name,
		AccountNumber: accountNumber,
		Alias:         optional(req.Alias),
		Cedula:        optional(req.Cedula),
	}
	if phone := optional(req.Phone); phone != nil {
		normalized, err := utils.NormalizePhone(*phone)
		if err != nil {
			return nil, err
		}
		b.Phone = &normalized
	}
	return b, nil
}

// optional treats blank strings as absent.
func optional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
