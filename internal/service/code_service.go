package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"sunrun/credithub/internal/model"
	"sunrun/credithub/internal/repository"
	"sunrun/credithub/pkg/crypto"
)

const (
	MaxCodesPerBatch = 500
	codeBytes        = 8
	createAttempts   = 3
)

// CodeService provisions and lists redeem codes for administrators.
type CodeService interface {
	// CreateCodes mints count fresh codes worth amount each. On error, the codes
	// already created are returned alongside it.
	CreateCodes(ctx context.Context, createdBy string, amount int64, count int) ([]model.RedeemCode, error)
	ListCodes(ctx context.Context, filter repository.CodeFilter) ([]model.RedeemCode, error)
	// GetCode looks up a single code, e.g. to reconcile a claim whose credit failed.
	GetCode(ctx context.Context, code string) (*model.RedeemCode, error)
}

type codeService struct {
	codeRepo repository.RedeemCodeRepository
	generate func() (string, error)
	logger   *zap.Logger
}

func NewCodeService(codeRepo repository.RedeemCodeRepository, logger *zap.Logger) CodeService {
	return &codeService{
		codeRepo: codeRepo,
		generate: func() (string, error) { return crypto.GenerateCode(codeBytes) },
		logger:   logger,
	}
}

func (s *codeService) CreateCodes(ctx context.Context, createdBy string, amount int64, count int) ([]model.RedeemCode, error) {
	if amount < 1 {
		return nil, invalidRequest("amount must be at least 1")
	}
	if count < 1 || count > MaxCodesPerBatch {
		return nil, invalidRequest(fmt.Sprintf("count must be between 1 and %d", MaxCodesPerBatch))
	}
	createdBy = strings.TrimSpace(createdBy)

	codes := make([]model.RedeemCode, 0, count)
	for range count {
		code, err := s.createOne(ctx, createdBy, amount)
		if err != nil {
			s.logger.Error("redeem code batch aborted",
				zap.Int("created", len(codes)),
				zap.Int("requested", count),
				zap.Error(err),
			)
			return codes, err
		}
		codes = append(codes, *code)
	}

	s.logger.Info("redeem codes created",
		zap.String("created_by", createdBy),
		zap.Int64("amount", amount),
		zap.Int("count", count),
	)
	return codes, nil
}

// createOne retries on the unlikely event of a code collision.
func (s *codeService) createOne(ctx context.Context, createdBy string, amount int64) (*model.RedeemCode, error) {
	for attempt := 1; ; attempt++ {
		value, err := s.generate()
		if err != nil {
			return nil, fmt.Errorf("generate redeem code: %w", err)
		}

		code := &model.RedeemCode{Code: value, Amount: amount, CreatedBy: createdBy}
		err = s.codeRepo.Create(ctx, code)
		if err == nil {
			return code, nil
		}
		if !errors.Is(err, repository.ErrCodeExists) || attempt == createAttempts {
			return nil, storeError("create redeem code", err)
		}
	}
}

func (s *codeService) ListCodes(ctx context.Context, filter repository.CodeFilter) ([]model.RedeemCode, error) {
	codes, err := s.codeRepo.List(ctx, filter)
	if err != nil {
		return nil, storeError("list redeem codes", err)
	}
	return codes, nil
}

func (s *codeService) GetCode(ctx context.Context, code string) (*model.RedeemCode, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, invalidRequest("code is required")
	}
	redeemCode, err := s.codeRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrCodeNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, storeError("get redeem code", err)
	}
	return redeemCode, nil
}

var _ CodeService = (*codeService)(nil)
