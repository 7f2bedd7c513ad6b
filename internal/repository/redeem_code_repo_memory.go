package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"sunrun/credithub/internal/model"
)

type memoryRedeemCodeRepository struct {
	mu    sync.Mutex
	codes map[string]*model.RedeemCode
}

func NewMemoryRedeemCodeRepository() RedeemCodeRepository {
	return &memoryRedeemCodeRepository{
		codes: make(map[string]*model.RedeemCode),
	}
}

func (r *memoryRedeemCodeRepository) Create(ctx context.Context, code *model.RedeemCode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.codes[code.Code]; exists {
		return ErrCodeExists
	}
	if code.CreatedAt.IsZero() {
		code.CreatedAt = time.Now()
	}
	stored := *code
	r.codes[code.Code] = &stored
	return nil
}

func (r *memoryRedeemCodeRepository) GetByCode(ctx context.Context, code string) (*model.RedeemCode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.codes[code]
	if !ok {
		return nil, ErrCodeNotFound
	}
	out := *stored
	return &out, nil
}

func (r *memoryRedeemCodeRepository) List(ctx context.Context, filter CodeFilter) ([]model.RedeemCode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	codes := make([]model.RedeemCode, 0, len(r.codes))
	for _, stored := range r.codes {
		if filter.match(stored) {
			codes = append(codes, *stored)
		}
	}
	r.mu.Unlock()

	sort.Slice(codes, func(i, j int) bool {
		return codes[i].CreatedAt.After(codes[j].CreatedAt)
	})
	if limit := filter.limit(); len(codes) > limit {
		codes = codes[:limit]
	}
	return codes, nil
}

func (r *memoryRedeemCodeRepository) ClaimCode(ctx context.Context, code string, claimantID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.codes[code]
	if !ok || stored.Used {
		return 0, ErrCodeInvalid
	}
	now := time.Now()
	claimant := claimantID
	stored.Used = true
	stored.UsedBy = &claimant
	stored.UsedAt = &now
	return stored.Amount, nil
}
