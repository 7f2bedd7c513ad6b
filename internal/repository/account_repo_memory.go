package repository

import (
	"context"
	"sync"
	"time"

	"sunrun/credithub/internal/model"
)

// memoryAccountRepository keeps accounts in process memory. The mutex makes
// every method one atomic step, which is what the durable backends get from
// conditional statements. It is only safe for a single instance.
type memoryAccountRepository struct {
	mu           sync.Mutex
	accounts     map[string]*model.Account
	initialBonus int64
}

func NewMemoryAccountRepository(initialBonus int64) AccountRepository {
	return &memoryAccountRepository{
		accounts:     make(map[string]*model.Account),
		initialBonus: initialBonus,
	}
}

func (r *memoryAccountRepository) EnsureAccount(ctx context.Context, userID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ensureLocked(userID).Balance, nil
}

func (r *memoryAccountRepository) GetBalance(ctx context.Context, userID string) (int64, error) {
	return r.EnsureAccount(ctx, userID)
}

func (r *memoryAccountRepository) AdjustBalance(ctx context.Context, userID string, delta int64, floor bool) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[userID]
	if !ok {
		return 0, ErrAccountNotFound
	}
	if floor && account.Balance+delta < 0 {
		return 0, ErrInsufficientFunds
	}
	account.Balance += delta
	account.UpdatedAt = time.Now()
	return account.Balance, nil
}

func (r *memoryAccountRepository) ensureLocked(userID string) *model.Account {
	account, ok := r.accounts[userID]
	if !ok {
		now := time.Now()
		account = &model.Account{
			UserID:    userID,
			Balance:   r.initialBonus,
			CreatedAt: now,
			UpdatedAt: now,
		}
		r.accounts[userID] = account
	}
	return account
}
