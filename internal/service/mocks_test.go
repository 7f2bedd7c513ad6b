package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"sunrun/credithub/internal/model"
	"sunrun/credithub/internal/repository"
)

type mockAccountRepo struct {
	mock.Mock
}

func (m *mockAccountRepo) EnsureAccount(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockAccountRepo) GetBalance(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockAccountRepo) AdjustBalance(ctx context.Context, userID string, delta int64, floor bool) (int64, error) {
	args := m.Called(ctx, userID, delta, floor)
	return args.Get(0).(int64), args.Error(1)
}

type mockCodeRepo struct {
	mock.Mock
}

func (m *mockCodeRepo) Create(ctx context.Context, code *model.RedeemCode) error {
	return m.Called(ctx, code).Error(0)
}

func (m *mockCodeRepo) GetByCode(ctx context.Context, code string) (*model.RedeemCode, error) {
	args := m.Called(ctx, code)
	if v := args.Get(0); v != nil {
		return v.(*model.RedeemCode), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCodeRepo) List(ctx context.Context, filter repository.CodeFilter) ([]model.RedeemCode, error) {
	args := m.Called(ctx, filter)
	if v := args.Get(0); v != nil {
		return v.([]model.RedeemCode), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCodeRepo) ClaimCode(ctx context.Context, code string, claimantID string) (int64, error) {
	args := m.Called(ctx, code, claimantID)
	return args.Get(0).(int64), args.Error(1)
}

type mockStateStore struct {
	mock.Mock
}

func (m *mockStateStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

func (m *mockStateStore) Take(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if v := args.Get(0); v != nil {
		return v.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

// fakeTransactor runs fn against the given repositories and reports whether
// the transaction would have committed.
type fakeTransactor struct {
	accounts  repository.AccountRepository
	codes     repository.RedeemCodeRepository
	committed int
	rolled    int
}

func (f *fakeTransactor) Transaction(_ context.Context, fn func(repository.AccountRepository, repository.RedeemCodeRepository) error) error {
	if err := fn(f.accounts, f.codes); err != nil {
		f.rolled++
		return err
	}
	f.committed++
	return nil
}
