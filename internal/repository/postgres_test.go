package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sunrun/credithub/internal/model"
	"sunrun/credithub/internal/repository/testutil"
)

func TestPGAccountRepository(t *testing.T) {
	db := testutil.SetupPostgres(t)
	testAccountRepository(t, NewPGAccountRepository(db, contractBonus))
}

func TestPGRedeemCodeRepository(t *testing.T) {
	db := testutil.SetupPostgres(t)
	testRedeemCodeRepository(t, NewPGRedeemCodeRepository(db))
}

func TestPGAccountRepository_BalanceCheckConstraint(t *testing.T) {
	db := testutil.SetupPostgres(t)
	ctx := context.Background()
	repo := NewPGAccountRepository(db, contractBonus)

	userID := uuid.NewString()
	_, err := repo.EnsureAccount(ctx, userID)
	require.NoError(t, err)

	// Even an unfloored adjustment cannot push the stored balance below zero.
	_, err = repo.AdjustBalance(ctx, userID, -5, false)
	require.Error(t, err)

	balance, err := repo.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, contractBonus, balance)
}

func TestPGTransactor(t *testing.T) {
	db := testutil.SetupPostgres(t)
	ctx := context.Background()
	txr := NewPGTransactor(db, contractBonus)
	codes := NewPGRedeemCodeRepository(db)
	accounts := NewPGAccountRepository(db, contractBonus)

	t.Run("commit applies claim and credit together", func(t *testing.T) {
		code := &model.RedeemCode{Code: "T" + uuid.NewString()[:12], Amount: 5}
		require.NoError(t, codes.Create(ctx, code))
		userID := uuid.NewString()

		err := txr.Transaction(ctx, func(accounts AccountRepository, codes RedeemCodeRepository) error {
			amount, err := codes.ClaimCode(ctx, code.Code, userID)
			if err != nil {
				return err
			}
			if _, err := accounts.EnsureAccount(ctx, userID); err != nil {
				return err
			}
			_, err = accounts.AdjustBalance(ctx, userID, amount, false)
			return err
		})
		require.NoError(t, err)

		balance, err := accounts.GetBalance(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, contractBonus+5, balance)
	})

	t.Run("rollback releases the claim", func(t *testing.T) {
		code := &model.RedeemCode{Code: "T" + uuid.NewString()[:12], Amount: 5}
		require.NoError(t, codes.Create(ctx, code))
		boom := errors.New("credit failed")

		err := txr.Transaction(ctx, func(accounts AccountRepository, codes RedeemCodeRepository) error {
			if _, err := codes.ClaimCode(ctx, code.Code, "u1"); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		got, err := codes.GetByCode(ctx, code.Code)
		require.NoError(t, err)
		assert.False(t, got.Used)
		assert.Nil(t, got.UsedBy)
	})
}
