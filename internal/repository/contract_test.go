package repository

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"sunrun/credithub/internal/model"
)

const contractBonus = int64(1)

// testAccountRepository runs the behaviour every AccountRepository backend
// must share. repo must be built with contractBonus as the initial bonus.
func testAccountRepository(t *testing.T, repo AccountRepository) {
	ctx := context.Background()

	t.Run("ensure is idempotent", func(t *testing.T) {
		userID := uuid.NewString()

		balance, err := repo.EnsureAccount(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, contractBonus, balance)

		_, err = repo.AdjustBalance(ctx, userID, 4, false)
		require.NoError(t, err)

		balance, err = repo.EnsureAccount(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, contractBonus+4, balance, "ensure must not reset an existing balance")
	})

	t.Run("get balance materializes missing account", func(t *testing.T) {
		userID := uuid.NewString()

		balance, err := repo.GetBalance(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, contractBonus, balance)

		balance, err = repo.GetBalance(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, contractBonus, balance)
	})

	t.Run("adjust on missing account", func(t *testing.T) {
		_, err := repo.AdjustBalance(ctx, uuid.NewString(), 1, false)
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})

	t.Run("floor rejects without mutation", func(t *testing.T) {
		userID := uuid.NewString()
		_, err := repo.EnsureAccount(ctx, userID)
		require.NoError(t, err)

		balance, err := repo.AdjustBalance(ctx, userID, -1, true)
		require.NoError(t, err)
		assert.Equal(t, int64(0), balance)

		_, err = repo.AdjustBalance(ctx, userID, -1, true)
		assert.ErrorIs(t, err, ErrInsufficientFunds)

		balance, err = repo.GetBalance(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), balance)
	})

	t.Run("concurrent ensure keeps one row", func(t *testing.T) {
		userID := uuid.NewString()
		var g errgroup.Group
		for range 16 {
			g.Go(func() error {
				balance, err := repo.EnsureAccount(ctx, userID)
				if err != nil {
					return err
				}
				if balance != contractBonus {
					return errors.New("ensure returned a non-initial balance")
				}
				return nil
			})
		}
		require.NoError(t, g.Wait())
	})

	t.Run("concurrent floor-checked decrements never go negative", func(t *testing.T) {
		userID := uuid.NewString()
		_, err := repo.EnsureAccount(ctx, userID)
		require.NoError(t, err)
		_, err = repo.AdjustBalance(ctx, userID, 4, false) // balance 5
		require.NoError(t, err)

		var succeeded, rejected atomic.Int64
		var g errgroup.Group
		for range 20 {
			g.Go(func() error {
				_, err := repo.AdjustBalance(ctx, userID, -1, true)
				switch {
				case err == nil:
					succeeded.Add(1)
				case errors.Is(err, ErrInsufficientFunds):
					rejected.Add(1)
				default:
					return err
				}
				return nil
			})
		}
		require.NoError(t, g.Wait())

		assert.Equal(t, int64(5), succeeded.Load())
		assert.Equal(t, int64(15), rejected.Load())
		balance, err := repo.GetBalance(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), balance)
	})

	t.Run("concurrent increments are not lost", func(t *testing.T) {
		userID := uuid.NewString()
		_, err := repo.EnsureAccount(ctx, userID)
		require.NoError(t, err)

		var g errgroup.Group
		for range 25 {
			g.Go(func() error {
				_, err := repo.AdjustBalance(ctx, userID, 2, false)
				return err
			})
		}
		require.NoError(t, g.Wait())

		balance, err := repo.GetBalance(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, contractBonus+50, balance)
	})
}

func testRedeemCodeRepository(t *testing.T, repo RedeemCodeRepository) {
	ctx := context.Background()

	newCode := func(t *testing.T, amount int64) *model.RedeemCode {
		t.Helper()
		code := &model.RedeemCode{Code: "C" + uuid.NewString()[:12], Amount: amount, CreatedBy: "admin"}
		require.NoError(t, repo.Create(ctx, code))
		return code
	}

	t.Run("create and get", func(t *testing.T) {
		code := newCode(t, 5)

		got, err := repo.GetByCode(ctx, code.Code)
		require.NoError(t, err)
		assert.Equal(t, int64(5), got.Amount)
		assert.False(t, got.Used)
		assert.Nil(t, got.UsedBy)
		assert.Equal(t, "admin", got.CreatedBy)
	})

	t.Run("duplicate create", func(t *testing.T) {
		code := newCode(t, 1)
		err := repo.Create(ctx, &model.RedeemCode{Code: code.Code, Amount: 9})
		assert.ErrorIs(t, err, ErrCodeExists)

		got, err := repo.GetByCode(ctx, code.Code)
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.Amount)
	})

	t.Run("get unknown", func(t *testing.T) {
		_, err := repo.GetByCode(ctx, "missing-"+uuid.NewString())
		assert.ErrorIs(t, err, ErrCodeNotFound)
	})

	t.Run("claim exactly once", func(t *testing.T) {
		code := newCode(t, 5)

		amount, err := repo.ClaimCode(ctx, code.Code, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(5), amount)

		_, err = repo.ClaimCode(ctx, code.Code, "u2")
		assert.ErrorIs(t, err, ErrCodeInvalid)

		got, err := repo.GetByCode(ctx, code.Code)
		require.NoError(t, err)
		assert.True(t, got.Used)
		require.NotNil(t, got.UsedBy)
		assert.Equal(t, "u1", *got.UsedBy)
		require.NotNil(t, got.UsedAt)
	})

	t.Run("claim unknown", func(t *testing.T) {
		_, err := repo.ClaimCode(ctx, "missing-"+uuid.NewString(), "u1")
		assert.ErrorIs(t, err, ErrCodeInvalid)
	})

	t.Run("concurrent claims have one winner", func(t *testing.T) {
		code := newCode(t, 3)

		var winners, losers atomic.Int64
		var g errgroup.Group
		for range 20 {
			g.Go(func() error {
				_, err := repo.ClaimCode(ctx, code.Code, uuid.NewString())
				switch {
				case err == nil:
					winners.Add(1)
				case errors.Is(err, ErrCodeInvalid):
					losers.Add(1)
				default:
					return err
				}
				return nil
			})
		}
		require.NoError(t, g.Wait())
		assert.Equal(t, int64(1), winners.Load())
		assert.Equal(t, int64(19), losers.Load())
	})

	t.Run("list filters and orders newest first", func(t *testing.T) {
		older := &model.RedeemCode{Code: "L" + uuid.NewString()[:12], Amount: 1, CreatedAt: time.Now().Add(time.Hour)}
		newer := &model.RedeemCode{Code: "L" + uuid.NewString()[:12], Amount: 2, CreatedAt: time.Now().Add(2 * time.Hour)}
		require.NoError(t, repo.Create(ctx, older))
		require.NoError(t, repo.Create(ctx, newer))
		_, err := repo.ClaimCode(ctx, older.Code, "u1")
		require.NoError(t, err)

		codes, err := repo.List(ctx, CodeFilter{Limit: 2})
		require.NoError(t, err)
		require.Len(t, codes, 2)
		assert.Equal(t, newer.Code, codes[0].Code)
		assert.Equal(t, older.Code, codes[1].Code)

		unused := false
		codes, err = repo.List(ctx, CodeFilter{Used: &unused, Limit: 1})
		require.NoError(t, err)
		require.Len(t, codes, 1)
		assert.Equal(t, newer.Code, codes[0].Code)

		used := true
		codes, err = repo.List(ctx, CodeFilter{Used: &used, Limit: 1})
		require.NoError(t, err)
		require.Len(t, codes, 1)
		assert.Equal(t, older.Code, codes[0].Code)
	})
}

func testStateStore(t *testing.T, store StateStore) {
	ctx := context.Background()

	t.Run("take returns once", func(t *testing.T) {
		key := "ticket:" + uuid.NewString()
		require.NoError(t, store.Set(ctx, key, []byte("u1"), time.Minute))

		val, err := store.Take(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []byte("u1"), val)

		val, err = store.Take(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, val)
	})

	t.Run("take missing", func(t *testing.T) {
		val, err := store.Take(ctx, "ticket:"+uuid.NewString())
		require.NoError(t, err)
		assert.Nil(t, val)
	})

	t.Run("concurrent take has one winner", func(t *testing.T) {
		key := "ticket:" + uuid.NewString()
		require.NoError(t, store.Set(ctx, key, []byte("u1"), time.Minute))

		var winners atomic.Int64
		var g errgroup.Group
		for range 10 {
			g.Go(func() error {
				val, err := store.Take(ctx, key)
				if val != nil {
					winners.Add(1)
				}
				return err
			})
		}
		require.NoError(t, g.Wait())
		assert.Equal(t, int64(1), winners.Load())
	})
}
