package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAccountRepository(t *testing.T) {
	testAccountRepository(t, NewMemoryAccountRepository(contractBonus))
}

func TestMemoryRedeemCodeRepository(t *testing.T) {
	testRedeemCodeRepository(t, NewMemoryRedeemCodeRepository())
}

func TestMemoryStateStore(t *testing.T) {
	testStateStore(t, NewMemoryStateStore())
}

func TestMemoryStateStore_Expiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &memoryStateStore{
		entries: make(map[string]memEntry),
		now:     func() time.Time { return now },
	}
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "ticket:a", []byte("u1"), time.Minute))
	now = now.Add(2 * time.Minute)

	val, err := store.Take(ctx, "ticket:a")
	require.NoError(t, err)
	assert.Nil(t, val, "expired entries must not be returned")
}

func TestMemoryAccountRepository_CanceledContext(t *testing.T) {
	repo := NewMemoryAccountRepository(contractBonus)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.EnsureAccount(ctx, "u1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCodeFilter_Limit(t *testing.T) {
	assert.Equal(t, defaultListLimit, CodeFilter{}.limit())
	assert.Equal(t, defaultListLimit, CodeFilter{Limit: 5000}.limit())
	assert.Equal(t, 7, CodeFilter{Limit: 7}.limit())
}
