package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Accounts are hashes at <prefix>account:<userID> with fields balance,
// created_at and updated_at. Every mutation runs as a Lua script so the
// check and the write happen in one server-side step.
var (
	ensureAccountScript = redis.NewScript(`
redis.call('HSETNX', KEYS[1], 'balance', ARGV[1])
redis.call('HSETNX', KEYS[1], 'created_at', ARGV[2])
redis.call('HSETNX', KEYS[1], 'updated_at', ARGV[2])
return tonumber(redis.call('HGET', KEYS[1], 'balance'))
`)

	// Returns {status, balance}: 0 applied, 1 missing account, 2 below floor.
	adjustBalanceScript = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'balance')
if not current then
  return {1, 0}
end
local delta = tonumber(ARGV[1])
local nextBalance = tonumber(current) + delta
if ARGV[2] == '1' and nextBalance < 0 then
  return {2, tonumber(current)}
end
redis.call('HINCRBY', KEYS[1], 'balance', delta)
redis.call('HSET', KEYS[1], 'updated_at', ARGV[3])
return {0, nextBalance}
`)
)

const (
	adjustApplied      = 0
	adjustMissing      = 1
	adjustBelowFloor   = 2
	redisTimestampForm = time.RFC3339Nano
)

type redisAccountRepository struct {
	client       *redis.Client
	prefix       string
	initialBonus int64
}

func NewRedisAccountRepository(client *redis.Client, prefix string, initialBonus int64) AccountRepository {
	return &redisAccountRepository{client: client, prefix: prefix, initialBonus: initialBonus}
}

func (r *redisAccountRepository) key(userID string) string {
	return r.prefix + "account:" + userID
}

func (r *redisAccountRepository) EnsureAccount(ctx context.Context, userID string) (int64, error) {
	now := time.Now().UTC().Format(redisTimestampForm)
	return ensureAccountScript.Run(ctx, r.client, []string{r.key(userID)}, r.initialBonus, now).Int64()
}

func (r *redisAccountRepository) GetBalance(ctx context.Context, userID string) (int64, error) {
	val, err := r.client.HGet(ctx, r.key(userID), "balance").Result()
	if errors.Is(err, redis.Nil) {
		return r.EnsureAccount(ctx, userID)
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(val, 10, 64)
}

func (r *redisAccountRepository) AdjustBalance(ctx context.Context, userID string, delta int64, floor bool) (int64, error) {
	floorArg := "0"
	if floor {
		floorArg = "1"
	}
	now := time.Now().UTC().Format(redisTimestampForm)

	res, err := adjustBalanceScript.Run(ctx, r.client, []string{r.key(userID)}, delta, floorArg, now).Int64Slice()
	if err != nil {
		return 0, err
	}
	if len(res) != 2 {
		return 0, fmt.Errorf("adjust balance: unexpected script reply %v", res)
	}

	switch res[0] {
	case adjustApplied:
		return res[1], nil
	case adjustMissing:
		return 0, ErrAccountNotFound
	case adjustBelowFloor:
		return 0, ErrInsufficientFunds
	default:
		return 0, fmt.Errorf("adjust balance: unknown script status %d", res[0])
	}
}
