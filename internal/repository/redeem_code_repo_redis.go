package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"sunrun/credithub/internal/model"
)

// Codes are hashes at <prefix>code:<code>; <prefix>codes is a sorted set of
// all codes scored by creation time, used for listing.
var (
	createCodeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], 'amount', ARGV[1], 'used', '0', 'created_by', ARGV[2], 'created_at', ARGV[3])
redis.call('ZADD', KEYS[2], ARGV[4], ARGV[5])
return 1
`)

	// Returns the amount, or -1 when the code is unknown or already used.
	claimCodeScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'used') ~= '0' then
  return -1
end
redis.call('HSET', KEYS[1], 'used', '1', 'used_by', ARGV[1], 'used_at', ARGV[2])
return tonumber(redis.call('HGET', KEYS[1], 'amount'))
`)
)

// minListWindow bounds round trips when a filter skips many members.
const minListWindow = 64

type redisRedeemCodeRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisRedeemCodeRepository(client *redis.Client, prefix string) RedeemCodeRepository {
	return &redisRedeemCodeRepository{client: client, prefix: prefix}
}

func (r *redisRedeemCodeRepository) key(code string) string {
	return r.prefix + "code:" + code
}

func (r *redisRedeemCodeRepository) indexKey() string {
	return r.prefix + "codes"
}

func (r *redisRedeemCodeRepository) Create(ctx context.Context, code *model.RedeemCode) error {
	if code.CreatedAt.IsZero() {
		code.CreatedAt = time.Now()
	}
	created, err := createCodeScript.Run(ctx, r.client,
		[]string{r.key(code.Code), r.indexKey()},
		code.Amount,
		code.CreatedBy,
		code.CreatedAt.UTC().Format(redisTimestampForm),
		code.CreatedAt.UnixNano(),
		code.Code,
	).Int64()
	if err != nil {
		return err
	}
	if created == 0 {
		return ErrCodeExists
	}
	return nil
}

func (r *redisRedeemCodeRepository) GetByCode(ctx context.Context, code string) (*model.RedeemCode, error) {
	fields, err := r.client.HGetAll(ctx, r.key(code)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrCodeNotFound
	}
	return decodeRedeemCode(code, fields)
}

// List walks the creation index newest first in windows of limit members, so
// an unfiltered listing reads no more than limit hashes.
func (r *redisRedeemCodeRepository) List(ctx context.Context, filter CodeFilter) ([]model.RedeemCode, error) {
	limit := filter.limit()
	window := int64(limit)
	if filter.Used != nil {
		window = max(window, minListWindow)
	}

	codes := make([]model.RedeemCode, 0, limit)
	for start := int64(0); len(codes) < limit; start += window {
		members, err := r.client.ZRevRange(ctx, r.indexKey(), start, start+window-1).Result()
		if err != nil {
			return nil, err
		}
		if len(members) == 0 {
			break
		}

		pipe := r.client.Pipeline()
		cmds := make([]*redis.MapStringStringCmd, len(members))
		for i, member := range members {
			cmds[i] = pipe.HGetAll(ctx, r.key(member))
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, err
		}

		for i, cmd := range cmds {
			fields := cmd.Val()
			if len(fields) == 0 {
				continue
			}
			code, err := decodeRedeemCode(members[i], fields)
			if err != nil {
				return nil, err
			}
			if !filter.match(code) {
				continue
			}
			codes = append(codes, *code)
			if len(codes) == limit {
				break
			}
		}
		if int64(len(members)) < window {
			break
		}
	}
	return codes, nil
}

func (r *redisRedeemCodeRepository) ClaimCode(ctx context.Context, code string, claimantID string) (int64, error) {
	now := time.Now().UTC().Format(redisTimestampForm)
	amount, err := claimCodeScript.Run(ctx, r.client, []string{r.key(code)}, claimantID, now).Int64()
	if err != nil {
		return 0, err
	}
	if amount < 0 {
		return 0, ErrCodeInvalid
	}
	return amount, nil
}

func decodeRedeemCode(code string, fields map[string]string) (*model.RedeemCode, error) {
	amount, err := strconv.ParseInt(fields["amount"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode code %s amount: %w", code, err)
	}
	out := &model.RedeemCode{
		Code:      code,
		Amount:    amount,
		Used:      fields["used"] == "1",
		CreatedBy: fields["created_by"],
	}
	if ts := fields["created_at"]; ts != "" {
		if out.CreatedAt, err = time.Parse(redisTimestampForm, ts); err != nil {
			return nil, fmt.Errorf("decode code %s created_at: %w", code, err)
		}
	}
	if usedBy, ok := fields["used_by"]; ok {
		out.UsedBy = &usedBy
	}
	if ts, ok := fields["used_at"]; ok {
		usedAt, err := time.Parse(redisTimestampForm, ts)
		if err != nil {
			return nil, fmt.Errorf("decode code %s used_at: %w", code, err)
		}
		out.UsedAt = &usedAt
	}
	return out, nil
}
