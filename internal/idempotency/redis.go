package idempotency

import (
	"context"
	"time"

	"bank/internal/model"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"github.com/yanun0323/errors"
)

const (
	redisKeyPrefix = "bank:idempotency:"
	pendingValue   = "pending"
	claimAttempts  = 3
)

var _ Store = (*Redis)(nil)

// Redis is a Store shared by every process connected to the same redis.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a redis backed store. A ttl of zero uses DefaultTTL.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Claim(ctx context.Context, key, fingerprint string) (model.ExecutedOrder, bool, error) {
	rk := redisKeyPrefix + key
	for range claimAttempts {
		ok, err := r.client.SetNX(ctx, rk, pendingValue, r.ttl).Result()
		if err != nil {
			return model.ExecutedOrder{}, false, errors.Wrap(err, "setnx idempotency key").With("key", key)
		}
		if ok {
			return model.ExecutedOrder{}, false, nil
		}

		value, err := r.client.Get(ctx, rk).Result()
		if errors.Is(err, redis.Nil) {
			// expired between SETNX and GET
			continue
		}
		if err != nil {
			return model.ExecutedOrder{}, false, errors.Wrap(err, "get idempotency key").With("key", key)
		}
		if value == pendingValue {
			return model.ExecutedOrder{}, false, inFlight(key)
		}

		var order model.ExecutedOrder
		if err := sonic.UnmarshalString(value, &order); err != nil {
			return model.ExecutedOrder{}, false, errors.Wrap(err, "unmarshal stored order").With("key", key)
		}
		return replay(key, fingerprint, order)
	}
	return model.ExecutedOrder{}, false, errors.Errorf("claim idempotency key %s: too many attempts", key)
}

func (r *Redis) Complete(ctx context.Context, key string, order model.ExecutedOrder) error {
	payload, err := sonic.ConfigFastest.MarshalToString(order)
	if err != nil {
		return errors.Wrap(err, "marshal executed order").With("key", key)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+key, payload, r.ttl).Err(); err != nil {
		return errors.Wrap(err, "store executed order").With("key", key)
	}
	return nil
}

func (r *Redis) Release(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return errors.Wrap(err, "release idempotency key").With("key", key)
	}
	return nil
}
