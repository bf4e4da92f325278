package report

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache holds per-owner report lists between writes. Every Invalidate bumps
// the owner's version, and Set only stores a list read under the current
// version, so a list loaded before a write can never be cached after it.
type Cache interface {
	Get(ctx context.Context, userID int64) ([]Report, bool, error)
	Version(ctx context.Context, userID int64) (int64, error)
	Set(ctx context.Context, userID, version int64, reports []Report) error
	Invalidate(ctx context.Context, userID int64) error
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, userID int64) ([]Report, bool, error) {
	data, err := c.client.Get(ctx, cacheKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var reports []Report
	if err := json.Unmarshal(data, &reports); err != nil {
		return nil, false, err
	}
	return reports, true, nil
}

func (c *RedisCache) Version(ctx context.Context, userID int64) (int64, error) {
	return readVersion(ctx, c.client, userID)
}

// Set stores reports unless the owner's version moved past version.
func (c *RedisCache) Set(ctx context.Context, userID, version int64, reports []Report) error {
	b, err := json.Marshal(reports)
	if err != nil {
		return err
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readVersion(ctx, tx, userID)
		if err != nil {
			return err
		}
		if current != version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, cacheKey(userID), b, c.ttl)
			return nil
		})
		return err
	}, versionKey(userID))
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

func (c *RedisCache) Invalidate(ctx context.Context, userID int64) error {
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, versionKey(userID))
		p.Del(ctx, cacheKey(userID))
		return nil
	})
	return err
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readVersion(ctx context.Context, r getter, userID int64) (int64, error) {
	v, err := r.Get(ctx, versionKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func cacheKey(userID int64) string {
	return "reports:user:" + strconv.FormatInt(userID, 10)
}

func versionKey(userID int64) string {
	return cacheKey(userID) + ":version"
}
