package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	redisx "github.com/yeonsu-dev/stagepass/internal/redis"
)

// Cache holds show metadata only. Availability and seat occupancy are
// always computed from committed store state and must never pass through
// here.
type Cache struct {
	rdb *redis.Client
	sf  singleflight.Group
}

func New(client *redis.Client) *Cache {
	return &Cache{rdb: client}
}

func (c *Cache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	return c.rdb.Del(ctx, keys...).Err()
}

// InvalidateShow drops the show's cached summary together with the show
// list, which embeds it.
func (c *Cache) InvalidateShow(ctx context.Context, showID int64) error {
	return c.Del(
		ctx,
		redisx.KeyShowSummary(showID),
		redisx.KeyShowList(),
	)
}

func getJSON[T any](ctx context.Context, c *Cache, key string) (T, bool, error) {
	var out T

	b, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return out, false, nil
	}
	if err != nil {
		return out, false, err
	}

	if err := json.Unmarshal(b, &out); err != nil {
		return out, false, err
	}

	return out, true, nil
}

func setJSON(ctx context.Context, c *Cache, key string, val any, ttl time.Duration) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, key, b, ttl).Err()
}

// GetOrSetJSON returns the cached value under key, loading and storing it
// on a miss. Concurrent misses for the same key collapse into a single
// loader call.
func GetOrSetJSON[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	loader func(ctx context.Context) (T, error),
) (T, error) {
	var zero T

	if v, ok, err := getJSON[T](ctx, c, key); err != nil || ok {
		return v, err
	}

	vAny, err, _ := c.sf.Do(key, func() (any, error) {
		// Another caller may have filled the key while we waited.
		if v, ok, err := getJSON[T](ctx, c, key); err != nil || ok {
			return v, err
		}

		v, err := loader(ctx)
		if err != nil {
			return nil, err
		}

		_ = setJSON(ctx, c, key, v, ttl)
		return v, nil
	})
	if err != nil {
		return zero, err
	}

	v, ok := vAny.(T)
	if !ok {
		return zero, errors.New("cache: unexpected cached type")
	}

	return v, nil
}
