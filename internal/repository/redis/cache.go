package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	keys "github.com/sarjanshah14/ParkingSpotFinder/internal/redis"
)

type Cache struct {
	rdb *redis.Client
	sf  singleflight.Group
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{rdb: client}
}

func (c *Cache) getBytes(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return b, true, nil
}

func (c *Cache) Del(ctx context.Context, ks ...string) error {
	if len(ks) == 0 {
		return nil
	}

	return c.rdb.Del(ctx, ks...).Err()
}

func GetJSON[T any](ctx context.Context, c *Cache, key string) (T, bool, error) {
	var out T

	b, ok, err := c.getBytes(ctx, key)
	if err != nil || !ok {
		return out, false, err
	}

	if err := json.Unmarshal(b, &out); err != nil {
		var zero T
		return zero, false, err
	}

	return out, true, nil
}

func SetJSON(ctx context.Context, c *Cache, key string, val any, ttl time.Duration) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, key, b, ttl).Err()
}

// GetOrSetJSON returns the cached value under key, or calls loader once per
// key across concurrent callers and caches its result for ttl. Cache read
// and write failures fall through to the loader.
func GetOrSetJSON[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	loader func(ctx context.Context) (T, error),
) (T, error) {
	if v, ok, err := GetJSON[T](ctx, c, key); err == nil && ok {
		return v, nil
	}

	vAny, err, _ := c.sf.Do(key, func() (any, error) {
		if v, ok, err := GetJSON[T](ctx, c, key); err == nil && ok {
			return v, nil
		}

		v, err := loader(ctx)
		if err != nil {
			return nil, err
		}

		_ = SetJSON(ctx, c, key, v, ttl)

		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	v, ok := vAny.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache: unexpected type %T for %s", vAny, key)
	}

	return v, nil
}

// PremiseListGen returns the current list generation, 0 when unset.
func (c *Cache) PremiseListGen(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, keys.KeyPremiseListGen()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}

	return gen, err
}

// InvalidatePremise drops the cached premise and every cached list page.
func (c *Cache) InvalidatePremise(ctx context.Context, premiseID int64) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys.KeyPremise(premiseID))
		pipe.Incr(ctx, keys.KeyPremiseListGen())
		return nil
	})

	return err
}
