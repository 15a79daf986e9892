package redisrepo

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	lockMarker   = "LOCK"
	resultPrefix = "RES:"
)

// StoredResponse is a response replayed for a repeated idempotency key.
type StoredResponse struct {
	Status int
	Body   []byte
}

type IdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

// AcquireLock claims key for the first request carrying it.
func (s *IdempotencyStore) AcquireLock(ctx context.Context, key string, lockTTL time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, key, lockMarker, lockTTL).Result()
}

// SaveResult replaces the lock with the final response, kept for the store TTL.
func (s *IdempotencyStore) SaveResult(ctx context.Context, key string, status int, body []byte) error {
	val := resultPrefix + strconv.Itoa(status) + ":" + string(body)
	return s.rdb.Set(ctx, key, val, s.ttl).Err()
}

// GetResult returns the saved response. ok is false while the key is
// missing or still locked.
func (s *IdempotencyStore) GetResult(ctx context.Context, key string) (StoredResponse, bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return StoredResponse{}, false, nil
	}
	if err != nil {
		return StoredResponse{}, false, err
	}

	rest, found := strings.CutPrefix(v, resultPrefix)
	if !found {
		return StoredResponse{}, false, nil
	}

	code, body, found := strings.Cut(rest, ":")
	if !found {
		return StoredResponse{}, false, nil
	}

	status, err := strconv.Atoi(code)
	if err != nil {
		return StoredResponse{}, false, nil
	}

	return StoredResponse{Status: status, Body: []byte(body)}, true, nil
}

func (s *IdempotencyStore) IsLocked(ctx context.Context, key string) (bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return v == lockMarker, nil
}

// Release frees a key whose request failed so that a retry can run again.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
