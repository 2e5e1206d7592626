package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idemNS = "stagepass:v1:idem"

	lockMarker   = "LOCK"
	resultPrefix = "RES:"
)

// KeyIdemReservation scopes an idempotency key to its user, so two users
// sending the same key never collide.
func KeyIdemReservation(userID int64, idemKey string) string {
	return fmt.Sprintf("%s:reservations:%d:%s", idemNS, userID, idemKey)
}

// IdempotencyStore makes reservation creation replay-safe. A key is first
// taken as a short-lived lock, then overwritten with the serialized response
// once the reservation commits; retries of the same request get the stored
// response back.
type IdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

// AcquireLock claims the key for an in-flight request. It fails when the
// key is already locked or already holds a result.
func (s *IdempotencyStore) AcquireLock(ctx context.Context, key string, lockTTL time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, key, lockMarker, lockTTL).Result()
}

// SaveResult replaces the lock with the response payload for later replay.
func (s *IdempotencyStore) SaveResult(ctx context.Context, key string, jsonPayload string) error {
	return s.rdb.Set(ctx, key, resultPrefix+jsonPayload, s.ttl).Err()
}

// GetResult returns the stored response, if the key holds one. A key that
// is absent or still locked reports found=false.
func (s *IdempotencyStore) GetResult(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	if payload, ok := strings.CutPrefix(v, resultPrefix); ok {
		return payload, true, nil
	}

	return "", false, nil
}

// Release drops the key so the request can be retried from scratch. Called
// when the reservation attempt fails.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
