// Package quota counts generation usage per identity and enforces the
// per-identity ceiling. Anonymous devices count locally against a lifetime
// limit; signed-in users count in redis against a daily limit.
package quota

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store reads and advances the usage counter behind one key. Increment
// returns the counter value after the increment.
type Store interface {
	Used(ctx context.Context, key string) (int, error)
	Increment(ctx context.Context, key string) (int, error)
}

// MemoryStore counts anonymous device usage in process. Increments are pure
// local operations with no failure mode.
type MemoryStore struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counts: make(map[string]int)}
}

func (s *MemoryStore) Used(_ context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[key], nil
}

func (s *MemoryStore) Increment(_ context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[key]++
	return s.counts[key], nil
}

// Reset clears every counter. Anonymous windows are lifetime-until-reset;
// this is the reset.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts = make(map[string]int)
}

// RedisStore counts authenticated usage. Keys embed the UTC date, so a new
// day starts a fresh counter; yesterday's keys expire on their own.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Used(ctx context.Context, key string) (int, error) {
	val, err := s.client.Get(ctx, key).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("quota: read counter %s: %w", key, err)
	}
	return val, nil
}

func (s *RedisStore) Increment(ctx context.Context, key string) (int, error) {
	val, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("quota: increment counter %s: %w", key, err)
	}
	// Expiry outlives the window so a late read still sees today's count.
	s.client.Expire(ctx, key, 48*time.Hour)
	return int(val), nil
}
