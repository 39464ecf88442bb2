package cache

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	pkgredis "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
)

// Backend stores encoded search results by key.
type Backend interface {
	Name() string
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	// Flush removes every entry written by this cache and returns how many
	// were removed.
	Flush(ctx context.Context) (int64, error)
}

// MemoryBackend is a process-local LRU.
type MemoryBackend struct {
	lru *lru.Cache[string, []byte]
}

func NewMemoryBackend(size int) (*MemoryBackend, error) {
	c, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("creating lru cache: %w", err)
	}
	return &MemoryBackend{lru: c}, nil
}

func (m *MemoryBackend) Name() string { return "memory" }

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.lru.Get(key)
	return v, ok, nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, value []byte) error {
	m.lru.Add(key, value)
	return nil
}

func (m *MemoryBackend) Flush(_ context.Context) (int64, error) {
	n := m.lru.Len()
	m.lru.Purge()
	return int64(n), nil
}

// RedisBackend keeps results in Redis, off the searcher heap. Generations
// are per process, so every searcher writes under its own instance
// namespace: replicas sharing one Redis never read each other's entries,
// and entries left by an earlier process are unreachable and expire with
// the TTL. Calls go through a circuit breaker and an unhealthy Redis
// degrades to cache misses.
type RedisBackend struct {
	client  *pkgredis.Client
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	prefix  string
}

const redisKeyPrefix = "search:"

// NewRedisBackend stores entries under "search:<instanceID>:".
func NewRedisBackend(client *pkgredis.Client, ttl time.Duration, breaker *resilience.CircuitBreaker, instanceID string) *RedisBackend {
	return &RedisBackend{
		client:  client,
		ttl:     ttl,
		breaker: breaker,
		prefix:  redisKeyPrefix + instanceID + ":",
	}
}

func (r *RedisBackend) key(k string) string { return r.prefix + k }

func (r *RedisBackend) Name() string { return "redis" }

func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	found := false
	err := r.breaker.Execute(func() error {
		v, err := r.client.Get(ctx, r.key(key))
		if pkgredis.IsNilError(err) {
			return nil
		}
		if err != nil {
			return err
		}
		data, found = v, true
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, found, nil
}

func (r *RedisBackend) Set(ctx context.Context, key string, value []byte) error {
	err := r.breaker.Execute(func() error {
		return r.client.Set(ctx, r.key(key), value, r.ttl)
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisBackend) Flush(ctx context.Context) (int64, error) {
	var deleted int64
	err := r.breaker.Execute(func() error {
		n, err := r.client.FlushByPattern(ctx, r.prefix+"*")
		deleted = n
		return err
	})
	return deleted, err
}
