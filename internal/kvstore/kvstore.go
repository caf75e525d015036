// Package kvstore is the typed KV Store Facade (component B). It wraps a
// single redis client with a bounded pooled-connection gate and a liveness
// loop so long-running callers (tick, auto-expand) can suspend themselves
// instead of spinning against an unreachable backend.
package kvstore

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"hexterritory/internal/config"
)

// Store is the pooled KV facade. Every exported method acquires a weighted
// semaphore slot before issuing a command and releases it on return; when
// the pool is saturated the caller blocks (backpressure) rather than fails.
type Store struct {
	rdb *redis.Client
	gate *semaphore.Weighted

	cmdTimeout time.Duration

	available atomic.Bool
	log       *zap.Logger
}

// New dials redis and starts the liveness loop. The returned Store reports
// itself available only after the first successful ping.
func New(cfg *config.Config, log *zap.Logger) *Store {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  time.Duration(cfg.KVConnectTimeoutSecs) * time.Second,
		ReadTimeout:  time.Duration(cfg.KVCommandTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.KVCommandTimeoutSecs) * time.Second,
	})

	s := &Store{
		rdb:        rdb,
		gate:       semaphore.NewWeighted(cfg.KVPoolSize),
		cmdTimeout: time.Duration(cfg.KVCommandTimeoutSecs) * time.Second,
		log:        log,
	}

	go s.livenessLoop(time.Duration(cfg.KVHealthIntervalSecs) * time.Second)

	return s
}

// IsAvailable reports whether the last liveness ping succeeded. Ticks and
// auto-expansion loops check this before issuing commands.
func (s *Store) IsAvailable() bool {
	return s.available.Load()
}

// Close releases the underlying redis connection.
func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) livenessLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0 // no elapsed-time cap; WithMaxRetries below allows 2 retries per tick, and the ticker paces outer attempts

	for range ticker.C {
		err := backoff.Retry(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), s.cmdTimeout)
			defer cancel()
			return s.rdb.Ping(ctx).Err()
		}, backoff.WithMaxRetries(bo, 2))

		wasAvailable := s.available.Load()
		nowAvailable := err == nil
		s.available.Store(nowAvailable)

		if wasAvailable && !nowAvailable {
			s.log.Warn("kv store became unavailable", zap.Error(err))
		} else if !wasAvailable && nowAvailable {
			s.log.Info("kv store recovered")
		}
	}
}

// acquire blocks until a pool slot is free or ctx is cancelled.
func (s *Store) acquire(ctx context.Context) error {
	return s.gate.Acquire(ctx, 1)
}

func (s *Store) release() {
	s.gate.Release(1)
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cmdTimeout)
}

// Ping issues a direct PING, bypassing the availability cache.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.rdb.Ping(ctx).Err()
}

// Exists reports whether a key exists.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := s.acquire(ctx); err != nil {
		return false, err
	}
	defer s.release()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("kv exists %s: %w", key, err)
	}
	return n > 0, nil
}

// --- hash ---

func (s *Store) HashSet(ctx context.Context, key, field, value string) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.rdb.HSet(ctx, key, field, value).Err(); err != nil {
		return fmt.Errorf("kv hset %s.%s: %w", key, field, err)
	}
	return nil
}

// HashSetAll sets multiple fields of a hash in a single round trip.
func (s *Store) HashSetAll(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	args := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		args[k] = v
	}
	if err := s.rdb.HSet(ctx, key, args).Err(); err != nil {
		return fmt.Errorf("kv hset-all %s: %w", key, err)
	}
	return nil
}

// HashGet returns a single field's value. ok is false on miss.
func (s *Store) HashGet(ctx context.Context, key, field string) (value string, ok bool, err error) {
	if err := s.acquire(ctx); err != nil {
		return "", false, err
	}
	defer s.release()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	v, err := s.rdb.HGet(ctx, key, field).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv hget %s.%s: %w", key, field, err)
	}
	return v, true, nil
}

// HashGetAll returns every field of a hash (empty map on miss).
func (s *Store) HashGetAll(ctx context.Context, key string) (map[string]string, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	m, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("kv hgetall %s: %w", key, err)
	}
	return m, nil
}

// HashDel removes one field from a hash.
func (s *Store) HashDel(ctx context.Context, key, field string) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.rdb.HDel(ctx, key, field).Err(); err != nil {
		return fmt.Errorf("kv hdel %s.%s: %w", key, field, err)
	}
	return nil
}

// --- set ---

func (s *Store) SetAdd(ctx context.Context, key string, member string) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.rdb.SAdd(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("kv sadd %s: %w", key, err)
	}
	return nil
}

func (s *Store) SetRem(ctx context.Context, key string, member string) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.rdb.SRem(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("kv srem %s: %w", key, err)
	}
	return nil
}

func (s *Store) SetMembers(ctx context.Context, key string) ([]string, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	members, err := s.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("kv smembers %s: %w", key, err)
	}
	return members, nil
}

// --- sorted set ---

func (s *Store) ZSetAdd(ctx context.Context, key string, score float64, member string) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.rdb.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err(); err != nil {
		return fmt.Errorf("kv zadd %s: %w", key, err)
	}
	return nil
}

func (s *Store) ZSetRem(ctx context.Context, key string, member string) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.rdb.ZRem(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("kv zrem %s: %w", key, err)
	}
	return nil
}

// ZSetRange returns members in [start, stop] by rank (0-based, inclusive, -1 = last).
func (s *Store) ZSetRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	members, err := s.rdb.ZRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("kv zrange %s: %w", key, err)
	}
	return members, nil
}

// --- list ---

func (s *Store) ListLPush(ctx context.Context, key string, value string) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.rdb.LPush(ctx, key, value).Err(); err != nil {
		return fmt.Errorf("kv lpush %s: %w", key, err)
	}
	return nil
}

func (s *Store) ListLTrim(ctx context.Context, key string, start, stop int64) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.rdb.LTrim(ctx, key, start, stop).Err(); err != nil {
		return fmt.Errorf("kv ltrim %s: %w", key, err)
	}
	return nil
}

// ListLRange returns elements in [start, stop] (0-based, inclusive, -1 = last).
// LPUSH-then-LRANGE(0,-1) yields newest-first order.
func (s *Store) ListLRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	items, err := s.rdb.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("kv lrange %s: %w", key, err)
	}
	return items, nil
}

// SetString is a plain string SET with optional TTL (ttl<=0 means no expiry).
func (s *Store) SetString(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("kv set %s: %w", key, err)
	}
	return nil
}

func (s *Store) GetString(ctx context.Context, key string) (value string, ok bool, err error) {
	if err := s.acquire(ctx); err != nil {
		return "", false, err
	}
	defer s.release()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	v, err := s.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv get %s: %w", key, err)
	}
	return v, true, nil
}

func (s *Store) Del(ctx context.Context, key string) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("kv del %s: %w", key, err)
	}
	return nil
}
