package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// RedisLocker is a Locker shared by every instance pointing at the same
// Redis. A held lock is extended in the background until released, so
// generation that outlives the expiry keeps ownership.
type RedisLocker struct {
	rs      *redsync.Redsync
	options redisLockerOptions
}

type redisLockerOptions struct {
	prefix        string
	expiry        time.Duration
	retryDelay    time.Duration
	renewInterval time.Duration
}

// RedisLockerOption configures a RedisLocker.
type RedisLockerOption func(*redisLockerOptions)

// WithExpiry sets the lock TTL in Redis.
func WithExpiry(d time.Duration) RedisLockerOption {
	return func(o *redisLockerOptions) { o.expiry = d }
}

// WithRetryDelay sets the wait between acquisition attempts.
func WithRetryDelay(d time.Duration) RedisLockerOption {
	return func(o *redisLockerOptions) { o.retryDelay = d }
}

// WithRenewInterval sets how often a held lock is extended.
// Defaults to a third of the expiry.
func WithRenewInterval(d time.Duration) RedisLockerOption {
	return func(o *redisLockerOptions) { o.renewInterval = d }
}

// NewRedisLocker creates a redsync-backed locker.
func NewRedisLocker(client *redis.Client, opts ...RedisLockerOption) *RedisLocker {
	options := redisLockerOptions{
		prefix:     "lock:",
		expiry:     8 * time.Second,
		retryDelay: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.renewInterval <= 0 {
		options.renewInterval = options.expiry / 3
	}

	return &RedisLocker{
		rs:      redsync.New(goredis.NewPool(client)),
		options: options,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	mutex := l.rs.NewMutex(
		l.options.prefix+key,
		redsync.WithExpiry(l.options.expiry),
		redsync.WithTries(1),
	)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}

		err := mutex.LockContext(ctx)
		if err == nil {
			break
		}
		// Taken by someone else: retry. Redis unreachable: give up.
		var redisErr *redsync.RedisError
		if errors.As(err, &redisErr) {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		timer.Reset(l.options.retryDelay)
	}

	renewCtx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.renew(renewCtx, mutex)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()
			if ok, err := mutex.Unlock(); err != nil || !ok {
				slog.Warn("lock release failed", "key", key, "error", err)
			}
		})
	}, nil
}

func (l *RedisLocker) renew(ctx context.Context, mutex *redsync.Mutex) {
	ticker := time.NewTicker(l.options.renewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok, err := mutex.ExtendContext(ctx)
			if err != nil || !ok {
				slog.Warn("lock renewal failed", "key", mutex.Name(), "error", err)
				return
			}
		}
	}
}
