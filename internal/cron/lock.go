package cron

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// One sweep a day is the floor; a crashed worker frees the lock by the next day.
	defaultLockTTL = 25 * time.Hour

	defaultLockWorker = "cron-worker"
)

// Lock keeps two cron workers from sweeping FreshKit at the same time.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
	// Owner is the value this worker wrote, empty when it holds nothing.
	Owner() string
	// Holder reads the owner value currently stored, empty when free.
	Holder(ctx context.Context) (string, error)
}

type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisLock is a SETNX lock whose value names the worker, e.g.
// "cron-worker:host-1:3f2c...". Release only deletes a value it wrote.
type RedisLock struct {
	client redisStore
	key    string
	ttl    time.Duration
	worker string
	owner  string
}

// NewRedisLock builds the sweep lock. worker prefixes the owner value and
// defaults to "cron-worker".
func NewRedisLock(client redisStore, key, worker string, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	worker = strings.TrimSpace(worker)
	if worker == "" {
		worker = defaultLockWorker
	}
	return &RedisLock{client: client, key: key, ttl: ttl, worker: worker}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	owner := l.newOwner()
	ok, err := l.client.SetNX(ctx, l.key, owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx %s: %w", l.key, err)
	}
	if ok {
		l.owner = owner
	}
	return ok, nil
}

func (l *RedisLock) Release(ctx context.Context) error {
	if l.owner == "" {
		return nil
	}
	value, err := l.Holder(ctx)
	if err != nil {
		return err
	}
	if value != l.owner {
		// Expired and taken by another worker.
		l.owner = ""
		return nil
	}
	if err := l.client.Del(ctx, l.key); err != nil {
		return fmt.Errorf("delete lock %s: %w", l.key, err)
	}
	l.owner = ""
	return nil
}

func (l *RedisLock) Owner() string { return l.owner }

func (l *RedisLock) Holder(ctx context.Context) (string, error) {
	value, err := l.client.Get(ctx, l.key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("read lock owner: %w", err)
	}
	return value, nil
}

func (l *RedisLock) newOwner() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return l.worker + ":" + host + ":" + uuid.NewString()
}
