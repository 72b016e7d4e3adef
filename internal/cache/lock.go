package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrBusy means another instance holds the guard for the same key.
var ErrBusy = errors.New("operation already in progress")

// Locker rejects a second in-flight finalize/approve of the same record early.
// Correctness never depends on it: the database transaction is the real guard.
type Locker struct {
	client *redislock.Client
	ttl    time.Duration
}

func NewLocker(rdb *redis.Client, ttl time.Duration) *Locker {
	if rdb == nil {
		return &Locker{ttl: ttl}
	}
	return &Locker{client: redislock.New(rdb), ttl: ttl}
}

// Obtain takes the guard for key and returns its release func. With no redis
// configured it always succeeds.
func (l *Locker) Obtain(ctx context.Context, key string) (func(), error) {
	if l == nil || l.client == nil {
		return func() {}, nil
	}
	lock, err := l.client.Obtain(ctx, "guard:"+key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrBusy
	}
	if err != nil {
		return nil, err
	}
	return func() {
		_ = lock.Release(context.WithoutCancel(ctx))
	}, nil
}
