package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// ErrLockBusy means another invocation holds the job lock.
var ErrLockBusy = errors.New("job lock is held by another invocation")

// Locker serializes job invocations across processes.
type Locker interface {
	// Acquire returns a release func, or ErrLockBusy if the lock is taken.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}

// NewLocker uses redsync when a Redis client is configured, otherwise a no-op locker.
func NewLocker(client *redis.Client) Locker {
	if client == nil {
		return noopLocker{}
	}
	return &redsyncLocker{rs: redsync.New(goredis.NewPool(client))}
}

type noopLocker struct{}

func (noopLocker) Acquire(context.Context, string, time.Duration) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}

type redsyncLocker struct {
	rs *redsync.Redsync
}

func (l *redsyncLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	mutex := l.rs.NewMutex(key,
		redsync.WithExpiry(ttl),
		// One try: a held lock means another invocation is already draining.
		redsync.WithTries(1),
	)
	if err := mutex.LockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken) {
			return nil, ErrLockBusy
		}
		return nil, err
	}
	return func(ctx context.Context) error {
		_, err := mutex.UnlockContext(ctx)
		return err
	}, nil
}
