package redlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrLockHeld is returned by Lock when another holder owns the key.
	ErrLockHeld  = errors.New("lock is already held")
	ErrNotHolder = errors.New("lock is not held by this run")
)

const unlockScript = "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('del', KEYS[1]) else return 0 end"

// Locker is a single-holder redis lock. Only the holder's value can release it.
type Locker struct {
	client redis.UniversalClient
	key    string
	value  string
}

func NewLocker(client redis.UniversalClient, key, value string) *Locker {
	return &Locker{
		client: client,
		key:    key,
		value:  value,
	}
}

// SingleFlightKey is the lock key guarding overlapping runs of one task kind.
func SingleFlightKey(taskType string) string {
	return fmt.Sprintf("agrion:single-flight:%s", taskType)
}

// Lock tries once to take the lock. It never waits for a current holder.
func (l *Locker) Lock(ctx context.Context, ttl time.Duration) error {
	success, err := l.client.SetNX(ctx, l.key, l.value, ttl).Result()
	if err != nil {
		return err
	}
	if !success {
		return fmt.Errorf("%w: key %s", ErrLockHeld, l.key)
	}
	return nil
}

// Unlock releases the lock if this Locker still holds it. A lock that expired or was taken over
// by another run reports ErrNotHolder.
func (l *Locker) Unlock(ctx context.Context) error {
	released, err := l.client.Eval(ctx, unlockScript, []string{l.key}, l.value).Int64()
	if err != nil {
		return err
	}
	if released == 0 {
		return fmt.Errorf("%w: key %s", ErrNotHolder, l.key)
	}
	return nil
}
