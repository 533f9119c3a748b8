// pkg/redislock/lock.go
package redislock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrNotAcquired is returned when the lock could not be taken within
// the retry budget.
var ErrNotAcquired = errors.New("redis lock not acquired")

// Lock is a single-holder lock backed by Redis SET NX EX. It
// serializes balance mutations per account: two operations against the
// same account take the same key, so only one of them can be inside
// its read-check-write sequence at a time. The expiration bounds how
// long a crashed holder can block others.
type Lock struct {
	client     *redis.Client
	key        string
	owner      string // Holder token, verified on release
	expiration time.Duration
}

// New creates a Lock for the given key. owner must be unique per
// acquisition attempt so a holder never releases someone else's lock.
func New(client *redis.Client, key, owner string, expiration time.Duration) *Lock {
	return &Lock{
		client:     client,
		key:        key,
		owner:      owner,
		expiration: expiration,
	}
}

// ForAccount creates a lock scoped to one ledger account.
func ForAccount(client *redis.Client, accountID int64, owner string) *Lock {
	return New(client, fmt.Sprintf("payflow:lock:account:%d", accountID), owner, 30*time.Second)
}

// TryAcquire attempts to take the lock without blocking.
func (l *Lock) TryAcquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.owner, l.expiration).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", l.key, err)
	}
	return ok, nil
}

// Acquire takes the lock, retrying at retryInterval up to maxRetries
// times. Returns ErrNotAcquired when the budget is exhausted.
func (l *Lock) Acquire(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		ok, err := l.TryAcquire(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return ErrNotAcquired
}

// releaseScript deletes the key only if it still holds our owner
// token. Check and delete must be one atomic step, otherwise a holder
// whose lock expired could delete the next holder's lock.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

// Release gives the lock up. A lock that already expired or is held by
// another owner is left untouched.
func (l *Lock) Release(ctx context.Context) error {
	if _, err := l.client.Eval(ctx, releaseScript, []string{l.key}, l.owner).Result(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.key, err)
	}
	return nil
}
