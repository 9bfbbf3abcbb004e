package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/suibid/internal/domain"
)

// unlockLua deletes a lock key only if its value matches the caller's unique
// token, so one holder can never release another holder's lock.
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// refreshLua extends a lock's TTL only while the caller still owns it.
const refreshLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 0
`

// LockManager implements domain.LockManager using Redis SETNX with a TTL and
// a Lua-based conditional unlock. The indexer holds the lock for its watched
// source so only one poller instance ever writes projections. A held lock is
// renewed at half its TTL; the TTL only reaps the lock of a crashed holder.
type LockManager struct {
	rdb       *redis.Client
	unlockSc  *redis.Script
	refreshSc *redis.Script
}

// NewLockManager creates a LockManager backed by the given Client.
func NewLockManager(c *Client) *LockManager {
	return &LockManager{
		rdb:       c.Underlying(),
		unlockSc:  redis.NewScript(unlockLua),
		refreshSc: redis.NewScript(refreshLua),
	}
}

func lockKey(key string) string {
	return "lock:" + key
}

// Acquire attempts to obtain a distributed lock for the given key with the
// specified TTL. On success it starts a keep-alive that renews the lock every
// ttl/2 until the lock is released or the context is cancelled, and returns
// an unlock function that must be called to release the lock; the unlock
// function is safe to call more than once. It returns domain.ErrLockHeld if
// the lock is already held by another party.
func (lm *LockManager) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.New().String()
	lk := lockKey(key)

	ok, err := lm.rdb.SetNX(ctx, lk, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, domain.ErrLockHeld
	}

	stop := make(chan struct{})
	go keepLockAlive(ctx, stop, ttl/2, func(rctx context.Context) bool {
		n, err := lm.refreshSc.Run(rctx, lm.rdb, []string{lk}, token, ttl.Milliseconds()).Int()
		if err != nil {
			// Transient failure; the TTL still covers us until the next tick.
			return true
		}
		// n == 0 means the key expired or was taken over. Renewing further
		// would stomp on the new holder.
		return n > 0
	})

	released := false
	unlock := func() {
		if released {
			return
		}
		released = true
		close(stop)

		// Background context so unlock succeeds even if the caller's context
		// is already cancelled.
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = lm.unlockSc.Run(unlockCtx, lm.rdb, []string{lk}, token).Err()
	}

	return unlock, nil
}

// keepLockAlive calls refresh at every interval until the stop channel is
// closed, the context is cancelled, or refresh reports the lock is lost.
func keepLockAlive(ctx context.Context, stop <-chan struct{}, interval time.Duration, refresh func(context.Context) bool) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if !refresh(ctx) {
				return
			}
		}
	}
}

// Compile-time interface check.
var _ domain.LockManager = (*LockManager)(nil)
