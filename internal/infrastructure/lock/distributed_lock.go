// Package lock implements a Redis-backed mutual-exclusion lock.
//
// The relational store already serializes state changes through
// row-level locks (spec.md §5), but acquiring those requires opening a
// transaction — a distributed lock lets handlers fail fast ("someone
// else is already handling this session/request") before paying for a
// round-trip and a transaction that would abort anyway. Orchestrator
// operations and the Ledger's settle path wrap their guarded
// transaction in one of these.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

var ErrLockFailed = errors.New("lock: failed to acquire")

// DistributedLock is a SET-NX-with-TTL mutex identified by key, with a
// caller-chosen value used to safely verify ownership on release.
type DistributedLock struct {
	client     *redis.Client
	key        string
	value      string
	expiration time.Duration
}

// New creates a lock handle. Acquiring it does not happen until Lock or
// TryLock is called.
func New(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{client: client, key: key, value: value, expiration: expiration}
}

// TryLock attempts to acquire the lock once, non-blocking.
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
}

// Lock retries TryLock until it succeeds, ctx is done, or maxRetries is
// exhausted.
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		ok, err := l.TryLock(ctx)
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
	return ErrLockFailed
}

// unlockScript deletes the key only if its value still matches the
// holder's value, so a lock that expired and was reacquired by someone
// else is never torn down by its former holder.
const unlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

// Unlock releases the lock if still held by this handle's value.
func (l *DistributedLock) Unlock(ctx context.Context) error {
	_, err := l.client.Eval(ctx, unlockScript, []string{l.key}, l.value).Result()
	return err
}

// ForSession returns the per-session lock used by Session Orchestrator
// state transitions (request/accept/decline/end).
func ForSession(client *redis.Client, sessionID, holder string) *DistributedLock {
	key := fmt.Sprintf("session:lock:%s", sessionID)
	return New(client, key, holder, 30*time.Second)
}

// ForReaderPresence returns the per-reader lock taken by the reader's
// self-service status change, so two concurrent self-service changes
// for the same reader can't interleave. The orchestrator's accept/end
// presence transitions do not take it; they rely on the status
// compare-and-set alone.
func ForReaderPresence(client *redis.Client, readerID, holder string) *DistributedLock {
	key := fmt.Sprintf("presence:lock:reader:%s", readerID)
	return New(client, key, holder, 10*time.Second)
}

// ForLedgerSettlement returns the lock guarding Ledger.settleSession for
// a given session, preventing a concurrent duplicate end() from racing
// the database transaction.
func ForLedgerSettlement(client *redis.Client, sessionID, holder string) *DistributedLock {
	key := fmt.Sprintf("ledger:lock:settle:%s", sessionID)
	return New(client, key, holder, 30*time.Second)
}
