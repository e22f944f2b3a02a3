package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultLockTTL bounds how long a crashed run can block the next one.
const DefaultLockTTL = 2 * time.Hour

// releaseScript deletes the key only when it still belongs to owner.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript resets the TTL only when the key still belongs to owner.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RunLock is a Redis lock that keeps pipeline runs from overlapping
// across processes.
type RunLock struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

// NewRunLock creates a RunLock on key.
func NewRunLock(rdb *redis.Client, key string, ttl time.Duration) *RunLock {
	if key == "" {
		key = "pipeline:run-lock"
	}
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &RunLock{rdb: rdb, key: key, ttl: ttl}
}

// TryLock takes the lock for owner. It reports false when another owner holds it.
func (l *RunLock) TryLock(ctx context.Context, owner string) (bool, error) {
	return l.rdb.SetNX(ctx, l.key, owner, l.ttl).Result()
}

// Unlock releases the lock if owner still holds it.
func (l *RunLock) Unlock(ctx context.Context, owner string) error {
	return releaseScript.Run(ctx, l.rdb, []string{l.key}, owner).Err()
}

// Extend resets the TTL while owner holds the lock. It reports false when the
// lock expired or was taken by another owner.
func (l *RunLock) Extend(ctx context.Context, owner string) (bool, error) {
	n, err := extendScript.Run(ctx, l.rdb, []string{l.key}, owner, l.ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Owner returns the current holder, or "" when the lock is free.
func (l *RunLock) Owner(ctx context.Context) (string, error) {
	owner, err := l.rdb.Get(ctx, l.key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return owner, err
}
