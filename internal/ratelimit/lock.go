package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// Both scripts act only while the caller's token still owns the key.
const (
	releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`
	extendScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`
)

var (
	ErrLockNotConfigured = errors.New("lock_not_configured")
	ErrLockHeld          = errors.New("lock_held")
	ErrLockLost          = errors.New("lock_lost")
)

// Locker hands out single-holder Redis leases.
type Locker struct {
	client  *redis.Client
	release *redis.Script
	extend  *redis.Script
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client:  client,
		release: redis.NewScript(releaseScript),
		extend:  redis.NewScript(extendScript),
	}
}

// Lease is a held lock. It expires on its own after ttl unless extended.
type Lease struct {
	locker *Locker
	key    string
	token  string
	ttl    time.Duration
}

// Acquire takes key for ttl. ErrLockHeld means another holder has it.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	if l == nil || l.client == nil {
		return nil, ErrLockNotConfigured
	}
	if key == "" {
		return nil, errors.New("lock key is empty")
	}
	if ttl <= 0 {
		return nil, errors.New("lock ttl must be positive")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return &Lease{locker: l, key: key, token: token, ttl: ttl}, nil
}

// Extend pushes the expiry out by the original ttl. ErrLockLost means the
// lease expired and someone else may hold the key now.
func (ls *Lease) Extend(ctx context.Context) error {
	if ls == nil {
		return ErrLockLost
	}
	n, err := ls.locker.extend.Run(ctx, ls.locker.client, []string{ls.key}, ls.token, ls.ttl.Milliseconds()).Int64()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLockLost
	}
	return nil
}

func (ls *Lease) Release(ctx context.Context) error {
	if ls == nil {
		return nil
	}
	return ls.locker.release.Run(ctx, ls.locker.client, []string{ls.key}, ls.token).Err()
}
