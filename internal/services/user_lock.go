package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// UserLocker serializes reconcile operations per user across instances.
// A nil *UserLocker grants every lock.
type UserLocker struct {
	client *redis.Client
	script *redis.Script
	ttl    time.Duration
}

func NewUserLocker(client *redis.Client, ttl time.Duration) *UserLocker {
	if client == nil {
		return nil
	}
	return &UserLocker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
		ttl:    ttl,
	}
}

func lockKey(userID string) string {
	return fmt.Sprintf("subscription_lock:%s", userID)
}

// TryLock acquires the user's lock. The returned token is needed to release it;
// ok is false when someone else holds the lock.
func (l *UserLocker) TryLock(ctx context.Context, userID string) (token string, ok bool, err error) {
	if l == nil {
		return "", true, nil
	}
	if l.ttl <= 0 {
		return "", false, errors.New("lock ttl must be positive")
	}
	token = uuid.NewString()
	ok, err = l.client.SetNX(ctx, lockKey(userID), token, l.ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// Release frees the lock if it is still held with token.
func (l *UserLocker) Release(ctx context.Context, userID, token string) error {
	if l == nil || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{lockKey(userID)}, token).Err()
}
