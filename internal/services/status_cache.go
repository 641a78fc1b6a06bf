package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Writes only land when the user's generation is unchanged since the caller
// read it. KEYS: status, generation. ARGV: generation, payload, ttl in ms.
const statusSetScript = `
local current = redis.call("GET", KEYS[2])
if not current then
	current = "0"
end
if current ~= ARGV[1] then
	return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`

// generationTTL outlives any status load so an in-flight writer always sees
// the bump made by Invalidate.
const generationTTL = 24 * time.Hour

// StatusCache keeps derived subscription statuses in Redis. A nil *StatusCache
// is valid and caches nothing.
type StatusCache struct {
	client    *redis.Client
	setScript *redis.Script
	ttl       time.Duration
}

// NewStatusCache returns nil when client is nil.
func NewStatusCache(client *redis.Client, ttl time.Duration) *StatusCache {
	if client == nil || ttl <= 0 {
		return nil
	}
	return &StatusCache{client: client, setScript: redis.NewScript(statusSetScript), ttl: ttl}
}

func statusKey(userID string) string {
	return fmt.Sprintf("subscription_status:%s", userID)
}

func generationKey(userID string) string {
	return fmt.Sprintf("subscription_status_gen:%s", userID)
}

// Generation returns the user's cache generation. Read it before loading the
// status from the database and pass it to Set.
func (c *StatusCache) Generation(ctx context.Context, userID string) (string, error) {
	if c == nil {
		return "", nil
	}
	gen, err := c.client.Get(ctx, generationKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return gen, err
}

// Get returns the cached status, or nil on a miss.
func (c *StatusCache) Get(ctx context.Context, userID string) (*SubscriptionStatus, error) {
	if c == nil {
		return nil, nil
	}
	data, err := c.client.Get(ctx, statusKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var status SubscriptionStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Set stores status unless the user was invalidated after generation was read.
// Premium statuses never outlive their expiry so a cached entry cannot report
// premium after the subscription lapsed.
func (c *StatusCache) Set(ctx context.Context, userID string, status *SubscriptionStatus, generation string, now time.Time) error {
	if c == nil {
		return nil
	}
	ttl := c.ttl
	if status.IsPremium && status.ExpiresAt != nil {
		remaining := status.ExpiresAt.Sub(now)
		if remaining <= 0 {
			return nil
		}
		if remaining < ttl {
			ttl = remaining
		}
	}
	if ttl < time.Millisecond {
		return nil
	}
	data, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return c.setScript.Run(ctx, c.client,
		[]string{statusKey(userID), generationKey(userID)},
		generation, data, ttl.Milliseconds()).Err()
}

// Invalidate drops the cached status of userID and bumps its generation so
// loads that started earlier cannot write their result back.
func (c *StatusCache) Invalidate(ctx context.Context, userID string) error {
	if c == nil {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, statusKey(userID))
		pipe.Incr(ctx, generationKey(userID))
		pipe.Expire(ctx, generationKey(userID), generationTTL)
		return nil
	})
	return err
}
