package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserLockerExclusive(t *testing.T) {
	client, mr := setupTestRedis(t)
	locker := NewUserLocker(client, 5*time.Second)
	ctx := context.Background()

	token, ok, err := locker.TryLock(ctx, "42")
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, token)

	_, ok, err = locker.TryLock(ctx, "42")
	require.NoError(t, err)
	assert.False(t, ok, "second holder must be refused")

	_, ok, err = locker.TryLock(ctx, "7")
	require.NoError(t, err)
	assert.True(t, ok, "locks are per user")

	// A stale token does not release someone else's lock.
	require.NoError(t, locker.Release(ctx, "42", "not-the-owner"))
	assert.True(t, mr.Exists(lockKey("42")))

	require.NoError(t, locker.Release(ctx, "42", token))
	assert.False(t, mr.Exists(lockKey("42")))
}

func TestUserLockerExpires(t *testing.T) {
	client, mr := setupTestRedis(t)
	locker := NewUserLocker(client, 5*time.Second)
	ctx := context.Background()

	_, ok, err := locker.TryLock(ctx, "42")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(6 * time.Second)

	_, ok, err = locker.TryLock(ctx, "42")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUserLockerNil(t *testing.T) {
	var locker *UserLocker
	token, ok, err := locker.TryLock(context.Background(), "42")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, token)
	assert.NoError(t, locker.Release(context.Background(), "42", token))
}
