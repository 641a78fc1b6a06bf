package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"subscription-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestRepository(t *testing.T) *SubscriptionRepository {
	t.Helper()
	db, err := OpenSQLite(":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewSubscriptionRepository(db)
}

func testSubscription(userID, transactionID string, expires time.Time, active bool) *models.Subscription {
	return &models.Subscription{
		UserID:                userID,
		ProductID:             "premium_monthly",
		TransactionID:         transactionID,
		OriginalTransactionID: "orig-" + userID,
		PurchaseDate:          expires.Add(-30 * 24 * time.Hour),
		ExpiresDate:           expires,
		IsActive:              active,
		Environment:           models.EnvironmentSandbox,
		ReceiptData:           "cmVjZWlwdA==",
	}
}

func TestFindActiveForUserNone(t *testing.T) {
	repo := newTestRepository(t)

	sub, err := repo.FindActiveForUser(context.Background(), "42")
	require.NoError(t, err)
	assert.Nil(t, sub)
}

func TestInsertAndFindActive(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	expires := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)

	require.NoError(t, repo.Insert(ctx, testSubscription("42", "t1", expires, true)))
	require.NoError(t, repo.Insert(ctx, testSubscription("7", "t2", expires, true)))

	sub, err := repo.FindActiveForUser(ctx, "42")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "t1", sub.TransactionID)
	assert.True(t, sub.ExpiresDate.Equal(expires))
}

func TestInsertRejectsSecondActiveRow(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	expires := time.Now().UTC().Add(time.Hour)

	require.NoError(t, repo.Insert(ctx, testSubscription("42", "t1", expires, true)))
	err := repo.Insert(ctx, testSubscription("42", "t2", expires, true))
	assert.ErrorIs(t, err, ErrActiveSubscriptionExists)
	assert.NoError(t, repo.Insert(ctx, testSubscription("42", "t3", expires, false)))
}

func TestDeactivateAllForUser(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	expires := time.Now().UTC().Add(time.Hour)

	require.NoError(t, repo.Insert(ctx, testSubscription("42", "t1", expires, true)))
	require.NoError(t, repo.Insert(ctx, testSubscription("7", "t2", expires, true)))

	n, err := repo.DeactivateAllForUser(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	sub, err := repo.FindActiveForUser(ctx, "42")
	require.NoError(t, err)
	assert.Nil(t, sub)

	other, err := repo.FindActiveForUser(ctx, "7")
	require.NoError(t, err)
	assert.NotNil(t, other)
}

func TestSupersedeKeepsSingleActiveRow(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	base := time.Now().UTC()

	require.NoError(t, repo.Supersede(ctx, testSubscription("42", "t1", base.Add(time.Hour), true)))
	require.NoError(t, repo.Supersede(ctx, testSubscription("42", "t2", base.Add(2*time.Hour), true)))
	require.NoError(t, repo.Supersede(ctx, testSubscription("42", "t3", base.Add(3*time.Hour), true)))

	count, err := repo.CountActiveForUser(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	active, err := repo.FindActiveForUser(ctx, "42")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "t3", active.TransactionID)

	history, err := repo.History(ctx, "42")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "t3", history[0].TransactionID)
	assert.Equal(t, "t1", history[2].TransactionID)
}

func TestSupersedeRefreshesResubmittedTransaction(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	expires := time.Now().UTC().Add(time.Hour)

	first := testSubscription("42", "t1", expires, true)
	require.NoError(t, repo.Supersede(ctx, first))

	again := testSubscription("42", "t1", expires, true)
	require.NoError(t, repo.Supersede(ctx, again))
	assert.Equal(t, first.ID, again.ID)

	history, err := repo.History(ctx, "42")
	require.NoError(t, err)
	assert.Len(t, history, 1)
	assert.True(t, history[0].IsActive)
}

func TestSupersedeWithExpiredReceiptLeavesNoActiveRow(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Supersede(ctx, testSubscription("42", "t1", now.Add(time.Hour), true)))
	require.NoError(t, repo.Supersede(ctx, testSubscription("42", "t0", now.Add(-time.Hour), false)))

	count, err := repo.CountActiveForUser(ctx, "42")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSupersedeRollsBackWhenInsertFails(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	base := time.Now().UTC()

	require.NoError(t, repo.Supersede(ctx, testSubscription("42", "t1", base.Add(time.Hour), true)))

	diskFull := errors.New("disk full")
	err := repo.db.Callback().Create().Before("gorm:create").Register("test:fail_create", func(tx *gorm.DB) {
		tx.AddError(diskFull)
	})
	require.NoError(t, err)

	err = repo.Supersede(ctx, testSubscription("42", "t2", base.Add(2*time.Hour), true))
	require.ErrorIs(t, err, diskFull)

	active, err := repo.FindActiveForUser(ctx, "42")
	require.NoError(t, err)
	require.NotNil(t, active, "deactivation must roll back with the failed insert")
	assert.Equal(t, "t1", active.TransactionID)

	history, err := repo.History(ctx, "42")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
