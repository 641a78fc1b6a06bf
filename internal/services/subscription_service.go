package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"subscription-api/internal/database"
	"subscription-api/internal/models"
	"subscription-api/pkg/logging"
)

// ReceiptVerifier validates a store receipt.
type ReceiptVerifier interface {
	Validate(ctx context.Context, receiptData string, isSandbox bool) (*ReceiptDescriptor, error)
}

// SubscriptionStore persists subscription rows.
type SubscriptionStore interface {
	FindActiveForUser(ctx context.Context, userID string) (*models.Subscription, error)
	DeactivateAllForUser(ctx context.Context, userID string) (int64, error)
	History(ctx context.Context, userID string) ([]models.Subscription, error)
	Supersede(ctx context.Context, subscription *models.Subscription) error
}

// SubscriptionStatus is the status exposed to clients. Every field except
// IsPremium is null when the user has no active subscription.
type SubscriptionStatus struct {
	IsPremium        bool       `json:"isPremium"`
	SubscriptionType *Plan      `json:"subscriptionType"`
	ExpiresAt        *time.Time `json:"expiresAt"`
	IsTrialPeriod    *bool      `json:"isTrialPeriod"`
	AutoRenewStatus  *bool      `json:"autoRenewStatus"`
	PurchaseDate     *time.Time `json:"purchaseDate"`
	Environment      *string    `json:"environment"`
}

// SubscriptionService reconciles validated receipts into stored subscriptions.
type SubscriptionService struct {
	verifier ReceiptVerifier
	store    SubscriptionStore
	catalog  *ProductCatalog
	cache    *StatusCache
	locker   *UserLocker
	notifier *WebhookNotifier
	now      func() time.Time
}

// NewSubscriptionService wires the reconciler. cache, locker and notifier may be nil.
func NewSubscriptionService(
	verifier ReceiptVerifier,
	store SubscriptionStore,
	catalog *ProductCatalog,
	cache *StatusCache,
	locker *UserLocker,
	notifier *WebhookNotifier,
) *SubscriptionService {
	return &SubscriptionService{
		verifier: verifier,
		store:    store,
		catalog:  catalog,
		cache:    cache,
		locker:   locker,
		notifier: notifier,
		now:      time.Now,
	}
}

// VerifyReceipt validates receiptData and makes the resulting transaction the
// user's newest subscription, deactivating any previous one.
func (s *SubscriptionService) VerifyReceipt(ctx context.Context, userID, receiptData string, isSandbox bool) (*SubscriptionStatus, error) {
	descriptor, err := s.verifier.Validate(ctx, receiptData, isSandbox)
	if err != nil {
		reconciliations.WithLabelValues("verify", "invalid").Inc()
		return nil, err
	}

	release, err := s.lock(ctx, userID)
	if err != nil {
		reconciliations.WithLabelValues("verify", "conflict").Inc()
		return nil, err
	}
	defer release()

	subscription := descriptor.ToSubscription(userID, receiptData)
	if err := s.store.Supersede(ctx, subscription); err != nil {
		if errors.Is(err, database.ErrActiveSubscriptionExists) {
			// A concurrent reconcile committed first; only reachable without the Redis lock.
			reconciliations.WithLabelValues("verify", "conflict").Inc()
			return nil, ErrReconcileInProgress
		}
		reconciliations.WithLabelValues("verify", "error").Inc()
		return nil, fmt.Errorf("failed to save subscription: %w", err)
	}
	s.invalidate(ctx, userID)

	status, err := s.loadStatus(ctx, userID)
	if err != nil {
		reconciliations.WithLabelValues("verify", "error").Inc()
		return nil, err
	}

	logging.Infof("Receipt verified - user_id: %s, product_id: %s, transaction_id: %s, environment: %s, premium: %v",
		userID, subscription.ProductID, subscription.TransactionID, subscription.Environment, status.IsPremium)
	reconciliations.WithLabelValues("verify", "ok").Inc()
	s.notifier.Notify(EventSubscriptionUpdated, userID, status)
	return status, nil
}

// Status returns the user's current subscription status.
func (s *SubscriptionService) Status(ctx context.Context, userID string) (*SubscriptionStatus, error) {
	cached, err := s.cache.Get(ctx, userID)
	switch {
	case err != nil:
		statusCacheLookups.WithLabelValues("error").Inc()
		logging.Warnf("Status cache read failed - user_id: %s, error: %v", userID, err)
	case cached != nil && (!cached.IsPremium || cached.ExpiresAt == nil || cached.ExpiresAt.After(s.now())):
		statusCacheLookups.WithLabelValues("hit").Inc()
		return cached, nil
	default:
		statusCacheLookups.WithLabelValues("miss").Inc()
	}

	generation, genErr := s.cache.Generation(ctx, userID)
	status, err := s.loadStatus(ctx, userID)
	if err != nil {
		return nil, err
	}
	if genErr != nil {
		logging.Warnf("Status cache generation read failed - user_id: %s, error: %v", userID, genErr)
		return status, nil
	}
	if err := s.cache.Set(ctx, userID, status, generation, s.now()); err != nil {
		logging.Warnf("Status cache write failed - user_id: %s, error: %v", userID, err)
	}
	return status, nil
}

// Cancel deactivates every subscription of the user.
func (s *SubscriptionService) Cancel(ctx context.Context, userID string) error {
	release, err := s.lock(ctx, userID)
	if err != nil {
		reconciliations.WithLabelValues("cancel", "conflict").Inc()
		return err
	}
	defer release()

	n, err := s.store.DeactivateAllForUser(ctx, userID)
	if err != nil {
		reconciliations.WithLabelValues("cancel", "error").Inc()
		return err
	}
	s.invalidate(ctx, userID)

	logging.Infof("Subscription cancelled - user_id: %s, deactivated: %d", userID, n)
	reconciliations.WithLabelValues("cancel", "ok").Inc()
	s.notifier.Notify(EventSubscriptionCancelled, userID, s.DeriveStatus(nil))
	return nil
}

// History returns every stored subscription of the user, newest first.
func (s *SubscriptionService) History(ctx context.Context, userID string) ([]models.Subscription, error) {
	return s.store.History(ctx, userID)
}

// DeriveStatus computes the client-facing status of an active row.
func (s *SubscriptionService) DeriveStatus(active *models.Subscription) *SubscriptionStatus {
	if active == nil {
		return &SubscriptionStatus{}
	}
	plan := s.catalog.PlanFor(active.ProductID)
	expiresAt := active.ExpiresDate
	purchaseDate := active.PurchaseDate
	trial := active.IsTrialPeriod
	environment := active.Environment
	return &SubscriptionStatus{
		IsPremium:        active.IsEntitled(s.now()),
		SubscriptionType: &plan,
		ExpiresAt:        &expiresAt,
		IsTrialPeriod:    &trial,
		AutoRenewStatus:  active.AutoRenewStatus,
		PurchaseDate:     &purchaseDate,
		Environment:      &environment,
	}
}

func (s *SubscriptionService) loadStatus(ctx context.Context, userID string) (*SubscriptionStatus, error) {
	active, err := s.store.FindActiveForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.DeriveStatus(active), nil
}

func (s *SubscriptionService) invalidate(ctx context.Context, userID string) {
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		logging.Warnf("Status cache invalidation failed - user_id: %s, error: %v", userID, err)
	}
}

// lock takes the user's reconcile lock. When Redis is unreachable the
// operation proceeds; the database transaction and unique index still hold.
func (s *SubscriptionService) lock(ctx context.Context, userID string) (func(), error) {
	token, ok, err := s.locker.TryLock(ctx, userID)
	if err != nil {
		logging.Warnf("Reconcile lock unavailable - user_id: %s, error: %v", userID, err)
		return func() {}, nil
	}
	if !ok {
		return nil, ErrReconcileInProgress
	}
	return func() {
		if err := s.locker.Release(context.Background(), userID, token); err != nil {
			logging.Warnf("Reconcile lock release failed - user_id: %s, error: %v", userID, err)
		}
	}, nil
}
