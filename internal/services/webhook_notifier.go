package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"subscription-api/pkg/logging"
)

const (
	EventSubscriptionUpdated   = "subscription.updated"
	EventSubscriptionCancelled = "subscription.cancelled"
)

// WebhookNotifier tells a downstream backend that a user's subscription changed.
// A nil *WebhookNotifier sends nothing.
type WebhookNotifier struct {
	callbackURL string
	secret      string
	httpClient  *http.Client
	retryDelays []time.Duration
}

// NewWebhookNotifier returns nil when callbackURL is empty.
func NewWebhookNotifier(callbackURL, secret string) *WebhookNotifier {
	if callbackURL == "" {
		return nil
	}
	return &WebhookNotifier{
		callbackURL: callbackURL,
		secret:      secret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		retryDelays: []time.Duration{1 * time.Second, 5 * time.Second, 30 * time.Second},
	}
}

// WebhookPayload represents the payload sent to the callback URL
type WebhookPayload struct {
	Event     string              `json:"event"`
	UserID    string              `json:"user_id"`
	Status    *SubscriptionStatus `json:"subscription"`
	Timestamp string              `json:"timestamp"` // ISO 8601 format
}

// Notify sends the event in the background.
func (wn *WebhookNotifier) Notify(event, userID string, status *SubscriptionStatus) {
	if wn == nil {
		return
	}
	payload := WebhookPayload{
		Event:     event,
		UserID:    userID,
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	go wn.sendWithRetry(payload)
}

// sendWithRetry makes one attempt per entry in retryDelays, sleeping between them.
func (wn *WebhookNotifier) sendWithRetry(payload WebhookPayload) error {
	maxRetries := len(wn.retryDelays)

	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if err = wn.sendWebhook(context.Background(), payload); err == nil {
			logging.Infof("Webhook notification sent - event: %s, user_id: %s, attempt: %d",
				payload.Event, payload.UserID, attempt+1)
			return nil
		}

		logging.Errorf("Webhook notification failed - event: %s, user_id: %s, attempt: %d, error: %v",
			payload.Event, payload.UserID, attempt+1, err)

		if attempt < maxRetries-1 {
			time.Sleep(wn.retryDelays[attempt])
		}
	}

	logging.Errorf("Webhook notification failed after %d attempts - event: %s, user_id: %s",
		maxRetries, payload.Event, payload.UserID)
	return err
}

// sendWebhook sends a single webhook request
func (wn *WebhookNotifier) sendWebhook(ctx context.Context, payload WebhookPayload) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wn.callbackURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Subscription-Webhook/1.0")

	if wn.secret != "" {
		req.Header.Set("X-Webhook-Signature", generateSignature(jsonData, wn.secret))
	}

	resp, err := wn.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}

// generateSignature generates HMAC-SHA256 signature for webhook payload
func generateSignature(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
