package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"subscription-api/internal/models"
	"subscription-api/pkg/logging"
)

// AppleReceiptRequest is the verifyReceipt request body.
type AppleReceiptRequest struct {
	ReceiptData            string `json:"receipt-data"`
	Password               string `json:"password,omitempty"`
	ExcludeOldTransactions bool   `json:"exclude-old-transactions"`
}

// AppleReceiptResponse represents Apple receipt verification response
type AppleReceiptResponse struct {
	Status             int                `json:"status"`
	Environment        string             `json:"environment"`
	Receipt            json.RawMessage    `json:"receipt"`
	LatestReceiptInfo  []AppleTransaction `json:"latest_receipt_info"`
	LatestReceipt      string             `json:"latest_receipt"`
	PendingRenewalInfo []AppleRenewalInfo `json:"pending_renewal_info"`
}

// AppleTransaction is one entry of latest_receipt_info. Apple encodes every
// value as a string.
type AppleTransaction struct {
	TransactionID         string `json:"transaction_id"`
	OriginalTransactionID string `json:"original_transaction_id"`
	ProductID             string `json:"product_id"`
	PurchaseDateMS        string `json:"purchase_date_ms"`
	ExpiresDateMS         string `json:"expires_date_ms"`
	IsTrialPeriod         string `json:"is_trial_period"`
	IsInIntroOfferPeriod  string `json:"is_in_intro_offer_period"`
}

// AppleRenewalInfo is one entry of pending_renewal_info.
type AppleRenewalInfo struct {
	OriginalTransactionID string `json:"original_transaction_id"`
	AutoRenewProductID    string `json:"auto_renew_product_id"`
	AutoRenewStatus       string `json:"auto_renew_status"`
}

// ReceiptDescriptor is the canonical result of a successful validation.
type ReceiptDescriptor struct {
	ProductID             string
	TransactionID         string
	OriginalTransactionID string
	PurchaseDate          time.Time
	ExpiresDate           time.Time
	IsActive              bool
	IsTrialPeriod         bool
	IsInIntroOfferPeriod  bool
	// nil when the store reported no renewal info for the lineage
	AutoRenewStatus *bool
	Environment     string
	LatestReceipt   string
}

// ToSubscription builds the row stored for userID.
func (d *ReceiptDescriptor) ToSubscription(userID, receiptData string) *models.Subscription {
	return &models.Subscription{
		UserID:                userID,
		ProductID:             d.ProductID,
		TransactionID:         d.TransactionID,
		OriginalTransactionID: d.OriginalTransactionID,
		PurchaseDate:          d.PurchaseDate,
		ExpiresDate:           d.ExpiresDate,
		IsActive:              d.IsActive,
		IsTrialPeriod:         d.IsTrialPeriod,
		IsInIntroOfferPeriod:  d.IsInIntroOfferPeriod,
		AutoRenewStatus:       d.AutoRenewStatus,
		Environment:           d.Environment,
		ReceiptData:           receiptData,
		LatestReceipt:         d.LatestReceipt,
	}
}

// ReceiptValidatorConfig configures a ReceiptValidator.
type ReceiptValidatorConfig struct {
	ProductionURL string
	SandboxURL    string
	SharedSecret  string
	Timeout       time.Duration
}

// ReceiptValidator verifies receipts against Apple's verifyReceipt endpoints.
type ReceiptValidator struct {
	cfg        ReceiptValidatorConfig
	catalog    *ProductCatalog
	httpClient *http.Client
	now        func() time.Time
}

// NewReceiptValidator creates a new receipt validator
func NewReceiptValidator(cfg ReceiptValidatorConfig, catalog *ProductCatalog) *ReceiptValidator {
	return &ReceiptValidator{
		cfg:     cfg,
		catalog: catalog,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		now: time.Now,
	}
}

// Validate verifies receiptData and returns the most recent transaction.
// Production is tried first unless isSandbox is set. A 21007 or 21008 status
// redirects the request to the other environment exactly once.
func (v *ReceiptValidator) Validate(ctx context.Context, receiptData string, isSandbox bool) (*ReceiptDescriptor, error) {
	environment := models.EnvironmentProduction
	if isSandbox {
		environment = models.EnvironmentSandbox
	}

	resp, err := v.verify(ctx, receiptData, environment)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.Status == appStoreStatusSandboxReceipt && environment == models.EnvironmentProduction:
		logging.Infof("Receipt is from sandbox, retrying with sandbox URL")
		environment = models.EnvironmentSandbox
		resp, err = v.verify(ctx, receiptData, environment)
	case resp.Status == appStoreStatusProductionReceipt && environment == models.EnvironmentSandbox:
		logging.Infof("Receipt is from production, retrying with production URL")
		environment = models.EnvironmentProduction
		resp, err = v.verify(ctx, receiptData, environment)
	}
	if err != nil {
		return nil, err
	}

	if resp.Status != appStoreStatusOK {
		verifyRequests.WithLabelValues(environment, "rejected").Inc()
		return nil, newAppStoreStatusError(resp.Status)
	}
	verifyRequests.WithLabelValues(environment, "ok").Inc()

	if resp.Environment != "" && resp.Environment != environment {
		logging.Warnf("App Store reported environment %q for a %s request", resp.Environment, environment)
	}

	return v.describe(resp, environment)
}

func (v *ReceiptValidator) endpoint(environment string) string {
	if environment == models.EnvironmentSandbox {
		return v.cfg.SandboxURL
	}
	return v.cfg.ProductionURL
}

// verify sends one verifyReceipt request.
func (v *ReceiptValidator) verify(ctx context.Context, receiptData, environment string) (*AppleReceiptResponse, error) {
	jsonData, err := json.Marshal(AppleReceiptRequest{
		ReceiptData:            receiptData,
		Password:               v.cfg.SharedSecret,
		ExcludeOldTransactions: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint(environment), bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		verifyRequests.WithLabelValues(environment, "error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		verifyRequests.WithLabelValues(environment, "error").Inc()
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrStoreUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		verifyRequests.WithLabelValues(environment, "error").Inc()
		return nil, fmt.Errorf("%w: unexpected HTTP status %d", ErrStoreUnavailable, resp.StatusCode)
	}

	var appleResp AppleReceiptResponse
	if err := json.Unmarshal(body, &appleResp); err != nil {
		verifyRequests.WithLabelValues(environment, "error").Inc()
		return nil, fmt.Errorf("%w: failed to parse response: %v", ErrStoreUnavailable, err)
	}
	return &appleResp, nil
}

// describe turns a successful response into a ReceiptDescriptor.
func (v *ReceiptValidator) describe(resp *AppleReceiptResponse, environment string) (*ReceiptDescriptor, error) {
	if len(resp.LatestReceiptInfo) == 0 {
		return nil, ErrNoTransactions
	}

	// Apple lists transactions chronologically; the last one is authoritative.
	latest := resp.LatestReceiptInfo[len(resp.LatestReceiptInfo)-1]

	if !v.catalog.IsSubscription(latest.ProductID) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSubscription, latest.ProductID)
	}

	purchaseDate, err := parseAppleTimestamp(latest.PurchaseDateMS)
	if err != nil {
		return nil, fmt.Errorf("%w: purchase date: %v", ErrMalformedReceipt, err)
	}
	expiresDate, err := parseAppleTimestamp(latest.ExpiresDateMS)
	if err != nil {
		return nil, fmt.Errorf("%w: expires date: %v", ErrMalformedReceipt, err)
	}

	return &ReceiptDescriptor{
		ProductID:             latest.ProductID,
		TransactionID:         latest.TransactionID,
		OriginalTransactionID: latest.OriginalTransactionID,
		PurchaseDate:          purchaseDate,
		ExpiresDate:           expiresDate,
		IsActive:              expiresDate.After(v.now()),
		IsTrialPeriod:         latest.IsTrialPeriod == "true",
		IsInIntroOfferPeriod:  latest.IsInIntroOfferPeriod == "true",
		AutoRenewStatus:       autoRenewStatus(resp.PendingRenewalInfo, latest.OriginalTransactionID),
		Environment:           environment,
		LatestReceipt:         resp.LatestReceipt,
	}, nil
}

// autoRenewStatus returns nil when no renewal info matches the lineage.
func autoRenewStatus(pending []AppleRenewalInfo, originalTransactionID string) *bool {
	for _, info := range pending {
		if info.OriginalTransactionID != originalTransactionID {
			continue
		}
		switch info.AutoRenewStatus {
		case "1":
			on := true
			return &on
		case "0":
			off := false
			return &off
		}
	}
	return nil
}

// parseAppleTimestamp parses Apple timestamp (milliseconds since epoch)
func parseAppleTimestamp(timestampStr string) (time.Time, error) {
	if timestampStr == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	ms, err := strconv.ParseInt(timestampStr, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}
