package models

import (
	"time"
)

const (
	EnvironmentSandbox    = "Sandbox"
	EnvironmentProduction = "Production"
)

// Subscription is one purchase or renewal transaction observed from the App Store.
// Rows are superseded by flipping IsActive, never deleted.
type Subscription struct {
	BaseModel

	UserID string `json:"user_id" gorm:"not null;size:64;index"`

	ProductID             string    `json:"product_id" gorm:"not null;size:100"`
	TransactionID         string    `json:"transaction_id" gorm:"not null;size:100;index"`
	OriginalTransactionID string    `json:"original_transaction_id" gorm:"size:100;index"`
	PurchaseDate          time.Time `json:"purchase_date"`
	ExpiresDate           time.Time `json:"expires_date" gorm:"index"`

	// At most one active row per user, see ux_subscriptions_user_active.
	IsActive bool `json:"is_active" gorm:"not null;default:false"`

	IsTrialPeriod        bool `json:"is_trial_period"`
	IsInIntroOfferPeriod bool `json:"is_in_intro_offer_period"`
	// nil when the store did not report renewal info for this lineage
	AutoRenewStatus *bool `json:"auto_renew_status"`

	Environment string `json:"environment" gorm:"size:20"`

	ReceiptData   string `json:"-" gorm:"type:text"`
	LatestReceipt string `json:"-" gorm:"type:text"`
}

// TableName 指定表名
func (Subscription) TableName() string {
	return "subscriptions"
}

// IsEntitled reports whether the row grants premium access at the given instant.
func (s *Subscription) IsEntitled(now time.Time) bool {
	return s != nil && s.IsActive && s.ExpiresDate.After(now)
}
