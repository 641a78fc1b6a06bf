package services

import "errors"

// Errors returned by receipt validation. They are client errors: the receipt,
// not the server, is at fault.
var (
	// ErrInvalidSubscription means the receipt's product is not a known subscription SKU.
	ErrInvalidSubscription = errors.New("invalid subscription")
	// ErrNoTransactions means the store accepted the receipt but listed no transactions.
	ErrNoTransactions = errors.New("no subscription transactions found in receipt")
	// ErrMalformedReceipt means a transaction carried fields that could not be parsed.
	ErrMalformedReceipt = errors.New("malformed receipt transaction")
	// ErrStoreUnavailable wraps transport failures talking to the App Store.
	ErrStoreUnavailable = errors.New("app store verification failed")
)

// ErrReconcileInProgress is returned when another request holds the user's reconcile lock.
var ErrReconcileInProgress = errors.New("subscription update already in progress for this user")

// IsValidationError reports whether err came from validating a receipt.
func IsValidationError(err error) bool {
	var statusErr *AppStoreStatusError
	return errors.As(err, &statusErr) ||
		errors.Is(err, ErrInvalidSubscription) ||
		errors.Is(err, ErrNoTransactions) ||
		errors.Is(err, ErrMalformedReceipt) ||
		errors.Is(err, ErrStoreUnavailable)
}
