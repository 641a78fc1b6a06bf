package services

import "fmt"

const (
	appStoreStatusOK = 0
	// Receipt belongs to the sandbox but was sent to production.
	appStoreStatusSandboxReceipt = 21007
	// Receipt belongs to production but was sent to the sandbox.
	appStoreStatusProductionReceipt = 21008
)

var appStoreStatusMessages = map[int]string{
	21000: "The App Store could not read the JSON object you provided",
	21002: "The data in the receipt-data property was malformed or missing",
	21003: "The receipt could not be authenticated",
	21004: "The shared secret you provided does not match the shared secret on file for your account",
	21005: "The receipt server is not currently available",
	21006: "This receipt is valid but the subscription has expired",
	21007: "This receipt is from the test environment, but it was sent to the production environment for verification",
	21008: "This receipt is from the production environment, but it was sent to the test environment for verification",
	21009: "Internal data access error",
	21010: "The user account cannot be found or has been deleted",
}

// AppStoreStatusError is a non-zero status returned by verifyReceipt.
type AppStoreStatusError struct {
	Code    int
	Message string
}

func (e *AppStoreStatusError) Error() string {
	return e.Message
}

func newAppStoreStatusError(code int) *AppStoreStatusError {
	return &AppStoreStatusError{Code: code, Message: appStoreStatusMessage(code)}
}

func appStoreStatusMessage(code int) string {
	if msg, ok := appStoreStatusMessages[code]; ok {
		return msg
	}
	if code >= 21100 && code <= 21199 {
		return appStoreStatusMessages[21009]
	}
	return fmt.Sprintf("unknown error (%d)", code)
}
