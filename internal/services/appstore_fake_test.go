package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const (
	testMonthlySKU = "premium_monthly"
	testYearlySKU  = "premium_yearly"
	testSecret     = "shared-secret"
)

// fakeAppStore serves verifyReceipt on /production and /sandbox and records calls.
type fakeAppStore struct {
	t      *testing.T
	server *httptest.Server

	mu         sync.Mutex
	responses  map[string]AppleReceiptResponse
	calls      []string
	lastBodies []AppleReceiptRequest
}

func newFakeAppStore(t *testing.T) *fakeAppStore {
	t.Helper()
	f := &fakeAppStore{t: t, responses: map[string]AppleReceiptResponse{}}
	mux := http.NewServeMux()
	for _, env := range []string{"production", "sandbox"} {
		env := env
		mux.HandleFunc("/"+env, func(w http.ResponseWriter, r *http.Request) {
			var body AppleReceiptRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

			f.mu.Lock()
			f.calls = append(f.calls, env)
			f.lastBodies = append(f.lastBodies, body)
			resp, ok := f.responses[env]
			f.mu.Unlock()

			if !ok {
				resp = AppleReceiptResponse{Status: 21005}
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
		})
	}
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeAppStore) respond(env string, resp AppleReceiptResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[env] = resp
}

func (f *fakeAppStore) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAppStore) validatorConfig() ReceiptValidatorConfig {
	return ReceiptValidatorConfig{
		ProductionURL: f.server.URL + "/production",
		SandboxURL:    f.server.URL + "/sandbox",
		SharedSecret:  testSecret,
		Timeout:       2 * time.Second,
	}
}

func (f *fakeAppStore) validator(now time.Time) *ReceiptValidator {
	v := NewReceiptValidator(f.validatorConfig(), NewProductCatalog([]string{testMonthlySKU}, []string{testYearlySKU}))
	v.now = func() time.Time { return now }
	return v
}

func millis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func transaction(id, productID string, purchased, expires time.Time) AppleTransaction {
	return AppleTransaction{
		TransactionID:         id,
		OriginalTransactionID: "1000000000000001",
		ProductID:             productID,
		PurchaseDateMS:        millis(purchased),
		ExpiresDateMS:         millis(expires),
		IsTrialPeriod:         "false",
		IsInIntroOfferPeriod:  "false",
	}
}

// okResponse returns a successful response whose last transaction is txs[len-1].
func okResponse(environment, autoRenew string, txs ...AppleTransaction) AppleReceiptResponse {
	resp := AppleReceiptResponse{
		Status:            0,
		Environment:       environment,
		LatestReceiptInfo: txs,
		LatestReceipt:     "bGF0ZXN0",
	}
	if autoRenew != "" && len(txs) > 0 {
		resp.PendingRenewalInfo = []AppleRenewalInfo{{
			OriginalTransactionID: txs[len(txs)-1].OriginalTransactionID,
			AutoRenewProductID:    txs[len(txs)-1].ProductID,
			AutoRenewStatus:       autoRenew,
		}}
	}
	return resp
}
