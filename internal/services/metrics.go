package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	verifyRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "appstore_verify_requests_total",
		Help: "verifyReceipt calls by environment and outcome (ok, rejected, error).",
	}, []string{"environment", "outcome"})

	reconciliations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subscription_reconciliations_total",
		Help: "Subscription reconcile operations by operation and result.",
	}, []string{"operation", "result"})

	statusCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subscription_status_cache_lookups_total",
		Help: "Status cache lookups by result (hit, miss, error).",
	}, []string{"result"})
)
