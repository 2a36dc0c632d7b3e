// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ResponsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hris_auth_responses_total",
		Help: "The total number of responses by route and status code",
	}, []string{"route", "status"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hris_auth_request_duration_seconds",
		Help:    "The request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	// LoginAttemptsTotal by outcome: success, invalid, locked
	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hris_auth_login_attempts_total",
		Help: "The total number of login attempts",
	}, []string{"status"})

	LockoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hris_auth_lockouts_total",
		Help: "The total number of lockouts started by the login throttle",
	})

	// TokenRefreshTotal by outcome: success, rejected
	TokenRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hris_auth_token_refresh_total",
		Help: "The total number of refresh token rotations",
	}, []string{"status"})

	RevokedAccessTokensTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hris_auth_revoked_access_tokens_total",
		Help: "The total number of access tokens added to the revocation registry",
	})

	StoreErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hris_auth_store_errors_total",
		Help: "The total number of failed store operations",
	}, []string{"store"})
)
