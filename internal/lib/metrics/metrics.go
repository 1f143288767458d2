// Package metrics объявляет счётчики Prometheus, которые отдаются на /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TokensDeducted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cortex_tokens_deducted_total",
		Help: "Tokens charged for generation requests.",
	})
	TokensRefunded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cortex_tokens_refunded_total",
		Help: "Tokens returned to accounts.",
	})
	InsufficientTokens = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cortex_insufficient_tokens_total",
		Help: "Charges rejected because the balance was too low.",
	})
	GenerationRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cortex_generation_requests_total",
		Help: "Accepted generation requests.",
	}, []string{"request_type"})
	GenerationResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cortex_generation_results_total",
		Help: "Generation requests that reached a terminal status.",
	}, []string{"status"})
	SubscriptionsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cortex_subscriptions_created_total",
		Help: "Subscriptions created, including renewals.",
	}, []string{"plan"})
	NotificationsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cortex_notifications_failed_total",
		Help: "Notifications that could not be published or delivered.",
	}, []string{"kind"})
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cortex_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)
