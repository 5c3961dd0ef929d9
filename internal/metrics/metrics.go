// Package metrics defines Prometheus metrics for einvoice-tracker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "einvoice"

// Cycle metrics.
var (
	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cycles_total",
		Help:      "Total number of fetch cycles by trigger and outcome.",
	}, []string{"trigger", "outcome"})

	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "cycle_duration_seconds",
		Help:      "Duration of fetch cycles in seconds.",
		Buckets:   prometheus.ExponentialBuckets(5, 2, 10), // 5s .. ~43m
	})

	CyclesDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cycles_dropped_total",
		Help:      "Cycle requests abandoned before they reached the worker.",
	}, []string{"trigger"})

	SchedulerNextCycleTimestamp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "scheduler_next_cycle_timestamp",
		Help:      "Unix timestamp of the next scheduled cycle by trigger.",
	}, []string{"trigger"})
)

// Login metrics.
var (
	LoginAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of captcha submissions.",
	})

	CaptchaRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "captcha_rejections_total",
		Help:      "Total number of captcha submissions rejected by the portal.",
	})

	LoginFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_failures_total",
		Help:      "Total number of logins that exhausted their attempts.",
	})

	ReloginsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "relogins_total",
		Help:      "Total number of re-logins triggered by token exchange auth errors.",
	})
)

// Portal API metrics.
var (
	PortalCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "portal_calls_total",
		Help:      "Total portal API calls by endpoint, method and status.",
	}, []string{"endpoint", "method", "status"})

	PortalDailyUsage = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "portal_daily_usage",
		Help:      "Current portal API call count within the rolling 24-hour window.",
	})

	PortalDailyLimitHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "portal_daily_limit_hits_total",
		Help:      "Total number of times the daily portal call limit was reached.",
	})
)

// Invoice metrics.
var (
	InvoicesSeenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invoices_seen_total",
		Help:      "Total invoice summaries returned by the portal.",
	})

	InvoicesCommittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invoices_committed_total",
		Help:      "Total new invoices committed to the dedup store.",
	})

	EnrichmentFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "enrichment_failures_total",
		Help:      "Total categorize/describe calls that degraded to an empty value.",
	}, []string{"kind"})

	NotificationsSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_sent_total",
		Help:      "Total invoice notifications delivered.",
	})

	NotificationFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_failures_total",
		Help:      "Total number of notification send failures.",
	})

	NotificationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "notification_duration_seconds",
		Help:      "Duration of notification deliveries by channel.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"channel"})
)

// HTTP listener metrics.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests to the health listener, excluding probes and scrapes.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests to the health listener.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPPanicsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_panics_total",
		Help:      "Handler panics recovered on the health listener by route.",
	}, []string{"route"})

	HealthzUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "healthz_up",
		Help:      "1 if the last /healthz probe succeeded.",
	})

	ReadyzUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "readyz_up",
		Help:      "1 if the last /readyz probe found the store reachable.",
	})
)
