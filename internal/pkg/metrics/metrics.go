// Package metrics defines and registers all custom Prometheus metrics for the
// security core. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "opsdesk_security"

// ── Authentication metrics ────────────────────────────────────────────────────

// LoginAttemptsTotal counts login attempts recorded in the audit trail.
// Labels:
//   - outcome: "success" or "failure"
//   - reason: failure reason (e.g. "invalid_password", "rate_limited"), empty on success
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, by outcome and failure reason.",
	},
	[]string{"outcome", "reason"},
)

// PasswordHashDuration measures bcrypt compare/generate latency.
// Label:
//   - op: "compare" or "generate"
var PasswordHashDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "password_hash_duration_seconds",
		Help:      "Duration of password hashing operations.",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
	},
	[]string{"op"},
)

// TokensIssuedTotal counts issued session tokens.
// Label:
//   - kind: "login" or "refresh"
var TokensIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Total number of session tokens issued.",
	},
	[]string{"kind"},
)

// ── Detection metrics ─────────────────────────────────────────────────────────

// AlertsEmittedTotal counts security alerts emitted by the anomaly detector.
// Labels:
//   - type: BRUTE_FORCE, SUSPICIOUS_ACTIVITY, CREDENTIAL_STUFFING, RATE_LIMIT_EXCEEDED
//   - severity: LOW, MEDIUM, HIGH, CRITICAL
var AlertsEmittedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_emitted_total",
		Help:      "Total number of security alerts emitted, by type and severity.",
	},
	[]string{"type", "severity"},
)

// RateLimitTrackedKeys is the number of live (ip, email) sliding-window entries.
var RateLimitTrackedKeys = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "rate_limit_tracked_keys",
		Help:      "Current number of (ip, email) pairs tracked by the sliding window.",
	},
)

// ── Retention metrics ─────────────────────────────────────────────────────────

// JournalErrorsTotal counts failed journal writes.
// Label:
//   - log: "audit" or "alerts"
var JournalErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "journal_errors_total",
		Help:      "Total number of failed audit/alert journal operations.",
	},
	[]string{"log"},
)

// AlertNotificationsDroppedTotal counts alerts dropped because the fan-out
// queue was full.
var AlertNotificationsDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alert_notifications_dropped_total",
		Help:      "Total number of alert notifications dropped by the dispatcher.",
	},
)
