package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/opsdesk/security-core/internal/core/domain"
	"github.com/opsdesk/security-core/internal/pkg/metrics"
)

// DefaultWeakPasswords are fragments that mark an attempted password as
// suspicious when contained in it, case-insensitively.
var DefaultWeakPasswords = []string{
	"admin",
	"password",
	"123456",
	"qwerty",
	"letmein",
	"welcome",
	"monkey",
}

// DetectorConfig holds the sliding-window thresholds.
type DetectorConfig struct {
	Window              time.Duration
	BruteForceThreshold int
	RateLimitThreshold  int
	StuffingThreshold   int
	WeakPasswords       []string
}

// DefaultDetectorConfig returns a 15 minute window with brute force at 10
// attempts, rate limiting at 5 and credential stuffing at 5 distinct emails.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		Window:              15 * time.Minute,
		BruteForceThreshold: 10,
		RateLimitThreshold:  5,
		StuffingThreshold:   5,
		WeakPasswords:       DefaultWeakPasswords,
	}
}

// AlertSink stores emitted alerts.
type AlertSink interface {
	Append(ctx context.Context, alert domain.SecurityAlert) error
}

type rateKey struct {
	ip    string
	email string
}

func (k rateKey) String() string { return k.ip + ":" + k.email }

// Detector keeps per (ip, email) sliding-window counters of failed attempts
// and raises alerts when thresholds are crossed. Counters live only in memory.
type Detector struct {
	cfg  DetectorConfig
	sink AlertSink
	log  zerolog.Logger
	now  func() time.Time

	mu       sync.Mutex
	states   map[rateKey]*domain.RateLimitState
	inflight map[rateKey]int
}

// NewDetector returns a Detector. Zero-valued thresholds fall back to defaults.
func NewDetector(cfg DetectorConfig, sink AlertSink, log zerolog.Logger) *Detector {
	def := DefaultDetectorConfig()
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.BruteForceThreshold <= 0 {
		cfg.BruteForceThreshold = def.BruteForceThreshold
	}
	if cfg.RateLimitThreshold <= 0 {
		cfg.RateLimitThreshold = def.RateLimitThreshold
	}
	if cfg.StuffingThreshold <= 0 {
		cfg.StuffingThreshold = def.StuffingThreshold
	}
	if cfg.WeakPasswords == nil {
		cfg.WeakPasswords = def.WeakPasswords
	}
	weak := make([]string, 0, len(cfg.WeakPasswords))
	for _, w := range cfg.WeakPasswords {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			weak = append(weak, w)
		}
	}
	cfg.WeakPasswords = weak

	return &Detector{
		cfg:      cfg,
		sink:     sink,
		log:      log,
		now:      time.Now,
		states:   make(map[rateKey]*domain.RateLimitState),
		inflight: make(map[rateKey]int),
	}
}

// Evaluate counts one failed attempt and returns the alerts it raised. Alerts
// are stored in the sink after the counter lock is released.
//
// Brute force and credential stuffing alerts repeat on every failure while
// the threshold stays crossed; the rate limit alert fires once per window,
// when the key first locks.
func (d *Detector) Evaluate(ctx context.Context, ipAddress, email, password string) []domain.SecurityAlert {
	now := d.now().UTC()
	key := rateKey{ip: ipAddress, email: domain.NormalizeEmail(email)}

	d.mu.Lock()
	d.sweepLocked(now)
	st, ok := d.states[key]
	if !ok {
		st = &domain.RateLimitState{FirstAttemptAt: now}
		d.states[key] = st
	}
	st.Attempts++
	st.LastAttemptAt = now
	attempts := st.Attempts
	distinct := d.distinctEmailsLocked(ipAddress)
	tracked := len(d.states)
	d.mu.Unlock()

	metrics.RateLimitTrackedKeys.Set(float64(tracked))

	var alerts []domain.SecurityAlert
	if attempts == d.cfg.RateLimitThreshold {
		alerts = append(alerts, d.newAlert(now, domain.AlertRateLimitExceeded, domain.SeverityLow, ipAddress, attempts,
			fmt.Sprintf("Login rate limit reached for %s after %d failed attempts", key.email, attempts)))
	}
	if attempts >= d.cfg.BruteForceThreshold {
		alerts = append(alerts, d.newAlert(now, domain.AlertBruteForce, domain.SeverityHigh, ipAddress, attempts,
			fmt.Sprintf("Brute force attack detected: %d failed attempts for %s", attempts, key.email)))
	}
	if d.isWeakPassword(password) {
		alerts = append(alerts, d.newAlert(now, domain.AlertSuspiciousActivity, domain.SeverityMedium, ipAddress, attempts,
			fmt.Sprintf("Common weak password attempted for %s", key.email)))
	}
	if distinct >= d.cfg.StuffingThreshold {
		alerts = append(alerts, d.newAlert(now, domain.AlertCredentialStuffing, domain.SeverityHigh, ipAddress, distinct,
			fmt.Sprintf("Credential stuffing suspected: %d distinct accounts attempted from %s", distinct, ipAddress)))
	}

	for _, alert := range alerts {
		metrics.AlertsEmittedTotal.WithLabelValues(string(alert.Type), string(alert.Severity)).Inc()
		if d.sink == nil {
			continue
		}
		if err := d.sink.Append(ctx, alert); err != nil {
			d.log.Warn().Err(err).Str("alert_id", alert.ID).Str("type", string(alert.Type)).Msg("failed to persist security alert")
		}
	}
	if len(alerts) > 0 {
		d.log.Warn().
			Str("key", key.String()).
			Int("attempts", attempts).
			Int("alerts", len(alerts)).
			Msg("security alerts raised")
	}
	return alerts
}

// IsRateLimited reports whether the (ip, email) pair has reached the rate
// limit threshold inside the current window. Reserved attempts that have not
// been recorded yet count towards the threshold.
func (d *Detector) IsRateLimited(ipAddress, email string) bool {
	key := rateKey{ip: ipAddress, email: domain.NormalizeEmail(email)}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pendingLocked(key, d.now().UTC()) >= d.cfg.RateLimitThreshold
}

// Reserve implements ports.RateLimiter. The check and the reservation happen
// under one lock, so concurrent attempts for a key cannot all slip past the
// threshold before the first failure is counted.
func (d *Detector) Reserve(ipAddress, email string) (func(), bool) {
	key := rateKey{ip: ipAddress, email: domain.NormalizeEmail(email)}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pendingLocked(key, d.now().UTC()) >= d.cfg.RateLimitThreshold {
		return nil, false
	}
	d.inflight[key]++

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			if d.inflight[key] <= 1 {
				delete(d.inflight, key)
				return
			}
			d.inflight[key]--
		})
	}, true
}

// pendingLocked returns the failures counted in the window plus reservations.
func (d *Detector) pendingLocked(key rateKey, now time.Time) int {
	n := d.inflight[key]
	if st, ok := d.states[key]; ok && !st.Expired(now.Add(-d.cfg.Window)) {
		n += st.Attempts
	}
	return n
}

// Sweep drops every expired counter and returns how many were removed.
func (d *Detector) Sweep() int {
	d.mu.Lock()
	removed := d.sweepLocked(d.now().UTC())
	tracked := len(d.states)
	d.mu.Unlock()

	metrics.RateLimitTrackedKeys.Set(float64(tracked))
	return removed
}

// State returns a copy of the counter for (ip, email), if tracked.
func (d *Detector) State(ipAddress, email string) (domain.RateLimitState, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.states[rateKey{ip: ipAddress, email: domain.NormalizeEmail(email)}]
	if !ok {
		return domain.RateLimitState{}, false
	}
	return *st, true
}

// TrackedKeys returns the number of live counters.
func (d *Detector) TrackedKeys() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.states)
}

func (d *Detector) sweepLocked(now time.Time) int {
	cutoff := now.Add(-d.cfg.Window)
	removed := 0
	for k, st := range d.states {
		if st.Expired(cutoff) {
			delete(d.states, k)
			removed++
		}
	}
	return removed
}

func (d *Detector) distinctEmailsLocked(ipAddress string) int {
	n := 0
	for k := range d.states {
		if k.ip == ipAddress {
			n++
		}
	}
	return n
}

func (d *Detector) isWeakPassword(password string) bool {
	lowered := strings.ToLower(password)
	for _, w := range d.cfg.WeakPasswords {
		if strings.Contains(lowered, w) {
			return true
		}
	}
	return false
}

func (d *Detector) newAlert(now time.Time, typ domain.AlertType, sev domain.Severity, ip string, attempts int, details string) domain.SecurityAlert {
	return domain.SecurityAlert{
		ID:         uuid.NewString(),
		Timestamp:  now,
		Type:       typ,
		Severity:   sev,
		IPAddress:  ip,
		Details:    details,
		Attempts:   attempts,
		TimeWindow: formatWindow(d.cfg.Window),
	}
}

func formatWindow(w time.Duration) string {
	if w%time.Minute == 0 {
		return fmt.Sprintf("%d minutes", int(w/time.Minute))
	}
	return w.String()
}
