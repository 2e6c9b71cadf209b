package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/opsdesk/security-core/internal/core/domain"
	"github.com/opsdesk/security-core/internal/core/ports"
	"github.com/opsdesk/security-core/internal/pkg/metrics"
)

// DefaultAuditCapacity is the number of login attempts retained before the
// oldest is evicted.
const DefaultAuditCapacity = 10000

// Evaluator consumes failed attempts and raises alerts.
type Evaluator interface {
	Evaluate(ctx context.Context, ipAddress, email, password string) []domain.SecurityAlert
}

// AuditTrail is the append-only, capped log of login attempts.
type AuditTrail struct {
	entries  *cappedLog[domain.LoginAttempt]
	detector Evaluator
	log      zerolog.Logger
	now      func() time.Time
}

// NewAuditTrail replays journal into memory and returns the trail. journal may be nil.
func NewAuditTrail(ctx context.Context, capacity int, journal ports.AttemptJournal, detector Evaluator, log zerolog.Logger) (*AuditTrail, error) {
	if capacity <= 0 {
		capacity = DefaultAuditCapacity
	}
	entries, err := newCappedLog[domain.LoginAttempt](ctx, "audit", capacity, journal, log)
	if err != nil {
		return nil, err
	}
	return &AuditTrail{entries: entries, detector: detector, log: log, now: time.Now}, nil
}

// RecordAttempt appends the attempt to the trail and, for failures, runs the
// anomaly detector before returning. Password material is masked on failure
// and dropped entirely on success.
func (a *AuditTrail) RecordAttempt(ctx context.Context, ac ports.AttemptContext, email, password string, success bool, failureReason string) error {
	attempt := domain.LoginAttempt{
		ID:        uuid.NewString(),
		Timestamp: a.now().UTC(),
		Email:     domain.NormalizeEmail(email),
		IPAddress: ac.IPAddress,
		UserAgent: ac.UserAgent,
		Success:   success,
	}
	outcome := "success"
	if !success {
		outcome = "failure"
		attempt.MaskedPassword = domain.MaskPassword(password)
		attempt.FailureReason = failureReason
	}
	metrics.LoginAttemptsTotal.WithLabelValues(outcome, attempt.FailureReason).Inc()

	err := a.entries.append(ctx, attempt)
	if err != nil {
		a.log.Warn().Err(err).Str("attempt_id", attempt.ID).Str("email", attempt.Email).Msg("audit journal write failed")
	}

	if !success && a.detector != nil {
		a.detector.Evaluate(ctx, ac.IPAddress, attempt.Email, password)
	}
	return err
}

// Recent returns up to limit attempts, newest first.
func (a *AuditTrail) Recent(limit int) []domain.LoginAttempt {
	return a.entries.recent(limit)
}

// All returns every retained attempt, oldest first.
func (a *AuditTrail) All() []domain.LoginAttempt {
	return a.entries.all()
}

// Len returns the number of retained attempts.
func (a *AuditTrail) Len() int {
	return a.entries.size()
}
