package ports

import (
	"context"

	"github.com/opsdesk/security-core/internal/core/domain"
)

// AttemptContext describes the client that made an authentication attempt.
type AttemptContext struct {
	IPAddress string
	UserAgent string
}

// AttemptRecorder appends login attempts to the audit trail and runs
// anomaly detection on failures. Implementations log their own persistence
// failures; the returned error is for callers that need to react to it.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, ac AttemptContext, email, password string, success bool, failureReason string) error
}

// RateLimiter gates password checks per (ip, email) pair.
type RateLimiter interface {
	// Reserve claims a slot for one attempt. It returns ok=false when the pair
	// is locked out, counting attempts still in flight. On success the caller
	// must invoke release once the attempt has been recorded.
	Reserve(ipAddress, email string) (release func(), ok bool)
}

// SecurityReportService is the read-only view over the audit trail and
// alert store served to privileged callers.
type SecurityReportService interface {
	RecentAttempts(ctx context.Context, limit int) []domain.LoginAttempt
	SecurityAlerts(ctx context.Context, limit int) []domain.SecurityAlert
	FailedAttemptsByIP(ctx context.Context, ipAddress string, hours int) []domain.LoginAttempt
	SecurityStats(ctx context.Context) domain.SecurityStats
	Dashboard(ctx context.Context) domain.SecurityDashboard
}
