package domain

import "time"

// AlertType classifies a security alert.
type AlertType string

const (
	AlertBruteForce         AlertType = "BRUTE_FORCE"
	AlertSuspiciousActivity AlertType = "SUSPICIOUS_ACTIVITY"
	AlertCredentialStuffing AlertType = "CREDENTIAL_STUFFING"
	AlertRateLimitExceeded  AlertType = "RATE_LIMIT_EXCEEDED"
)

// Severity ranks the urgency of a security alert.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// SecurityAlert is an immutable record emitted by the anomaly detector.
type SecurityAlert struct {
	ID         string    `json:"id" bson:"id"`
	Timestamp  time.Time `json:"timestamp" bson:"timestamp"`
	Type       AlertType `json:"type" bson:"type"`
	Severity   Severity  `json:"severity" bson:"severity"`
	IPAddress  string    `json:"ipAddress" bson:"ip_address"`
	Details    string    `json:"details" bson:"details"`
	Attempts   int       `json:"attempts" bson:"attempts"`
	TimeWindow string    `json:"timeWindow" bson:"time_window"`
}

// RateLimitState counts failed attempts for one (ip, email) pair inside the
// detection window. It is never persisted.
type RateLimitState struct {
	Attempts       int       `json:"attempts"`
	FirstAttemptAt time.Time `json:"firstAttemptAt"`
	LastAttemptAt  time.Time `json:"lastAttemptAt"`
}

// Expired reports whether the state's window started before cutoff.
func (s *RateLimitState) Expired(cutoff time.Time) bool {
	return s.FirstAttemptAt.Before(cutoff)
}
