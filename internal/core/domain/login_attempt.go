package domain

import (
	"strings"
	"time"
)

const (
	maskChar         = "*"
	maskVisibleChars = 2
)

// Failure reasons recorded on unsuccessful login attempts.
const (
	FailureUserNotFound    = "user_not_found"
	FailureAccountInactive = "account_inactive"
	FailureInvalidPassword = "invalid_password"
	FailureRateLimited     = "rate_limited"
	FailureInternal        = "internal_error"
)

// LoginAttempt is an immutable audit record of a single authentication attempt.
// MaskedPassword is only ever set when Success is false.
type LoginAttempt struct {
	ID             string    `json:"id" bson:"id"`
	Timestamp      time.Time `json:"timestamp" bson:"timestamp"`
	Email          string    `json:"email" bson:"email"`
	MaskedPassword string    `json:"maskedPassword,omitempty" bson:"masked_password,omitempty"`
	IPAddress      string    `json:"ipAddress" bson:"ip_address"`
	UserAgent      string    `json:"userAgent" bson:"user_agent"`
	Success        bool      `json:"success" bson:"success"`
	FailureReason  string    `json:"failureReason,omitempty" bson:"failure_reason,omitempty"`
}

// MaskPassword keeps the first two characters of password and replaces every
// remaining character with a mask character, preserving rune length.
func MaskPassword(password string) string {
	runes := []rune(password)
	if len(runes) <= maskVisibleChars {
		return strings.Repeat(maskChar, len(runes))
	}
	return string(runes[:maskVisibleChars]) + strings.Repeat(maskChar, len(runes)-maskVisibleChars)
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
