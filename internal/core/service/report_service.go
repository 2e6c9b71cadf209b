package service

import (
	"context"
	"sort"
	"time"

	"github.com/opsdesk/security-core/internal/core/domain"
)

const (
	DefaultAuditLimit = 100
	DefaultAlertLimit = 50

	statsWindow     = 24 * time.Hour
	topFailedIPs    = 10
	dashboardAudits = 20
	dashboardAlerts = 10
)

// ReportService is the read-only facade over the audit trail and alert store.
type ReportService struct {
	audit  *AuditTrail
	alerts *AlertStore
	now    func() time.Time
}

func NewReportService(audit *AuditTrail, alerts *AlertStore) *ReportService {
	return &ReportService{audit: audit, alerts: alerts, now: time.Now}
}

// RecentAttempts returns the newest attempts first. A non-positive limit
// falls back to DefaultAuditLimit.
func (r *ReportService) RecentAttempts(_ context.Context, limit int) []domain.LoginAttempt {
	if limit <= 0 {
		limit = DefaultAuditLimit
	}
	return r.audit.Recent(limit)
}

// SecurityAlerts returns the newest alerts first. A non-positive limit falls
// back to DefaultAlertLimit.
func (r *ReportService) SecurityAlerts(_ context.Context, limit int) []domain.SecurityAlert {
	if limit <= 0 {
		limit = DefaultAlertLimit
	}
	return r.alerts.Recent(limit)
}

// FailedAttemptsByIP returns failed attempts from ipAddress within the last
// hours, newest first. hours is clamped with domain.ClampFailedHours.
func (r *ReportService) FailedAttemptsByIP(_ context.Context, ipAddress string, hours int) []domain.LoginAttempt {
	hours = domain.ClampFailedHours(hours)
	cutoff := r.now().UTC().Add(-time.Duration(hours) * time.Hour)

	out := []domain.LoginAttempt{}
	for _, a := range r.audit.Recent(0) {
		if a.Success || a.IPAddress != ipAddress || a.Timestamp.Before(cutoff) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// SecurityStats aggregates the trailing 24 hours of attempts and alerts.
func (r *ReportService) SecurityStats(_ context.Context) domain.SecurityStats {
	cutoff := r.now().UTC().Add(-statsWindow)

	stats := domain.SecurityStats{
		AlertsByType: map[domain.AlertType]int{},
		TopFailedIPs: []domain.IPFailureCount{},
	}
	ips := map[string]struct{}{}
	failures := map[string]int{}
	var order []string

	// Oldest first so that first-seen order breaks ties.
	for _, a := range r.audit.All() {
		if a.Timestamp.Before(cutoff) {
			continue
		}
		stats.TotalAttempts++
		ips[a.IPAddress] = struct{}{}
		if a.Success {
			stats.SuccessfulAttempts++
			continue
		}
		stats.FailedAttempts++
		if _, seen := failures[a.IPAddress]; !seen {
			order = append(order, a.IPAddress)
		}
		failures[a.IPAddress]++
	}
	stats.UniqueIPs = len(ips)

	for _, al := range r.alerts.All() {
		if al.Timestamp.Before(cutoff) {
			continue
		}
		stats.ActiveAlerts++
		stats.AlertsByType[al.Type]++
	}

	for _, ip := range order {
		stats.TopFailedIPs = append(stats.TopFailedIPs, domain.IPFailureCount{IPAddress: ip, Failures: failures[ip]})
	}
	sort.SliceStable(stats.TopFailedIPs, func(i, j int) bool {
		return stats.TopFailedIPs[i].Failures > stats.TopFailedIPs[j].Failures
	})
	if len(stats.TopFailedIPs) > topFailedIPs {
		stats.TopFailedIPs = stats.TopFailedIPs[:topFailedIPs]
	}
	return stats
}

// Dashboard composes stats with the 20 newest attempts and 10 newest alerts.
func (r *ReportService) Dashboard(ctx context.Context) domain.SecurityDashboard {
	return domain.SecurityDashboard{
		Stats:          r.SecurityStats(ctx),
		RecentAttempts: r.audit.Recent(dashboardAudits),
		RecentAlerts:   r.alerts.Recent(dashboardAlerts),
	}
}
