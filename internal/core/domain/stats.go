package domain

// IPFailureCount is one row of the top failing IPs ranking.
type IPFailureCount struct {
	IPAddress string `json:"ipAddress"`
	Failures  int    `json:"failures"`
}

// SecurityStats summarises the trailing 24 hours of authentication activity.
type SecurityStats struct {
	TotalAttempts      int               `json:"totalAttempts"`
	SuccessfulAttempts int               `json:"successfulAttempts"`
	FailedAttempts     int               `json:"failedAttempts"`
	UniqueIPs          int               `json:"uniqueIPs"`
	ActiveAlerts       int               `json:"activeAlerts"`
	AlertsByType       map[AlertType]int `json:"alertsByType"`
	TopFailedIPs       []IPFailureCount  `json:"topFailedIPs"`
}

// SecurityDashboard is the composed payload served to the security console.
type SecurityDashboard struct {
	Stats          SecurityStats   `json:"stats"`
	RecentAttempts []LoginAttempt  `json:"recentAttempts"`
	RecentAlerts   []SecurityAlert `json:"recentAlerts"`
}

// Bounds of the trailing window accepted by failed-attempt queries.
const (
	DefaultFailedHours = 24
	MaxFailedHours     = 720
)

// ClampFailedHours maps a requested window onto [1, MaxFailedHours];
// non-positive values select DefaultFailedHours.
func ClampFailedHours(hours int) int {
	if hours <= 0 {
		return DefaultFailedHours
	}
	if hours > MaxFailedHours {
		return MaxFailedHours
	}
	return hours
}
