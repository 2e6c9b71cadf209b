package domain

import "time"

// EmploymentActive is the only employment status allowed to authenticate.
const EmploymentActive = "Active"

// SessionTTL is the lifetime of every issued session token.
const SessionTTL = 24 * time.Hour

// Principal models an employee that can sign in to the dashboard.
type Principal struct {
	EmployeeID       string     `json:"employeeId"`
	Email            string     `json:"email"`
	FullName         string     `json:"fullName"`
	Role             Role       `json:"role"`
	Department       string     `json:"department"`
	IsActive         bool       `json:"isActive"`
	AccessRoles      []string   `json:"accessRoles"`
	PasswordHash     string     `json:"-"`
	EmploymentStatus string     `json:"employmentStatus"`
	LastLogin        *time.Time `json:"lastLogin,omitempty"`
}

// CanAuthenticate reports whether the principal is allowed to hold a session.
func (p *Principal) CanAuthenticate() bool {
	return p != nil && p.IsActive && p.EmploymentStatus == EmploymentActive
}

// EffectiveAccessRoles returns AccessRoles, defaulting to the primary role.
func (p *Principal) EffectiveAccessRoles() []string {
	if len(p.AccessRoles) > 0 {
		return p.AccessRoles
	}
	return []string{string(p.Role)}
}

// HasAnyRole reports whether the principal's role or access roles intersect roles.
func (p *Principal) HasAnyRole(roles ...Role) bool {
	for _, want := range roles {
		if p.Role == want {
			return true
		}
		for _, r := range p.AccessRoles {
			if r == string(want) {
				return true
			}
		}
	}
	return false
}
