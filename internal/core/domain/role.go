package domain

import "strings"

// Role is the normalised access role of a principal.
type Role string

const (
	RoleSystemAdmin Role = "SystemAdmin"
	RoleIT          Role = "IT"
	RoleHR          Role = "HR"
	RoleFinance     Role = "Finance"
	RoleManager     Role = "Manager"
	RoleDispatcher  Role = "Dispatcher"
	RoleDriver      Role = "Driver"
	RoleEmployee    Role = "Employee"
)

// SecurityRoles may read the audit trail and security alerts.
var SecurityRoles = []Role{RoleSystemAdmin, RoleIT}

var knownRoles = map[string]Role{
	"systemadmin": RoleSystemAdmin,
	"it":          RoleIT,
	"hr":          RoleHR,
	"finance":     RoleFinance,
	"manager":     RoleManager,
	"dispatcher":  RoleDispatcher,
	"driver":      RoleDriver,
	"employee":    RoleEmployee,
}

// roleKeywords is evaluated in order; the first match wins. Whole-word
// keywords must equal a word of the title, the rest match a word prefix.
var roleKeywords = []struct {
	keyword   string
	wholeWord bool
	role      Role
}{
	{"system admin", false, RoleSystemAdmin},
	{"administrator", false, RoleSystemAdmin},
	{"it", true, RoleIT},
	{"information technology", false, RoleIT},
	{"developer", false, RoleIT},
	{"engineer", false, RoleIT},
	{"hr", true, RoleHR},
	{"human resources", false, RoleHR},
	{"payroll", false, RoleFinance},
	{"financ", false, RoleFinance},
	{"account", false, RoleFinance},
	{"dispatch", false, RoleDispatcher},
	{"driver", false, RoleDriver},
	{"manager", false, RoleManager},
	{"director", false, RoleManager},
	{"supervisor", false, RoleManager},
}

// MapRole converts a free-text job role from the employee directory into a Role.
// Unknown titles map to RoleEmployee.
func MapRole(source string) Role {
	normalized := strings.ToLower(strings.TrimSpace(source))
	if normalized == "" {
		return RoleEmployee
	}
	if r, ok := knownRoles[strings.ReplaceAll(normalized, " ", "")]; ok {
		return r
	}
	words := strings.Fields(normalized)
	joined := " " + strings.Join(words, " ")
	for _, rk := range roleKeywords {
		if rk.wholeWord {
			for _, w := range words {
				if w == rk.keyword {
					return rk.role
				}
			}
			continue
		}
		if strings.Contains(joined, " "+rk.keyword) {
			return rk.role
		}
	}
	return RoleEmployee
}
