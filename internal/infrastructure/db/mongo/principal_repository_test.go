package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/opsdesk/security-core/internal/core/domain"
)

func TestMongoPrincipal_ToDomain(t *testing.T) {
	local := time.Date(2025, 3, 10, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	mp := mongoPrincipal{
		EmployeeID:       "E001",
		Email:            "  Alice@OpsDesk.io ",
		Role:             "IT Support Specialist",
		IsActive:         true,
		PasswordHash:     "$2a$10$hash",
		EmploymentStatus: "Active",
		LastLogin:        &local,
	}

	p := mp.toDomain()
	assert.Equal(t, "alice@opsdesk.io", p.Email)
	assert.Equal(t, domain.RoleIT, p.Role)
	assert.Equal(t, []string{"IT"}, p.AccessRoles)
	assert.True(t, p.CanAuthenticate())
	if assert.NotNil(t, p.LastLogin) {
		assert.Equal(t, time.UTC, p.LastLogin.Location())
		assert.True(t, p.LastLogin.Equal(local))
	}

	mp.LastLogin = nil
	mp.AccessRoles = []string{"IT", "Manager"}
	p = mp.toDomain()
	assert.Nil(t, p.LastLogin)
	assert.Equal(t, []string{"IT", "Manager"}, p.AccessRoles)
}
