package ports

import (
	"context"
	"time"

	"github.com/opsdesk/security-core/internal/core/domain"
)

// CredentialStore is the directory of principals consulted on every login.
// Implementations return domain.ErrPrincipalNotFound for unknown keys and
// match emails case-insensitively.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*domain.Principal, error)
	FindByEmployeeID(ctx context.Context, employeeID string) (*domain.Principal, error)
	UpdatePasswordHash(ctx context.Context, employeeID, passwordHash string) error
	TouchLastLogin(ctx context.Context, employeeID string, at time.Time) error
	// Upsert inserts or replaces a principal keyed by employee ID.
	Upsert(ctx context.Context, p *domain.Principal) error
}
