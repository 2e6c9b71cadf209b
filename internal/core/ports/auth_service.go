package ports

import (
	"context"

	"github.com/opsdesk/security-core/internal/core/domain"
)

// LoginInput carries the credentials and client context of a login request.
type LoginInput struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Token     string
	Principal *domain.Principal
}

type AuthService interface {
	Login(ctx context.Context, in LoginInput) (*LoginResult, error)
	VerifyToken(ctx context.Context, token string) (*domain.Principal, error)
	RefreshToken(ctx context.Context, token string) (string, error)
	ChangePassword(ctx context.Context, employeeID, currentPassword, newPassword string) error
}
