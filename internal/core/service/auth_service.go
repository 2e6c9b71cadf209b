package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/opsdesk/security-core/internal/core/domain"
	"github.com/opsdesk/security-core/internal/core/ports"
	"github.com/opsdesk/security-core/internal/pkg/metrics"
)

// LegacyBootstrap enables upgrade-on-login for principals whose stored hash is
// not a usable bcrypt hash. Disabled unless explicitly configured.
type LegacyBootstrap struct {
	Enabled  bool
	Password string
}

// AuthOptions configures AuthService.
type AuthOptions struct {
	JWTSecret       string
	TokenTTL        time.Duration
	BcryptCost      int
	LegacyBootstrap LegacyBootstrap
}

type sessionClaims struct {
	EmployeeID string      `json:"employeeId"`
	Email      string      `json:"email"`
	Role       domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// AuthService implements login, session token handling and password rotation.
type AuthService struct {
	store      ports.CredentialStore
	recorder   ports.AttemptRecorder
	limiter    ports.RateLimiter
	jwtSecret  []byte
	tokenTTL   time.Duration
	bcryptCost int
	bootstrap  LegacyBootstrap
	dummyHash  []byte
	log        zerolog.Logger
	now        func() time.Time
}

// NewAuthService wires the credential store, audit recorder and rate limiter.
// recorder and limiter may be nil.
func NewAuthService(store ports.CredentialStore, recorder ports.AttemptRecorder, limiter ports.RateLimiter, opts AuthOptions, log zerolog.Logger) *AuthService {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = domain.SessionTTL
	}
	if opts.BcryptCost < bcrypt.MinCost || opts.BcryptCost > bcrypt.MaxCost {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	// Compared against when the email is unknown so that lookups of missing
	// accounts cost the same as a wrong password.
	dummy, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), opts.BcryptCost)
	if err != nil {
		log.Warn().Err(err).Msg("failed to prepare dummy password hash")
	}
	return &AuthService{
		store:      store,
		recorder:   recorder,
		limiter:    limiter,
		jwtSecret:  []byte(opts.JWTSecret),
		tokenTTL:   opts.TokenTTL,
		bcryptCost: opts.BcryptCost,
		bootstrap:  opts.LegacyBootstrap,
		dummyHash:  dummy,
		log:        log,
		now:        time.Now,
	}
}

// Login authenticates email/password. Every attempt is recorded in the audit
// trail before Login returns. All credential failures surface as
// domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
	email := domain.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", domain.ErrValidation)
	}
	ac := ports.AttemptContext{IPAddress: in.IPAddress, UserAgent: in.UserAgent}

	if s.limiter != nil {
		release, ok := s.limiter.Reserve(in.IPAddress, email)
		if !ok {
			s.record(ctx, ac, email, in.Password, false, domain.FailureRateLimited)
			return nil, domain.ErrInvalidCredentials
		}
		// Runs after the attempt below is recorded and counted.
		defer release()
	}

	principal, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrPrincipalNotFound) {
			s.compare(s.dummyHash, in.Password)
			s.record(ctx, ac, email, in.Password, false, domain.FailureUserNotFound)
			return nil, domain.ErrInvalidCredentials
		}
		s.record(ctx, ac, email, in.Password, false, domain.FailureInternal)
		return nil, fmt.Errorf("login: find principal: %w", err)
	}

	if !principal.CanAuthenticate() {
		s.record(ctx, ac, email, in.Password, false, domain.FailureAccountInactive)
		return nil, domain.ErrInvalidCredentials
	}

	if !s.verifyPassword(ctx, principal, in.Password) {
		s.record(ctx, ac, email, in.Password, false, domain.FailureInvalidPassword)
		return nil, domain.ErrInvalidCredentials
	}

	now := s.now().UTC()
	if err := s.store.TouchLastLogin(ctx, principal.EmployeeID, now); err != nil {
		s.log.Warn().Err(err).Str("employee_id", principal.EmployeeID).Msg("failed to update last login")
	} else {
		principal.LastLogin = &now
	}

	token, err := s.issueToken(principal, now)
	if err != nil {
		s.record(ctx, ac, email, in.Password, false, domain.FailureInternal)
		return nil, fmt.Errorf("login: issue token: %w", err)
	}
	metrics.TokensIssuedTotal.WithLabelValues("login").Inc()

	s.record(ctx, ac, email, "", true, "")
	s.log.Info().Str("employee_id", principal.EmployeeID).Str("ip", in.IPAddress).Msg("login succeeded")

	return &ports.LoginResult{Token: token, Principal: principal}, nil
}

// VerifyToken checks signature and expiry, then re-reads the principal so
// deactivation and role changes apply to outstanding tokens.
func (s *AuthService) VerifyToken(ctx context.Context, token string) (*domain.Principal, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	principal, err := s.store.FindByEmployeeID(ctx, claims.EmployeeID)
	if err != nil {
		if errors.Is(err, domain.ErrPrincipalNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, fmt.Errorf("verify token: %w", err)
	}
	if !principal.CanAuthenticate() {
		return nil, domain.ErrInvalidToken
	}
	return principal, nil
}

// RefreshToken verifies token and issues a new one with a fresh expiry.
func (s *AuthService) RefreshToken(ctx context.Context, token string) (string, error) {
	principal, err := s.VerifyToken(ctx, token)
	if err != nil {
		return "", err
	}
	fresh, err := s.issueToken(principal, s.now().UTC())
	if err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}
	metrics.TokensIssuedTotal.WithLabelValues("refresh").Inc()
	return fresh, nil
}

// ChangePassword rotates the principal's hash after checking currentPassword.
func (s *AuthService) ChangePassword(ctx context.Context, employeeID, currentPassword, newPassword string) error {
	if currentPassword == "" {
		return fmt.Errorf("%w: currentPassword is required", domain.ErrValidation)
	}
	if len([]rune(newPassword)) < domain.MinPasswordLength {
		return domain.ErrWeakPassword
	}

	principal, err := s.store.FindByEmployeeID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, domain.ErrPrincipalNotFound) {
			return domain.ErrInvalidToken
		}
		return fmt.Errorf("change password: %w", err)
	}

	if !s.compare([]byte(principal.PasswordHash), currentPassword) {
		s.log.Info().Str("employee_id", employeeID).Msg("password change rejected")
		return domain.ErrInvalidCurrentPassword
	}

	hash, err := s.hash(newPassword)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if err := s.store.UpdatePasswordHash(ctx, employeeID, hash); err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	s.log.Info().Str("employee_id", employeeID).Msg("password changed")
	return nil
}

// verifyPassword compares against the stored bcrypt hash. When the stored
// hash is unusable and the legacy bootstrap is enabled, a matching bootstrap
// password is accepted once and the hash is upgraded in place.
func (s *AuthService) verifyPassword(ctx context.Context, p *domain.Principal, password string) bool {
	err := s.compareErr([]byte(p.PasswordHash), password)
	if err == nil {
		return true
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false
	}
	if !s.bootstrap.Enabled || s.bootstrap.Password == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(s.bootstrap.Password)) != 1 {
		return false
	}

	hash, err := s.hash(password)
	if err != nil {
		s.log.Error().Err(err).Str("employee_id", p.EmployeeID).Msg("failed to upgrade legacy credential")
		return true
	}
	if err := s.store.UpdatePasswordHash(ctx, p.EmployeeID, hash); err != nil {
		s.log.Error().Err(err).Str("employee_id", p.EmployeeID).Msg("failed to persist upgraded credential")
		return true
	}
	p.PasswordHash = hash
	s.log.Warn().Str("employee_id", p.EmployeeID).Msg("legacy bootstrap credential upgraded")
	return true
}

func (s *AuthService) compare(hash []byte, password string) bool {
	return s.compareErr(hash, password) == nil
}

// compareErr treats every bcrypt failure, including malformed hashes, as a
// verification failure.
func (s *AuthService) compareErr(hash []byte, password string) error {
	start := time.Now()
	err := bcrypt.CompareHashAndPassword(hash, []byte(password))
	metrics.PasswordHashDuration.WithLabelValues("compare").Observe(time.Since(start).Seconds())
	return err
}

func (s *AuthService) hash(password string) (string, error) {
	start := time.Now()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	metrics.PasswordHashDuration.WithLabelValues("generate").Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// record audits one attempt. Recorders log their own persistence failures,
// and an audit failure never changes the login outcome.
func (s *AuthService) record(ctx context.Context, ac ports.AttemptContext, email, password string, success bool, reason string) {
	if s.recorder == nil {
		return
	}
	_ = s.recorder.RecordAttempt(ctx, ac, email, password, success, reason)
}

func (s *AuthService) issueToken(p *domain.Principal, now time.Time) (string, error) {
	claims := sessionClaims{
		EmployeeID: p.EmployeeID,
		Email:      p.Email,
		Role:       p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   p.EmployeeID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.jwtSecret)
}

func (s *AuthService) parseToken(token string) (*sessionClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(s.now),
	)

	claims := &sessionClaims{}
	tkn, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}
	if !tkn.Valid || claims.EmployeeID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
