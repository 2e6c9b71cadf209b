package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/opsdesk/security-core/internal/core/domain"
	"github.com/opsdesk/security-core/internal/core/ports"
)

type stubCredentialStore struct {
	mu        sync.Mutex
	byID      map[string]*domain.Principal
	findErr   error
	updateErr error
	updates   int
}

func newStubCredentialStore(principals ...*domain.Principal) *stubCredentialStore {
	s := &stubCredentialStore{byID: make(map[string]*domain.Principal)}
	for _, p := range principals {
		s.byID[p.EmployeeID] = clonePrincipal(p)
	}
	return s
}

func clonePrincipal(p *domain.Principal) *domain.Principal {
	if p == nil {
		return nil
	}
	c := *p
	c.AccessRoles = append([]string(nil), p.AccessRoles...)
	return &c
}

func (s *stubCredentialStore) FindByEmail(_ context.Context, email string) (*domain.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, p := range s.byID {
		if strings.EqualFold(p.Email, email) {
			return clonePrincipal(p), nil
		}
	}
	return nil, domain.ErrPrincipalNotFound
}

func (s *stubCredentialStore) FindByEmployeeID(_ context.Context, id string) (*domain.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	p, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrPrincipalNotFound
	}
	return clonePrincipal(p), nil
}

func (s *stubCredentialStore) UpdatePasswordHash(_ context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	p, ok := s.byID[id]
	if !ok {
		return domain.ErrPrincipalNotFound
	}
	p.PasswordHash = hash
	s.updates++
	return nil
}

func (s *stubCredentialStore) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return domain.ErrPrincipalNotFound
	}
	p.LastLogin = &at
	return nil
}

func (s *stubCredentialStore) Upsert(_ context.Context, p *domain.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[p.EmployeeID] = clonePrincipal(p)
	return nil
}

func (s *stubCredentialStore) get(id string) *domain.Principal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clonePrincipal(s.byID[id])
}

func (s *stubCredentialStore) setActive(id string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[id].IsActive = active
}

type recordedAttempt struct {
	ac       ports.AttemptContext
	email    string
	password string
	success  bool
	reason   string
}

type stubRecorder struct {
	mu       sync.Mutex
	attempts []recordedAttempt
	err      error
}

func (r *stubRecorder) RecordAttempt(_ context.Context, ac ports.AttemptContext, email, password string, success bool, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, recordedAttempt{ac: ac, email: email, password: password, success: success, reason: reason})
	return r.err
}

func (r *stubRecorder) last() recordedAttempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts[len(r.attempts)-1]
}

func (r *stubRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.attempts)
}

type stubLimiter struct {
	limited bool
}

func (l stubLimiter) Reserve(string, string) (func(), bool) {
	if l.limited {
		return nil, false
	}
	return func() {}, true
}

var errJournalDown = errors.New("journal unavailable")

// memJournal is an in-memory ports.Journal.
type memJournal[T any] struct {
	mu        sync.Mutex
	entries   []T
	appendErr error
	rewrites  int
}

func (j *memJournal[T]) Append(_ context.Context, entry T) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.appendErr != nil {
		return j.appendErr
	}
	j.entries = append(j.entries, entry)
	return nil
}

func (j *memJournal[T]) Load(_ context.Context, limit int) ([]T, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	start := 0
	if limit > 0 && len(j.entries) > limit {
		start = len(j.entries) - limit
	}
	return append([]T(nil), j.entries[start:]...), nil
}

func (j *memJournal[T]) Rewrite(_ context.Context, entries []T) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append([]T(nil), entries...)
	j.rewrites++
	return nil
}

func (j *memJournal[T]) len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}

type captureNotifier struct {
	mu     sync.Mutex
	alerts []domain.SecurityAlert
}

func (n *captureNotifier) Notify(a domain.SecurityAlert) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, a)
}

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
