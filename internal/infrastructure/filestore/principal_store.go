// Package filestore implements the default storage backend: a JSON credential
// document and append-only JSON Lines journals on the local filesystem.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/opsdesk/security-core/internal/core/domain"
)

// ErrDuplicateEmail is returned when an upsert would give two employees the same email.
var ErrDuplicateEmail = errors.New("email already belongs to another employee")

// employeeRecord is the on-disk shape of a principal. Role is stored as free
// text and normalised with domain.MapRole on load.
type employeeRecord struct {
	EmployeeID       string     `json:"employeeId"`
	Email            string     `json:"email"`
	FullName         string     `json:"fullName"`
	Role             string     `json:"role"`
	Department       string     `json:"department"`
	IsActive         bool       `json:"isActive"`
	AccessRoles      []string   `json:"accessRoles,omitempty"`
	PasswordHash     string     `json:"passwordHash"`
	EmploymentStatus string     `json:"employmentStatus"`
	LastLogin        *time.Time `json:"lastLogin,omitempty"`
}

type credentialDocument struct {
	Employees []employeeRecord `json:"employees"`
}

func (r employeeRecord) toDomain() *domain.Principal {
	p := &domain.Principal{
		EmployeeID:       r.EmployeeID,
		Email:            domain.NormalizeEmail(r.Email),
		FullName:         r.FullName,
		Role:             domain.MapRole(r.Role),
		Department:       r.Department,
		IsActive:         r.IsActive,
		AccessRoles:      append([]string(nil), r.AccessRoles...),
		PasswordHash:     r.PasswordHash,
		EmploymentStatus: r.EmploymentStatus,
	}
	if r.LastLogin != nil {
		t := *r.LastLogin
		p.LastLogin = &t
	}
	p.AccessRoles = p.EffectiveAccessRoles()
	return p
}

func fromDomain(p *domain.Principal) employeeRecord {
	r := employeeRecord{
		EmployeeID:       p.EmployeeID,
		Email:            domain.NormalizeEmail(p.Email),
		FullName:         p.FullName,
		Role:             string(p.Role),
		Department:       p.Department,
		IsActive:         p.IsActive,
		AccessRoles:      append([]string(nil), p.AccessRoles...),
		PasswordHash:     p.PasswordHash,
		EmploymentStatus: p.EmploymentStatus,
	}
	if p.LastLogin != nil {
		t := *p.LastLogin
		r.LastLogin = &t
	}
	return r
}

// PrincipalStore is a ports.CredentialStore over one JSON document. The
// document is held in memory and rewritten atomically after every mutation.
type PrincipalStore struct {
	path string
	log  zerolog.Logger

	mu      sync.RWMutex
	records []employeeRecord
	byID    map[string]int
	byEmail map[string]int
}

// OpenPrincipalStore loads path, creating an empty document when it does not exist.
func OpenPrincipalStore(path string, log zerolog.Logger) (*PrincipalStore, error) {
	s := &PrincipalStore{path: path, log: log}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.index(nil)
		if err := s.persistLocked(); err != nil {
			return nil, err
		}
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read credential document: %w", err)
	}

	var doc credentialDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode credential document: %w", err)
	}
	s.index(doc.Employees)
	log.Info().Str("path", path).Int("employees", len(s.records)).Msg("credential document loaded")
	return s, nil
}

func (s *PrincipalStore) index(records []employeeRecord) {
	s.records = records
	s.byID = make(map[string]int, len(records))
	s.byEmail = make(map[string]int, len(records))
	for i, r := range records {
		s.byID[r.EmployeeID] = i
		s.byEmail[domain.NormalizeEmail(r.Email)] = i
	}
}

func (s *PrincipalStore) FindByEmail(_ context.Context, email string) (*domain.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return nil, domain.ErrPrincipalNotFound
	}
	return s.records[i].toDomain(), nil
}

func (s *PrincipalStore) FindByEmployeeID(_ context.Context, employeeID string) (*domain.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[employeeID]
	if !ok {
		return nil, domain.ErrPrincipalNotFound
	}
	return s.records[i].toDomain(), nil
}

func (s *PrincipalStore) UpdatePasswordHash(_ context.Context, employeeID, passwordHash string) error {
	return s.mutate(employeeID, func(r *employeeRecord) {
		r.PasswordHash = passwordHash
	})
}

func (s *PrincipalStore) TouchLastLogin(_ context.Context, employeeID string, at time.Time) error {
	at = at.UTC()
	return s.mutate(employeeID, func(r *employeeRecord) {
		r.LastLogin = &at
	})
}

// Upsert inserts or replaces the principal with the same employee ID.
func (s *PrincipalStore) Upsert(_ context.Context, p *domain.Principal) error {
	if strings.TrimSpace(p.EmployeeID) == "" || strings.TrimSpace(p.Email) == "" {
		return fmt.Errorf("%w: employeeId and email are required", domain.ErrValidation)
	}
	rec := fromDomain(p)

	s.mu.Lock()
	defer s.mu.Unlock()

	if i, ok := s.byEmail[rec.Email]; ok && s.records[i].EmployeeID != rec.EmployeeID {
		return ErrDuplicateEmail
	}

	prev := s.records
	next := append([]employeeRecord(nil), s.records...)
	if i, ok := s.byID[rec.EmployeeID]; ok {
		next[i] = rec
	} else {
		next = append(next, rec)
	}

	s.index(next)
	if err := s.persistLocked(); err != nil {
		s.index(prev)
		return err
	}
	return nil
}

// mutate applies fn to one record and persists; the in-memory change is
// rolled back when the write fails.
func (s *PrincipalStore) mutate(employeeID string, fn func(*employeeRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.byID[employeeID]
	if !ok {
		return domain.ErrPrincipalNotFound
	}
	prev := s.records[i]
	fn(&s.records[i])
	if err := s.persistLocked(); err != nil {
		s.records[i] = prev
		return err
	}
	return nil
}

// persistLocked writes the document to a temp file and renames it over path.
func (s *PrincipalStore) persistLocked() error {
	records := s.records
	if records == nil {
		records = []employeeRecord{}
	}
	raw, err := json.MarshalIndent(credentialDocument{Employees: records}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credential document: %w", err)
	}
	if err := writeFileAtomic(s.path, raw); err != nil {
		return fmt.Errorf("write credential document: %w", err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
