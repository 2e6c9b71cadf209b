package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/opsdesk/security-core/internal/core/domain"
)

const principalCollection = "employees"

// PrincipalRepository implements ports.CredentialStore using MongoDB.
type PrincipalRepository struct {
	coll *mongo.Collection
}

func NewPrincipalRepository(db *mongo.Database) *PrincipalRepository {
	return &PrincipalRepository{coll: db.Collection(principalCollection)}
}

type mongoPrincipal struct {
	EmployeeID       string     `bson:"employee_id"`
	Email            string     `bson:"email"`
	FullName         string     `bson:"full_name"`
	Role             string     `bson:"role"`
	Department       string     `bson:"department"`
	IsActive         bool       `bson:"is_active"`
	AccessRoles      []string   `bson:"access_roles,omitempty"`
	PasswordHash     string     `bson:"password_hash"`
	EmploymentStatus string     `bson:"employment_status"`
	LastLogin        *time.Time `bson:"last_login,omitempty"`
	UpdatedAt        time.Time  `bson:"updated_at"`
}

func (m mongoPrincipal) toDomain() *domain.Principal {
	p := &domain.Principal{
		EmployeeID:       m.EmployeeID,
		Email:            domain.NormalizeEmail(m.Email),
		FullName:         m.FullName,
		Role:             domain.MapRole(m.Role),
		Department:       m.Department,
		IsActive:         m.IsActive,
		AccessRoles:      m.AccessRoles,
		PasswordHash:     m.PasswordHash,
		EmploymentStatus: m.EmploymentStatus,
	}
	if m.LastLogin != nil {
		t := m.LastLogin.UTC()
		p.LastLogin = &t
	}
	p.AccessRoles = p.EffectiveAccessRoles()
	return p
}

// EnsureIndexes creates the unique employee ID and email indexes.
func (r *PrincipalRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "employee_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("create employee indexes: %w", err)
	}
	return nil
}

func (r *PrincipalRepository) FindByEmail(ctx context.Context, email string) (*domain.Principal, error) {
	return r.findOne(ctx, bson.M{"email": domain.NormalizeEmail(email)})
}

func (r *PrincipalRepository) FindByEmployeeID(ctx context.Context, employeeID string) (*domain.Principal, error) {
	return r.findOne(ctx, bson.M{"employee_id": employeeID})
}

func (r *PrincipalRepository) findOne(ctx context.Context, filter bson.M) (*domain.Principal, error) {
	var mp mongoPrincipal
	if err := r.coll.FindOne(ctx, filter).Decode(&mp); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("find employee: %w", err)
	}
	return mp.toDomain(), nil
}

func (r *PrincipalRepository) UpdatePasswordHash(ctx context.Context, employeeID, passwordHash string) error {
	return r.set(ctx, employeeID, bson.M{"password_hash": passwordHash})
}

func (r *PrincipalRepository) TouchLastLogin(ctx context.Context, employeeID string, at time.Time) error {
	return r.set(ctx, employeeID, bson.M{"last_login": at.UTC()})
}

func (r *PrincipalRepository) set(ctx context.Context, employeeID string, fields bson.M) error {
	fields["updated_at"] = time.Now().UTC()
	res, err := r.coll.UpdateOne(ctx, bson.M{"employee_id": employeeID}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("update employee: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrPrincipalNotFound
	}
	return nil
}

// Upsert inserts or replaces the principal with the same employee ID.
func (r *PrincipalRepository) Upsert(ctx context.Context, p *domain.Principal) error {
	if p.EmployeeID == "" || p.Email == "" {
		return fmt.Errorf("%w: employeeId and email are required", domain.ErrValidation)
	}
	doc := mongoPrincipal{
		EmployeeID:       p.EmployeeID,
		Email:            domain.NormalizeEmail(p.Email),
		FullName:         p.FullName,
		Role:             string(p.Role),
		Department:       p.Department,
		IsActive:         p.IsActive,
		AccessRoles:      p.AccessRoles,
		PasswordHash:     p.PasswordHash,
		EmploymentStatus: p.EmploymentStatus,
		LastLogin:        p.LastLogin,
		UpdatedAt:        time.Now().UTC(),
	}

	_, err := r.coll.ReplaceOne(ctx, bson.M{"employee_id": p.EmployeeID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: email already belongs to another employee", domain.ErrValidation)
		}
		return fmt.Errorf("upsert employee: %w", err)
	}
	return nil
}
