package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-quiz/internal/models"
)

var (
	// ErrIdentityNotFound indicates no identity matched the lookup.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrIdentityConflict indicates a unique index rejected the write.
	ErrIdentityConflict = errors.New("identity already exists")
	// ErrStoreUnavailable wraps failures of the underlying document store.
	ErrStoreUnavailable = errors.New("identity store unavailable")
)

// IdentityRepository provides access to stored identities.
type IdentityRepository interface {
	Migrate(ctx context.Context) error
	FindByStudentID(ctx context.Context, studentID string) (models.Identity, error)
	FindByEmail(ctx context.Context, email string) (models.Identity, error)
	Create(ctx context.Context, identity *models.Identity) error
	UpdatePassword(ctx context.Context, email, passwordHash string) error
	Upsert(ctx context.Context, identity *models.Identity) error
}

type identityRepository struct {
	db    *gorm.DB
	table string
}

// NewIdentityRepository constructs an identity repository bound to the given collection (table).
func NewIdentityRepository(db *gorm.DB, collection string) IdentityRepository {
	collection = strings.TrimSpace(collection)
	if collection == "" {
		collection = "identities"
	}
	return &identityRepository{db: db, table: collection}
}

func (r *identityRepository) scoped(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, ErrStoreUnavailable
	}
	return r.db.WithContext(ctx).Table(r.table), nil
}

func (r *identityRepository) Migrate(ctx context.Context) error {
	tx, err := r.scoped(ctx)
	if err != nil {
		return err
	}
	if err := tx.AutoMigrate(&models.Identity{}); err != nil {
		return storeError(err)
	}
	return nil
}

func (r *identityRepository) FindByStudentID(ctx context.Context, studentID string) (models.Identity, error) {
	return r.findOne(ctx, "student_id = ?", strings.TrimSpace(studentID))
}

func (r *identityRepository) FindByEmail(ctx context.Context, email string) (models.Identity, error) {
	return r.findOne(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (r *identityRepository) findOne(ctx context.Context, query string, arg string) (models.Identity, error) {
	tx, err := r.scoped(ctx)
	if err != nil {
		return models.Identity{}, err
	}

	var identity models.Identity
	if err := tx.Where(query, arg).First(&identity).Error; err != nil {
		return models.Identity{}, storeError(err)
	}
	return identity, nil
}

func (r *identityRepository) Create(ctx context.Context, identity *models.Identity) error {
	tx, err := r.scoped(ctx)
	if err != nil {
		return err
	}
	identity.Email = strings.ToLower(strings.TrimSpace(identity.Email))
	identity.Role = models.NormalizeRole(identity.Role)
	if err := tx.Create(identity).Error; err != nil {
		return storeError(err)
	}
	return nil
}

func (r *identityRepository) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	tx, err := r.scoped(ctx)
	if err != nil {
		return err
	}

	result := tx.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).Updates(map[string]interface{}{
		"password_hash": passwordHash,
		"updated_at":    time.Now().UTC(),
	})
	if result.Error != nil {
		return storeError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrIdentityNotFound
	}
	return nil
}

// Upsert creates the identity or overwrites the email, hash and role of the record with the same student ID.
func (r *identityRepository) Upsert(ctx context.Context, identity *models.Identity) error {
	existing, err := r.FindByStudentID(ctx, identity.StudentID)
	switch {
	case errors.Is(err, ErrIdentityNotFound):
		return r.Create(ctx, identity)
	case err != nil:
		return err
	}

	tx, err := r.scoped(ctx)
	if err != nil {
		return err
	}
	result := tx.Where("id = ?", existing.ID).Updates(map[string]interface{}{
		"email":         strings.ToLower(strings.TrimSpace(identity.Email)),
		"password_hash": identity.PasswordHash,
		"role":          models.NormalizeRole(identity.Role),
		"updated_at":    time.Now().UTC(),
	})
	if result.Error != nil {
		return storeError(result.Error)
	}
	identity.ID = existing.ID
	return nil
}

func storeError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrIdentityNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrIdentityConflict
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}
