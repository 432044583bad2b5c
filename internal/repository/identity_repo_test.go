package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-quiz/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	return db
}

func setupIdentityRepo(t *testing.T) IdentityRepository {
	t.Helper()
	repo := NewIdentityRepository(setupTestDB(t), "users")
	require.NoError(t, repo.Migrate(context.Background()))
	return repo
}

func TestIdentityRepositoryCreateAndFind(t *testing.T) {
	repo := setupIdentityRepo(t)
	ctx := context.Background()

	identity := models.Identity{StudentID: "s-100", Email: "Jane@Example.com", Role: "Student"}
	require.NoError(t, identity.SetPassword("hunter22"))
	require.NoError(t, repo.Create(ctx, &identity))
	require.NotZero(t, identity.ID)

	byID, err := repo.FindByStudentID(ctx, "s-100")
	require.NoError(t, err)
	require.Equal(t, "jane@example.com", byID.Email)
	require.Equal(t, models.RoleStudent, byID.Role)
	require.True(t, byID.CheckPassword("hunter22"))

	byEmail, err := repo.FindByEmail(ctx, " JANE@example.com ")
	require.NoError(t, err)
	require.Equal(t, byID.ID, byEmail.ID)
}

func TestIdentityRepositoryNotFound(t *testing.T) {
	repo := setupIdentityRepo(t)

	_, err := repo.FindByStudentID(context.Background(), "missing")
	require.ErrorIs(t, err, ErrIdentityNotFound)

	_, err = repo.FindByEmail(context.Background(), "nobody@example.com")
	require.ErrorIs(t, err, ErrIdentityNotFound)
}

func TestIdentityRepositoryUniqueIndexes(t *testing.T) {
	repo := setupIdentityRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Identity{StudentID: "s-1", Email: "a@example.com", PasswordHash: "x", Role: models.RoleStudent}))
	err := repo.Create(ctx, &models.Identity{StudentID: "s-1", Email: "b@example.com", PasswordHash: "x", Role: models.RoleStudent})
	require.Error(t, err)
}

func TestIdentityRepositoryUpdatePassword(t *testing.T) {
	repo := setupIdentityRepo(t)
	ctx := context.Background()

	identity := models.Identity{StudentID: "s-2", Email: "b@example.com", Role: models.RoleStudent}
	require.NoError(t, identity.SetPassword("old-password"))
	require.NoError(t, repo.Create(ctx, &identity))

	hash, err := models.HashPassword("new-password")
	require.NoError(t, err)
	require.NoError(t, repo.UpdatePassword(ctx, "b@example.com", hash))

	updated, err := repo.FindByEmail(ctx, "b@example.com")
	require.NoError(t, err)
	require.True(t, updated.CheckPassword("new-password"))
	require.False(t, updated.CheckPassword("old-password"))

	require.ErrorIs(t, repo.UpdatePassword(ctx, "ghost@example.com", hash), ErrIdentityNotFound)
}

func TestIdentityRepositoryUpsert(t *testing.T) {
	repo := setupIdentityRepo(t)
	ctx := context.Background()

	admin := models.Identity{StudentID: "root", Email: "root@example.com", PasswordHash: "h1", Role: models.RoleAdmin}
	require.NoError(t, repo.Upsert(ctx, &admin))

	again := models.Identity{StudentID: "root", Email: "ops@example.com", PasswordHash: "h2", Role: models.RoleAdmin}
	require.NoError(t, repo.Upsert(ctx, &again))
	require.Equal(t, admin.ID, again.ID)

	stored, err := repo.FindByStudentID(ctx, "root")
	require.NoError(t, err)
	require.Equal(t, "ops@example.com", stored.Email)
	require.Equal(t, "h2", stored.PasswordHash)
}

func TestIdentityRepositoryWithoutStore(t *testing.T) {
	repo := NewIdentityRepository(nil, "users")
	_, err := repo.FindByStudentID(context.Background(), "s-1")
	require.ErrorIs(t, err, ErrStoreUnavailable)
}
