package database

import (
	"context"
	"path/filepath"
	"testing"

	"cmcs-backend/internal/auth"
	"cmcs-backend/internal/models"
	"cmcs-backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLiteAndMigrate(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "claims.db"))
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for _, table := range []any{&models.User{}, &models.Claim{}, &models.AuditEntry{}} {
		assert.True(t, db.Migrator().HasTable(table))
	}
	assert.True(t, db.Migrator().HasIndex(&models.Claim{}, "Status"))
	assert.NoError(t, Migrate(db), "migrations are idempotent")
}

func TestSeedDefaultUsers(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "seed.db"))
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	store := storage.NewGormStore("sqlite", db)

	n, err := SeedDefaultUsers(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, len(DefaultUsers), n)

	n, err = SeedDefaultUsers(ctx, store)
	require.NoError(t, err)
	assert.Zero(t, n, "seeding twice creates nothing")

	lecturer, err := store.GetUserByEmail(ctx, "lecturer@emeris.co.za")
	require.NoError(t, err)
	assert.Equal(t, "250.00", lecturer.HourlyRate.StringFixed(2))
	assert.True(t, auth.CheckPassword(lecturer.PasswordHash, DefaultPassword))

	hr, err := store.GetUserByEmail(ctx, "hr@emeris.co.za")
	require.NoError(t, err)
	assert.Equal(t, models.RoleHR, hr.Role)
	assert.True(t, hr.HourlyRate.IsZero())
}

func TestSeedDefaultUsers_Memory(t *testing.T) {
	store := storage.NewMemoryStore("memory")
	n, err := SeedDefaultUsers(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	users, err := store.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 4)
}
