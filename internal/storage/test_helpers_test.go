package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"cmcs-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var baseTime = time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)

// createTestGormStore opens a fresh SQLite database for one test.
func createTestGormStore(t *testing.T) *GormStore {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_foreign_keys=on&_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Claim{}, &models.AuditEntry{}))
	return NewGormStore("sqlite", db)
}

func createTestUser(t *testing.T, b Backend, email string, role models.UserRole, rate string) *models.User {
	t.Helper()
	u := &models.User{
		FirstName:    "Test",
		LastName:     string(role),
		Email:        email,
		PasswordHash: "hash",
		Role:         role,
		HourlyRate:   decimal.RequireFromString(rate),
	}
	require.NoError(t, b.CreateUser(context.Background(), u))
	require.NotZero(t, u.ID)
	return u
}

func createTestClaim(t *testing.T, b Backend, owner *models.User, submitted time.Time) *models.Claim {
	t.Helper()
	hours := decimal.RequireFromString("10")
	c := &models.Claim{
		UserID:      owner.ID,
		Month:       int(submitted.Month()),
		Year:        submitted.Year(),
		HoursWorked: hours,
		HourlyRate:  owner.HourlyRate,
		TotalAmount: hours.Mul(owner.HourlyRate),
		Status:      models.StatusPending,
		SubmittedAt: submitted,
	}
	entry := &models.AuditEntry{
		Status:    models.StatusPending,
		ActionBy:  owner.FirstName,
		Notes:     "Claim submitted",
		CreatedAt: submitted,
	}
	require.NoError(t, b.CreateClaim(context.Background(), c, entry))
	require.NotZero(t, c.ID)
	return c
}
