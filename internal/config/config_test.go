package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("SECONDARY_BACKEND", "")
	t.Setenv("PROBE_TIMEOUT_SECONDS", "")
	t.Setenv("HTTP_PORT", "")
	t.Setenv("DATABASE_DSN", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("SEED_DEFAULT_USERS", "")

	cfg := Load()
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "memory", cfg.SecondaryBackend)
	assert.Equal(t, 3*time.Second, cfg.ProbeTimeout)
	assert.True(t, cfg.SeedDefaultUsers)
	assert.Len(t, cfg.Warnings(), 2)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("SECONDARY_BACKEND", "SQLite")
	t.Setenv("PROBE_TIMEOUT_SECONDS", "10")
	t.Setenv("LOG_JSON", "true")
	t.Setenv("SEED_DEFAULT_USERS", "false")

	cfg := Load()
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, "sqlite", cfg.SecondaryBackend)
	assert.Equal(t, 10*time.Second, cfg.ProbeTimeout)
	assert.True(t, cfg.LogJSON)
	assert.False(t, cfg.SeedDefaultUsers)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		JWTSecret:        strings.Repeat("x", 32),
		SecondaryBackend: "memory",
		DocumentStore:    "local",
	}
	require.NoError(t, cfg.Validate())

	cfg.JWTSecret = "short"
	cfg.DocumentStore = "s3"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 characters")
	assert.Contains(t, err.Error(), "S3_BUCKET")

	cfg.JWTSecret = strings.Repeat("x", 40)
	cfg.S3Bucket = "claims"
	cfg.SecondaryBackend = "redis"
	assert.ErrorContains(t, cfg.Validate(), "SECONDARY_BACKEND")
}
