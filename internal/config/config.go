package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=cmcs port=5432 sslmode=disable"

type Config struct {
	HTTPPort    string
	DatabaseDSN string
	JWTSecret   string
	CORSOrigins string

	// SecondaryBackend is "memory" or "sqlite".
	SecondaryBackend    string
	SecondarySQLitePath string
	ProbeTimeout        time.Duration

	// DocumentStore is "local" or "s3".
	DocumentStore string
	DocumentDir   string
	S3Bucket      string
	AWSRegion     string

	LogLevel string
	LogJSON  bool

	SeedDefaultUsers bool
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	probeSeconds, err := strconv.Atoi(getEnv("PROBE_TIMEOUT_SECONDS", "3"))
	if err != nil || probeSeconds <= 0 {
		probeSeconds = 3
	}

	return &Config{
		HTTPPort:            getEnv("HTTP_PORT", "8080"),
		DatabaseDSN:         getEnv("DATABASE_DSN", defaultDSN),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		CORSOrigins:         getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		SecondaryBackend:    strings.ToLower(getEnv("SECONDARY_BACKEND", "memory")),
		SecondarySQLitePath: getEnv("SECONDARY_SQLITE_PATH", "./cmcs-fallback.db"),
		ProbeTimeout:        time.Duration(probeSeconds) * time.Second,
		DocumentStore:       strings.ToLower(getEnv("DOCUMENT_STORE", "local")),
		DocumentDir:         getEnv("DOCUMENT_DIR", "./claim-documents"),
		S3Bucket:            getEnv("S3_BUCKET", ""),
		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogJSON:             getBool("LOG_JSON", false),
		SeedDefaultUsers:    getBool("SEED_DEFAULT_USERS", true),
	}
}

// Validate checks the settings the server cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is not set"))
	} else if len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 characters"))
	}
	switch c.SecondaryBackend {
	case "memory", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("SECONDARY_BACKEND %q must be memory or sqlite", c.SecondaryBackend))
	}
	switch c.DocumentStore {
	case "local":
	case "s3":
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required when DOCUMENT_STORE=s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("DOCUMENT_STORE %q must be local or s3", c.DocumentStore))
	}
	return errors.Join(errs...)
}

// Warnings lists settings that still carry development defaults.
func (c *Config) Warnings() []string {
	var out []string
	if c.DatabaseDSN == defaultDSN {
		out = append(out, "DATABASE_DSN uses the development default")
	}
	if c.CORSOrigins == "http://localhost:5173" {
		out = append(out, "CORS_ALLOWED_ORIGINS uses the development default")
	}
	return out
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
