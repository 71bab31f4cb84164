package workflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"cmcs-backend/internal/auth"
	"cmcs-backend/internal/document"
	"cmcs-backend/internal/logger"
	"cmcs-backend/internal/models"
	"cmcs-backend/internal/storage"

	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

// stepClock advances one minute on every reading.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

type fixture struct {
	svc   *Service
	store *storage.MemoryStore
	fs    afero.Fs

	lecturer    auth.Identity
	other       auth.Identity
	coordinator auth.Identity
	manager     auth.Identity
	hr          auth.Identity
}

func identityOf(u *models.User) auth.Identity {
	return auth.Identity{UserID: u.ID, Role: u.Role, DisplayName: u.DisplayName()}
}

func seedUser(t *testing.T, store storage.Backend, first, email string, role models.UserRole, rate string) *models.User {
	t.Helper()
	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)
	u := &models.User{
		FirstName:    first,
		LastName:     "Test",
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		HourlyRate:   decimal.RequireFromString(rate),
	}
	require.NoError(t, store.CreateUser(context.Background(), u))
	return u
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, func(m *storage.MemoryStore) storage.Backend { return m })
}

// newFixtureWith lets a test wrap the memory store before the service sees it.
func newFixtureWith(t *testing.T, wrap func(*storage.MemoryStore) storage.Backend) *fixture {
	t.Helper()
	store := storage.NewMemoryStore("memory")
	fs := afero.NewMemMapFs()
	clock := &stepClock{now: baseTime}

	f := &fixture{store: store, fs: fs}
	f.lecturer = identityOf(seedUser(t, store, "Simphiwe", "lecturer@cmcs.test", models.RoleLecturer, "250.00"))
	f.other = identityOf(seedUser(t, store, "Other", "other@cmcs.test", models.RoleLecturer, "300.00"))
	f.coordinator = identityOf(seedUser(t, store, "Nolan", "coordinator@cmcs.test", models.RoleCoordinator, "0"))
	f.manager = identityOf(seedUser(t, store, "Cole", "manager@cmcs.test", models.RoleManager, "0"))
	f.hr = identityOf(seedUser(t, store, "Lionel", "hr@cmcs.test", models.RoleHR, "0"))

	docs := document.NewHandler(document.NewFileStore(fs, "/docs"))
	f.svc = NewService(wrap(store), docs, WithClock(clock.Now), WithLogger(logger.NewNop()))
	f.svc.casBackoff = time.Millisecond
	return f
}

func hours(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (f *fixture) submit(t *testing.T, actor auth.Identity, h string) *models.Claim {
	t.Helper()
	c, err := f.svc.Submit(context.Background(), actor, SubmitInput{HoursWorked: hours(h), Month: 3, Year: 2025})
	require.NoError(t, err)
	return c
}

func statuses(entries []models.AuditEntry) []models.ClaimStatus {
	out := make([]models.ClaimStatus, len(entries))
	for i, e := range entries {
		out[i] = e.Status
	}
	return out
}
