package storage

import (
	"context"
	"sort"
	"sync"

	"cmcs-backend/internal/models"
)

// MemoryStore is a process-local Backend. Every write is applied under one
// lock, so a claim and its audit entry become visible together.
type MemoryStore struct {
	name string

	mu        sync.RWMutex
	users     map[uint]models.User
	claims    map[uint]models.Claim
	entries   map[uint][]models.AuditEntry
	nextUser  uint
	nextClaim uint
	nextEntry uint
}

func NewMemoryStore(name string) *MemoryStore {
	return &MemoryStore{
		name:    name,
		users:   make(map[uint]models.User),
		claims:  make(map[uint]models.Claim),
		entries: make(map[uint][]models.AuditEntry),
	}
}

func (m *MemoryStore) Name() string {
	return m.name
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryStore) emailTaken(email string, except uint) bool {
	for id, u := range m.users {
		if id != except && u.Email == email {
			return true
		}
	}
	return false
}

func (m *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.emailTaken(user.Email, 0) {
		return ErrDuplicateEmail
	}
	if user.ID == 0 {
		m.nextUser++
		user.ID = m.nextUser
	} else if _, exists := m.users[user.ID]; exists {
		return ErrDuplicateEmail
	} else if user.ID > m.nextUser {
		m.nextUser = user.ID
	}
	m.users[user.ID] = *user
	return nil
}

func (m *MemoryStore) UpdateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.users[user.ID]
	if !ok {
		return ErrNotFound
	}
	if existing.Email != user.Email && m.emailTaken(user.Email, user.ID) {
		return ErrDuplicateEmail
	}
	existing.FirstName = user.FirstName
	existing.LastName = user.LastName
	existing.Email = user.Email
	existing.Role = user.Role
	existing.HourlyRate = user.HourlyRate
	existing.PasswordHash = user.PasswordHash
	existing.UpdatedAt = user.UpdatedAt
	m.users[user.ID] = existing
	return nil
}

func (m *MemoryStore) DeleteUser(_ context.Context, id uint, protected models.UserRole) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	if protected != "" && user.Role == protected {
		holders := 0
		for _, u := range m.users {
			if u.Role == protected {
				holders++
			}
		}
		if holders <= 1 {
			return ErrLastOfRole
		}
	}
	for _, c := range m.claims {
		if c.UserID == id {
			return ErrInUse
		}
	}
	delete(m.users, id)
	return nil
}

func (m *MemoryStore) GetUser(_ context.Context, id uint) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ListUsers(_ context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		a, b := users[i], users[j]
		if a.LastName != b.LastName {
			return a.LastName < b.LastName
		}
		if a.FirstName != b.FirstName {
			return a.FirstName < b.FirstName
		}
		return a.ID < b.ID
	})
	return users, nil
}

func (m *MemoryStore) CreateClaim(_ context.Context, claim *models.Claim, first *models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[claim.UserID]; !ok {
		return ErrNotFound
	}

	m.nextClaim++
	m.nextEntry++
	claim.ID = m.nextClaim
	first.ID = m.nextEntry
	first.ClaimID = claim.ID

	stored := *claim
	stored.User = nil
	stored.History = nil
	m.claims[claim.ID] = stored
	m.entries[claim.ID] = []models.AuditEntry{*first}

	claim.History = []models.AuditEntry{*first}
	return nil
}

func (m *MemoryStore) TransitionClaim(_ context.Context, t Transition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	claim, ok := m.claims[t.ClaimID]
	if !ok {
		return ErrNotFound
	}
	if claim.Status != t.From {
		return ErrConflict
	}

	claim.Status = t.To
	if t.CoordinatorApprovedAt != nil {
		at := *t.CoordinatorApprovedAt
		claim.CoordinatorApprovedAt = &at
	}
	if t.ManagerApprovedAt != nil {
		at := *t.ManagerApprovedAt
		claim.ManagerApprovedAt = &at
	}

	m.nextEntry++
	entry := t.Entry
	entry.ID = m.nextEntry
	entry.ClaimID = t.ClaimID

	m.claims[t.ClaimID] = claim
	m.entries[t.ClaimID] = append(m.entries[t.ClaimID], entry)
	return nil
}

// hydrate returns a detached copy of the claim with owner and history attached.
// Callers must hold at least the read lock.
func (m *MemoryStore) hydrate(c models.Claim) models.Claim {
	if u, ok := m.users[c.UserID]; ok {
		owner := u
		c.User = &owner
	}
	history := m.entries[c.ID]
	c.History = make([]models.AuditEntry, len(history))
	copy(c.History, history)
	if c.CoordinatorApprovedAt != nil {
		at := *c.CoordinatorApprovedAt
		c.CoordinatorApprovedAt = &at
	}
	if c.ManagerApprovedAt != nil {
		at := *c.ManagerApprovedAt
		c.ManagerApprovedAt = &at
	}
	return c
}

func (m *MemoryStore) GetClaim(_ context.Context, id uint) (*models.Claim, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.claims[id]
	if !ok {
		return nil, ErrNotFound
	}
	claim := m.hydrate(c)
	return &claim, nil
}

func (m *MemoryStore) ListClaims(_ context.Context, q ClaimQuery) ([]models.Claim, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	claims := make([]models.Claim, 0)
	for _, c := range m.claims {
		if q.OwnerID != 0 && c.UserID != q.OwnerID {
			continue
		}
		if q.Status != "" && c.Status != q.Status {
			continue
		}
		if q.Month != 0 && c.Month != q.Month {
			continue
		}
		if q.Year != 0 && c.Year != q.Year {
			continue
		}
		claims = append(claims, m.hydrate(c))
	}

	sort.Slice(claims, func(i, j int) bool {
		a, b := claims[i], claims[j]
		switch q.Order {
		case OrderSubmittedAsc:
			if !a.SubmittedAt.Equal(b.SubmittedAt) {
				return a.SubmittedAt.Before(b.SubmittedAt)
			}
			return a.ID < b.ID
		case OrderCoordinatorApprovedAsc:
			at, bt := a.CoordinatorApprovedAt, b.CoordinatorApprovedAt
			switch {
			case at == nil && bt == nil:
				return a.ID < b.ID
			case at == nil:
				return false
			case bt == nil:
				return true
			case !at.Equal(*bt):
				return at.Before(*bt)
			}
			return a.ID < b.ID
		default:
			if !a.SubmittedAt.Equal(b.SubmittedAt) {
				return a.SubmittedAt.After(b.SubmittedAt)
			}
			return a.ID > b.ID
		}
	})
	return claims, nil
}
