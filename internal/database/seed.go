package database

import (
	"context"
	"errors"

	"cmcs-backend/internal/auth"
	"cmcs-backend/internal/logger"
	"cmcs-backend/internal/models"
	"cmcs-backend/internal/storage"

	"github.com/shopspring/decimal"
)

// DefaultPassword is shared by every seeded account.
const DefaultPassword = "password123"

// DefaultUsers is one account per role.
var DefaultUsers = []models.User{
	{FirstName: "Simphiwe", LastName: "Mathenjwa", Email: "lecturer@emeris.co.za", Role: models.RoleLecturer, HourlyRate: decimal.RequireFromString("250.00")},
	{FirstName: "Nolan", LastName: "Wires", Email: "coordinator@emeris.co.za", Role: models.RoleCoordinator},
	{FirstName: "Cole", LastName: "Palmer", Email: "manager@emeris.co.za", Role: models.RoleManager},
	{FirstName: "Lionel", LastName: "Messi", Email: "hr@emeris.co.za", Role: models.RoleHR},
}

// SeedDefaultUsers creates the default accounts that are missing and returns
// how many were created.
func SeedDefaultUsers(ctx context.Context, store storage.Backend) (int, error) {
	log := logger.FromContext(ctx)
	hash, err := auth.HashPassword(DefaultPassword)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, u := range DefaultUsers {
		_, err := store.GetUserByEmail(ctx, u.Email)
		if err == nil {
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return created, err
		}
		user := u
		user.PasswordHash = hash
		user.NormalizeRate()
		if err := store.CreateUser(ctx, &user); err != nil {
			if errors.Is(err, storage.ErrDuplicateEmail) {
				continue
			}
			return created, err
		}
		created++
		log.Info("seeded user", "email", user.Email, "role", string(user.Role), "backend", store.Name())
	}
	return created, nil
}
