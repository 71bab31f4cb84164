package workflow

import (
	"context"
	"errors"
	"strings"

	"cmcs-backend/internal/auth"
	"cmcs-backend/internal/models"
	"cmcs-backend/internal/storage"
)

// cleanEmail trims surrounding whitespace. Addresses are otherwise matched exactly.
func cleanEmail(email string) string {
	return strings.TrimSpace(email)
}

func (s *Service) requireHR(actor auth.Identity) error {
	if !auth.IsAuthorized(actor.Role, models.RoleHR) {
		return forbidden()
	}
	return nil
}

func (s *Service) ListUsers(ctx context.Context, actor auth.Identity) ([]models.User, error) {
	if err := s.requireHR(actor); err != nil {
		return nil, err
	}
	users, err := s.store.ListUsers(ctx)
	return users, fromStorage(err, KindUserNotFound)
}

func (s *Service) GetUser(ctx context.Context, actor auth.Identity, id uint) (*models.User, error) {
	if err := s.requireHR(actor); err != nil {
		return nil, err
	}
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, fromStorage(err, KindUserNotFound)
	}
	return user, nil
}

func (s *Service) GetUserByEmail(ctx context.Context, actor auth.Identity, email string) (*models.User, error) {
	if err := s.requireHR(actor); err != nil {
		return nil, err
	}
	user, err := s.store.GetUserByEmail(ctx, cleanEmail(email))
	if err != nil {
		return nil, fromStorage(err, KindUserNotFound)
	}
	return user, nil
}

// CreateUser registers a new account. Rates of non-lecturers are stored as zero.
func (s *Service) CreateUser(ctx context.Context, actor auth.Identity, in UserInput) (*models.User, error) {
	if err := s.requireHR(actor); err != nil {
		return nil, err
	}
	in.Email = cleanEmail(in.Email)
	if violations := s.validateUser(in, true); len(violations) > 0 {
		return nil, validationError(violations)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, newError(KindValidationFailed, err.Error(), err)
	}
	now := s.now()
	user := &models.User{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		HourlyRate:   in.HourlyRate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	user.NormalizeRate()

	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, fromStorage(err, KindUserNotFound)
	}
	s.log.Info("user created", "user_id", user.ID, "role", string(user.Role), "by", actor.DisplayName)
	return user, nil
}

// UpdateUser replaces the editable fields. The password only changes when a new one is given.
func (s *Service) UpdateUser(ctx context.Context, actor auth.Identity, id uint, in UserInput) (*models.User, error) {
	if err := s.requireHR(actor); err != nil {
		return nil, err
	}
	in.Email = cleanEmail(in.Email)
	if violations := s.validateUser(in, false); len(violations) > 0 {
		return nil, validationError(violations)
	}

	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, fromStorage(err, KindUserNotFound)
	}
	user.FirstName = strings.TrimSpace(in.FirstName)
	user.LastName = strings.TrimSpace(in.LastName)
	user.Email = in.Email
	user.Role = in.Role
	user.HourlyRate = in.HourlyRate
	user.NormalizeRate()
	user.UpdatedAt = s.now()
	if in.Password != "" {
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return nil, newError(KindValidationFailed, err.Error(), err)
		}
		user.PasswordHash = hash
	}

	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, fromStorage(err, KindUserNotFound)
	}
	s.log.Info("user updated", "user_id", user.ID, "by", actor.DisplayName)
	return user, nil
}

// DeleteUser removes an account. The last HR user cannot be removed.
func (s *Service) DeleteUser(ctx context.Context, actor auth.Identity, id uint) error {
	if err := s.requireHR(actor); err != nil {
		return err
	}
	if err := s.store.DeleteUser(ctx, id, models.RoleHR); err != nil {
		return fromStorage(err, KindUserNotFound)
	}
	s.log.Info("user deleted", "user_id", id, "by", actor.DisplayName)
	return nil
}

var errBadCredentials = errors.New("invalid credentials")

// Authenticate checks an email and password pair.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.store.GetUserByEmail(ctx, cleanEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, newError(KindUnauthenticated, "Invalid email or password.", errBadCredentials)
		}
		return nil, fromStorage(err, KindUserNotFound)
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, newError(KindUnauthenticated, "Invalid email or password.", errBadCredentials)
	}
	return user, nil
}
