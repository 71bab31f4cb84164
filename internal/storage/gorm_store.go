package storage

import (
	"context"
	"errors"
	"fmt"

	"cmcs-backend/internal/models"

	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore is a Backend over any GORM dialect. Postgres is the production
// primary; SQLite serves as an on-disk secondary and in tests.
type GormStore struct {
	name string
	db   *gorm.DB
}

func NewGormStore(name string, db *gorm.DB) *GormStore {
	return &GormStore{name: name, db: db}
}

func (s *GormStore) Name() string {
	return s.name
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return s.wrap("ping", err)
	}
	return s.wrap("ping", sqlDB.PingContext(ctx))
}

// wrap translates driver errors into business sentinels and marks everything
// else as a BackendError.
func (s *GormStore) wrap(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case IsBusiness(err):
		return fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, ErrDuplicateEmail)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%s: %w", op, ErrInUse)
	case errors.Is(err, gorm.ErrCheckConstraintViolated), errors.Is(err, gorm.ErrInvalidData), isSQLiteCheck(err):
		return fmt.Errorf("%s: %w: %v", op, ErrInvalidData, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w", op, err)
	}
	return &BackendError{Backend: s.name, Op: op, Err: err}
}

// isSQLiteCheck matches CHECK failures, which the sqlite dialect leaves untranslated.
func isSQLiteCheck(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintCheck
}

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).Where("email = ?", user.Email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicateEmail
		}
		return tx.Create(user).Error
	})
	return s.wrap("create user", err)
}

func (s *GormStore) UpdateUser(ctx context.Context, user *models.User) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.User
		if err := tx.First(&existing, user.ID).Error; err != nil {
			return err
		}
		if existing.Email != user.Email {
			var n int64
			if err := tx.Model(&models.User{}).
				Where("email = ? AND id <> ?", user.Email, user.ID).
				Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return ErrDuplicateEmail
			}
		}
		return tx.Model(&existing).Select(
			"FirstName", "LastName", "Email", "Role", "HourlyRate", "PasswordHash",
		).Updates(user).Error
	})
	return s.wrap("update user", err)
}

func (s *GormStore) DeleteUser(ctx context.Context, id uint, protected models.UserRole) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, id).Error; err != nil {
			return err
		}

		if protected != "" && user.Role == protected {
			// Lock every holder so two concurrent deletes cannot both see a count of two.
			var holders []models.User
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("role = ?", protected).
				Find(&holders).Error; err != nil {
				return err
			}
			if len(holders) <= 1 {
				return ErrLastOfRole
			}
		}

		var claims int64
		if err := tx.Model(&models.Claim{}).Where("user_id = ?", id).Count(&claims).Error; err != nil {
			return err
		}
		if claims > 0 {
			return ErrInUse
		}

		return tx.Delete(&models.User{}, id).Error
	})
	return s.wrap("delete user", err)
}

func (s *GormStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, s.wrap("get user", err)
	}
	return &user, nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, s.wrap("get user by email", err)
	}
	return &user, nil
}

func (s *GormStore) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("last_name ASC, first_name ASC, id ASC").Find(&users).Error; err != nil {
		return nil, s.wrap("list users", err)
	}
	return users, nil
}

func (s *GormStore) CreateClaim(ctx context.Context, claim *models.Claim, first *models.AuditEntry) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim.History = nil
		if err := tx.Omit(clause.Associations).Create(claim).Error; err != nil {
			return err
		}
		first.ClaimID = claim.ID
		return tx.Create(first).Error
	})
	if err != nil {
		return s.wrap("create claim", err)
	}
	claim.History = []models.AuditEntry{*first}
	return nil
}

func (s *GormStore) TransitionClaim(ctx context.Context, t Transition) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{"status": t.To}
		if t.CoordinatorApprovedAt != nil {
			updates["coordinator_approved_at"] = *t.CoordinatorApprovedAt
		}
		if t.ManagerApprovedAt != nil {
			updates["manager_approved_at"] = *t.ManagerApprovedAt
		}

		res := tx.Model(&models.Claim{}).
			Where("id = ? AND status = ?", t.ClaimID, t.From).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&models.Claim{}).Where("id = ?", t.ClaimID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return ErrNotFound
			}
			return ErrConflict
		}

		entry := t.Entry
		entry.ID = 0
		entry.ClaimID = t.ClaimID
		return tx.Create(&entry).Error
	})
	return s.wrap("transition claim", err)
}

func (s *GormStore) withRelations(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("User").
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		})
}

func (s *GormStore) GetClaim(ctx context.Context, id uint) (*models.Claim, error) {
	var claim models.Claim
	if err := s.withRelations(ctx).First(&claim, id).Error; err != nil {
		return nil, s.wrap("get claim", err)
	}
	return &claim, nil
}

func (s *GormStore) ListClaims(ctx context.Context, q ClaimQuery) ([]models.Claim, error) {
	dbq := s.withRelations(ctx).Model(&models.Claim{})
	if q.OwnerID != 0 {
		dbq = dbq.Where("user_id = ?", q.OwnerID)
	}
	if q.Status != "" {
		dbq = dbq.Where("status = ?", q.Status)
	}
	if q.Month != 0 {
		dbq = dbq.Where("month = ?", q.Month)
	}
	if q.Year != 0 {
		dbq = dbq.Where("year = ?", q.Year)
	}

	switch q.Order {
	case OrderSubmittedAsc:
		dbq = dbq.Order("submitted_at ASC, id ASC")
	case OrderCoordinatorApprovedAsc:
		dbq = dbq.Order("coordinator_approved_at ASC, id ASC")
	default:
		dbq = dbq.Order("submitted_at DESC, id DESC")
	}

	var claims []models.Claim
	if err := dbq.Find(&claims).Error; err != nil {
		return nil, s.wrap("list claims", err)
	}
	return claims, nil
}
