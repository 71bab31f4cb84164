package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cmcs-backend/internal/models"
)

// Business results. Backends return these (possibly wrapped) for outcomes that
// are decided by the data, not by the health of the store.
var (
	ErrNotFound       = errors.New("record not found")
	ErrConflict       = errors.New("concurrent modification")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrLastOfRole     = errors.New("user is the last holder of a protected role")
	ErrInUse          = errors.New("record is still referenced")
	ErrInvalidData    = errors.New("data rejected by store constraints")
)

// ErrUnavailable is returned by Resilient when both backends failed one operation.
var ErrUnavailable = errors.New("storage unavailable")

var businessErrors = []error{ErrNotFound, ErrConflict, ErrDuplicateEmail, ErrLastOfRole, ErrInUse, ErrInvalidData}

// BackendError wraps a transport or driver level failure of a single backend.
type BackendError struct {
	Backend string
	Op      string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// IsBusiness reports whether err carries one of the business results above.
func IsBusiness(err error) bool {
	for _, target := range businessErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsBackendFailure reports whether err should trigger a failover: any error that
// is not a business result and not a caller cancellation.
func IsBackendFailure(err error) bool {
	if err == nil || IsBusiness(err) {
		return false
	}
	return !errors.Is(err, context.Canceled)
}

// ClaimOrder selects the sort order of ListClaims.
type ClaimOrder int

const (
	OrderSubmittedDesc ClaimOrder = iota
	OrderSubmittedAsc
	OrderCoordinatorApprovedAsc
)

// ClaimQuery filters ListClaims. Zero values mean "any".
type ClaimQuery struct {
	OwnerID uint
	Status  models.ClaimStatus
	Month   int
	Year    int
	Order   ClaimOrder
}

// Transition is a conditional status change applied together with its audit entry.
// It only applies while the stored status still equals From.
type Transition struct {
	ClaimID               uint
	From                  models.ClaimStatus
	To                    models.ClaimStatus
	CoordinatorApprovedAt *time.Time
	ManagerApprovedAt     *time.Time
	Entry                 models.AuditEntry
}

// Backend is the capability set every physical store implements.
//
// CreateClaim and TransitionClaim are single logical writes: the claim row and
// its audit entry are applied together or not at all. TransitionClaim returns
// ErrNotFound when the claim does not exist and ErrConflict when its status is
// no longer Transition.From.
//
// DeleteUser refuses with ErrLastOfRole when the user holds the protected role
// and nobody else does, and with ErrInUse when claims still reference the user.
type Backend interface {
	Name() string
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id uint, protected models.UserRole) error
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)

	CreateClaim(ctx context.Context, claim *models.Claim, first *models.AuditEntry) error
	TransitionClaim(ctx context.Context, t Transition) error
	GetClaim(ctx context.Context, id uint) (*models.Claim, error)
	ListClaims(ctx context.Context, q ClaimQuery) ([]models.Claim, error)
}

var (
	_ Backend = (*GormStore)(nil)
	_ Backend = (*MemoryStore)(nil)
	_ Backend = (*Resilient)(nil)
)
