package storage

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"cmcs-backend/internal/logger"
	"cmcs-backend/internal/metrics"
	"cmcs-backend/internal/models"
)

const (
	primaryIdx   int32 = 0
	secondaryIdx int32 = 1
)

// Resilient presents two backends as one. The active backend is chosen once at
// construction by probing the primary and afterwards only changes when an
// operation hits a backend failure. Data written to one backend is never
// copied to the other.
type Resilient struct {
	backends     [2]Backend
	active       atomic.Int32
	probeTimeout time.Duration
	log          logger.Logger
}

type Option func(*Resilient)

func WithLogger(l logger.Logger) Option {
	return func(r *Resilient) { r.log = l }
}

func WithProbeTimeout(d time.Duration) Option {
	return func(r *Resilient) { r.probeTimeout = d }
}

// NewResilient probes primary once and selects the active backend.
func NewResilient(ctx context.Context, primary, secondary Backend, opts ...Option) *Resilient {
	r := &Resilient{
		backends:     [2]Backend{primary, secondary},
		probeTimeout: 3 * time.Second,
		log:          logger.FromContext(ctx),
	}
	for _, opt := range opts {
		opt(r)
	}

	probeCtx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()
	if err := primary.Ping(probeCtx); err != nil {
		r.active.Store(secondaryIdx)
		r.log.Warn("primary backend unavailable at startup",
			"primary", primary.Name(), "using", secondary.Name(), "err", err)
	} else {
		r.active.Store(primaryIdx)
		r.log.Info("primary backend available", "using", primary.Name())
	}
	r.publishActive()
	return r
}

// Active returns the backend currently serving requests.
func (r *Resilient) Active() Backend {
	return r.backends[r.active.Load()]
}

func (r *Resilient) Name() string {
	return "resilient"
}

func (r *Resilient) publishActive() {
	idx := r.active.Load()
	for i, b := range r.backends {
		v := 0.0
		if int32(i) == idx {
			v = 1
		}
		metrics.ActiveBackend.WithLabelValues(b.Name()).Set(v)
	}
}

// failover switches away from the backend at idx unless another caller already did.
func (r *Resilient) failover(idx int32, op string, cause error) {
	next := 1 - idx
	if !r.active.CompareAndSwap(idx, next) {
		return
	}
	from, to := r.backends[idx].Name(), r.backends[next].Name()
	metrics.BackendFailovers.WithLabelValues(from, to).Inc()
	r.publishActive()
	r.log.Warn("storage failover", "op", op, "from", from, "to", to, "err", cause)
}

func (r *Resilient) observe(idx int32, op string, err error) {
	metrics.BackendOperations.
		WithLabelValues(r.backends[idx].Name(), op, metrics.Result(err, IsBackendFailure(err))).
		Inc()
}

// execute runs fn against the active backend. On a backend failure it flips
// the selector once and repeats fn against the other backend; a second
// failure surfaces as ErrUnavailable.
func execute[T any](ctx context.Context, r *Resilient, op string, fn func(Backend) (T, error)) (T, error) {
	idx := r.active.Load()
	res, err := fn(r.backends[idx])
	r.observe(idx, op, err)
	if !IsBackendFailure(err) {
		return res, err
	}
	if ctx.Err() != nil {
		var zero T
		return zero, fmt.Errorf("%s: %w", op, ctx.Err())
	}

	r.failover(idx, op, err)
	next := 1 - idx
	res, err = fn(r.backends[next])
	r.observe(next, op, err)
	if IsBackendFailure(err) {
		var zero T
		return zero, fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
	return res, err
}

func execute0(ctx context.Context, r *Resilient, op string, fn func(Backend) error) error {
	_, err := execute(ctx, r, op, func(b Backend) (struct{}, error) {
		return struct{}{}, fn(b)
	})
	return err
}

func (r *Resilient) Ping(ctx context.Context) error {
	return r.Active().Ping(ctx)
}

func (r *Resilient) CreateUser(ctx context.Context, user *models.User) error {
	return execute0(ctx, r, "create user", func(b Backend) error {
		// Each attempt works on a copy so a failed attempt cannot leak an id.
		attempt := *user
		if err := b.CreateUser(ctx, &attempt); err != nil {
			return err
		}
		*user = attempt
		return nil
	})
}

func (r *Resilient) UpdateUser(ctx context.Context, user *models.User) error {
	return execute0(ctx, r, "update user", func(b Backend) error {
		return b.UpdateUser(ctx, user)
	})
}

func (r *Resilient) DeleteUser(ctx context.Context, id uint, protected models.UserRole) error {
	return execute0(ctx, r, "delete user", func(b Backend) error {
		return b.DeleteUser(ctx, id, protected)
	})
}

func (r *Resilient) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return execute(ctx, r, "get user", func(b Backend) (*models.User, error) {
		return b.GetUser(ctx, id)
	})
}

func (r *Resilient) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return execute(ctx, r, "get user by email", func(b Backend) (*models.User, error) {
		return b.GetUserByEmail(ctx, email)
	})
}

func (r *Resilient) ListUsers(ctx context.Context) ([]models.User, error) {
	return execute(ctx, r, "list users", func(b Backend) ([]models.User, error) {
		return b.ListUsers(ctx)
	})
}

func (r *Resilient) CreateClaim(ctx context.Context, claim *models.Claim, first *models.AuditEntry) error {
	return execute0(ctx, r, "create claim", func(b Backend) error {
		c, e := *claim, *first
		if err := b.CreateClaim(ctx, &c, &e); err != nil {
			return err
		}
		*claim, *first = c, e
		return nil
	})
}

func (r *Resilient) TransitionClaim(ctx context.Context, t Transition) error {
	return execute0(ctx, r, "transition claim", func(b Backend) error {
		return b.TransitionClaim(ctx, t)
	})
}

func (r *Resilient) GetClaim(ctx context.Context, id uint) (*models.Claim, error) {
	return execute(ctx, r, "get claim", func(b Backend) (*models.Claim, error) {
		return b.GetClaim(ctx, id)
	})
}

func (r *Resilient) ListClaims(ctx context.Context, q ClaimQuery) ([]models.Claim, error) {
	return execute(ctx, r, "list claims", func(b Backend) ([]models.Claim, error) {
		return b.ListClaims(ctx, q)
	})
}
