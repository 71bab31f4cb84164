package workflow

import (
	"context"
	"errors"
	"strings"
	"time"

	"cmcs-backend/internal/auth"
	"cmcs-backend/internal/document"
	"cmcs-backend/internal/logger"
	"cmcs-backend/internal/metrics"
	"cmcs-backend/internal/models"
	"cmcs-backend/internal/storage"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-retry"
)

// Documents stores and serves supporting documents.
type Documents interface {
	ValidateAndStore(ctx context.Context, u document.Upload) (*document.Stored, error)
	Open(ctx context.Context, key string) ([]byte, error)
	Discard(ctx context.Context, key string) error
}

// Clock returns the current time.
type Clock func() time.Time

type Service struct {
	store    storage.Backend
	docs     Documents
	now      Clock
	log      logger.Logger
	validate *validator.Validate
	// casBackoff spaces the single re-read after a lost compare-and-set.
	casBackoff time.Duration
}

type Option func(*Service)

func WithClock(c Clock) Option {
	return func(s *Service) { s.now = c }
}

func WithLogger(l logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

func NewService(store storage.Backend, docs Documents, opts ...Option) *Service {
	s := &Service{
		store:      store,
		docs:       docs,
		now:        func() time.Time { return time.Now().UTC() },
		log:        logger.GetDefault(),
		validate:   newValidator(),
		casBackoff: 5 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit records a new claim for the acting lecturer.
func (s *Service) Submit(ctx context.Context, actor auth.Identity, in SubmitInput) (*models.Claim, error) {
	if !auth.IsAuthorized(actor.Role, models.RoleLecturer) {
		return nil, forbidden()
	}
	if violations := s.validateSubmission(in); len(violations) > 0 {
		return nil, validationError(violations)
	}

	user, err := s.store.GetUser(ctx, actor.UserID)
	if err != nil {
		return nil, fromStorage(err, KindUserNotFound)
	}

	now := s.now()
	claim := &models.Claim{
		UserID:      user.ID,
		Month:       in.Month,
		Year:        in.Year,
		HoursWorked: in.HoursWorked,
		HourlyRate:  user.HourlyRate,
		TotalAmount: in.HoursWorked.Mul(user.HourlyRate),
		Notes:       strings.TrimSpace(in.Notes),
		Status:      models.StatusPending,
		SubmittedAt: now,
	}

	if in.Attachment != nil {
		stored, err := s.docs.ValidateAndStore(ctx, *in.Attachment)
		if err != nil {
			return nil, fromStorage(err, KindDocumentNotFound)
		}
		claim.DocumentName = stored.Name
		claim.DocumentKey = stored.Key
		claim.DocumentContentType = stored.ContentType
		claim.DocumentSize = stored.Size
	}

	entry := &models.AuditEntry{
		Status:    models.StatusPending,
		ActionBy:  user.DisplayName(),
		Notes:     submittedNote,
		CreatedAt: now,
	}
	if err := s.store.CreateClaim(ctx, claim, entry); err != nil {
		if claim.HasDocument() {
			if derr := s.docs.Discard(context.WithoutCancel(ctx), claim.DocumentKey); derr != nil {
				s.log.Warn("discard orphaned document", "key", claim.DocumentKey, "err", derr)
			}
		}
		return nil, fromStorage(err, KindUserNotFound)
	}
	claim.User = user

	metrics.Transitions.WithLabelValues(string(models.StatusPending)).Inc()
	s.log.Info("claim submitted", "claim_id", claim.ID, "user_id", user.ID,
		"period", claim.Period(), "total", claim.TotalAmount.StringFixed(2))
	return claim, nil
}

func (s *Service) Approve(ctx context.Context, actor auth.Identity, stage Stage, claimID uint, notes string) (*models.Claim, error) {
	return s.transition(ctx, actor, stage, ActionApprove, claimID, notes)
}

func (s *Service) Reject(ctx context.Context, actor auth.Identity, stage Stage, claimID uint, notes string) (*models.Claim, error) {
	return s.transition(ctx, actor, stage, ActionReject, claimID, notes)
}

// transition applies action at stage with compare-and-set on the current
// status. A lost race re-reads the claim once before giving up.
func (s *Service) transition(ctx context.Context, actor auth.Identity, stage Stage, action Action, claimID uint, notes string) (*models.Claim, error) {
	if !auth.IsAuthorized(actor.Role, stage.Role) {
		return nil, forbidden()
	}
	notes = strings.TrimSpace(notes)
	if action == ActionApprove && notes == "" {
		notes = defaultApproveNote(stage)
	}

	var result *models.Claim
	backoff := retry.WithMaxRetries(1, retry.NewConstant(s.casBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		claim, err := s.store.GetClaim(ctx, claimID)
		if err != nil {
			return fromStorage(err, KindClaimNotFound)
		}
		if action == ActionReject && notes == "" {
			return validationError([]Violation{{Field: "notes", Message: "Rejection notes are required."}})
		}

		to, role, ok := Next(claim.Status, action)
		if !ok || role != stage.Role || claim.Status != stage.From {
			return newError(KindInvalidTransition,
				"Claim in status "+string(claim.Status)+" cannot be "+pastTense(action)+" at the "+stage.Name+" stage.", nil)
		}

		now := s.now()
		t := storage.Transition{
			ClaimID: claim.ID,
			From:    claim.Status,
			To:      to,
			Entry: models.AuditEntry{
				Status:    to,
				ActionBy:  actor.DisplayName,
				Notes:     notes,
				CreatedAt: now,
			},
		}
		switch to {
		case models.StatusApprovedByCoordinator:
			t.CoordinatorApprovedAt = &now
		case models.StatusApproved:
			t.ManagerApprovedAt = &now
		}

		if err := s.store.TransitionClaim(ctx, t); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				return retry.RetryableError(fromStorage(err, KindClaimNotFound))
			}
			return fromStorage(err, KindClaimNotFound)
		}

		claim.Status = to
		if t.CoordinatorApprovedAt != nil {
			claim.CoordinatorApprovedAt = t.CoordinatorApprovedAt
		}
		if t.ManagerApprovedAt != nil {
			claim.ManagerApprovedAt = t.ManagerApprovedAt
		}
		claim.History = append(claim.History, t.Entry)
		result = claim
		return nil
	})
	if err != nil {
		if ctx.Err() != nil && KindOf(err) == "" {
			return nil, fromStorage(err, KindClaimNotFound)
		}
		return nil, err
	}

	metrics.Transitions.WithLabelValues(string(result.Status)).Inc()
	s.log.Info("claim transition", "claim_id", result.ID, "stage", stage.Name,
		"action", string(action), "status", string(result.Status), "by", actor.DisplayName)
	return result, nil
}

func pastTense(a Action) string {
	if a == ActionApprove {
		return "approved"
	}
	return "rejected"
}
