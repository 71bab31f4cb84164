package workflow

import (
	"context"

	"cmcs-backend/internal/auth"
	"cmcs-backend/internal/document"
	"cmcs-backend/internal/models"
	"cmcs-backend/internal/storage"
)

// OwnClaims lists the acting lecturer's claims, newest first.
func (s *Service) OwnClaims(ctx context.Context, actor auth.Identity) ([]models.Claim, error) {
	if !auth.IsAuthorized(actor.Role, models.RoleLecturer) {
		return nil, forbidden()
	}
	claims, err := s.store.ListClaims(ctx, storage.ClaimQuery{OwnerID: actor.UserID, Order: storage.OrderSubmittedDesc})
	return claims, fromStorage(err, KindClaimNotFound)
}

// Queue lists the claims waiting at stage, oldest first.
func (s *Service) Queue(ctx context.Context, actor auth.Identity, stage Stage) ([]models.Claim, error) {
	if !auth.IsAuthorized(actor.Role, stage.Role) {
		return nil, forbidden()
	}
	order := storage.OrderSubmittedAsc
	if stage.From == models.StatusApprovedByCoordinator {
		order = storage.OrderCoordinatorApprovedAsc
	}
	claims, err := s.store.ListClaims(ctx, storage.ClaimQuery{Status: stage.From, Order: order})
	return claims, fromStorage(err, KindClaimNotFound)
}

// Claim returns one claim. Lecturers may only see their own.
func (s *Service) Claim(ctx context.Context, actor auth.Identity, id uint) (*models.Claim, error) {
	if !actor.Role.Valid() {
		return nil, forbidden()
	}
	claim, err := s.store.GetClaim(ctx, id)
	if err != nil {
		return nil, fromStorage(err, KindClaimNotFound)
	}
	if actor.Role == models.RoleLecturer && claim.UserID != actor.UserID {
		return nil, forbidden()
	}
	return claim, nil
}

// History returns the audit trail of a claim under the same access rule as Claim.
func (s *Service) History(ctx context.Context, actor auth.Identity, id uint) ([]models.AuditEntry, error) {
	claim, err := s.Claim(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return claim.History, nil
}

// Document returns the supporting document of a claim.
func (s *Service) Document(ctx context.Context, actor auth.Identity, id uint) (*document.Download, error) {
	claim, err := s.Claim(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !claim.HasDocument() {
		return nil, newError(KindDocumentNotFound, notFoundMessage(KindDocumentNotFound), nil)
	}
	data, err := s.docs.Open(ctx, claim.DocumentKey)
	if err != nil {
		return nil, fromStorage(err, KindDocumentNotFound)
	}
	return &document.Download{
		Name:        claim.DocumentName,
		ContentType: claim.DocumentContentType,
		Data:        data,
	}, nil
}

// ReportFilter narrows the HR claims report. Zero values mean "any".
type ReportFilter struct {
	Month  int
	Year   int
	Status models.ClaimStatus
}

// Report lists claims for HR, newest first.
func (s *Service) Report(ctx context.Context, actor auth.Identity, f ReportFilter) ([]models.Claim, error) {
	if !auth.IsAuthorized(actor.Role, models.RoleHR) {
		return nil, forbidden()
	}
	var violations []Violation
	if f.Month != 0 && (f.Month < 1 || f.Month > 12) {
		violations = append(violations, Violation{Field: "month", Message: messages["month.min"]})
	}
	if f.Year != 0 && (f.Year < 2000 || f.Year > 2100) {
		violations = append(violations, Violation{Field: "year", Message: messages["year.min"]})
	}
	if f.Status != "" && !f.Status.Valid() {
		violations = append(violations, Violation{Field: "status", Message: "Unknown claim status."})
	}
	if len(violations) > 0 {
		return nil, validationError(violations)
	}

	claims, err := s.store.ListClaims(ctx, storage.ClaimQuery{
		Status: f.Status,
		Month:  f.Month,
		Year:   f.Year,
		Order:  storage.OrderSubmittedDesc,
	})
	return claims, fromStorage(err, KindClaimNotFound)
}
