package workflow

import (
	"context"
	"sync/atomic"
	"testing"

	"cmcs-backend/internal/document"
	"cmcs-backend/internal/models"
	"cmcs-backend/internal/storage"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF\n")

func TestSubmit_FreezesRateAndTotal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	claim, err := f.svc.Submit(ctx, f.lecturer, SubmitInput{HoursWorked: hours("10.5"), Month: 3, Year: 2025, Notes: "  March  "})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, claim.Status)
	assert.Equal(t, "March", claim.Notes)
	assert.True(t, hours("2625").Equal(claim.TotalAmount), "got %s", claim.TotalAmount)
	assert.True(t, claim.TotalAmount.Equal(claim.HoursWorked.Mul(claim.HourlyRate)))
	require.Len(t, claim.History, 1)
	assert.Equal(t, "Claim submitted", claim.History[0].Notes)
	assert.Equal(t, "Simphiwe Test", claim.History[0].ActionBy)

	_, err = f.svc.UpdateUser(ctx, f.hr, f.lecturer.UserID, UserInput{
		FirstName: "Simphiwe", LastName: "Test", Email: "lecturer@cmcs.test",
		Role: models.RoleLecturer, HourlyRate: hours("400"),
	})
	require.NoError(t, err)

	stored, err := f.svc.Claim(ctx, f.lecturer, claim.ID)
	require.NoError(t, err)
	assert.True(t, hours("250").Equal(stored.HourlyRate))
	assert.True(t, hours("2625").Equal(stored.TotalAmount))
}

func TestSubmit_HoursBoundaries(t *testing.T) {
	cases := []struct {
		hours   string
		wantMsg string
	}{
		{"0", "Hours worked must be greater than 0."},
		{"-5", "Hours worked must be greater than 0."},
		{"181", "Hours worked cannot exceed 180 hours per month."},
		{"180.01", "Hours worked cannot exceed 180 hours per month."},
		{"1.005", "Hours worked can have at most two decimal places."},
		{"180", ""},
		{"0.01", ""},
	}
	for _, tc := range cases {
		t.Run(tc.hours, func(t *testing.T) {
			f := newFixture(t)
			claim, err := f.svc.Submit(context.Background(), f.lecturer, SubmitInput{HoursWorked: hours(tc.hours), Month: 1, Year: 2025})
			if tc.wantMsg == "" {
				require.NoError(t, err)
				assert.NotZero(t, claim.ID)
				return
			}
			require.True(t, IsValidation(err), "got %v", err)
			var we *Error
			require.ErrorAs(t, err, &we)
			require.Len(t, we.Violations, 1)
			assert.Equal(t, "hours_worked", we.Violations[0].Field)
			assert.Equal(t, tc.wantMsg, we.Violations[0].Message)

			claims, _ := f.store.ListClaims(context.Background(), storage.ClaimQuery{})
			assert.Empty(t, claims)
		})
	}
}

func TestSubmit_CollectsEveryViolation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Submit(context.Background(), f.lecturer, SubmitInput{HoursWorked: hours("0"), Month: 13, Year: 1999})

	var we *Error
	require.ErrorAs(t, err, &we)
	require.Len(t, we.Violations, 3)
	assert.Equal(t, "hours_worked", we.Violations[0].Field)
	assert.Equal(t, "month", we.Violations[1].Field)
	assert.Equal(t, "Month must be between 1 and 12.", we.Violations[1].Message)
	assert.Equal(t, "year", we.Violations[2].Field)
}

func TestSubmit_RoleAndUserChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := SubmitInput{HoursWorked: hours("5"), Month: 2, Year: 2025}

	_, err := f.svc.Submit(ctx, f.coordinator, in)
	assert.True(t, IsForbidden(err))

	ghost := f.lecturer
	ghost.UserID = 999
	_, err = f.svc.Submit(ctx, ghost, in)
	assert.Equal(t, KindUserNotFound, KindOf(err))
}

func TestSubmit_WithDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	claim, err := f.svc.Submit(ctx, f.lecturer, SubmitInput{
		HoursWorked: hours("8"), Month: 2, Year: 2025,
		Attachment: &document.Upload{Name: "timesheet.pdf", ContentType: "application/pdf", Data: pdfBytes},
	})
	require.NoError(t, err)
	assert.Equal(t, "timesheet.pdf", claim.DocumentName)
	assert.Equal(t, "application/pdf", claim.DocumentContentType)

	dl, err := f.svc.Document(ctx, f.coordinator, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, pdfBytes, dl.Data)

	_, err = f.svc.Document(ctx, f.other, claim.ID)
	assert.True(t, IsForbidden(err))
}

func TestSubmit_RejectedDocumentWritesNothing(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Submit(context.Background(), f.lecturer, SubmitInput{
		HoursWorked: hours("8"), Month: 2, Year: 2025,
		Attachment: &document.Upload{Name: "payload.exe", Data: pdfBytes},
	})
	require.Equal(t, KindFileRejected, KindOf(err))
	assert.Equal(t, "Only PDF, DOCX, XLSX, JPG, and PNG files are allowed.", err.(*Error).Message)

	claims, _ := f.store.ListClaims(context.Background(), storage.ClaimQuery{})
	assert.Empty(t, claims)
}

// brokenCreate fails every claim insert with a transport error.
type brokenCreate struct {
	*storage.MemoryStore
}

func (b brokenCreate) CreateClaim(context.Context, *models.Claim, *models.AuditEntry) error {
	return &storage.BackendError{Backend: "memory", Op: "create claim", Err: assert.AnError}
}

func TestSubmit_PersistenceFailureDiscardsDocument(t *testing.T) {
	f := newFixtureWith(t, func(m *storage.MemoryStore) storage.Backend { return brokenCreate{m} })

	_, err := f.svc.Submit(context.Background(), f.lecturer, SubmitInput{
		HoursWorked: hours("8"), Month: 2, Year: 2025,
		Attachment: &document.Upload{Name: "timesheet.pdf", Data: pdfBytes},
	})
	require.Equal(t, KindPersistence, KindOf(err))
	assert.NotContains(t, err.Error(), "memory")

	files, err := afero.ReadDir(f.fs, "/docs")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestTransitions_FullPath(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	claim := f.submit(t, f.lecturer, "12")

	c, err := f.svc.Approve(ctx, f.coordinator, CoordinatorStage, claim.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApprovedByCoordinator, c.Status)
	require.NotNil(t, c.CoordinatorApprovedAt)
	assert.Nil(t, c.ManagerApprovedAt)

	c, err = f.svc.Approve(ctx, f.manager, ManagerStage, claim.ID, "ok to pay")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, c.Status)
	require.NotNil(t, c.ManagerApprovedAt)

	other := f.submit(t, f.lecturer, "3")
	_, err = f.svc.Approve(ctx, f.coordinator, CoordinatorStage, other.ID, "")
	require.NoError(t, err)
	c, err = f.svc.Approve(ctx, f.manager, ManagerStage, other.ID, "  ")
	require.NoError(t, err)
	assert.Equal(t, "Approved by Academic Manager", c.LatestEntry().Notes)

	stored, err := f.svc.Claim(ctx, f.hr, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.ClaimStatus{models.StatusPending, models.StatusApprovedByCoordinator, models.StatusApproved}, statuses(stored.History))
	assert.Equal(t, stored.Status, stored.LatestEntry().Status)
	assert.Equal(t, "Approved by Coordinator", stored.History[1].Notes)
	assert.Equal(t, "Nolan Test", stored.History[1].ActionBy)
	assert.Equal(t, "ok to pay", stored.History[2].Notes)
	assert.True(t, stored.History[1].CreatedAt.Before(stored.History[2].CreatedAt))
}

func TestReject_RequiresNotes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	claim := f.submit(t, f.lecturer, "4")

	for _, notes := range []string{"", "   \t"} {
		_, err := f.svc.Reject(ctx, f.coordinator, CoordinatorStage, claim.ID, notes)
		require.True(t, IsValidation(err))
		assert.Equal(t, "Rejection notes are required.", err.(*Error).Violations[0].Message)
	}

	_, err := f.svc.Reject(ctx, f.coordinator, CoordinatorStage, claim.ID+100, "")
	assert.Equal(t, KindClaimNotFound, KindOf(err), "a missing claim is reported before blank notes")

	c, err := f.svc.Reject(ctx, f.coordinator, CoordinatorStage, claim.ID, "missing timesheet")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, c.Status)
	assert.Nil(t, c.CoordinatorApprovedAt)
	assert.Equal(t, []models.ClaimStatus{models.StatusPending, models.StatusRejected}, statuses(c.History))
}

func TestManagerCanRejectAfterCoordinatorApproval(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	claim := f.submit(t, f.lecturer, "4")
	_, err := f.svc.Approve(ctx, f.coordinator, CoordinatorStage, claim.ID, "")
	require.NoError(t, err)

	c, err := f.svc.Reject(ctx, f.manager, ManagerStage, claim.ID, "budget exhausted")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, c.Status)
	assert.NotNil(t, c.CoordinatorApprovedAt)
	assert.Nil(t, c.ManagerApprovedAt)
}

func TestTransitions_InvalidAndForbidden(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	claim := f.submit(t, f.lecturer, "4")

	_, err := f.svc.Approve(ctx, f.manager, ManagerStage, claim.ID, "")
	assert.Equal(t, KindInvalidTransition, KindOf(err), "manager cannot act on a pending claim")

	_, err = f.svc.Approve(ctx, f.lecturer, CoordinatorStage, claim.ID, "")
	assert.True(t, IsForbidden(err))

	_, err = f.svc.Approve(ctx, f.manager, CoordinatorStage, claim.ID, "")
	assert.True(t, IsForbidden(err))

	_, err = f.svc.Approve(ctx, f.coordinator, CoordinatorStage, 999, "")
	assert.Equal(t, KindClaimNotFound, KindOf(err))

	_, err = f.svc.Approve(ctx, f.coordinator, CoordinatorStage, claim.ID, "")
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, f.coordinator, CoordinatorStage, claim.ID, "")
	assert.Equal(t, KindInvalidTransition, KindOf(err), "no reversal or repeat")

	_, err = f.svc.Approve(ctx, f.manager, ManagerStage, claim.ID, "")
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, f.manager, ManagerStage, claim.ID, "")
	assert.Equal(t, KindInvalidTransition, KindOf(err))
	_, err = f.svc.Reject(ctx, f.manager, ManagerStage, claim.ID, "too late")
	assert.Equal(t, KindInvalidTransition, KindOf(err))

	stored, err := f.svc.Claim(ctx, f.hr, claim.ID)
	require.NoError(t, err)
	assert.Len(t, stored.History, 3, "rejected attempts append nothing")
}

// racingStore lets another actor win the first compare-and-set.
type racingStore struct {
	*storage.MemoryStore
	calls     atomic.Int32
	interfere func(ctx context.Context, m *storage.MemoryStore, t storage.Transition) error
}

func (r *racingStore) TransitionClaim(ctx context.Context, t storage.Transition) error {
	if r.calls.Add(1) == 1 && r.interfere != nil {
		if err := r.interfere(ctx, r.MemoryStore, t); err != nil {
			return err
		}
	}
	return r.MemoryStore.TransitionClaim(ctx, t)
}

func TestTransition_LostRaceReportsInvalidTransition(t *testing.T) {
	ctx := context.Background()
	var rs *racingStore
	f := newFixtureWith(t, func(m *storage.MemoryStore) storage.Backend {
		rs = &racingStore{MemoryStore: m}
		return rs
	})
	claim := f.submit(t, f.lecturer, "4")

	rs.interfere = func(ctx context.Context, m *storage.MemoryStore, t storage.Transition) error {
		return m.TransitionClaim(ctx, storage.Transition{
			ClaimID: t.ClaimID, From: models.StatusPending, To: models.StatusRejected,
			Entry: models.AuditEntry{Status: models.StatusRejected, ActionBy: "Someone Else", Notes: "dup"},
		})
	}

	_, err := f.svc.Approve(ctx, f.coordinator, CoordinatorStage, claim.ID, "")
	assert.Equal(t, KindInvalidTransition, KindOf(err))
	assert.Equal(t, int32(1), rs.calls.Load(), "re-read sees the new status and stops")

	stored, err := f.store.GetClaim(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.ClaimStatus{models.StatusPending, models.StatusRejected}, statuses(stored.History))
}

// alwaysConflict loses every compare-and-set.
type alwaysConflict struct {
	*storage.MemoryStore
	calls atomic.Int32
}

func (a *alwaysConflict) TransitionClaim(context.Context, storage.Transition) error {
	a.calls.Add(1)
	return storage.ErrConflict
}

func TestTransition_RepeatedConflict(t *testing.T) {
	var ac *alwaysConflict
	f := newFixtureWith(t, func(m *storage.MemoryStore) storage.Backend {
		ac = &alwaysConflict{MemoryStore: m}
		return ac
	})
	claim := f.submit(t, f.lecturer, "4")

	_, err := f.svc.Approve(context.Background(), f.coordinator, CoordinatorStage, claim.ID, "")
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, int32(2), ac.calls.Load(), "exactly one retry")
}
