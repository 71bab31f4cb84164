package claims

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"cmcs-backend/internal/audit"
	"cmcs-backend/internal/auth"
	"cmcs-backend/internal/document"
	"cmcs-backend/internal/models"
	"cmcs-backend/internal/workflow"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

const timeLayout = "2006-01-02 15:04:05"

type ClaimResponse struct {
	ID                    uint                  `json:"id"`
	LecturerID            uint                  `json:"lecturer_id"`
	LecturerName          string                `json:"lecturer_name"`
	LecturerEmail         string                `json:"lecturer_email"`
	Month                 int                   `json:"month"`
	Year                  int                   `json:"year"`
	HoursWorked           string                `json:"hours_worked"`
	HourlyRate            string                `json:"hourly_rate"`
	TotalAmount           string                `json:"total_amount"`
	Notes                 string                `json:"notes"`
	DocumentName          string                `json:"document_name,omitempty"`
	Status                models.ClaimStatus    `json:"status"`
	SubmittedAt           string                `json:"submitted_at"`
	CoordinatorApprovedAt *string               `json:"coordinator_approved_at"`
	ManagerApprovedAt     *string               `json:"manager_approved_at"`
	History               []audit.EntryResponse `json:"history"`
}

type DecisionRequest struct {
	Notes string `json:"notes"`
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(timeLayout)
	return &s
}

func toResponse(c *models.Claim) ClaimResponse {
	res := ClaimResponse{
		ID:           c.ID,
		LecturerID:   c.UserID,
		Month:        c.Month,
		Year:         c.Year,
		HoursWorked:  c.HoursWorked.StringFixed(2),
		HourlyRate:   c.HourlyRate.StringFixed(2),
		TotalAmount:  c.TotalAmount.StringFixed(2),
		Notes:        c.Notes,
		DocumentName: c.DocumentName,
		Status:       c.Status,
		SubmittedAt:  c.SubmittedAt.UTC().Format(timeLayout),
		History:      audit.FromEntries(c.History),

		CoordinatorApprovedAt: formatTime(c.CoordinatorApprovedAt),
		ManagerApprovedAt:     formatTime(c.ManagerApprovedAt),
	}
	if c.User != nil {
		res.LecturerName = c.User.DisplayName()
		res.LecturerEmail = c.User.Email
	}
	return res
}

func toResponses(claims []models.Claim) []ClaimResponse {
	res := make([]ClaimResponse, 0, len(claims))
	for i := range claims {
		res = append(res, toResponse(&claims[i]))
	}
	return res
}

func claimID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid claim id")
	}
	return uint(id), nil
}

// parseSubmission reads the multipart form. Unparseable numbers become
// field violations so the client sees them alongside the range checks.
func parseSubmission(c *fiber.Ctx, svc *workflow.Service) (workflow.SubmitInput, error) {
	var in workflow.SubmitInput
	var violations []workflow.Violation

	hours, err := decimal.NewFromString(strings.TrimSpace(c.FormValue("hours_worked")))
	if err != nil {
		violations = append(violations, workflow.Violation{Field: "hours_worked", Message: "Hours worked must be a number."})
	}
	in.HoursWorked = hours

	for _, f := range []struct {
		name string
		dst  *int
	}{{"month", &in.Month}, {"year", &in.Year}} {
		n, err := strconv.Atoi(strings.TrimSpace(c.FormValue(f.name)))
		if err != nil {
			violations = append(violations, workflow.Violation{Field: f.name, Message: fmt.Sprintf("%s must be a whole number.", strings.ToUpper(f.name[:1])+f.name[1:])})
			continue
		}
		*f.dst = n
	}
	in.Notes = c.FormValue("notes")
	if len(violations) > 0 {
		return in, &workflow.Error{Kind: workflow.KindValidationFailed, Message: "One or more fields are invalid.",
			Violations: svc.CheckSubmission(in, violations)}
	}

	form, err := c.MultipartForm()
	if err != nil {
		return in, nil
	}
	files := form.File["document"]
	if len(files) == 0 {
		return in, nil
	}
	fh := files[0]
	f, err := fh.Open()
	if err != nil {
		return in, fiber.NewError(fiber.StatusBadRequest, "Could not read uploaded file")
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, document.MaxSize+1))
	if err != nil {
		return in, fiber.NewError(fiber.StatusBadRequest, "Could not read uploaded file")
	}
	in.Attachment = &document.Upload{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}
	return in, nil
}

// POST /api/claims
func SubmitHandler(svc *workflow.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := auth.CurrentIdentity(c)
		if err != nil {
			return err
		}
		in, err := parseSubmission(c, svc)
		if err != nil {
			return err
		}

		claim, err := svc.Submit(c.UserContext(), identity, in)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(toResponse(claim))
	}
}

// GET /api/claims/mine
func MyClaimsHandler(svc *workflow.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := auth.CurrentIdentity(c)
		if err != nil {
			return err
		}
		claims, err := svc.OwnClaims(c.UserContext(), identity)
		if err != nil {
			return err
		}
		return c.JSON(toResponses(claims))
	}
}

// QueueHandler lists the claims waiting at stage.
func QueueHandler(svc *workflow.Service, stage workflow.Stage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := auth.CurrentIdentity(c)
		if err != nil {
			return err
		}
		claims, err := svc.Queue(c.UserContext(), identity, stage)
		if err != nil {
			return err
		}
		return c.JSON(toResponses(claims))
	}
}

// DecisionHandler approves or rejects a claim at stage.
func DecisionHandler(svc *workflow.Service, stage workflow.Stage, action workflow.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := auth.CurrentIdentity(c)
		if err != nil {
			return err
		}
		id, err := claimID(c)
		if err != nil {
			return err
		}
		var body DecisionRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
			}
		}

		var claim *models.Claim
		if action == workflow.ActionReject {
			claim, err = svc.Reject(c.UserContext(), identity, stage, id, body.Notes)
		} else {
			claim, err = svc.Approve(c.UserContext(), identity, stage, id, body.Notes)
		}
		if err != nil {
			return err
		}
		return c.JSON(toResponse(claim))
	}
}

// GET /api/claims/:id
func GetClaimHandler(svc *workflow.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := auth.CurrentIdentity(c)
		if err != nil {
			return err
		}
		id, err := claimID(c)
		if err != nil {
			return err
		}
		claim, err := svc.Claim(c.UserContext(), identity, id)
		if err != nil {
			return err
		}
		return c.JSON(toResponse(claim))
	}
}

// GET /api/claims/:id/document
func DownloadDocumentHandler(svc *workflow.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := auth.CurrentIdentity(c)
		if err != nil {
			return err
		}
		id, err := claimID(c)
		if err != nil {
			return err
		}
		doc, err := svc.Document(c.UserContext(), identity, id)
		if err != nil {
			return err
		}
		c.Attachment(doc.Name)
		c.Set(fiber.HeaderContentType, doc.ContentType)
		return c.Send(doc.Data)
	}
}
