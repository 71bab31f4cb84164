package admin

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"cmcs-backend/internal/auth"
	"cmcs-backend/internal/models"
	"cmcs-backend/internal/report"
	"cmcs-backend/internal/workflow"

	"github.com/gofiber/fiber/v2"
)

type ReportRow struct {
	ClaimID       uint               `json:"claim_id"`
	LecturerName  string             `json:"lecturer_name"`
	LecturerEmail string             `json:"lecturer_email"`
	Month         int                `json:"month"`
	Year          int                `json:"year"`
	HoursWorked   string             `json:"hours_worked"`
	HourlyRate    string             `json:"hourly_rate"`
	TotalAmount   string             `json:"total_amount"`
	Status        models.ClaimStatus `json:"status"`
	SubmittedAt   string             `json:"submitted_at"`
}

type ReportResponse struct {
	Claims      []ReportRow `json:"claims"`
	Count       int         `json:"count"`
	TotalHours  string      `json:"total_hours"`
	TotalAmount string      `json:"total_amount"`
}

func queryInt(c *fiber.Ctx, key string) (int, error) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("%s must be a number", key))
	}
	return n, nil
}

// ParseReportFilter reads month, year and status from the query string.
func ParseReportFilter(c *fiber.Ctx) (workflow.ReportFilter, error) {
	var f workflow.ReportFilter
	var err error
	if f.Month, err = queryInt(c, "month"); err != nil {
		return f, err
	}
	if f.Year, err = queryInt(c, "year"); err != nil {
		return f, err
	}
	f.Status = models.ClaimStatus(strings.TrimSpace(c.Query("status")))
	return f, nil
}

// GET /api/admin/reports/claims?month=&year=&status=&format=xlsx
func ClaimsReportHandler(svc *workflow.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := auth.CurrentIdentity(c)
		if err != nil {
			return err
		}
		filter, err := ParseReportFilter(c)
		if err != nil {
			return err
		}

		claims, err := svc.Report(c.UserContext(), identity, filter)
		if err != nil {
			return err
		}

		if c.Query("format") == "xlsx" {
			var buf bytes.Buffer
			if err := report.WriteXLSX(&buf, claims); err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Could not build report")
			}
			c.Attachment("claims-report.xlsx")
			c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
			return c.Send(buf.Bytes())
		}

		rows := make([]ReportRow, 0, len(claims))
		for _, cl := range claims {
			row := ReportRow{
				ClaimID:     cl.ID,
				Month:       cl.Month,
				Year:        cl.Year,
				HoursWorked: cl.HoursWorked.StringFixed(2),
				HourlyRate:  cl.HourlyRate.StringFixed(2),
				TotalAmount: cl.TotalAmount.StringFixed(2),
				Status:      cl.Status,
				SubmittedAt: cl.SubmittedAt.UTC().Format(timeLayout),
			}
			if cl.User != nil {
				row.LecturerName = cl.User.DisplayName()
				row.LecturerEmail = cl.User.Email
			}
			rows = append(rows, row)
		}
		hours, amount := report.Totals(claims)
		return c.JSON(ReportResponse{
			Claims:      rows,
			Count:       len(rows),
			TotalHours:  hours.StringFixed(2),
			TotalAmount: amount.StringFixed(2),
		})
	}
}
