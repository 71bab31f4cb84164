package report

import (
	"fmt"
	"io"
	"time"

	"cmcs-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Claims"

var headers = []string{
	"Claim ID", "Lecturer", "Email", "Period", "Hours", "Rate", "Total",
	"Status", "Submitted", "Coordinator Approved", "Manager Approved",
}

const dateLayout = "2006-01-02 15:04"

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

func money(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

// Totals sums hours and amounts of the given claims.
func Totals(claims []models.Claim) (hours, amount decimal.Decimal) {
	for _, c := range claims {
		hours = hours.Add(c.HoursWorked)
		amount = amount.Add(c.TotalAmount)
	}
	return hours, amount
}

// WriteXLSX renders claims as a single-sheet workbook with a totals row.
func WriteXLSX(w io.Writer, claims []models.Claim) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return fmt.Errorf("money style: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return err
		}
	}
	if err := f.SetRowStyle(sheetName, 1, 1, headerStyle); err != nil {
		return err
	}

	for i, c := range claims {
		row := i + 2
		name, email := "", ""
		if c.User != nil {
			name, email = c.User.DisplayName(), c.User.Email
		}
		values := []any{
			c.ID, name, email, c.Period(),
			money(c.HoursWorked), money(c.HourlyRate), money(c.TotalAmount),
			string(c.Status), c.SubmittedAt.UTC().Format(dateLayout),
			formatTime(c.CoordinatorApprovedAt), formatTime(c.ManagerApprovedAt),
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}
	}

	last := len(claims) + 2
	hours, amount := Totals(claims)
	totalCell, _ := excelize.CoordinatesToCellName(1, last)
	if err := f.SetSheetRow(sheetName, totalCell, &[]any{"Total", "", "", "", money(hours), "", money(amount)}); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheetName, last, last, headerStyle); err != nil {
		return err
	}
	if err := f.SetColStyle(sheetName, "E:G", moneyStyle); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetName, "B", "C", 28); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetName, "I", "K", 20); err != nil {
		return err
	}

	_, err = f.WriteTo(w)
	return err
}
