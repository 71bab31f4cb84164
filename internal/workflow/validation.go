package workflow

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"cmcs-backend/internal/document"
	"cmcs-backend/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// SubmitInput is a lecturer's claim as entered. Field order is the order in
// which violations are reported.
type SubmitInput struct {
	HoursWorked decimal.Decimal  `json:"hours_worked" validate:"gt=0,lte=180"`
	Month       int              `json:"month" validate:"min=1,max=12"`
	Year        int              `json:"year" validate:"min=2000,max=2100"`
	Notes       string           `json:"notes" validate:"max=1000"`
	Attachment  *document.Upload `json:"-" validate:"-"`
}

// UserInput carries the editable fields of a user account.
type UserInput struct {
	FirstName  string          `json:"first_name" validate:"required,max=50"`
	LastName   string          `json:"last_name" validate:"required,max=50"`
	Email      string          `json:"email" validate:"required,email,max=100"`
	Password   string          `json:"password" validate:"omitempty,min=8,max=72"`
	Role       models.UserRole `json:"role" validate:"required,oneof=Lecturer Coordinator Manager HR"`
	HourlyRate decimal.Decimal `json:"hourly_rate" validate:"gte=0,lte=100000"`
}

var messages = map[string]string{
	"hours_worked.gt":  "Hours worked must be greater than 0.",
	"hours_worked.lte": "Hours worked cannot exceed 180 hours per month.",
	"month.min":        "Month must be between 1 and 12.",
	"month.max":        "Month must be between 1 and 12.",
	"year.min":         "Year must be between 2000 and 2100.",
	"year.max":         "Year must be between 2000 and 2100.",
	"notes.max":        "Notes cannot exceed 1000 characters.",
	"first_name":       "First name is required and must be at most 50 characters.",
	"last_name":        "Last name is required and must be at most 50 characters.",
	"email":            "A valid email address of at most 100 characters is required.",
	"password":         "Password must be between 8 and 72 characters.",
	"role":             "Role must be one of Lecturer, Coordinator, Manager, HR.",
	"hourly_rate":      "Hourly rate must be between 0 and 100000.",
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// check runs struct rules and returns every violation in field order.
func check(v *validator.Validate, input any) []Violation {
	err := v.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []Violation{{Field: "", Message: err.Error()}}
	}
	out := make([]Violation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg, ok := messages[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg, ok = messages[fe.Field()]
		}
		if !ok {
			msg = fe.Error()
		}
		out = append(out, Violation{Field: fe.Field(), Message: msg})
	}
	return out
}

// twoDecimals reports whether d has at most two fractional digits.
func twoDecimals(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}

func (s *Service) validateSubmission(in SubmitInput) []Violation {
	violations := check(s.validate, in)
	if !twoDecimals(in.HoursWorked) {
		violations = append(violations, Violation{Field: "hours_worked", Message: "Hours worked can have at most two decimal places."})
	}
	return violations
}

var submitFieldOrder = map[string]int{"hours_worked": 0, "month": 1, "year": 2, "notes": 3}

// CheckSubmission merges violations found while decoding raw input with the
// rule violations of the fields that decoded, in field order.
func (s *Service) CheckSubmission(in SubmitInput, decoding []Violation) []Violation {
	failed := make(map[string]bool, len(decoding))
	for _, v := range decoding {
		failed[v.Field] = true
	}
	out := append([]Violation(nil), decoding...)
	for _, v := range s.validateSubmission(in) {
		if !failed[v.Field] {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return submitFieldOrder[out[i].Field] < submitFieldOrder[out[j].Field]
	})
	return out
}

func (s *Service) validateUser(in UserInput, creating bool) []Violation {
	violations := check(s.validate, in)
	if creating && in.Password == "" {
		violations = append(violations, Violation{Field: "password", Message: "Password is required."})
	}
	if !twoDecimals(in.HourlyRate) {
		violations = append(violations, Violation{Field: "hourly_rate", Message: "Hourly rate can have at most two decimal places."})
	}
	return violations
}
