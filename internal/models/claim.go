package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type ClaimStatus string

const (
	StatusPending               ClaimStatus = "Pending"
	StatusApprovedByCoordinator ClaimStatus = "ApprovedByCoordinator"
	StatusApproved              ClaimStatus = "Approved"
	StatusRejected              ClaimStatus = "Rejected"
)

// Terminal reports whether no further transition can leave s.
func (s ClaimStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

func (s ClaimStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApprovedByCoordinator, StatusApproved, StatusRejected:
		return true
	}
	return false
}

type Claim struct {
	ID     uint  `gorm:"primaryKey" json:"id"`
	UserID uint  `gorm:"index;not null" json:"user_id"`
	User   *User `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"lecturer,omitempty"`

	Month int `gorm:"not null;check:chk_claims_month,month BETWEEN 1 AND 12" json:"month"`
	Year  int `gorm:"not null" json:"year"`

	HoursWorked decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"hours_worked"`
	// HourlyRate and TotalAmount are frozen at submission.
	HourlyRate  decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"hourly_rate"`
	TotalAmount decimal.Decimal `gorm:"type:numeric(18,4);not null" json:"total_amount"`

	Notes string `gorm:"size:1000" json:"notes"`

	DocumentName        string `gorm:"size:255" json:"document_name,omitempty"`
	DocumentKey         string `gorm:"size:255" json:"-"`
	DocumentContentType string `gorm:"size:100" json:"document_content_type,omitempty"`
	DocumentSize        int64  `json:"document_size,omitempty"`

	Status                ClaimStatus `gorm:"size:30;not null;index" json:"status"`
	SubmittedAt           time.Time   `gorm:"index;not null" json:"submitted_at"`
	CoordinatorApprovedAt *time.Time  `json:"coordinator_approved_at"`
	ManagerApprovedAt     *time.Time  `json:"manager_approved_at"`

	History []AuditEntry `gorm:"foreignKey:ClaimID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"history"`
}

// HasDocument reports whether a supporting document was stored with the claim.
func (c *Claim) HasDocument() bool {
	return c.DocumentKey != ""
}

// LatestEntry returns the most recent audit entry, or nil when the history was not loaded.
func (c *Claim) LatestEntry() *AuditEntry {
	if len(c.History) == 0 {
		return nil
	}
	return &c.History[len(c.History)-1]
}

// Period formats the claimed month as YYYY-MM.
func (c *Claim) Period() string {
	return fmt.Sprintf("%04d-%02d", c.Year, c.Month)
}
