package models

import "time"

// AuditEntry records one status change of a claim. Rows are only ever inserted.
type AuditEntry struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	ClaimID   uint        `gorm:"index;not null" json:"claim_id"`
	Status    ClaimStatus `gorm:"size:30;not null" json:"status"`
	ActionBy  string      `gorm:"size:100;not null" json:"action_by"` // denormalised display name
	Notes     string      `gorm:"size:1000" json:"notes"`
	CreatedAt time.Time   `gorm:"index;not null" json:"created_at"`
}

func (AuditEntry) TableName() string {
	return "claim_audit_entries"
}
