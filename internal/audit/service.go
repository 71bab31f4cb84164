package audit

import (
	"fmt"

	"cmcs-backend/internal/models"
)

const timeLayout = "2006-01-02 15:04:05"

type EntryResponse struct {
	ID          uint               `json:"id"`
	Status      models.ClaimStatus `json:"status"`
	ActionBy    string             `json:"action_by"`
	Notes       string             `json:"notes"`
	Description string             `json:"description"`
	CreatedAt   string             `json:"created_at"`
}

// Describe renders an entry as one human readable line.
func Describe(e models.AuditEntry) string {
	switch e.Status {
	case models.StatusPending:
		return fmt.Sprintf("Submitted by %s", e.ActionBy)
	case models.StatusApprovedByCoordinator:
		return fmt.Sprintf("Approved by coordinator %s", e.ActionBy)
	case models.StatusApproved:
		return fmt.Sprintf("Final approval by manager %s", e.ActionBy)
	case models.StatusRejected:
		return fmt.Sprintf("Rejected by %s: %s", e.ActionBy, e.Notes)
	}
	return fmt.Sprintf("%s by %s", e.Status, e.ActionBy)
}

// FromEntries converts a claim history, keeping its order.
func FromEntries(entries []models.AuditEntry) []EntryResponse {
	res := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		res = append(res, EntryResponse{
			ID:          e.ID,
			Status:      e.Status,
			ActionBy:    e.ActionBy,
			Notes:       e.Notes,
			Description: Describe(e),
			CreatedAt:   e.CreatedAt.UTC().Format(timeLayout),
		})
	}
	return res
}
