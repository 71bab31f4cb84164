package audit

import (
	"context"

	"cmcs-backend/internal/auth"
	"cmcs-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// HistoryReader returns the audit trail of one claim for the acting user.
type HistoryReader interface {
	History(ctx context.Context, actor auth.Identity, claimID uint) ([]models.AuditEntry, error)
}

// GET /api/claims/:id/history
func ClaimHistoryHandler(svc HistoryReader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := auth.CurrentIdentity(c)
		if err != nil {
			return err
		}
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid claim id")
		}

		entries, err := svc.History(c.UserContext(), identity, uint(id))
		if err != nil {
			return err
		}
		return c.JSON(FromEntries(entries))
	}
}
