package httperr

import (
	"errors"

	"cmcs-backend/internal/logger"
	"cmcs-backend/internal/workflow"

	"github.com/gofiber/fiber/v2"
)

type Response struct {
	Error      string               `json:"error"`
	Kind       workflow.Kind        `json:"kind,omitempty"`
	Violations []workflow.Violation `json:"violations,omitempty"`
}

// Status maps a workflow error kind to an HTTP status code.
func Status(kind workflow.Kind) int {
	switch kind {
	case workflow.KindValidationFailed, workflow.KindFileRejected:
		return fiber.StatusBadRequest
	case workflow.KindUnauthenticated:
		return fiber.StatusUnauthorized
	case workflow.KindForbidden:
		return fiber.StatusForbidden
	case workflow.KindUserNotFound, workflow.KindClaimNotFound, workflow.KindDocumentNotFound:
		return fiber.StatusNotFound
	case workflow.KindInvalidTransition, workflow.KindConflict, workflow.KindDuplicateEmail, workflow.KindLastHR:
		return fiber.StatusConflict
	case workflow.KindPersistence:
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

// Handler is the application error handler. Workflow errors keep their kind
// and violations; anything unexpected is logged and hidden from the client.
func Handler(log logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var we *workflow.Error
		if errors.As(err, &we) {
			status := Status(we.Kind)
			if status >= fiber.StatusInternalServerError {
				log.Error("request failed", "path", c.Path(), "kind", string(we.Kind), "err", we.Err)
			}
			return c.Status(status).JSON(Response{Error: we.Message, Kind: we.Kind, Violations: we.Violations})
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(Response{Error: fe.Message})
		}

		log.Error("unexpected error", "path", c.Path(), "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(Response{Error: "Unexpected server error"})
	}
}
