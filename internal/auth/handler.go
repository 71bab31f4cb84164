package auth

import (
	"context"
	"strings"

	"cmcs-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Authenticator checks login credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	ID          uint            `json:"id"`
	Email       string          `json:"email"`
	Role        models.UserRole `json:"role"`
	DisplayName string          `json:"name"`
}

func LoginHandler(secret string, authn Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		body.Email = strings.TrimSpace(body.Email)
		if body.Email == "" || body.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Email and password are required")
		}

		user, err := authn.Authenticate(c.UserContext(), body.Email, body.Password)
		if err != nil {
			return err
		}

		token, err := GenerateToken(secret, user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not issue token")
		}

		return c.JSON(LoginResponse{
			Token: token,
			User: UserResponse{
				ID:          user.ID,
				Email:       user.Email,
				Role:        user.Role,
				DisplayName: user.DisplayName(),
			},
		})
	}
}

func MeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := CurrentIdentity(c)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"id":   identity.UserID,
			"role": identity.Role,
			"name": identity.DisplayName,
		})
	}
}
