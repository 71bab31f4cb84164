package admin

import (
	"strings"

	"cmcs-backend/internal/auth"
	"cmcs-backend/internal/models"
	"cmcs-backend/internal/workflow"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

const timeLayout = "2006-01-02 15:04:05"

type UserResponse struct {
	ID         uint            `json:"id"`
	FirstName  string          `json:"first_name"`
	LastName   string          `json:"last_name"`
	Email      string          `json:"email"`
	Role       models.UserRole `json:"role"`
	HourlyRate string          `json:"hourly_rate"`
	CreatedAt  string          `json:"created_at"`
	UpdatedAt  string          `json:"updated_at"`
}

type UserRequest struct {
	FirstName  string          `json:"first_name"`
	LastName   string          `json:"last_name"`
	Email      string          `json:"email"`
	Password   string          `json:"password"`
	Role       models.UserRole `json:"role"`
	HourlyRate decimal.Decimal `json:"hourly_rate"`
}

func (r UserRequest) input() workflow.UserInput {
	return workflow.UserInput{
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		Email:      r.Email,
		Password:   r.Password,
		Role:       r.Role,
		HourlyRate: r.HourlyRate,
	}
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Email:      u.Email,
		Role:       u.Role,
		HourlyRate: u.HourlyRate.StringFixed(2),
		CreatedAt:  u.CreatedAt.UTC().Format(timeLayout),
		UpdatedAt:  u.UpdatedAt.UTC().Format(timeLayout),
	}
}

func userID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid user id")
	}
	return uint(id), nil
}

func parseUserRequest(c *fiber.Ctx) (UserRequest, error) {
	var body UserRequest
	if err := c.BodyParser(&body); err != nil {
		return body, fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	return body, nil
}

// GET /api/admin/users?email=
func ListUsersHandler(svc *workflow.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := auth.CurrentIdentity(c)
		if err != nil {
			return err
		}

		if email := strings.TrimSpace(c.Query("email")); email != "" {
			user, err := svc.GetUserByEmail(c.UserContext(), identity, email)
			if err != nil {
				return err
			}
			return c.JSON([]UserResponse{toUserResponse(user)})
		}

		users, err := svc.ListUsers(c.UserContext(), identity)
		if err != nil {
			return err
		}
		res := make([]UserResponse, 0, len(users))
		for i := range users {
			res = append(res, toUserResponse(&users[i]))
		}
		return c.JSON(res)
	}
}

func GetUserHandler(svc *workflow.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := auth.CurrentIdentity(c)
		if err != nil {
			return err
		}
		id, err := userID(c)
		if err != nil {
			return err
		}
		user, err := svc.GetUser(c.UserContext(), identity, id)
		if err != nil {
			return err
		}
		return c.JSON(toUserResponse(user))
	}
}

func CreateUserHandler(svc *workflow.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := auth.CurrentIdentity(c)
		if err != nil {
			return err
		}
		body, err := parseUserRequest(c)
		if err != nil {
			return err
		}
		user, err := svc.CreateUser(c.UserContext(), identity, body.input())
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(toUserResponse(user))
	}
}

func UpdateUserHandler(svc *workflow.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := auth.CurrentIdentity(c)
		if err != nil {
			return err
		}
		id, err := userID(c)
		if err != nil {
			return err
		}
		body, err := parseUserRequest(c)
		if err != nil {
			return err
		}
		user, err := svc.UpdateUser(c.UserContext(), identity, id, body.input())
		if err != nil {
			return err
		}
		return c.JSON(toUserResponse(user))
	}
}

func DeleteUserHandler(svc *workflow.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := auth.CurrentIdentity(c)
		if err != nil {
			return err
		}
		id, err := userID(c)
		if err != nil {
			return err
		}
		if err := svc.DeleteUser(c.UserContext(), identity, id); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
