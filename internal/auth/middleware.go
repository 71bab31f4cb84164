package auth

import (
	"strings"

	"cmcs-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const ctxIdentityKey = "identity"

func JWTMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization header is missing")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization header must be 'Bearer <token>'")
		}

		identity, err := ParseToken(secret, parts[1])
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired token")
		}

		c.Locals(ctxIdentityKey, identity)
		return c.Next()
	}
}

// IdentityFrom returns the identity stored by JWTMiddleware.
func IdentityFrom(c *fiber.Ctx) (Identity, bool) {
	identity, ok := c.Locals(ctxIdentityKey).(Identity)
	return identity, ok
}

func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFrom(c)
		if !ok {
			return fiber.NewError(fiber.StatusForbidden, "Role information is missing")
		}
		if !IsAuthorized(identity.Role, allowedRoles...) {
			return fiber.NewError(fiber.StatusForbidden, "You are not allowed to perform this action")
		}
		return c.Next()
	}
}

// CurrentIdentity returns the request identity or a 401 error.
func CurrentIdentity(c *fiber.Ctx) (Identity, error) {
	identity, ok := IdentityFrom(c)
	if !ok {
		return Identity{}, fiber.NewError(fiber.StatusUnauthorized, "Not authenticated")
	}
	return identity, nil
}
