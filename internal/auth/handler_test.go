package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"cmcs-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuthenticator struct {
	user *models.User
}

func (s stubAuthenticator) Authenticate(_ context.Context, email, password string) (*models.User, error) {
	if s.user != nil && email == s.user.Email && password == "password123" {
		return s.user, nil
	}
	return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid email or password.")
}

func TestLoginAndMe(t *testing.T) {
	hr := &models.User{ID: 4, FirstName: "Lionel", LastName: "Messi", Email: "hr@cmcs.test", Role: models.RoleHR}
	app := fiber.New()
	app.Post("/login", LoginHandler(testSecret, stubAuthenticator{user: hr}))
	app.Get("/me", JWTMiddleware(testSecret), MeHandler())

	req := httptest.NewRequest("POST", "/login", strings.NewReader(`{"email":"hr@cmcs.test","password":"password123"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var login LoginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&login))
	assert.Equal(t, "Lionel Messi", login.User.DisplayName)
	assert.NotEmpty(t, login.Token)

	req = httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var me map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&me))
	assert.Equal(t, "HR", me["role"])
}

func TestLogin_BadCredentials(t *testing.T) {
	app := fiber.New()
	app.Post("/login", LoginHandler(testSecret, stubAuthenticator{}))

	for _, body := range []string{`{"email":"hr@cmcs.test","password":"nope"}`, `{"email":""}`} {
		req := httptest.NewRequest("POST", "/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.True(t, resp.StatusCode == fiber.StatusUnauthorized || resp.StatusCode == fiber.StatusBadRequest)
	}
}

func TestCurrentIdentity_Missing(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		_, err := CurrentIdentity(c)
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.SendStatus(fe.Code)
		}
		return c.SendStatus(fiber.StatusOK)
	})
	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
