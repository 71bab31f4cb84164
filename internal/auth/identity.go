package auth

import "cmcs-backend/internal/models"

// Identity is the acting user of one request, as established by the session
// layer. The workflow trusts these values as given.
type Identity struct {
	UserID      uint
	Role        models.UserRole
	DisplayName string
}

// IsAuthorized reports whether role is one of required.
func IsAuthorized(role models.UserRole, required ...models.UserRole) bool {
	for _, r := range required {
		if r == role {
			return true
		}
	}
	return false
}
