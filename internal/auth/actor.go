package auth

import (
	"designhouse-backend/internal/apperr"
	"designhouse-backend/internal/models"

	"github.com/google/uuid"
)

// Actor is the authenticated user an operation runs on behalf of.
type Actor struct {
	ID   uuid.UUID
	Role models.UserRole
}

// Check fails with Unauthorized when no actor is present.
func (a Actor) Check(op string) error {
	if a.ID == uuid.Nil {
		return apperr.New(apperr.KindUnauthorized, op, "actor is required")
	}
	return nil
}

func (a Actor) Is(roles ...models.UserRole) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}
