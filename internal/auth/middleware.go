package auth

import (
	"strings"

	"designhouse-backend/internal/apperr"
	"designhouse-backend/internal/config"
	"designhouse-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const ctxActorKey = "actor"

func JWTMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return apperr.New(apperr.KindUnauthorized, "", "missing Authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return apperr.New(apperr.KindUnauthorized, "", "Authorization must be 'Bearer <token>'")
		}

		claims, err := ParseToken(cfg.JWTSecret, parts[1])
		if err != nil {
			return apperr.New(apperr.KindUnauthorized, "", "invalid or expired token")
		}

		c.Locals(ctxActorKey, Actor{ID: claims.UserID, Role: claims.Role})
		return c.Next()
	}
}

// ActorFrom returns the actor set by JWTMiddleware, or the zero Actor.
func ActorFrom(c *fiber.Ctx) Actor {
	a, _ := c.Locals(ctxActorKey).(Actor)
	return a
}

func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if ActorFrom(c).Is(allowedRoles...) {
			return c.Next()
		}
		return fiber.NewError(fiber.StatusForbidden, "you are not allowed to perform this action")
	}
}
