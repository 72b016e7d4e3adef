package auth

import (
	"errors"

	"designhouse-backend/internal/apperr"
	"designhouse-backend/internal/config"
	"designhouse-backend/internal/httpx"
	"designhouse-backend/internal/models"
	"designhouse-backend/internal/store"

	"github.com/gofiber/fiber/v2"
)

type BootstrapAdminRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type CreateUserRequest struct {
	Name     string          `json:"name" validate:"required,max=100"`
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required,min=8"`
	Role     models.UserRole `json:"role" validate:"omitempty,oneof=admin manager employee"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type UserResponse struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Email string          `json:"email"`
	Role  models.UserRole `json:"role"`
}

func toResponse(u *models.User) UserResponse {
	return UserResponse{ID: u.ID.String(), Name: u.Name, Email: u.Email, Role: u.Role}
}

func BootstrapAdminHandler(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body BootstrapAdminRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}

		user, err := BootstrapAdmin(c.UserContext(), st, body.Name, body.Email, body.Password)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(toResponse(user))
	}
}

// POST /api/users
func CreateUserHandler(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateUserRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}

		user, err := RegisterUser(c.UserContext(), st, NewUser{
			Name:     body.Name,
			Email:    body.Email,
			Password: body.Password,
			Role:     body.Role,
		}, ActorFrom(c))
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(toResponse(user))
	}
}

func LoginHandler(cfg *config.Config, st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}

		user, err := Authenticate(c.UserContext(), st, body.Email, body.Password)
		if err != nil {
			return err
		}

		token, err := GenerateToken(cfg.JWTSecret, user)
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"token": token,
			"user":  toResponse(user),
		})
	}
}

func MeHandler(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := ActorFrom(c)

		var user *models.User
		err := st.InTx(c.UserContext(), func(tx store.Tx) error {
			var err error
			user, err = tx.GetUser(c.UserContext(), actor.ID)
			return err
		})
		if errors.Is(err, store.ErrNotFound) {
			return apperr.New(apperr.KindUnauthorized, "", "user no longer exists")
		}
		if err != nil {
			return err
		}
		return c.JSON(toResponse(user))
	}
}
