package auth

import (
	"context"
	"errors"
	"strings"

	"designhouse-backend/internal/apperr"
	"designhouse-backend/internal/audit"
	"designhouse-backend/internal/models"
	"designhouse-backend/internal/store"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type NewUser struct {
	Name     string
	Email    string
	Password string
	Role     models.UserRole
}

// CreateUser stores a user with a bcrypt password hash.
func CreateUser(ctx context.Context, tx store.Users, in NewUser) (*models.User, error) {
	const op = "auth.CreateUser"

	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || in.Password == "" || strings.TrimSpace(in.Name) == "" {
		return nil, apperr.Validation(op, "name, email and password are required")
	}
	switch in.Role {
	case models.RoleAdmin, models.RoleManager, models.RoleEmployee:
	default:
		return nil, apperr.Validation(op, "unknown role %q", in.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: string(hash),
		Role:         in.Role,
		Status:       models.UserActive,
	}
	if err := tx.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.New(apperr.KindConflict, op, "email %s is already registered", email)
		}
		return nil, err
	}
	return user, nil
}

// BootstrapAdmin creates the first admin. It fails with Conflict once any
// admin exists.
func BootstrapAdmin(ctx context.Context, st store.Store, name, email, password string) (*models.User, error) {
	var user *models.User
	err := st.InTx(ctx, func(tx store.Tx) error {
		if err := tx.LockRole(ctx, models.RoleAdmin); err != nil {
			return err
		}
		count, err := tx.CountUsersByRole(ctx, models.RoleAdmin)
		if err != nil {
			return err
		}
		if count > 0 {
			return apperr.New(apperr.KindConflict, "auth.BootstrapAdmin", "an admin already exists")
		}
		user, err = CreateUser(ctx, tx, NewUser{Name: name, Email: email, Password: password, Role: models.RoleAdmin})
		return err
	})
	return user, err
}

// RegisterUser adds a user on behalf of an admin. The role defaults to
// employee.
func RegisterUser(ctx context.Context, st store.Store, in NewUser, actor Actor) (*models.User, error) {
	const op = "auth.RegisterUser"
	if err := actor.Check(op); err != nil {
		return nil, err
	}
	if in.Role == "" {
		in.Role = models.RoleEmployee
	}

	var user *models.User
	err := st.InTx(ctx, func(tx store.Tx) error {
		var err error
		user, err = CreateUser(ctx, tx, in)
		if err != nil {
			return err
		}
		return audit.WriteLog(ctx, tx, audit.LogOptions{
			UserID:      actor.ID,
			Role:        actor.Role,
			EntityType:  "user",
			EntityID:    user.ID,
			Action:      models.AuditActionCreate,
			Description: "added " + string(user.Role) + " " + user.Email,
			After:       user,
		})
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate checks email and password and returns the active user.
func Authenticate(ctx context.Context, st store.Store, email, password string) (*models.User, error) {
	invalid := apperr.New(apperr.KindUnauthorized, "", "invalid email or password")

	var user *models.User
	err := st.InTx(ctx, func(tx store.Tx) error {
		var err error
		user, err = tx.GetUserByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, invalid
	}
	if user.Status != models.UserActive {
		return nil, apperr.New(apperr.KindUnauthorized, "", "user is blocked")
	}
	return user, nil
}
