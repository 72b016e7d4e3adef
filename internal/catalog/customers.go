package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"designhouse-backend/internal/apperr"
	"designhouse-backend/internal/audit"
	"designhouse-backend/internal/auth"
	"designhouse-backend/internal/models"
	"designhouse-backend/internal/store"

	"github.com/google/uuid"
)

type NewCustomer struct {
	Name         string
	Phone        string
	Email        string
	Company      string
	GSTNumber    string
	CustomerType models.CustomerType
}

func (s *Service) CreateCustomer(ctx context.Context, in NewCustomer, actor auth.Actor) (*models.Customer, error) {
	const op = "catalog.CreateCustomer"
	if err := actor.Check(op); err != nil {
		return nil, err
	}
	if err := normalizeCustomer(op, &in); err != nil {
		return nil, err
	}
	if in.Name == "" {
		return nil, apperr.Validation(op, "name is required")
	}

	var c *models.Customer
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		c, err = insertCustomer(ctx, tx, op, in, actor)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var c *models.Customer
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		c, err = tx.GetCustomer(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("catalog.GetCustomer", "customer %s not found", id)
		}
		return err
	})
	return c, err
}

// FindOrCreateCustomer returns the customer with in.Phone, creating it when
// there is none. created reports which happened.
func (s *Service) FindOrCreateCustomer(ctx context.Context, in NewCustomer, actor auth.Actor) (c *models.Customer, created bool, err error) {
	const op = "catalog.FindOrCreateCustomer"
	if err := actor.Check(op); err != nil {
		return nil, false, err
	}
	err = s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		c, created, err = ResolveCustomer(ctx, tx, in, actor)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return c, created, nil
}

// ResolveCustomer is FindOrCreateCustomer inside the caller's transaction. A
// new customer without a name is named after its phone number.
func ResolveCustomer(ctx context.Context, tx store.Tx, in NewCustomer, actor auth.Actor) (*models.Customer, bool, error) {
	const op = "catalog.ResolveCustomer"
	if err := normalizeCustomer(op, &in); err != nil {
		return nil, false, err
	}
	existing, err := tx.GetCustomerByPhone(ctx, in.Phone)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}
	if in.Name == "" {
		in.Name = in.Phone
	}
	c, err := insertCustomer(ctx, tx, op, in, actor)
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

func normalizeCustomer(op string, in *NewCustomer) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.CustomerType == "" {
		in.CustomerType = models.CustomerRetail
	}
	switch {
	case in.Phone == "":
		return apperr.Validation(op, "phone is required")
	case !in.CustomerType.Valid():
		return apperr.Validation(op, "unknown customer type %q", in.CustomerType)
	}
	return nil
}

func insertCustomer(ctx context.Context, tx store.Tx, op string, in NewCustomer, actor auth.Actor) (*models.Customer, error) {
	c := &models.Customer{
		ID:           uuid.New(),
		Name:         in.Name,
		Phone:        in.Phone,
		Email:        in.Email,
		Company:      in.Company,
		GSTNumber:    in.GSTNumber,
		CustomerType: in.CustomerType,
		IsActive:     true,
		CreatedBy:    actor.ID,
	}
	c.UpdateHistory = audit.Append(nil, actor.ID, "create", map[string]any{
		"name":  c.Name,
		"phone": c.Phone,
		"type":  string(c.CustomerType),
	}, time.Now())

	if err := tx.CreateCustomer(ctx, c); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.New(apperr.KindConflict, op, "a customer with phone %s already exists", c.Phone)
		}
		return nil, err
	}
	if err := audit.WriteLog(ctx, tx, audit.LogOptions{
		UserID:      actor.ID,
		Role:        actor.Role,
		EntityType:  "customer",
		EntityID:    c.ID,
		Action:      models.AuditActionCreate,
		Description: "registered customer " + c.Name,
		After:       c,
	}); err != nil {
		return nil, err
	}
	return c, nil
}
