// Package catalog keeps the master data orders and entries refer to:
// designs, suppliers and customers.
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
	"designhouse-backend/internal/units"

	"github.com/google/uuid"
)

type NewDesign struct {
	Name             string
	Number           string
	ImageURL         string
	Prices           []models.PriceTier
	DefaultMaterials []models.RecipeItem
}

type NewSupplier struct {
	Name          string
	Phone         string
	Email         string
	ContactPerson string
	Notes         string
}

type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// CreateDesign checks that every recipe item names an existing material of
// its category in a unit compatible with the stock row.
func (s *Service) CreateDesign(ctx context.Context, in NewDesign, actor auth.Actor) (*models.Design, error) {
	const op = "catalog.CreateDesign"
	if err := actor.Check(op); err != nil {
		return nil, err
	}
	if err := validateDesign(op, &in); err != nil {
		return nil, err
	}

	d := &models.Design{
		ID:               uuid.New(),
		Name:             in.Name,
		Number:           in.Number,
		ImageURL:         in.ImageURL,
		Prices:           in.Prices,
		DefaultMaterials: in.DefaultMaterials,
		CreatedBy:        actor.ID,
	}
	d.UpdateHistory = audit.Append(nil, actor.ID, "create", map[string]any{
		"name":      d.Name,
		"number":    d.Number,
		"tiers":     len(d.Prices),
		"materials": len(d.DefaultMaterials),
	}, time.Now())

	err := s.store.InTx(ctx, func(tx store.Tx) error {
		if err := checkRecipe(ctx, tx, op, in.DefaultMaterials); err != nil {
			return err
		}
		if err := tx.CreateDesign(ctx, d); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return apperr.New(apperr.KindConflict, op, "design number %s already exists", d.Number)
			}
			return err
		}
		return audit.WriteLog(ctx, tx, audit.LogOptions{
			UserID:      actor.ID,
			Role:        actor.Role,
			EntityType:  "design",
			EntityID:    d.ID,
			Action:      models.AuditActionCreate,
			Description: "registered design " + d.Number,
			After:       d,
		})
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// UpdateDesign replaces a design's fields. Orders already placed keep the
// tiers and recipe they were priced with.
func (s *Service) UpdateDesign(ctx context.Context, id uuid.UUID, in NewDesign, actor auth.Actor) (*models.Design, error) {
	const op = "catalog.UpdateDesign"
	if err := actor.Check(op); err != nil {
		return nil, err
	}
	if err := validateDesign(op, &in); err != nil {
		return nil, err
	}

	var d *models.Design
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		d, err = tx.GetDesign(ctx, id, true)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound(op, "design %s not found", id)
		}
		if err != nil {
			return err
		}
		if err := checkRecipe(ctx, tx, op, in.DefaultMaterials); err != nil {
			return err
		}
		before := *d

		d.Name = in.Name
		d.Number = in.Number
		d.ImageURL = in.ImageURL
		d.Prices = in.Prices
		d.DefaultMaterials = in.DefaultMaterials
		d.UpdatedBy = &actor.ID
		d.UpdateHistory = audit.Append(d.UpdateHistory, actor.ID, "update", map[string]any{
			"name":      d.Name,
			"number":    d.Number,
			"tiers":     len(d.Prices),
			"materials": len(d.DefaultMaterials),
		}, time.Now())

		if err := tx.SaveDesign(ctx, d); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return apperr.New(apperr.KindConflict, op, "design number %s already exists", d.Number)
			}
			return err
		}
		return audit.WriteLog(ctx, tx, audit.LogOptions{
			UserID:      actor.ID,
			Role:        actor.Role,
			EntityType:  "design",
			EntityID:    d.ID,
			Action:      models.AuditActionUpdate,
			Description: "updated design " + d.Number,
			Before:      before,
			After:       d,
		})
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func validateDesign(op string, in *NewDesign) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Number = strings.TrimSpace(in.Number)
	if in.Name == "" || in.Number == "" {
		return apperr.Validation(op, "name and number are required")
	}
	if len(in.Prices) == 0 {
		return apperr.Validation(op, "at least one price tier is required")
	}
	for i, p := range in.Prices {
		if p.MinQuantity < 0 || p.UnitPrice.IsNegative() {
			return apperr.Validation(op, "price tier %d must not be negative", i)
		}
	}
	return nil
}

func checkRecipe(ctx context.Context, tx store.Tx, op string, items []models.RecipeItem) error {
	ids := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.MaterialID)
	}
	rows, err := tx.GetMaterials(ctx, ids)
	if err != nil {
		return err
	}
	for i, it := range items {
		if !it.Quantity.IsPositive() {
			return apperr.Validation(op, "recipe item %d needs a positive quantity", i)
		}
		m, ok := rows[it.MaterialID]
		if !ok || m.Category != it.Category {
			return apperr.New(apperr.KindUnknownMaterial, op, "material %s not found in category %s", it.MaterialID, it.Category)
		}
		if _, err := units.Convert(it.Quantity, it.Unit, m.Unit); err != nil {
			return apperr.Validation(op, "recipe item %d: unit %s does not match stock unit %s", i, it.Unit, m.Unit)
		}
	}
	return nil
}

func (s *Service) CreateSupplier(ctx context.Context, in NewSupplier, actor auth.Actor) (*models.Supplier, error) {
	const op = "catalog.CreateSupplier"
	if err := actor.Check(op); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, apperr.Validation(op, "name is required")
	}

	sup := &models.Supplier{
		ID:            uuid.New(),
		Name:          in.Name,
		Phone:         in.Phone,
		Email:         strings.ToLower(strings.TrimSpace(in.Email)),
		ContactPerson: in.ContactPerson,
		Notes:         in.Notes,
		Status:        models.SupplierActive,
		CreatedBy:     &actor.ID,
	}
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		if err := tx.CreateSupplier(ctx, sup); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return apperr.New(apperr.KindConflict, op, "supplier %s already exists", sup.Name)
			}
			return err
		}
		return audit.WriteLog(ctx, tx, audit.LogOptions{
			UserID:      actor.ID,
			Role:        actor.Role,
			EntityType:  "supplier",
			EntityID:    sup.ID,
			Action:      models.AuditActionCreate,
			Description: "registered supplier " + sup.Name,
			After:       sup,
		})
	})
	if err != nil {
		return nil, err
	}
	return sup, nil
}
