package catalog

import (
	"context"
	"errors"
	"testing"

	"designhouse-backend/internal/apperr"
	"designhouse-backend/internal/auth"
	"designhouse-backend/internal/models"
	"designhouse-backend/internal/store"
	"designhouse-backend/internal/store/memstore"
	"designhouse-backend/internal/units"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var admin = auth.Actor{ID: uuid.New(), Role: models.RoleAdmin}

func seedStone(t *testing.T, st store.Store) *models.MaterialStock {
	t.Helper()
	m := &models.MaterialStock{ID: uuid.New(), Category: models.CategoryStone, Name: "Kundan", Number: "K-1", Unit: units.Piece, InventoryType: models.InventoryInternal}
	if err := st.InTx(context.Background(), func(tx store.Tx) error { return tx.CreateMaterial(context.Background(), m) }); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestCreateDesign(t *testing.T) {
	st := memstore.New()
	svc := NewService(st)
	stone := seedStone(t, st)
	tiers := []models.PriceTier{{MinQuantity: 1, UnitPrice: decimal.NewFromInt(120)}}

	d, err := svc.CreateDesign(context.Background(), NewDesign{
		Name:             "Peacock",
		Number:           "D-1",
		Prices:           tiers,
		DefaultMaterials: []models.RecipeItem{{Category: models.CategoryStone, MaterialID: stone.ID, Quantity: decimal.NewFromInt(30), Unit: units.Piece}},
	}, admin)
	if err != nil {
		t.Fatal(err)
	}
	if d.CreatedBy != admin.ID || len(d.UpdateHistory) != 1 {
		t.Fatalf("unexpected design %+v", d)
	}

	_, err = svc.CreateDesign(context.Background(), NewDesign{Name: "Copy", Number: "D-1", Prices: tiers}, admin)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreateDesignRejectsBadRecipe(t *testing.T) {
	st := memstore.New()
	svc := NewService(st)
	stone := seedStone(t, st)
	tiers := []models.PriceTier{{MinQuantity: 1, UnitPrice: decimal.NewFromInt(1)}}

	cases := []struct {
		name string
		item models.RecipeItem
		want error
	}{
		{"unknown material", models.RecipeItem{Category: models.CategoryStone, MaterialID: uuid.New(), Quantity: decimal.NewFromInt(1), Unit: units.Piece}, apperr.ErrUnknownMaterial},
		{"wrong category", models.RecipeItem{Category: models.CategoryPaper, MaterialID: stone.ID, Quantity: decimal.NewFromInt(1), Unit: units.Piece}, apperr.ErrUnknownMaterial},
		{"unit mismatch", models.RecipeItem{Category: models.CategoryStone, MaterialID: stone.ID, Quantity: decimal.NewFromInt(1), Unit: units.Gram}, apperr.ErrValidation},
		{"zero quantity", models.RecipeItem{Category: models.CategoryStone, MaterialID: stone.ID, Unit: units.Piece}, apperr.ErrValidation},
	}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateDesign(context.Background(), NewDesign{
				Name: "x", Number: uuid.NewString(), Prices: tiers, DefaultMaterials: []models.RecipeItem{tc.item},
			}, admin)
			if !errors.Is(err, tc.want) {
				t.Fatalf("case %d: expected %v, got %v", i, tc.want, err)
			}
		})
	}
}

func TestCreateSupplierUniqueName(t *testing.T) {
	svc := NewService(memstore.New())
	if _, err := svc.CreateSupplier(context.Background(), NewSupplier{Name: "Gupta Traders"}, admin); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateSupplier(context.Background(), NewSupplier{Name: " Gupta Traders "}, admin); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := svc.CreateSupplier(context.Background(), NewSupplier{Name: " "}, admin); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateDesign(t *testing.T) {
	st := memstore.New()
	svc := NewService(st)
	stone := seedStone(t, st)
	tiers := []models.PriceTier{{MinQuantity: 1, UnitPrice: decimal.NewFromInt(100)}}

	d, err := svc.CreateDesign(context.Background(), NewDesign{Name: "Peacock", Number: "D-1", Prices: tiers}, admin)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateDesign(context.Background(), NewDesign{Name: "Lotus", Number: "D-2", Prices: tiers}, admin); err != nil {
		t.Fatal(err)
	}

	updated, err := svc.UpdateDesign(context.Background(), d.ID, NewDesign{
		Name:             "Peacock Large",
		Number:           "D-1",
		Prices:           []models.PriceTier{{MinQuantity: 1, UnitPrice: decimal.NewFromInt(150)}},
		DefaultMaterials: []models.RecipeItem{{Category: models.CategoryStone, MaterialID: stone.ID, Quantity: decimal.NewFromInt(12), Unit: units.Piece}},
	}, admin)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Name != "Peacock Large" || !updated.Prices[0].UnitPrice.Equal(decimal.NewFromInt(150)) || len(updated.DefaultMaterials) != 1 {
		t.Fatalf("unexpected design %+v", updated)
	}
	if updated.UpdatedBy == nil || *updated.UpdatedBy != admin.ID || len(updated.UpdateHistory) != 2 {
		t.Fatalf("update not recorded: %+v", updated)
	}

	cases := []struct {
		name string
		id   uuid.UUID
		in   NewDesign
		want error
	}{
		{"missing design", uuid.New(), NewDesign{Name: "x", Number: "D-9", Prices: tiers}, apperr.ErrNotFound},
		{"taken number", d.ID, NewDesign{Name: "x", Number: "D-2", Prices: tiers}, apperr.ErrConflict},
		{"no tiers", d.ID, NewDesign{Name: "x", Number: "D-1"}, apperr.ErrValidation},
		{"bad recipe", d.ID, NewDesign{Name: "x", Number: "D-1", Prices: tiers, DefaultMaterials: []models.RecipeItem{{Category: models.CategoryStone, MaterialID: uuid.New(), Quantity: decimal.NewFromInt(1), Unit: units.Piece}}}, apperr.ErrUnknownMaterial},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.UpdateDesign(context.Background(), tc.id, tc.in, admin); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestFindOrCreateCustomer(t *testing.T) {
	svc := NewService(memstore.New())

	c, created, err := svc.FindOrCreateCustomer(context.Background(), NewCustomer{Phone: " 98765 "}, admin)
	if err != nil {
		t.Fatal(err)
	}
	if !created || c.Phone != "98765" || c.Name != "98765" || c.CustomerType != models.CustomerRetail {
		t.Fatalf("unexpected customer %+v created=%v", c, created)
	}

	again, created, err := svc.FindOrCreateCustomer(context.Background(), NewCustomer{Name: "Asha", Phone: "98765"}, admin)
	if err != nil {
		t.Fatal(err)
	}
	if created || again.ID != c.ID {
		t.Fatalf("expected existing customer %s, got %+v created=%v", c.ID, again, created)
	}

	if _, _, err := svc.FindOrCreateCustomer(context.Background(), NewCustomer{Name: "No phone"}, admin); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateCustomerUniquePhone(t *testing.T) {
	svc := NewService(memstore.New())
	c, err := svc.CreateCustomer(context.Background(), NewCustomer{Name: "Asha", Phone: "12345", CustomerType: models.CustomerWholesale}, admin)
	if err != nil {
		t.Fatal(err)
	}
	got, err := svc.GetCustomer(context.Background(), c.ID)
	if err != nil || got.Name != "Asha" || got.CustomerType != models.CustomerWholesale {
		t.Fatalf("get customer: %+v %v", got, err)
	}

	cases := []struct {
		name string
		in   NewCustomer
		want error
	}{
		{"same phone", NewCustomer{Name: "Other", Phone: "12345"}, apperr.ErrConflict},
		{"no name", NewCustomer{Phone: "555"}, apperr.ErrValidation},
		{"bad type", NewCustomer{Name: "X", Phone: "556", CustomerType: "vip"}, apperr.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CreateCustomer(context.Background(), tc.in, admin); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
	if _, err := svc.GetCustomer(context.Background(), uuid.New()); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
