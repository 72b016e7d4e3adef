package orders

import (
	"context"
	"errors"
	"sync"
	"testing"

	"designhouse-backend/internal/apperr"
	"designhouse-backend/internal/auth"
	"designhouse-backend/internal/events"
	"designhouse-backend/internal/models"
	"designhouse-backend/internal/pricing"
	"designhouse-backend/internal/store"
	"designhouse-backend/internal/store/memstore"
	"designhouse-backend/internal/units"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var manager = auth.Actor{ID: uuid.New(), Role: models.RoleManager}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) Close() error { return nil }

type fixture struct {
	st  *memstore.Store
	svc *Service
	bus *recorder
}

func newFixture(policy DiscrepancyPolicy) *fixture {
	st := memstore.New()
	bus := &recorder{}
	return &fixture{
		st:  st,
		bus: bus,
		svc: NewService(Deps{
			Store:       st,
			Pricing:     pricing.New(pricing.DefaultPolicy()),
			Events:      bus,
			Discrepancy: policy,
		}),
	}
}

func (f *fixture) material(t *testing.T, cat models.MaterialCategory, qty string, unit units.Unit) *models.MaterialStock {
	t.Helper()
	m := &models.MaterialStock{
		ID:            uuid.New(),
		Category:      cat,
		Name:          string(cat),
		Number:        uuid.NewString(),
		Quantity:      dec(qty),
		Unit:          unit,
		InventoryType: models.InventoryInternal,
	}
	f.create(t, m)
	return m
}

func (f *fixture) create(t *testing.T, m *models.MaterialStock) {
	t.Helper()
	if err := f.st.InTx(context.Background(), func(tx store.Tx) error {
		return tx.CreateMaterial(context.Background(), m)
	}); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) design(t *testing.T, price string, recipe ...models.RecipeItem) *models.Design {
	t.Helper()
	d := &models.Design{
		ID:               uuid.New(),
		Name:             "Rangoli",
		Number:           uuid.NewString(),
		Prices:           []models.PriceTier{{MinQuantity: 1, UnitPrice: dec(price)}},
		DefaultMaterials: recipe,
		CreatedBy:        manager.ID,
	}
	if err := f.st.InTx(context.Background(), func(tx store.Tx) error {
		return tx.CreateDesign(context.Background(), d)
	}); err != nil {
		t.Fatal(err)
	}
	return d
}

func (f *fixture) order(t *testing.T, d *models.Design, qty int) *models.Order {
	t.Helper()
	o, err := f.svc.Create(context.Background(), NewOrder{
		CustomerName: "Asha",
		Phone:        "9999999999",
		Lines:        []NewLine{{DesignID: d.ID, Quantity: qty}},
		Discount:     pricing.Discount{Type: models.DiscountPercentage, Value: decimal.Zero},
	}, manager)
	if err != nil {
		t.Fatal(err)
	}
	return o
}

func (f *fixture) quantity(t *testing.T, id uuid.UUID) decimal.Decimal {
	t.Helper()
	var q decimal.Decimal
	_ = f.st.InTx(context.Background(), func(tx store.Tx) error {
		rows, err := tx.GetMaterials(context.Background(), []uuid.UUID{id})
		if err != nil {
			return err
		}
		q = rows[id].Quantity
		return nil
	})
	return q
}

func recipe(m *models.MaterialStock, qty string, unit units.Unit) models.RecipeItem {
	return models.RecipeItem{Category: m.Category, MaterialID: m.ID, Quantity: dec(qty), Unit: unit}
}

func TestCreatePricesAndSnapshots(t *testing.T) {
	f := newFixture(DiscrepancyPolicy{})
	stone := &models.MaterialStock{
		ID:             uuid.New(),
		Category:       models.CategoryStone,
		Name:           "kundan",
		Number:         "K-1",
		Quantity:       dec("1000"),
		Unit:           units.Piece,
		WeightPerPiece: dec("0.25"),
		InventoryType:  models.InventoryInternal,
	}
	f.create(t, stone)
	d := f.design(t, "100", recipe(stone, "40", units.Piece))

	o, err := f.svc.Create(context.Background(), NewOrder{
		CustomerName: "Asha",
		Phone:        "9999999999",
		Lines:        []NewLine{{DesignID: d.ID, Quantity: 10}},
		Discount:     pricing.Discount{Type: models.DiscountPercentage, Value: dec("10")},
	}, manager)
	if err != nil {
		t.Fatal(err)
	}
	if o.Status != models.OrderPending || o.IsFinalized {
		t.Fatalf("new order must be pending, got %s", o.Status)
	}
	if !o.GrossAmount.Equal(dec("1000")) || !o.DiscountedAmount.Equal(dec("100")) || !o.FinalAmount.Equal(dec("900")) {
		t.Fatalf("amounts %s/%s/%s", o.GrossAmount, o.DiscountedAmount, o.FinalAmount)
	}
	line := o.DesignOrders[0]
	if len(line.PriceTiers) != 1 || len(line.Materials) != 1 || line.DesignNumber != d.Number {
		t.Fatalf("line not snapshotted: %+v", line)
	}
	if !line.Materials[0].WeightPerPiece.Equal(dec("0.25")) {
		t.Fatalf("weight per piece not snapshotted: %s", line.Materials[0].WeightPerPiece)
	}
	if o.CalculatedWeight.Valid {
		t.Fatal("reconciliation fields must stay null until finalization")
	}
	if len(o.UpdateHistory) != 1 {
		t.Fatalf("expected one trail entry, got %d", len(o.UpdateHistory))
	}
}

func TestCreateUnknownDesign(t *testing.T) {
	f := newFixture(DiscrepancyPolicy{})
	_, err := f.svc.Create(context.Background(), NewOrder{
		CustomerName: "Asha",
		Phone:        "1",
		Lines:        []NewLine{{DesignID: uuid.New(), Quantity: 1}},
		Discount:     pricing.Discount{Type: models.DiscountFlat},
	}, manager)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateLinksCustomer(t *testing.T) {
	f := newFixture(DiscrepancyPolicy{})
	d := f.design(t, "10")

	first := f.order(t, d, 1)
	if first.CustomerID == nil {
		t.Fatal("order not linked to a customer")
	}
	second := f.order(t, d, 2)
	if second.CustomerID == nil || *second.CustomerID != *first.CustomerID {
		t.Fatalf("same phone must reuse customer %s, got %v", *first.CustomerID, second.CustomerID)
	}

	byID, err := f.svc.Create(context.Background(), NewOrder{
		CustomerID: first.CustomerID,
		Lines:      []NewLine{{DesignID: d.ID, Quantity: 1}},
		Discount:   pricing.Discount{Type: models.DiscountFlat},
	}, manager)
	if err != nil {
		t.Fatal(err)
	}
	if byID.CustomerName != "Asha" || byID.Phone != "9999999999" {
		t.Fatalf("customer details not copied: %q %q", byID.CustomerName, byID.Phone)
	}

	_, err = f.svc.Create(context.Background(), NewOrder{
		CustomerID: ptr(uuid.New()),
		Lines:      []NewLine{{DesignID: d.ID, Quantity: 1}},
		Discount:   pricing.Discount{Type: models.DiscountFlat},
	}, manager)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found for unknown customer, got %v", err)
	}
}

func ptr[T any](v T) *T { return &v }

func TestFinalizeDebitsStockAndRecordsReconciliation(t *testing.T) {
	f := newFixture(DiscrepancyPolicy{AlertPercent: dec("5")})
	stone := f.material(t, models.CategoryStone, "2", units.Kilogram)
	d := f.design(t, "50", recipe(stone, "500", units.Gram))
	o := f.order(t, d, 1)

	got, err := f.svc.Finalize(context.Background(), o.ID, dec("520"), manager)
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsFinalized || got.Status != models.OrderFinalized || got.FinalizedAt == nil {
		t.Fatalf("order not finalized: %+v", got)
	}
	if !got.CalculatedWeight.Decimal.Equal(dec("500")) ||
		!got.WeightDiscrepancy.Decimal.Equal(dec("20")) ||
		!got.DiscrepancyPercentage.Decimal.Equal(dec("4")) {
		t.Fatalf("reconciliation %v/%v/%v", got.CalculatedWeight, got.WeightDiscrepancy, got.DiscrepancyPercentage)
	}
	if got.DiscrepancyFlagged {
		t.Fatal("4% must not be flagged against a 5% threshold")
	}
	if q := f.quantity(t, stone.ID); !q.Equal(dec("1.5")) {
		t.Fatalf("expected 1.5 kg left, got %s", q)
	}
	if len(got.UpdateHistory) != 2 || got.UpdateHistory[1].Action != "finalize" {
		t.Fatalf("expected finalize trail entry, got %+v", got.UpdateHistory)
	}
	if len(f.bus.events) != 1 || f.bus.events[0].Type != events.TypeOrderFinalized {
		t.Fatalf("expected one order.finalized event, got %+v", f.bus.events)
	}
}

func TestFinalizeTwiceDebitsOnce(t *testing.T) {
	f := newFixture(DiscrepancyPolicy{})
	paper := f.material(t, models.CategoryPaper, "1000", units.Gram)
	d := f.design(t, "10", recipe(paper, "100", units.Gram))
	o := f.order(t, d, 2)

	if _, err := f.svc.Finalize(context.Background(), o.ID, dec("200"), manager); err != nil {
		t.Fatal(err)
	}
	_, err := f.svc.Finalize(context.Background(), o.ID, dec("210"), manager)
	if !errors.Is(err, apperr.ErrAlreadyFinalized) {
		t.Fatalf("expected already finalized, got %v", err)
	}
	if q := f.quantity(t, paper.ID); !q.Equal(dec("800")) {
		t.Fatalf("expected a single debit leaving 800, got %s", q)
	}
	stored, _ := f.svc.Get(context.Background(), o.ID)
	if !stored.FinalTotalWeight.Decimal.Equal(dec("200")) {
		t.Fatalf("reported weight was overwritten: %v", stored.FinalTotalWeight)
	}
}

func TestFinalizeInsufficientStockLeavesOrderPending(t *testing.T) {
	f := newFixture(DiscrepancyPolicy{})
	stone := f.material(t, models.CategoryStone, "100", units.Gram)
	tape := f.material(t, models.CategoryTape, "50", units.Piece)
	d := f.design(t, "10", recipe(tape, "1", units.Piece), recipe(stone, "150", units.Gram))
	o := f.order(t, d, 1)

	_, err := f.svc.Finalize(context.Background(), o.ID, dec("150"), manager)
	if !errors.Is(err, apperr.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	stored, _ := f.svc.Get(context.Background(), o.ID)
	if stored.IsFinalized || stored.Status != models.OrderPending || stored.CalculatedWeight.Valid {
		t.Fatalf("order changed: %+v", stored)
	}
	if q := f.quantity(t, stone.ID); !q.Equal(dec("100")) {
		t.Fatalf("stone changed to %s", q)
	}
	if q := f.quantity(t, tape.ID); !q.Equal(dec("50")) {
		t.Fatalf("tape changed to %s", q)
	}
	if len(f.bus.events) != 0 {
		t.Fatal("no event may be published for a failed finalize")
	}
}

func TestFinalizeValidation(t *testing.T) {
	f := newFixture(DiscrepancyPolicy{})
	paper := f.material(t, models.CategoryPaper, "1000", units.Gram)
	o := f.order(t, f.design(t, "10", recipe(paper, "1", units.Gram)), 1)

	if _, err := f.svc.Finalize(context.Background(), o.ID, dec("-1"), manager); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := f.svc.Finalize(context.Background(), o.ID, dec("1"), auth.Actor{}); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := f.svc.Finalize(context.Background(), uuid.New(), dec("1"), manager); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFinalizeDiscrepancyPolicy(t *testing.T) {
	t.Run("flag", func(t *testing.T) {
		f := newFixture(DiscrepancyPolicy{AlertPercent: dec("5")})
		paper := f.material(t, models.CategoryPaper, "1000", units.Gram)
		o := f.order(t, f.design(t, "10", recipe(paper, "100", units.Gram)), 1)

		got, err := f.svc.Finalize(context.Background(), o.ID, dec("120"), manager)
		if err != nil {
			t.Fatal(err)
		}
		if !got.DiscrepancyFlagged {
			t.Fatal("20% discrepancy must be flagged")
		}
	})

	t.Run("hold", func(t *testing.T) {
		f := newFixture(DiscrepancyPolicy{AlertPercent: dec("5"), Hold: true})
		paper := f.material(t, models.CategoryPaper, "1000", units.Gram)
		o := f.order(t, f.design(t, "10", recipe(paper, "100", units.Gram)), 1)

		_, err := f.svc.Finalize(context.Background(), o.ID, dec("80"), manager)
		if !errors.Is(err, apperr.ErrDiscrepancyExceeded) {
			t.Fatalf("expected discrepancy exceeded, got %v", err)
		}
		if q := f.quantity(t, paper.ID); !q.Equal(dec("1000")) {
			t.Fatalf("stock changed to %s", q)
		}
	})
}

func TestConcurrentFinalizesOnDisjointMaterials(t *testing.T) {
	f := newFixture(DiscrepancyPolicy{})
	a := f.material(t, models.CategoryStone, "100", units.Gram)
	b := f.material(t, models.CategoryPlastic, "100", units.Gram)
	o1 := f.order(t, f.design(t, "10", recipe(a, "60", units.Gram)), 1)
	o2 := f.order(t, f.design(t, "10", recipe(b, "60", units.Gram)), 1)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []uuid.UUID{o1.ID, o2.ID} {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, errs[i] = f.svc.Finalize(context.Background(), id, dec("60"), manager)
		}(i, id)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("finalize %d failed: %v", i, err)
		}
	}
	if !f.quantity(t, a.ID).Equal(dec("40")) || !f.quantity(t, b.ID).Equal(dec("40")) {
		t.Fatal("each material must be debited once")
	}
}

func TestConcurrentFinalizesOfSameOrder(t *testing.T) {
	f := newFixture(DiscrepancyPolicy{})
	a := f.material(t, models.CategoryStone, "1000", units.Gram)
	o := f.order(t, f.design(t, "10", recipe(a, "100", units.Gram)), 1)

	const n = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Finalize(context.Background(), o.ID, dec("100"), manager); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Fatalf("expected exactly one successful finalize, got %d", succeeded)
	}
	if q := f.quantity(t, a.ID); !q.Equal(dec("900")) {
		t.Fatalf("expected 900 left, got %s", q)
	}
}

func TestConsumptionMergesPerMaterial(t *testing.T) {
	id := uuid.New()
	lines := []models.DesignLineItem{
		{Quantity: 2, Materials: []models.RecipeItem{{MaterialID: id, Category: models.CategoryStone, Quantity: dec("10"), Unit: units.Gram}}},
		{Quantity: 3, Materials: []models.RecipeItem{{MaterialID: id, Category: models.CategoryStone, Quantity: dec("5"), Unit: units.Gram}}},
	}
	adjs := Consumption(lines)
	if len(adjs) != 1 || !adjs[0].Delta.Equal(dec("-35")) {
		t.Fatalf("unexpected consumption %+v", adjs)
	}
}
