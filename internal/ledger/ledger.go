// Package ledger is the only writer of material stock quantities. Every
// change is a signed delta; a batch applies completely or not at all and no
// row ever goes below zero.
package ledger

import (
	"bytes"
	"context"
	"sort"

	"designhouse-backend/internal/apperr"
	"designhouse-backend/internal/logger"
	"designhouse-backend/internal/models"
	"designhouse-backend/internal/store"
	"designhouse-backend/internal/units"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// QuantityPlaces is the precision stock quantities are kept at.
const QuantityPlaces = 4

var tracer = otel.Tracer("designhouse-backend/internal/ledger")

// MaterialRef names a stock row and the category the caller expects it in.
type MaterialRef struct {
	ID       uuid.UUID
	Category models.MaterialCategory
}

// Adjustment is a signed change to one material. An empty Unit means the
// delta is already in the material's own unit.
type Adjustment struct {
	Ref   MaterialRef
	Delta decimal.Decimal
	Unit  units.Unit
}

// StockCache is told when committed quantities changed.
type StockCache interface {
	Invalidate(ctx context.Context)
}

type noopCache struct{}

func (noopCache) Invalidate(context.Context) {}

type Ledger struct {
	store store.Store
	cache StockCache
}

func New(st store.Store, cache StockCache) *Ledger {
	if cache == nil {
		cache = noopCache{}
	}
	return &Ledger{store: st, cache: cache}
}

// Then runs inside an adjustment's transaction after the rows were written.
// An error rolls the adjustment back.
type Then func(ctx context.Context, tx store.Tx, rows map[uuid.UUID]*models.MaterialStock) error

// Adjust applies a single delta in its own transaction.
func (l *Ledger) Adjust(ctx context.Context, ref MaterialRef, delta decimal.Decimal, unit units.Unit, then ...Then) (*models.MaterialStock, error) {
	rows, err := l.AdjustMany(ctx, []Adjustment{{Ref: ref, Delta: delta, Unit: unit}}, then...)
	if err != nil {
		return nil, err
	}
	return rows[ref.ID], nil
}

// AdjustMany applies adjs in one transaction.
func (l *Ledger) AdjustMany(ctx context.Context, adjs []Adjustment, then ...Then) (map[uuid.UUID]*models.MaterialStock, error) {
	var out map[uuid.UUID]*models.MaterialStock
	err := l.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = l.ApplyTx(ctx, tx, adjs)
		if err != nil {
			return err
		}
		for _, fn := range then {
			if err := fn(ctx, tx, out); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.Committed(ctx)
	return out, nil
}

// Committed must be called by callers of ApplyTx once their transaction has
// committed.
func (l *Ledger) Committed(ctx context.Context) {
	l.cache.Invalidate(ctx)
}

// ApplyTx applies adjs inside the caller's transaction and returns the
// updated rows. Deltas for the same material are merged, rows are locked in
// ascending id order, and every row is checked before any is written. Any
// error leaves the transaction to be rolled back by the caller.
func (l *Ledger) ApplyTx(ctx context.Context, tx store.Tx, adjs []Adjustment) (map[uuid.UUID]*models.MaterialStock, error) {
	const op = "ledger.apply"

	ctx, span := tracer.Start(ctx, op)
	defer span.End()
	span.SetAttributes(attribute.Int("ledger.adjustments", len(adjs)))

	ids := make([]uuid.UUID, 0, len(adjs))
	seen := make(map[uuid.UUID]bool, len(adjs))
	for _, a := range adjs {
		if a.Ref.ID == uuid.Nil {
			return nil, apperr.New(apperr.KindUnknownMaterial, op, "material id is required")
		}
		if !seen[a.Ref.ID] {
			seen[a.Ref.ID] = true
			ids = append(ids, a.Ref.ID)
		}
	}
	if len(ids) == 0 {
		return map[uuid.UUID]*models.MaterialStock{}, nil
	}
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })

	rows, err := tx.LockMaterials(ctx, ids)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	totals := make(map[uuid.UUID]decimal.Decimal, len(ids))
	for _, a := range adjs {
		row, ok := rows[a.Ref.ID]
		if !ok || (a.Ref.Category != "" && row.Category != a.Ref.Category) {
			return nil, apperr.New(apperr.KindUnknownMaterial, op,
				"material %s not found in category %s", a.Ref.ID, a.Ref.Category)
		}
		delta := a.Delta
		if a.Unit != "" && a.Unit != row.Unit {
			delta, err = units.Convert(a.Delta, a.Unit, row.Unit)
			if err != nil {
				return nil, apperr.Validation(op, "unit mismatch for %s: cannot apply %s to stock kept in %s",
					row.Name, a.Unit, row.Unit)
			}
		}
		totals[a.Ref.ID] = totals[a.Ref.ID].Add(delta)
	}

	next := make(map[uuid.UUID]decimal.Decimal, len(ids))
	for _, id := range ids {
		row := rows[id]
		q := row.Quantity.Add(totals[id]).Round(QuantityPlaces)
		if q.IsNegative() {
			return nil, apperr.New(apperr.KindInsufficientStock, op,
				"insufficient stock for %s %s: have %s %s, need %s %s",
				row.Category, row.Name, row.Quantity.String(), row.Unit, totals[id].Neg().String(), row.Unit)
		}
		next[id] = q
	}

	for _, id := range ids {
		row := rows[id]
		row.Quantity = next[id]
		if err := tx.SaveMaterialQuantity(ctx, row); err != nil {
			span.RecordError(err)
			return nil, err
		}
	}

	logger.Get().WithFields(logrus.Fields{
		"module":    "ledger",
		"materials": len(ids),
	}).Debug("stock adjusted")
	return rows, nil
}

// Merge sums adjustments that share a material and unit, keeping first-seen
// order.
func Merge(adjs []Adjustment) []Adjustment {
	type key struct {
		id   uuid.UUID
		unit units.Unit
	}
	idx := make(map[key]int, len(adjs))
	out := make([]Adjustment, 0, len(adjs))
	for _, a := range adjs {
		k := key{a.Ref.ID, a.Unit}
		if i, ok := idx[k]; ok {
			out[i].Delta = out[i].Delta.Add(a.Delta)
			continue
		}
		idx[k] = len(out)
		out = append(out, a)
	}
	return out
}
