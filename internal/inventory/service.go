// Package inventory registers stock rows, applies manual stock corrections
// and serves the current-stock report. Quantities change only through the
// ledger.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"designhouse-backend/internal/apperr"
	"designhouse-backend/internal/audit"
	"designhouse-backend/internal/auth"
	"designhouse-backend/internal/cache"
	"designhouse-backend/internal/ledger"
	"designhouse-backend/internal/logger"
	"designhouse-backend/internal/models"
	"designhouse-backend/internal/store"
	"designhouse-backend/internal/units"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	stockReportVersionKey = "inventory:stock-report:version"
	stockReportTTL        = 5 * time.Minute
)

// A report is cached under the version current when its rows were read, so a
// report built before an invalidation is never served after it.
func stockReportKey(version int64) string {
	return fmt.Sprintf("inventory:stock-report:v%d", version)
}

// reportCache is the part of cache.Cache the stock report uses.
type reportCache interface {
	GetObject(ctx context.Context, key string, dest any) (bool, error)
	SetObject(ctx context.Context, key string, obj any, exp time.Duration) error
	Version(ctx context.Context, key string) (int64, error)
	Bump(ctx context.Context, key string) error
}

type NewMaterial struct {
	Category       models.MaterialCategory
	Name           string
	Number         string
	Color          string
	Size           string
	Width          decimal.Decimal
	PiecesPerRoll  decimal.Decimal
	WeightPerPiece decimal.Decimal
	Unit           units.Unit
	InventoryType  models.InventoryType
}

type StockRow struct {
	ID             uuid.UUID               `json:"id"`
	Category       models.MaterialCategory `json:"category"`
	Name           string                  `json:"name"`
	Number         string                  `json:"number"`
	Color          string                  `json:"color,omitempty"`
	Size           string                  `json:"size,omitempty"`
	InventoryType  models.InventoryType    `json:"inventory_type"`
	Quantity       decimal.Decimal         `json:"quantity"`
	Unit           units.Unit              `json:"unit"`
	WeightPerPiece decimal.Decimal         `json:"weight_per_piece"`
}

// CategoryTotal sums the stock of one category in grams. Pieces without a
// known weight are counted separately.
type CategoryTotal struct {
	Category models.MaterialCategory `json:"category"`
	Grams    decimal.Decimal         `json:"grams"`
	Pieces   decimal.Decimal         `json:"unweighed_pieces"`
}

type StockReport struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Rows        []StockRow      `json:"rows"`
	Totals      []CategoryTotal `json:"totals"`
}

type Service struct {
	store  store.Store
	cache  reportCache
	ledger *ledger.Ledger
}

// NewService builds the service and a ledger that invalidates its report
// cache. A nil cache disables caching.
func NewService(st store.Store, c *cache.Cache) *Service {
	return newService(st, c)
}

func newService(st store.Store, c reportCache) *Service {
	s := &Service{store: st, cache: c}
	s.ledger = ledger.New(st, s)
	return s
}

// Ledger is the ledger every stock writer should share.
func (s *Service) Ledger() *ledger.Ledger {
	return s.ledger
}

// Invalidate retires the cached stock report. It is called after every
// committed ledger change.
func (s *Service) Invalidate(ctx context.Context) {
	if err := s.cache.Bump(ctx, stockReportVersionKey); err != nil {
		logger.LogError("inventory", "Invalidate", "bump stock report version", nil, err)
	}
}

// RegisterMaterial creates a stock row with zero quantity.
func (s *Service) RegisterMaterial(ctx context.Context, in NewMaterial, actor auth.Actor) (*models.MaterialStock, error) {
	const op = "inventory.RegisterMaterial"
	if err := actor.Check(op); err != nil {
		return nil, err
	}
	if in.InventoryType == "" {
		in.InventoryType = models.InventoryInternal
	}
	if err := validateMaterial(op, in); err != nil {
		return nil, err
	}

	now := time.Now()
	m := &models.MaterialStock{
		ID:             uuid.New(),
		Category:       in.Category,
		Name:           strings.TrimSpace(in.Name),
		Number:         strings.TrimSpace(in.Number),
		Color:          in.Color,
		Size:           in.Size,
		Width:          in.Width,
		PiecesPerRoll:  in.PiecesPerRoll,
		WeightPerPiece: in.WeightPerPiece,
		Quantity:       decimal.Zero,
		Unit:           in.Unit,
		InventoryType:  in.InventoryType,
	}
	m.UpdateHistory = audit.Append(nil, actor.ID, "create", map[string]any{
		"name":     m.Name,
		"number":   m.Number,
		"unit":     string(m.Unit),
		"quantity": m.Quantity,
	}, now)

	err := s.store.InTx(ctx, func(tx store.Tx) error {
		if err := tx.CreateMaterial(ctx, m); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return apperr.New(apperr.KindConflict, op, "%s %s already exists in %s inventory", m.Category, m.Number, m.InventoryType)
			}
			return err
		}
		return audit.WriteLog(ctx, tx, audit.LogOptions{
			UserID:      actor.ID,
			Role:        actor.Role,
			EntityType:  "material",
			EntityID:    m.ID,
			Action:      models.AuditActionCreate,
			Description: "registered " + string(m.Category) + " " + m.Number,
			After:       m,
		})
	})
	if err != nil {
		return nil, err
	}
	s.Invalidate(ctx)
	return m, nil
}

// Correction is a manual change to one material's stock, e.g. after a
// recount. An empty Unit means the material's own unit.
type Correction struct {
	Delta  decimal.Decimal
	Unit   units.Unit
	Reason string
}

// AdjustQuantity applies a correction through the ledger and records it on
// the material and in the audit log, all in one transaction. A correction
// that would take stock below zero fails with InsufficientStock.
func (s *Service) AdjustQuantity(ctx context.Context, id uuid.UUID, in Correction, actor auth.Actor) (*models.MaterialStock, error) {
	const op = "inventory.AdjustQuantity"
	if err := actor.Check(op); err != nil {
		return nil, err
	}
	in.Reason = strings.TrimSpace(in.Reason)
	switch {
	case in.Delta.IsZero():
		return nil, apperr.Validation(op, "delta must not be zero")
	case in.Reason == "":
		return nil, apperr.Validation(op, "a reason is required")
	case in.Unit != "" && !in.Unit.Valid():
		return nil, apperr.Validation(op, "unknown unit %q", in.Unit)
	}

	var category models.MaterialCategory
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		rows, err := tx.GetMaterials(ctx, []uuid.UUID{id})
		if err != nil {
			return err
		}
		m, ok := rows[id]
		if !ok {
			return apperr.NotFound(op, "material %s not found", id)
		}
		category = m.Category
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.ledger.Adjust(ctx, ledger.MaterialRef{ID: id, Category: category}, in.Delta, in.Unit,
		func(ctx context.Context, tx store.Tx, rows map[uuid.UUID]*models.MaterialStock) error {
			m := rows[id]
			unit := in.Unit
			if unit == "" {
				unit = m.Unit
			}
			m.UpdateHistory = audit.Append(m.UpdateHistory, actor.ID, "adjust", map[string]any{
				"delta":    in.Delta.String() + " " + string(unit),
				"quantity": m.Quantity,
				"reason":   in.Reason,
			}, time.Now())
			if err := tx.SaveMaterialHistory(ctx, m); err != nil {
				return err
			}
			return audit.WriteLog(ctx, tx, audit.LogOptions{
				UserID:      actor.ID,
				Role:        actor.Role,
				EntityType:  "material",
				EntityID:    m.ID,
				Action:      models.AuditActionAdjust,
				Description: "stock correction for " + string(m.Category) + " " + m.Number + ": " + in.Reason,
				After:       m,
			})
		})
}

func validateMaterial(op string, in NewMaterial) error {
	switch {
	case !in.Category.Valid():
		return apperr.Validation(op, "unknown category %q", in.Category)
	case !in.InventoryType.Valid():
		return apperr.Validation(op, "unknown inventory type %q", in.InventoryType)
	case !in.Unit.Valid():
		return apperr.Validation(op, "unknown unit %q", in.Unit)
	case strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Number) == "":
		return apperr.Validation(op, "name and number are required")
	case in.WeightPerPiece.IsNegative() || in.Width.IsNegative() || in.PiecesPerRoll.IsNegative():
		return apperr.Validation(op, "dimensions must not be negative")
	}
	return nil
}

// StockReport returns the current stock, from cache when possible.
func (s *Service) StockReport(ctx context.Context, f store.MaterialFilter) (*StockReport, error) {
	cacheable := f.Category == "" && f.InventoryType == ""
	var key string
	if cacheable {
		version, err := s.cache.Version(ctx, stockReportVersionKey)
		if err != nil {
			logger.LogError("inventory", "StockReport", "read stock report version", nil, err)
			cacheable = false
		}
		key = stockReportKey(version)
	}
	if cacheable {
		var cached StockReport
		found, err := s.cache.GetObject(ctx, key, &cached)
		if err != nil {
			logger.LogError("inventory", "StockReport", "read stock report cache", nil, err)
		}
		if found {
			return &cached, nil
		}
	}

	var rows []models.MaterialStock
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		rows, err = tx.ListMaterials(ctx, f)
		return err
	})
	if err != nil {
		return nil, err
	}

	report := buildReport(rows, time.Now().UTC())
	if cacheable {
		if err := s.cache.SetObject(ctx, key, report, stockReportTTL); err != nil {
			logger.LogError("inventory", "StockReport", "write stock report cache", nil, err)
		}
	}
	return report, nil
}

func buildReport(rows []models.MaterialStock, at time.Time) *StockReport {
	report := &StockReport{GeneratedAt: at, Rows: make([]StockRow, 0, len(rows))}
	totals := map[models.MaterialCategory]*CategoryTotal{}
	var order []models.MaterialCategory

	for _, m := range rows {
		report.Rows = append(report.Rows, StockRow{
			ID:             m.ID,
			Category:       m.Category,
			Name:           m.Name,
			Number:         m.Number,
			Color:          m.Color,
			Size:           m.Size,
			InventoryType:  m.InventoryType,
			Quantity:       m.Quantity,
			Unit:           m.Unit,
			WeightPerPiece: m.WeightPerPiece,
		})

		t, ok := totals[m.Category]
		if !ok {
			t = &CategoryTotal{Category: m.Category}
			totals[m.Category] = t
			order = append(order, m.Category)
		}
		if m.Unit == units.Piece && !m.WeightPerPiece.IsPositive() {
			t.Pieces = t.Pieces.Add(m.Quantity)
			continue
		}
		if g, err := units.ToGrams(m.Quantity, m.Unit, m.WeightPerPiece); err == nil {
			t.Grams = t.Grams.Add(g)
		}
	}

	report.Totals = make([]CategoryTotal, 0, len(order))
	for _, c := range order {
		report.Totals = append(report.Totals, *totals[c])
	}
	return report
}
