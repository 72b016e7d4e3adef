// Package orders creates customer orders and finalizes them: the reported
// weight is reconciled, recipe materials are debited and the order is
// closed in a single transaction.
package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"designhouse-backend/internal/apperr"
	"designhouse-backend/internal/audit"
	"designhouse-backend/internal/auth"
	"designhouse-backend/internal/cache"
	"designhouse-backend/internal/catalog"
	"designhouse-backend/internal/events"
	"designhouse-backend/internal/ledger"
	"designhouse-backend/internal/logger"
	"designhouse-backend/internal/models"
	"designhouse-backend/internal/pricing"
	"designhouse-backend/internal/reconcile"
	"designhouse-backend/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("designhouse-backend/internal/orders")

// DiscrepancyPolicy decides what happens when the reported weight is off by
// more than AlertPercent. Zero AlertPercent disables it.
type DiscrepancyPolicy struct {
	AlertPercent decimal.Decimal
	// Hold refuses the finalize instead of flagging the order.
	Hold bool
}

type Deps struct {
	Store       store.Store
	Ledger      *ledger.Ledger
	Pricing     *pricing.Engine
	Locker      *cache.Locker
	Events      events.Publisher
	Discrepancy DiscrepancyPolicy
}

type Service struct {
	store       store.Store
	ledger      *ledger.Ledger
	pricing     *pricing.Engine
	locker      *cache.Locker
	events      events.Publisher
	discrepancy DiscrepancyPolicy
}

func NewService(d Deps) *Service {
	if d.Events == nil {
		d.Events = events.Noop{}
	}
	if d.Pricing == nil {
		d.Pricing = pricing.New(pricing.DefaultPolicy())
	}
	if d.Ledger == nil {
		d.Ledger = ledger.New(d.Store, nil)
	}
	return &Service{
		store:       d.Store,
		ledger:      d.Ledger,
		pricing:     d.Pricing,
		locker:      d.Locker,
		events:      d.Events,
		discrepancy: d.Discrepancy,
	}
}

type NewLine struct {
	DesignID uuid.UUID
	Quantity int
}

type NewOrder struct {
	Type          models.OrderType
	CustomerID    *uuid.UUID
	CustomerName  string
	Phone         string
	GSTNumber     string
	Lines         []NewLine
	ModeOfPayment models.PaymentMode
	PaymentStatus models.PaymentStatus
	Discount      pricing.Discount
	Notes         string
}

// Create prices the order and stores it pending. Price tiers and recipes are
// copied from the designs so later catalog edits do not change the order.
func (s *Service) Create(ctx context.Context, in NewOrder, actor auth.Actor) (*models.Order, error) {
	const op = "orders.Create"
	if err := actor.Check(op); err != nil {
		return nil, err
	}
	if err := validateNewOrder(op, &in); err != nil {
		return nil, err
	}

	o := &models.Order{
		ID:            uuid.New(),
		Type:          in.Type,
		CustomerID:    in.CustomerID,
		CustomerName:  in.CustomerName,
		Phone:         in.Phone,
		GSTNumber:     in.GSTNumber,
		ModeOfPayment: in.ModeOfPayment,
		PaymentStatus: in.PaymentStatus,
		DiscountType:  in.Discount.Type,
		DiscountValue: in.Discount.Value,
		Notes:         in.Notes,
		Status:        models.OrderPending,
		CreatedBy:     actor.ID,
	}

	err := s.store.InTx(ctx, func(tx store.Tx) error {
		if err := s.linkCustomer(ctx, tx, op, o, actor); err != nil {
			return err
		}
		lines, err := snapshotLines(ctx, tx, op, in.Lines)
		if err != nil {
			return err
		}
		priced, err := s.pricing.Price(lines, in.Discount)
		if err != nil {
			return err
		}
		o.DesignOrders = priced.Lines
		o.GrossAmount = priced.Gross
		o.DiscountedAmount = priced.DiscountedAmount
		o.FinalAmount = priced.FinalAmount
		o.UpdateHistory = audit.Append(nil, actor.ID, "create", map[string]any{
			"status":       o.Status,
			"lines":        len(o.DesignOrders),
			"gross_amount": o.GrossAmount,
			"final_amount": o.FinalAmount,
		}, time.Now())

		if err := tx.CreateOrder(ctx, o); err != nil {
			return err
		}
		return audit.WriteLog(ctx, tx, audit.LogOptions{
			UserID:      actor.ID,
			Role:        actor.Role,
			EntityType:  "order",
			EntityID:    o.ID,
			Action:      models.AuditActionCreate,
			Description: "order for " + o.CustomerName,
			After:       o,
		})
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// linkCustomer points the order at its customer. An explicit CustomerID must
// exist; otherwise the customer is found by phone or created.
func (s *Service) linkCustomer(ctx context.Context, tx store.Tx, op string, o *models.Order, actor auth.Actor) error {
	var c *models.Customer
	if o.CustomerID != nil {
		var err error
		c, err = tx.GetCustomer(ctx, *o.CustomerID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound(op, "customer %s not found", *o.CustomerID)
		}
		if err != nil {
			return err
		}
	} else {
		var err error
		c, _, err = catalog.ResolveCustomer(ctx, tx, catalog.NewCustomer{
			Name:      o.CustomerName,
			Phone:     o.Phone,
			GSTNumber: o.GSTNumber,
		}, actor)
		if err != nil {
			return err
		}
	}
	o.CustomerID = &c.ID
	if o.CustomerName == "" {
		o.CustomerName = c.Name
	}
	if o.Phone == "" {
		o.Phone = c.Phone
	}
	return nil
}

func validateNewOrder(op string, in *NewOrder) error {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.Phone = strings.TrimSpace(in.Phone)
	if in.Type == "" {
		in.Type = models.OrderInternal
	}
	if in.ModeOfPayment == "" {
		in.ModeOfPayment = models.PaymentCash
	}
	if in.PaymentStatus == "" {
		in.PaymentStatus = models.PaymentPending
	}
	switch {
	case !in.Type.Valid():
		return apperr.Validation(op, "unknown order type %q", in.Type)
	case in.CustomerID == nil && (in.CustomerName == "" || in.Phone == ""):
		return apperr.Validation(op, "customer name and phone are required without a customer id")
	case len(in.Lines) == 0:
		return apperr.Validation(op, "an order needs at least one design")
	}
	for _, l := range in.Lines {
		if l.Quantity <= 0 {
			return apperr.Validation(op, "quantity for design %s must be positive", l.DesignID)
		}
	}
	return nil
}

func snapshotLines(ctx context.Context, tx store.Tx, op string, in []NewLine) ([]models.DesignLineItem, error) {
	ids := make([]uuid.UUID, 0, len(in))
	for _, l := range in {
		ids = append(ids, l.DesignID)
	}
	designs, err := tx.GetDesigns(ctx, ids)
	if err != nil {
		return nil, err
	}

	var materialIDs []uuid.UUID
	for _, d := range designs {
		for _, m := range d.DefaultMaterials {
			materialIDs = append(materialIDs, m.MaterialID)
		}
	}
	materials, err := tx.GetMaterials(ctx, materialIDs)
	if err != nil {
		return nil, err
	}

	lines := make([]models.DesignLineItem, 0, len(in))
	for _, l := range in {
		d, ok := designs[l.DesignID]
		if !ok {
			return nil, apperr.NotFound(op, "design %s not found", l.DesignID)
		}
		recipe := make([]models.RecipeItem, 0, len(d.DefaultMaterials))
		for _, r := range d.DefaultMaterials {
			m, ok := materials[r.MaterialID]
			if !ok || m.Category != r.Category {
				return nil, apperr.New(apperr.KindUnknownMaterial, op,
					"design %s uses material %s which is not in category %s", d.Number, r.MaterialID, r.Category)
			}
			r.WeightPerPiece = m.WeightPerPiece
			recipe = append(recipe, r)
		}
		lines = append(lines, models.DesignLineItem{
			DesignID:     d.ID,
			DesignNumber: d.Number,
			DesignName:   d.Name,
			Quantity:     l.Quantity,
			PriceTiers:   append([]models.PriceTier(nil), d.Prices...),
			Materials:    recipe,
		})
	}
	return lines, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var o *models.Order
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		o, err = tx.GetOrder(ctx, id, false)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("orders.Get", "order %s not found", id)
		}
		return err
	})
	return o, err
}

// Consumption is the stock debit for finalizing lines: every recipe item
// times its line quantity, merged per material and unit.
func Consumption(lines []models.DesignLineItem) []ledger.Adjustment {
	var adjs []ledger.Adjustment
	for _, line := range lines {
		qty := decimal.NewFromInt(int64(line.Quantity))
		for _, m := range line.Materials {
			adjs = append(adjs, ledger.Adjustment{
				Ref:   ledger.MaterialRef{ID: m.MaterialID, Category: m.Category},
				Delta: m.Quantity.Mul(qty).Neg(),
				Unit:  m.Unit,
			})
		}
	}
	return ledger.Merge(adjs)
}

// Finalize closes a pending order. reportedWeight is the measured total in
// grams. On any error the order and stock are left as they were.
func (s *Service) Finalize(ctx context.Context, id uuid.UUID, reportedWeight decimal.Decimal, actor auth.Actor) (*models.Order, error) {
	const op = "orders.Finalize"
	if err := actor.Check(op); err != nil {
		return nil, err
	}
	if reportedWeight.IsNegative() {
		return nil, apperr.Validation(op, "invalid weight: final total weight must not be negative")
	}

	ctx, span := tracer.Start(ctx, op)
	defer span.End()
	span.SetAttributes(attribute.String("order.id", id.String()))

	release, err := s.locker.Obtain(ctx, "order:finalize:"+id.String())
	if errors.Is(err, cache.ErrBusy) {
		return nil, apperr.New(apperr.KindConflict, op, "order %s is already being finalized", id)
	}
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		o       *models.Order
		result  reconcile.Result
		flagged bool
	)
	err = s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		o, err = tx.GetOrder(ctx, id, true)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound(op, "order %s not found", id)
		}
		if err != nil {
			return err
		}
		if o.IsFinalized || !o.Status.CanTransitionTo(models.OrderFinalized) {
			return apperr.New(apperr.KindAlreadyFinalized, op, "order %s is already finalized", id)
		}

		result, err = reconcile.Reconcile(o.DesignOrders, reportedWeight)
		if err != nil {
			return err
		}
		flagged = reconcile.Exceeds(result, s.discrepancy.AlertPercent)
		if flagged && s.discrepancy.Hold {
			return apperr.New(apperr.KindDiscrepancyExceeded, op,
				"weight discrepancy %s%% exceeds %s%%", result.DiscrepancyPercentage, s.discrepancy.AlertPercent)
		}

		if _, err := s.ledger.ApplyTx(ctx, tx, Consumption(o.DesignOrders)); err != nil {
			return err
		}

		now := time.Now()
		o.CalculatedWeight = decimal.NewNullDecimal(result.CalculatedWeight)
		o.FinalTotalWeight = decimal.NewNullDecimal(result.ReportedWeight)
		o.WeightDiscrepancy = decimal.NewNullDecimal(result.WeightDiscrepancy)
		o.DiscrepancyPercentage = decimal.NewNullDecimal(result.DiscrepancyPercentage)
		o.DiscrepancyFlagged = flagged
		o.Status = models.OrderFinalized
		o.IsFinalized = true
		o.FinalizedAt = &now
		o.UpdatedBy = &actor.ID
		o.UpdateHistory = audit.Append(o.UpdateHistory, actor.ID, "finalize", map[string]any{
			"status":                 o.Status,
			"calculated_weight":      o.CalculatedWeight,
			"final_total_weight":     o.FinalTotalWeight,
			"weight_discrepancy":     o.WeightDiscrepancy,
			"discrepancy_percentage": o.DiscrepancyPercentage,
			"discrepancy_flagged":    o.DiscrepancyFlagged,
			"finalized_at":           o.FinalizedAt,
		}, now)

		if err := tx.SaveOrder(ctx, o); err != nil {
			return err
		}
		return audit.WriteLog(ctx, tx, audit.LogOptions{
			UserID:      actor.ID,
			Role:        actor.Role,
			EntityType:  "order",
			EntityID:    o.ID,
			Action:      models.AuditActionFinalize,
			Description: "finalized order for " + o.CustomerName,
			Before:      map[string]any{"status": models.OrderPending, "is_finalized": false},
			After:       result,
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.ledger.Committed(ctx)

	if flagged {
		logger.Get().WithFields(logrus.Fields{
			"module":                 "orders",
			"order_id":               o.ID,
			"discrepancy_percentage": result.DiscrepancyPercentage.String(),
			"alert_percent":          s.discrepancy.AlertPercent.String(),
		}).Warn("order finalized with weight discrepancy above threshold")
	}

	s.publish(ctx, events.Event{
		Type:    events.TypeOrderFinalized,
		ID:      o.ID,
		ActorID: actor.ID,
		At:      *o.FinalizedAt,
		Data: map[string]any{
			"calculated_weight":      result.CalculatedWeight.String(),
			"final_total_weight":     result.ReportedWeight.String(),
			"weight_discrepancy":     result.WeightDiscrepancy.String(),
			"discrepancy_percentage": result.DiscrepancyPercentage.String(),
			"discrepancy_flagged":    flagged,
			"final_amount":           o.FinalAmount.String(),
		},
	})
	return o, nil
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if err := s.events.Publish(context.WithoutCancel(ctx), e); err != nil {
		logger.LogError("orders", "publish", "publish "+e.Type, e.ID.String(), err)
	}
}
