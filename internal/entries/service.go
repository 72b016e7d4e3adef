// Package entries is the approval workflow for material receipts. An entry
// is submitted pending and credits stock only when approved.
package entries

import (
	"context"
	"errors"
	"strings"
	"time"

	"designhouse-backend/internal/apperr"
	"designhouse-backend/internal/audit"
	"designhouse-backend/internal/auth"
	"designhouse-backend/internal/cache"
	"designhouse-backend/internal/events"
	"designhouse-backend/internal/ledger"
	"designhouse-backend/internal/logger"
	"designhouse-backend/internal/models"
	"designhouse-backend/internal/store"
	"designhouse-backend/internal/units"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("designhouse-backend/internal/entries")

type Deps struct {
	Store  store.Store
	Ledger *ledger.Ledger
	Locker *cache.Locker
	Events events.Publisher
}

type Service struct {
	store  store.Store
	ledger *ledger.Ledger
	locker *cache.Locker
	events events.Publisher
}

func NewService(d Deps) *Service {
	if d.Events == nil {
		d.Events = events.Noop{}
	}
	if d.Ledger == nil {
		d.Ledger = ledger.New(d.Store, nil)
	}
	return &Service{store: d.Store, ledger: d.Ledger, locker: d.Locker, events: d.Events}
}

type NewEntry struct {
	InventoryType models.EntryCategory
	Items         []models.EntryItem
	SupplierID    *uuid.UUID
	BillNumber    string
	BillDate      *time.Time
	SourceOrderID *uuid.UUID
	Notes         string
}

// Submit records a receipt as pending. Items may name materials that are not
// registered yet; those are resolved when the entry is approved. Items that
// name a registered material must be in a unit its stock converts from.
func (s *Service) Submit(ctx context.Context, in NewEntry, actor auth.Actor) (*models.InventoryEntry, error) {
	const op = "entries.Submit"
	if err := actor.Check(op); err != nil {
		return nil, err
	}
	if !in.InventoryType.Valid() {
		return nil, apperr.Validation(op, "unknown inventory type %q", in.InventoryType)
	}
	if len(in.Items) == 0 {
		return nil, apperr.Validation(op, "an entry needs at least one item")
	}
	for i, it := range in.Items {
		if !it.Quantity.IsPositive() {
			return nil, apperr.Validation(op, "item %d needs a positive quantity", i)
		}
		if !in.InventoryType.Accepts(it.Category) {
			return nil, apperr.Validation(op, "item %d: %s does not belong in a %s entry", i, it.Category, in.InventoryType)
		}
		if it.Unit != "" && !it.Unit.Valid() {
			return nil, apperr.Validation(op, "item %d: unknown unit %q", i, it.Unit)
		}
		if it.MaterialID == uuid.Nil {
			return nil, apperr.Validation(op, "item %d needs a material id", i)
		}
	}

	e := &models.InventoryEntry{
		ID:            uuid.New(),
		InventoryType: in.InventoryType,
		Items:         in.Items,
		SupplierID:    in.SupplierID,
		BillNumber:    strings.TrimSpace(in.BillNumber),
		BillDate:      in.BillDate,
		SourceOrderID: in.SourceOrderID,
		Status:        models.EntryPending,
		EnteredBy:     actor.ID,
		Notes:         in.Notes,
	}
	e.UpdateHistory = audit.Append(nil, actor.ID, "create", map[string]any{
		"status":         e.Status,
		"inventory_type": e.InventoryType,
		"items":          len(e.Items),
		"bill_number":    e.BillNumber,
	}, time.Now())

	err := s.store.InTx(ctx, func(tx store.Tx) error {
		if e.SupplierID != nil {
			if _, err := tx.GetSupplier(ctx, *e.SupplierID); errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound(op, "supplier %s not found", *e.SupplierID)
			} else if err != nil {
				return err
			}
		}
		if e.SourceOrderID != nil {
			if _, err := tx.GetOrder(ctx, *e.SourceOrderID, false); errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound(op, "source order %s not found", *e.SourceOrderID)
			} else if err != nil {
				return err
			}
		}
		if err := checkItems(ctx, tx, op, e.Items); err != nil {
			return err
		}
		if err := tx.CreateEntry(ctx, e); err != nil {
			return err
		}
		return audit.WriteLog(ctx, tx, audit.LogOptions{
			UserID:      actor.ID,
			Role:        actor.Role,
			EntityType:  "inventory_entry",
			EntityID:    e.ID,
			Action:      models.AuditActionCreate,
			Description: "submitted " + string(e.InventoryType) + " entry",
			After:       e,
		})
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

func checkItems(ctx context.Context, tx store.Tx, op string, items []models.EntryItem) error {
	ids := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.MaterialID)
	}
	rows, err := tx.GetMaterials(ctx, ids)
	if err != nil {
		return err
	}
	for i, it := range items {
		m, ok := rows[it.MaterialID]
		if !ok {
			continue
		}
		if m.Category != it.Category {
			return apperr.New(apperr.KindUnknownMaterial, op, "material %s not found in category %s", it.MaterialID, it.Category)
		}
		if it.Unit == "" || it.Unit == m.Unit {
			continue
		}
		if _, err := units.Convert(it.Quantity, it.Unit, m.Unit); err != nil {
			return apperr.Validation(op, "item %d: %s %s is kept in %s, not %s", i, m.Category, m.Name, m.Unit, it.Unit)
		}
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.InventoryEntry, error) {
	var e *models.InventoryEntry
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		e, err = tx.GetEntry(ctx, id, false)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("entries.Get", "inventory entry %s not found", id)
		}
		return err
	})
	return e, err
}

// Credits is the stock change approving items makes.
func Credits(items []models.EntryItem) []ledger.Adjustment {
	adjs := make([]ledger.Adjustment, 0, len(items))
	for _, it := range items {
		adjs = append(adjs, ledger.Adjustment{
			Ref:   ledger.MaterialRef{ID: it.MaterialID, Category: it.Category},
			Delta: it.Quantity,
			Unit:  it.Unit,
		})
	}
	return ledger.Merge(adjs)
}

// Approve credits every item to stock and marks the entry approved, in one
// transaction. A ledger failure leaves the entry pending.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, actor auth.Actor) (*models.InventoryEntry, error) {
	return s.decide(ctx, "entries.Approve", id, actor, models.EntryApproved)
}

// Reject closes a pending entry without touching stock.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, actor auth.Actor) (*models.InventoryEntry, error) {
	return s.decide(ctx, "entries.Reject", id, actor, models.EntryRejected)
}

func (s *Service) decide(ctx context.Context, op string, id uuid.UUID, actor auth.Actor, next models.EntryStatus) (*models.InventoryEntry, error) {
	if err := actor.Check(op); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, op)
	defer span.End()
	span.SetAttributes(attribute.String("entry.id", id.String()), attribute.String("entry.decision", string(next)))

	release, err := s.locker.Obtain(ctx, "inventory-entry:decide:"+id.String())
	if errors.Is(err, cache.ErrBusy) {
		return nil, apperr.New(apperr.KindConflict, op, "inventory entry %s is already being decided", id)
	}
	if err != nil {
		return nil, err
	}
	defer release()

	var e *models.InventoryEntry
	err = s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		e, err = tx.GetEntry(ctx, id, true)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound(op, "inventory entry %s not found", id)
		}
		if err != nil {
			return err
		}
		if !e.Status.CanTransitionTo(next) {
			return apperr.New(apperr.KindNotPending, op, "inventory entry %s is %s, not pending", id, e.Status)
		}

		if next == models.EntryApproved {
			if _, err := s.ledger.ApplyTx(ctx, tx, Credits(e.Items)); err != nil {
				return err
			}
		}

		now := time.Now()
		prev := e.Status
		e.Status = next
		e.ApprovedBy = &actor.ID
		e.DecidedAt = &now
		e.UpdateHistory = audit.Append(e.UpdateHistory, actor.ID, string(next), map[string]any{
			"status":      e.Status,
			"approved_by": e.ApprovedBy.String(),
			"decided_at":  e.DecidedAt,
		}, now)

		if err := tx.SaveEntry(ctx, e); err != nil {
			return err
		}
		action := models.AuditActionApprove
		if next == models.EntryRejected {
			action = models.AuditActionReject
		}
		return audit.WriteLog(ctx, tx, audit.LogOptions{
			UserID:      actor.ID,
			Role:        actor.Role,
			EntityType:  "inventory_entry",
			EntityID:    e.ID,
			Action:      action,
			Description: string(next) + " " + string(e.InventoryType) + " entry",
			Before:      map[string]any{"status": prev},
			After:       map[string]any{"status": e.Status, "items": e.Items},
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	evType := events.TypeEntryRejected
	if next == models.EntryApproved {
		s.ledger.Committed(ctx)
		evType = events.TypeEntryApproved
	}
	if err := s.events.Publish(context.WithoutCancel(ctx), events.Event{
		Type:    evType,
		ID:      e.ID,
		ActorID: actor.ID,
		At:      *e.DecidedAt,
		Data:    map[string]any{"inventory_type": e.InventoryType, "items": len(e.Items)},
	}); err != nil {
		logger.LogError("entries", "decide", "publish "+evType, e.ID.String(), err)
	}
	return e, nil
}
