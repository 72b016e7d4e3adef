package entries

import (
	"time"

	"designhouse-backend/internal/apperr"
	"designhouse-backend/internal/auth"
	"designhouse-backend/internal/httpx"
	"designhouse-backend/internal/models"
	"designhouse-backend/internal/units"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EntryItemRequest struct {
	Category   models.MaterialCategory `json:"category" validate:"required,oneof=stone paper plastic tape"`
	MaterialID uuid.UUID               `json:"material_id" validate:"required"`
	Quantity   decimal.Decimal         `json:"quantity"`
	Unit       units.Unit              `json:"unit" validate:"omitempty,oneof=g kg pcs"`
}

// Any client-supplied status is ignored: entries always start pending.
type CreateEntryRequest struct {
	InventoryType models.EntryCategory `json:"inventory_type" validate:"required,oneof=paper plastic stones tape mixed"`
	Items         []EntryItemRequest   `json:"items" validate:"required,min=1,dive"`
	SupplierID    *uuid.UUID           `json:"supplier_id"`
	BillNumber    string               `json:"bill_number" validate:"max=100"`
	BillDate      string               `json:"bill_date"` // "2025-12-09"
	SourceOrderID *uuid.UUID           `json:"source_order_id"`
	Notes         string               `json:"notes"`
}

// POST /api/inventory-entries
func CreateEntryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateEntryRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}

		var billDate *time.Time
		if body.BillDate != "" {
			d, err := time.Parse("2006-01-02", body.BillDate)
			if err != nil {
				return apperr.Validation("", "bill_date must be YYYY-MM-DD")
			}
			billDate = &d
		}
		items := make([]models.EntryItem, 0, len(body.Items))
		for _, it := range body.Items {
			items = append(items, models.EntryItem{
				Category:   it.Category,
				MaterialID: it.MaterialID,
				Quantity:   it.Quantity,
				Unit:       it.Unit,
			})
		}

		e, err := svc.Submit(c.UserContext(), NewEntry{
			InventoryType: body.InventoryType,
			Items:         items,
			SupplierID:    body.SupplierID,
			BillNumber:    body.BillNumber,
			BillDate:      billDate,
			SourceOrderID: body.SourceOrderID,
			Notes:         body.Notes,
		}, auth.ActorFrom(c))
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(e)
	}
}

// GET /api/inventory-entries/:id
func GetEntryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c, "id")
		if err != nil {
			return err
		}
		e, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(e)
	}
}

// POST /api/inventory-entries/:id/approve
func ApproveEntryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c, "id")
		if err != nil {
			return err
		}
		e, err := svc.Approve(c.UserContext(), id, auth.ActorFrom(c))
		if err != nil {
			return err
		}
		return c.JSON(e)
	}
}

// POST /api/inventory-entries/:id/reject
func RejectEntryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c, "id")
		if err != nil {
			return err
		}
		e, err := svc.Reject(c.UserContext(), id, auth.ActorFrom(c))
		if err != nil {
			return err
		}
		return c.JSON(e)
	}
}
