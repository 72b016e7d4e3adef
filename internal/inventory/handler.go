package inventory

import (
	"designhouse-backend/internal/auth"
	"designhouse-backend/internal/httpx"
	"designhouse-backend/internal/models"
	"designhouse-backend/internal/store"
	"designhouse-backend/internal/units"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type CreateMaterialRequest struct {
	Category       models.MaterialCategory `json:"category" validate:"required"`
	Name           string                  `json:"name" validate:"required,max=150"`
	Number         string                  `json:"number" validate:"required,max=100"`
	Color          string                  `json:"color" validate:"max=50"`
	Size           string                  `json:"size" validate:"max=50"`
	Width          decimal.Decimal         `json:"width"`
	PiecesPerRoll  decimal.Decimal         `json:"pieces_per_roll"`
	WeightPerPiece decimal.Decimal         `json:"weight_per_piece"`
	Unit           units.Unit              `json:"unit" validate:"required"`
	InventoryType  models.InventoryType    `json:"inventory_type"`
}

// POST /api/materials
func CreateMaterialHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateMaterialRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}

		m, err := svc.RegisterMaterial(c.UserContext(), NewMaterial{
			Category:       body.Category,
			Name:           body.Name,
			Number:         body.Number,
			Color:          body.Color,
			Size:           body.Size,
			Width:          body.Width,
			PiecesPerRoll:  body.PiecesPerRoll,
			WeightPerPiece: body.WeightPerPiece,
			Unit:           body.Unit,
			InventoryType:  body.InventoryType,
		}, auth.ActorFrom(c))
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(m)
	}
}

type AdjustQuantityRequest struct {
	Delta  *decimal.Decimal `json:"delta" validate:"required"`
	Unit   units.Unit       `json:"unit" validate:"omitempty,oneof=g kg pcs"`
	Reason string           `json:"reason" validate:"required,max=500"`
}

// PATCH /api/materials/:id/quantity
func AdjustQuantityHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c, "id")
		if err != nil {
			return err
		}
		var body AdjustQuantityRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}

		m, err := svc.AdjustQuantity(c.UserContext(), id, Correction{
			Delta:  *body.Delta,
			Unit:   body.Unit,
			Reason: body.Reason,
		}, auth.ActorFrom(c))
		if err != nil {
			return err
		}
		return c.JSON(m)
	}
}

// GET /api/inventory/stock?category=stone&inventory_type=internal
func GetCurrentStockHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		report, err := svc.StockReport(c.UserContext(), store.MaterialFilter{
			Category:      models.MaterialCategory(c.Query("category")),
			InventoryType: models.InventoryType(c.Query("inventory_type")),
		})
		if err != nil {
			return err
		}
		return c.JSON(report)
	}
}
